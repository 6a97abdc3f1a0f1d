package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	brokersFlag  string
	groupIDFlag  string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:           "seqbench",
	Short:         "Load-generation driver for the Kafka sequence tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&brokersFlag, "brokers", "localhost:9092",
		"comma-separated Kafka broker addresses")
	rootCmd.PersistentFlags().StringVar(&groupIDFlag, "group", "seqbench",
		"Kafka consumer group ID")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(produceCmd)
	rootCmd.AddCommand(consumeCmd)
}

func brokers() []string {
	return strings.Split(brokersFlag, ",")
}

func newLogger() *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(logLevelFlag) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
