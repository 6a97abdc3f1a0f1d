package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lhotari/nosqlbench/internal/kafka"
	"github.com/lhotari/nosqlbench/internal/loadgen"
	"github.com/lhotari/nosqlbench/internal/metrics"
	"github.com/lhotari/nosqlbench/internal/seqtracker"
)

var (
	runTemplate string
	runTopic    string
	runDuration time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a producer/consumer workload end-to-end and report tracker counters",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runTemplate, "template", "smoke",
		"named workload template (smoke, reorder-burst, sustained)")
	runCmd.Flags().StringVar(&runTopic, "topic", "",
		"override the template's topic name")
	runCmd.Flags().DurationVar(&runDuration, "drain", 2*time.Second,
		"time to let consumers drain after producers finish")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	tpl, err := loadgen.LookupTemplate(runTemplate)
	if err != nil {
		return err
	}
	if runTopic != "" {
		tpl.Topic = runTopic
	}
	cfg := tpl.ToRunnerConfig(groupIDFlag)
	cfg.ProduceDuration = runDuration

	brokerCfg := kafka.Config{Brokers: brokers()}
	producer, err := kafka.NewProducer(brokerCfg)
	if err != nil {
		return fmt.Errorf("build producer: %w", err)
	}
	defer func() { _ = producer.Close() }()

	m := metrics.New()
	registry := seqtracker.NewRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := loadgen.NewRunner(cfg, brokerCfg, producer, registry, m)
	result, err := runner.Run(ctx)
	if err != nil {
		logger.Error("run finished with an error", "error", err)
	}

	logger.Info("run complete",
		"template", tpl.Name,
		"topic", cfg.Topic,
		"total_messages", result.TotalMessages,
		"duration", result.Duration.String(),
		"throughput_msg_per_sec", result.Throughput,
		"out_of_seq", result.OutOfSeq,
		"duplicate", result.Duplicate,
		"loss", result.Loss,
	)
	return err
}
