package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lhotari/nosqlbench/internal/kafka"
	"github.com/lhotari/nosqlbench/internal/loadgen"
)

var (
	produceTopic     string
	produceCount     int
	produceSize      int
	produceRate      int
	produceTargetMax int64
	produceSetTarget bool
)

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Publish a sequence-stamped stream to one topic",
	RunE:  runProduce,
}

func init() {
	produceCmd.Flags().StringVar(&produceTopic, "topic", "", "topic to publish to (required)")
	produceCmd.Flags().IntVar(&produceCount, "count", 1000, "number of messages to publish")
	produceCmd.Flags().IntVar(&produceSize, "size", 256, "message payload size in bytes")
	produceCmd.Flags().IntVar(&produceRate, "rate", 0, "messages per second, 0 for unthrottled")
	produceCmd.Flags().Int64Var(&produceTargetMax, "target-max", 0, "sequence_tgt_max to stamp on every message")
	produceCmd.Flags().BoolVar(&produceSetTarget, "set-target-max", false, "stamp sequence_tgt_max using --target-max")
	_ = produceCmd.MarkFlagRequired("topic")
}

func runProduce(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	producer, err := kafka.NewProducer(kafka.Config{Brokers: brokers()})
	if err != nil {
		return fmt.Errorf("build producer: %w", err)
	}
	defer func() { _ = producer.Close() }()

	pcfg := loadgen.ProducerConfig{
		Topic:       produceTopic,
		NumMessages: produceCount,
		MessageSize: produceSize,
		Rate:        produceRate,
	}
	if produceSetTarget {
		pcfg.TargetMax = &produceTargetMax
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := loadgen.NewProducer(producer, pcfg)
	n, err := p.Run(ctx)
	logger.Info("produce complete", "topic", produceTopic, "published", n)
	return err
}
