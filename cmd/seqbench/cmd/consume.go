package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lhotari/nosqlbench/internal/kafka"
	"github.com/lhotari/nosqlbench/internal/loadgen"
	"github.com/lhotari/nosqlbench/internal/metrics"
	"github.com/lhotari/nosqlbench/internal/seqtracker"
)

var consumeTopic string

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Track an externally-produced stream on one topic until interrupted",
	RunE:  runConsume,
}

func init() {
	consumeCmd.Flags().StringVar(&consumeTopic, "topic", "", "topic to consume and track (required)")
	_ = consumeCmd.MarkFlagRequired("topic")
}

func runConsume(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	m := metrics.New()
	registry := seqtracker.NewRegistry()

	kc, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Config:  kafka.Config{Brokers: brokers()},
		Topic:   consumeTopic,
		GroupID: groupIDFlag,
	}, registry, m)
	if err != nil {
		return fmt.Errorf("build consumer: %w", err)
	}
	defer func() { _ = kc.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := loadgen.NewConsumer(kc, loadgen.ConsumerConfig{Topic: consumeTopic, GroupID: groupIDFlag})
	n, err := c.Run(ctx)

	tracker := registry.TrackerFor(consumeTopic, m.SeqCounters(consumeTopic))
	tracker.Close()
	counters := tracker.Counters()

	logger.Info("consume complete",
		"topic", consumeTopic,
		"received", n,
		"out_of_seq", counters.OutOfSeq.Value(),
		"duplicate", counters.Duplicate.Value(),
		"loss", counters.Loss.Value(),
	)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
