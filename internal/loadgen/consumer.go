package loadgen

import (
	"context"

	"github.com/lhotari/nosqlbench/internal/kafka"
)

// ConsumerConfig describes one consumer's share of a workload.
type ConsumerConfig struct {
	Topic   string
	GroupID string
}

// Consumer reads a topic's stream and classifies each arrival through the
// shared Registry's Tracker for that topic. It is the single goroutine
// feeding that Tracker (spec.md §5's single-threaded core requirement);
// the underlying kafka.Reader already pins delivery to one goroutine per
// partition-consumer, so no extra redispatch step is needed here.
type Consumer struct {
	inner *kafka.Consumer
	topic string
}

func NewConsumer(kc *kafka.Consumer, cfg ConsumerConfig) *Consumer {
	return &Consumer{inner: kc, topic: cfg.Topic}
}

// Run processes records until ctx is canceled or the underlying reader
// errs, returning the number of records observed. The Tracker each record
// was classified against lives in the Registry the underlying
// kafka.Consumer was built with; callers read counters from there, not
// from this return value.
func (c *Consumer) Run(ctx context.Context) (int, error) {
	var count int
	err := c.inner.Run(ctx, func(kafka.Record) {
		count++
	})
	return count, err
}

func (c *Consumer) Close() error {
	return c.inner.Close()
}
