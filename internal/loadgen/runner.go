package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lhotari/nosqlbench/internal/kafka"
	"github.com/lhotari/nosqlbench/internal/metrics"
	"github.com/lhotari/nosqlbench/internal/seqtracker"
)

// RunnerConfig describes a full producer/consumer workload run rooted at
// one base topic.
type RunnerConfig struct {
	Topic               string
	NumProducers        int
	MessagesPerProducer int
	MessageSize         int
	Rate                int
	GroupID             string
	ProduceDuration     time.Duration
}

// Result reports what a Runner observed, summed across every topic it
// drove (one topic per producer; see producerTopic).
type Result struct {
	TotalMessages int
	Duration      time.Duration
	Throughput    float64
	OutOfSeq      uint64
	Duplicate     uint64
	Loss          uint64
}

// Runner orchestrates RunnerConfig.NumProducers producer/consumer pairs and
// reports aggregate throughput and the final Tracker counters. Each
// producer gets its own topic: the tracker assumes a single producer of
// monotonic numbers per topic (spec.md §1), and a template with more than
// one producer would otherwise race several independently-zeroed streams
// onto the same topic, which the tracker would read back as near-constant
// reordering rather than a genuine test of loss/reorder detection.
type Runner struct {
	cfg       RunnerConfig
	brokerCfg kafka.Config
	producer  *kafka.Producer
	registry  *seqtracker.Registry
	metrics   *metrics.Metrics
}

func NewRunner(cfg RunnerConfig, brokerCfg kafka.Config, producer *kafka.Producer, registry *seqtracker.Registry, m *metrics.Metrics) *Runner {
	return &Runner{cfg: cfg, brokerCfg: brokerCfg, producer: producer, registry: registry, metrics: m}
}

// producerTopic returns the topic producer i publishes to. A single-
// producer run keeps the base topic name unchanged; anything beyond that
// gets a disjoint per-producer topic so each tracker instance only ever
// sees one producer's numbering.
func producerTopic(base string, i, numProducers int) string {
	if numProducers <= 1 {
		return base
	}
	return fmt.Sprintf("%s.p%d", base, i)
}

func (r *Runner) Run(ctx context.Context) (Result, error) {
	totalMessages := r.cfg.NumProducers * r.cfg.MessagesPerProducer
	start := time.Now()

	topics := make([]string, r.cfg.NumProducers)
	for i := range topics {
		topics[i] = producerTopic(r.cfg.Topic, i, r.cfg.NumProducers)
	}

	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()

	consumers := make([]*kafka.Consumer, len(topics))
	var consumeWG sync.WaitGroup
	for i, topic := range topics {
		kc, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Config:  r.brokerCfg,
			Topic:   topic,
			GroupID: r.cfg.GroupID,
		}, r.registry, r.metrics)
		if err != nil {
			return Result{}, fmt.Errorf("build consumer for %s: %w", topic, err)
		}
		consumers[i] = kc

		consumeWG.Add(1)
		go func(kc *kafka.Consumer, topic string) {
			defer consumeWG.Done()
			lc := NewConsumer(kc, ConsumerConfig{Topic: topic, GroupID: r.cfg.GroupID})
			_, _ = lc.Run(consumeCtx)
		}(kc, topic)
	}

	var (
		produceWG sync.WaitGroup
		mu        sync.Mutex
		produced  int
		firstErr  error
	)
	for i, topic := range topics {
		produceWG.Add(1)
		go func(pid int, topic string) {
			defer produceWG.Done()
			p := NewProducer(r.producer, ProducerConfig{
				Topic:       topic,
				NumMessages: r.cfg.MessagesPerProducer,
				MessageSize: r.cfg.MessageSize,
				Rate:        r.cfg.Rate,
			})
			n, err := p.Run(ctx)
			mu.Lock()
			produced += n
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("producer %d: %w", pid, err)
			}
			mu.Unlock()
		}(i, topic)
	}
	produceWG.Wait()

	// Give the consumers a moment to drain what was just published before
	// tearing down, then stop them; this is a load-gen convenience, not a
	// correctness guarantee the tracker depends on.
	if r.cfg.ProduceDuration > 0 {
		time.Sleep(r.cfg.ProduceDuration)
	}
	stopConsuming()
	consumeWG.Wait()
	for _, kc := range consumers {
		_ = kc.Close()
	}

	duration := time.Since(start)
	throughput := float64(produced) / duration.Seconds()

	var outOfSeq, duplicate, loss uint64
	for _, topic := range topics {
		tracker := r.registry.TrackerFor(topic, r.metrics.SeqCounters(topic))
		tracker.Close()
		counters := tracker.Counters()
		outOfSeq += counters.OutOfSeq.Value()
		duplicate += counters.Duplicate.Value()
		loss += counters.Loss.Value()
	}

	result := Result{
		TotalMessages: totalMessages,
		Duration:      duration,
		Throughput:    throughput,
		OutOfSeq:      outOfSeq,
		Duplicate:     duplicate,
		Loss:          loss,
	}

	return result, firstErr
}
