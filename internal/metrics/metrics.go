package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lhotari/nosqlbench/internal/seqtracker"
)

type Metrics struct {
	MQTTMessagesReceived   *prometheus.CounterVec
	KafkaMessagesPublished *prometheus.CounterVec
	PublishErrors          *prometheus.CounterVec
	DLQTotal               *prometheus.CounterVec
	ReconnectTotal         prometheus.Counter
	KafkaPublishLatency    prometheus.Histogram
	EndToEndLatency        prometheus.Histogram

	SeqOutOfSeq  *prometheus.CounterVec
	SeqDuplicate *prometheus.CounterVec
	SeqLoss      *prometheus.CounterVec
}

func New() *Metrics {
	metrics := &Metrics{
		MQTTMessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_messages_received_total",
			Help: "Total MQTT messages received, labeled by type.",
		}, []string{"type"}),
		KafkaMessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_published_total",
			Help: "Total Kafka messages published, labeled by topic.",
		}, []string{"topic"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_errors_total",
			Help: "Total publish errors, labeled by target.",
		}, []string{"target"}),
		DLQTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlq_total",
			Help: "Total messages sent to DLQ, labeled by reason.",
		}, []string{"reason"}),
		ReconnectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconnect_total",
			Help: "Total MQTT reconnect attempts.",
		}),
		KafkaPublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kafka_publish_latency_ms",
			Help:    "Kafka publish latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		EndToEndLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "end_to_end_ingest_latency_ms",
			Help:    "End-to-end ingest latency in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}

	metrics.SeqOutOfSeq = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seq_out_of_seq_total",
		Help: "Total observations classified out-of-seq, labeled by topic.",
	}, []string{"topic"})
	metrics.SeqDuplicate = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seq_duplicate_total",
		Help: "Total observations classified duplicate, labeled by topic.",
	}, []string{"topic"})
	metrics.SeqLoss = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seq_loss_total",
		Help: "Total observations classified lost, labeled by topic.",
	}, []string{"topic"})

	prometheus.MustRegister(
		metrics.MQTTMessagesReceived,
		metrics.KafkaMessagesPublished,
		metrics.PublishErrors,
		metrics.DLQTotal,
		metrics.ReconnectTotal,
		metrics.KafkaPublishLatency,
		metrics.EndToEndLatency,
		metrics.SeqOutOfSeq,
		metrics.SeqDuplicate,
		metrics.SeqLoss,
	)

	return metrics
}

// seqCounterHandle is a seqtracker.CounterHandle backed by both a local
// atomic (for Value) and a Prometheus CounterVec label (for scraping).
type seqCounterHandle struct {
	value atomic.Uint64
	vec   *prometheus.CounterVec
	topic string
}

func (h *seqCounterHandle) Inc(delta uint64) {
	h.value.Add(delta)
	h.vec.WithLabelValues(h.topic).Add(float64(delta))
}

func (h *seqCounterHandle) Value() uint64 {
	return h.value.Load()
}

// SeqCounters returns a seqtracker.Counters backed by this Metrics'
// SeqOutOfSeq/SeqDuplicate/SeqLoss vectors, labeled with topic. Call once
// per topic and reuse the result across that topic's Tracker lifetime;
// each call allocates fresh handles.
func (m *Metrics) SeqCounters(topic string) seqtracker.Counters {
	return seqtracker.Counters{
		OutOfSeq:  &seqCounterHandle{vec: m.SeqOutOfSeq, topic: topic},
		Duplicate: &seqCounterHandle{vec: m.SeqDuplicate, topic: topic},
		Loss:      &seqCounterHandle{vec: m.SeqLoss, topic: topic},
	}
}
