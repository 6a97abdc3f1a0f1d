package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// newUnregisteredMetrics builds bare CounterVecs for SeqCounters tests
// without going through New(), which registers against the global default
// registry and would panic on a second call within the same test binary.
func newUnregisteredMetrics() *Metrics {
	return &Metrics{
		SeqOutOfSeq:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_seq_out_of_seq_total"}, []string{"topic"}),
		SeqDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_seq_duplicate_total"}, []string{"topic"}),
		SeqLoss:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_seq_loss_total"}, []string{"topic"}),
	}
}

func TestSeqCountersIncrementsBothLocalAndVec(t *testing.T) {
	m := newUnregisteredMetrics()
	c := m.SeqCounters("topic-a")

	c.OutOfSeq.Inc(2)
	c.Duplicate.Inc(1)
	c.Loss.Inc(3)

	if got := c.OutOfSeq.Value(); got != 2 {
		t.Errorf("OutOfSeq.Value() = %d, want 2", got)
	}
	if got := c.Duplicate.Value(); got != 1 {
		t.Errorf("Duplicate.Value() = %d, want 1", got)
	}
	if got := c.Loss.Value(); got != 3 {
		t.Errorf("Loss.Value() = %d, want 3", got)
	}
}

func TestSeqCountersAreIndependentPerTopic(t *testing.T) {
	m := newUnregisteredMetrics()
	a := m.SeqCounters("topic-a")
	b := m.SeqCounters("topic-b")

	a.Loss.Inc(5)

	if got := b.Loss.Value(); got != 0 {
		t.Errorf("topic-b Loss.Value() = %d, want 0 after only topic-a was incremented", got)
	}
}
