package seqtracker

import "sync/atomic"

// Counter is a single monotonic 64-bit counter, safe for concurrent
// increment from the owning consumer thread and concurrent weak-consistency
// reads from anywhere else (metric reporters).
type Counter struct {
	value atomic.Uint64
}

// Inc increments the counter by delta.
func (c *Counter) Inc(delta uint64) {
	c.value.Add(delta)
}

// Value returns the counter's current value.
func (c *Counter) Value() uint64 {
	return c.value.Load()
}

// CounterHandle is anything a Tracker can increment and read. *Counter
// satisfies it directly; internal/metrics backs it with a Prometheus
// CounterVec label instead.
type CounterHandle interface {
	Inc(delta uint64)
	Value() uint64
}

// Counters bundles the three handles a Tracker is constructed with.
type Counters struct {
	OutOfSeq  CounterHandle
	Duplicate CounterHandle
	Loss      CounterHandle
}

// NewCounters allocates a fresh, zeroed set of handles. Most callers that
// want process-wide visibility (e.g. via internal/metrics) construct their
// own Counters backed by something else and pass it to New/TrackerFor
// instead of using this.
func NewCounters() Counters {
	return Counters{
		OutOfSeq:  &Counter{},
		Duplicate: &Counter{},
		Loss:      &Counter{},
	}
}
