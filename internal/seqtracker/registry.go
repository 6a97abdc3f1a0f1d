package seqtracker

import "sync"

// Registry maps topic name to Tracker, one per topic per consumer. Lookup
// lazily creates a tracker on first use. The registry guards creation with
// a mutex; per-tracker mutation stays single-threaded (each topic is owned
// by one consumer).
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewRegistry returns a ready-to-use, empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		trackers: make(map[string]*Tracker),
	}
}

// TrackerFor returns the Tracker for topic, creating it with counters on
// first observation of that topic name. counters is only used on the
// creating call; subsequent calls for an already-known topic ignore it and
// return the existing tracker.
func (r *Registry) TrackerFor(topic string, counters Counters) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tr, ok := r.trackers[topic]; ok {
		return tr
	}
	tr := New(counters)
	r.trackers[topic] = tr
	return tr
}

// CloseAll invokes Close on every known tracker, in unspecified order.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tr := range r.trackers {
		tr.Close()
	}
}

// Len reports how many topics currently have a tracker.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
