package seqtracker

import "testing"

func TestTrackerForLazilyCreatesAndReuses(t *testing.T) {
	r := NewRegistry()
	a := r.TrackerFor("topic-a", NewCounters())
	again := r.TrackerFor("topic-a", NewCounters())
	if a != again {
		t.Fatalf("expected the same tracker instance on repeat lookup")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestTrackerForKeepsTopicsIndependent(t *testing.T) {
	r := NewRegistry()
	a := r.TrackerFor("topic-a", NewCounters())
	b := r.TrackerFor("topic-b", NewCounters())
	if a == b {
		t.Fatalf("expected distinct trackers for distinct topics")
	}
	a.SequenceNumberReceived(5)
	if b.PendingLen() != 0 {
		t.Fatalf("feeding topic-a's tracker must not affect topic-b's")
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
}

func TestCloseAllClosesEveryTracker(t *testing.T) {
	r := NewRegistry()
	ca := NewCounters()
	cb := NewCounters()
	a := r.TrackerFor("topic-a", ca)
	b := r.TrackerFor("topic-b", cb)

	a.SequenceNumberReceived(0)
	a.SequenceNumberReceived(2) // gap at 1, only visible after Close
	b.SequenceNumberReceived(0)
	b.SequenceNumberReceived(3) // gap at 1,2

	r.CloseAll()

	if got := ca.Loss.Value(); got != 1 {
		t.Errorf("topic-a loss = %d, want 1", got)
	}
	if got := cb.Loss.Value(); got != 2 {
		t.Errorf("topic-b loss = %d, want 2", got)
	}
}

func TestRegistryLenOnEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for a fresh registry", r.Len())
	}
}
