// Package seqtracker implements the Received Message Sequence Tracker: a
// per-topic classifier that reconciles a partially-ordered, lossy stream of
// producer-stamped sequence numbers against a monotonic ground truth, within
// a bounded reordering window.
package seqtracker

import "sort"

// MaxTrackOutOfOrder bounds the sliding reordering window. It is the
// maximum gap the tracker can bridge before giving up and declaring the
// oldest pending slot lost.
const MaxTrackOutOfOrder = 1000

// Tracker is a per-topic, single-threaded sliding-window classifier. It is
// deliberately not safe for concurrent use: the owning consumer thread must
// be the only caller of SequenceNumberReceived, per the single-threaded-core
// design (broker async completions are expected to be redispatched onto
// that thread before reaching the tracker).
type Tracker struct {
	counters Counters

	initialized  bool
	expectedNext int64   // E: highest sequence number confirmed in order, -1 if none yet
	lastReceived int64   // L: raw argument of the previous call, -1 if none yet
	pending      []int64 // P: ascending sorted window of out-of-order arrivals

	targetMax    int64 // advisory, set via SetTargetMax; not auto-applied (see O2)
	hasTargetMax bool
}

// New constructs a Tracker backed by the three counter handles. Counters are
// shared, externally-owned state; the tracker never reaches for a global.
func New(counters Counters) *Tracker {
	return &Tracker{
		counters:     counters,
		expectedNext: -1,
		lastReceived: -1,
		targetMax:    -1,
	}
}

// SequenceNumberReceived feeds one observation. Classification
// (Duplicate/OutOfSeq) and window bookkeeping (frontier advance / pending
// insert) are independent: the out-of-seq check only decides what gets
// counted, it never opts n out of the same rule 3/4 reconciliation a
// not-out-of-seq arrival would get.
//
// Classification order, highest priority first:
//  1. n already sitting in the pending window -> duplicate (it was never
//     lost, it's right there waiting).
//  2. n strictly behind the immediately preceding call's raw argument ->
//     out-of-seq. This is checked against the literal previous call, not
//     the confirmed frontier, so a reordering the window would otherwise
//     have silently resolved still gets counted if something even later
//     already arrived in between (see DESIGN.md / SPEC_FULL.md O1). n
//     still runs through reconcileWindow below, so the window reassembles
//     around it exactly as it would for any other arrival.
//  3. n is the next expected number -> advance the frontier, draining any
//     now-contiguous run out of the pending window.
//  4. n is ahead of the frontier -> park it in the window, flushing the
//     oldest entries as loss if the window overflows.
//  5. otherwise (n at or behind the frontier, not pending) -> duplicate.
func (t *Tracker) SequenceNumberReceived(n int64) {
	if !t.initialized {
		t.expectedNext = n - 1
		t.initialized = true
	}

	switch {
	case t.pendingContains(n):
		t.counters.Duplicate.Inc(1)
	case n < t.lastReceived:
		t.counters.OutOfSeq.Inc(1)
		t.reconcileWindow(n)
	case n == t.expectedNext+1:
		t.expectedNext = n
		t.drainPending()
	case n > t.expectedNext+1:
		t.insertPending(n)
		t.flushOverflow()
	default:
		t.counters.Duplicate.Inc(1)
	}

	t.lastReceived = n
}

// reconcileWindow runs rule 3/4 bookkeeping for an n that was already
// classified out-of-seq. n can't be a duplicate here (pendingContains was
// already checked ahead of the out-of-seq branch), so the only two
// outcomes are advancing the frontier or parking n in the window; anything
// else (n at or behind the frontier already) needs no further action.
func (t *Tracker) reconcileWindow(n int64) {
	switch {
	case n == t.expectedNext+1:
		t.expectedNext = n
		t.drainPending()
	case n > t.expectedNext+1:
		t.insertPending(n)
		t.flushOverflow()
	}
}

// SetTargetMax records the advisory sequence_tgt_max hint. It is not
// consulted by Close; callers that know the total expected count and want
// tail loss accounted for should call CloseWithTargetMax explicitly.
func (t *Tracker) SetTargetMax(n int64) {
	t.targetMax = n
	t.hasTargetMax = true
}

// TargetMax returns the recorded advisory target and whether one was set.
func (t *Tracker) TargetMax() (int64, bool) {
	return t.targetMax, t.hasTargetMax
}

// Close finalizes the tracker: every gap still waiting in the window
// between the frontier and the highest pending number is a definite loss.
// Safe to call more than once; a second call flushes an already-empty
// window and changes nothing.
func (t *Tracker) Close() {
	t.closeUpTo(t.closeBound())
}

// CloseWithTargetMax is Close, but also accounts for loss up to max if max
// is past whatever the window already knows about (O2: sequence_tgt_max
// bound, applied only when the caller opts in).
func (t *Tracker) CloseWithTargetMax(max int64) {
	bound := t.closeBound()
	if max > bound {
		bound = max
	}
	t.closeUpTo(bound)
}

func (t *Tracker) closeBound() int64 {
	if len(t.pending) == 0 {
		return t.expectedNext
	}
	return t.pending[len(t.pending)-1]
}

func (t *Tracker) closeUpTo(bound int64) {
	if bound > t.expectedNext {
		pendingIdx := 0
		for k := t.expectedNext + 1; k <= bound; k++ {
			for pendingIdx < len(t.pending) && t.pending[pendingIdx] < k {
				pendingIdx++
			}
			if pendingIdx < len(t.pending) && t.pending[pendingIdx] == k {
				continue
			}
			t.counters.Loss.Inc(1)
		}
	}
	t.pending = t.pending[:0]
	t.expectedNext = bound
}

// drainPending advances the frontier through any run of numbers already
// sitting in the window that is now contiguous with it.
func (t *Tracker) drainPending() {
	for len(t.pending) > 0 && t.pending[0] == t.expectedNext+1 {
		t.expectedNext = t.pending[0]
		t.pending = t.pending[1:]
	}
}

// flushOverflow enforces the window cap: while the pending set exceeds
// MaxTrackOutOfOrder, the oldest entry is declared lost and the frontier
// jumps to it, draining whatever run follows.
func (t *Tracker) flushOverflow() {
	for len(t.pending) > MaxTrackOutOfOrder {
		m := t.pending[0]
		t.counters.Loss.Inc(uint64(m - (t.expectedNext + 1)))
		t.expectedNext = m
		t.pending = t.pending[1:]
		t.drainPending()
	}
}

func (t *Tracker) pendingContains(n int64) bool {
	idx := sort.Search(len(t.pending), func(i int) bool { return t.pending[i] >= n })
	return idx < len(t.pending) && t.pending[idx] == n
}

func (t *Tracker) insertPending(n int64) {
	idx := sort.Search(len(t.pending), func(i int) bool { return t.pending[i] >= n })
	t.pending = append(t.pending, 0)
	copy(t.pending[idx+1:], t.pending[idx:])
	t.pending[idx] = n
}

// PendingLen reports the current window size, for tests and diagnostics.
func (t *Tracker) PendingLen() int {
	return len(t.pending)
}

// Counters returns the handle set this Tracker was constructed with, so a
// caller that only has the Tracker (e.g. via Registry.TrackerFor) can
// still read its current classification counts.
func (t *Tracker) Counters() Counters {
	return t.counters
}
