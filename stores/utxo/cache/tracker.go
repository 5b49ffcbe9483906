package cache

import (
	"go.uber.org/atomic"
)

type access[K comparable] struct {
	key      K
	sequence uint64
}

// RecentItemTracker orders keys by a logical access sequence rather than wall
// clock time so eviction is exact LRU. A key accessed again leaves its earlier
// access in the queue; that access is recorded as skipped and discarded lazily
// when it reaches the front.
//
// A tracker is not safe for concurrent use. Trackers guarded by different locks
// may share one clock, which keeps their sequences globally ordered.
type RecentItemTracker[K comparable] struct {
	clock      *atomic.Uint64
	lastAccess map[K]uint64
	skipped    map[uint64]struct{}
	queue      []access[K]
	head       int
}

// NewRecentItemTracker returns a tracker drawing sequence numbers from clock, or
// from a private clock when clock is nil.
func NewRecentItemTracker[K comparable](initialCapacity int, clock *atomic.Uint64) *RecentItemTracker[K] {
	if clock == nil {
		clock = atomic.NewUint64(0)
	}

	return &RecentItemTracker[K]{
		clock:      clock,
		lastAccess: make(map[K]uint64, initialCapacity),
		skipped:    make(map[uint64]struct{}, initialCapacity),
		queue:      make([]access[K], 0, initialCapacity),
	}
}

// MarkRecent records an access to key, making it the most recently used.
func (t *RecentItemTracker[K]) MarkRecent(key K) {
	if previous, ok := t.lastAccess[key]; ok {
		t.skipped[previous] = struct{}{}
	}

	sequence := t.clock.Inc()

	t.lastAccess[key] = sequence
	t.queue = append(t.queue, access[K]{key: key, sequence: sequence})
}

// OldestItem returns the least recently used key still tracked.
func (t *RecentItemTracker[K]) OldestItem() (K, bool) {
	t.discardSkipped()

	if t.head == len(t.queue) {
		var zero K
		return zero, false
	}

	return t.queue[t.head].key, true
}

// PopOldest returns the least recently used key and stops tracking it.
func (t *RecentItemTracker[K]) PopOldest() (K, bool) {
	key, ok := t.OldestItem()
	if !ok {
		return key, false
	}

	delete(t.lastAccess, key)
	t.advance()

	return key, true
}

// Remove stops tracking key. Its queued access is skipped lazily.
func (t *RecentItemTracker[K]) Remove(key K) {
	if sequence, ok := t.lastAccess[key]; ok {
		t.skipped[sequence] = struct{}{}
		delete(t.lastAccess, key)
	}
}

// Len returns the number of distinct keys tracked.
func (t *RecentItemTracker[K]) Len() int {
	return len(t.lastAccess)
}

func (t *RecentItemTracker[K]) Clear() {
	clear(t.lastAccess)
	clear(t.skipped)
	t.queue = t.queue[:0]
	t.head = 0
}

func (t *RecentItemTracker[K]) discardSkipped() {
	for t.head < len(t.queue) {
		sequence := t.queue[t.head].sequence

		if _, ok := t.skipped[sequence]; !ok {
			return
		}

		delete(t.skipped, sequence)
		t.advance()
	}
}

// advance drops the front of the queue, compacting once half of it is dead.
func (t *RecentItemTracker[K]) advance() {
	var zero access[K]

	t.queue[t.head] = zero
	t.head++

	if t.head == len(t.queue) {
		t.queue = t.queue[:0]
		t.head = 0

		return
	}

	if t.head > 1024 && t.head*2 > len(t.queue) {
		n := copy(t.queue, t.queue[t.head:])
		t.queue = t.queue[:n]
		t.head = 0
	}
}
