// Package dedupe tracks event ids that have already been finalised so that an
// id reappearing later in the stream can be reported.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// defaultMaxSize bounds the remembered ids when no option is given.
const defaultMaxSize = 1 << 16

// Tracker records finalised event ids.
type Tracker interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id int64) bool

	// Size returns the number of ids currently remembered.
	Size() int64
}

// inMemoryTracker remembers ids in a map. In bounded mode a ring of ids in
// insertion order drives eviction of the oldest entry.
type inMemoryTracker struct {
	mu      sync.Mutex
	seen    map[int64]struct{}
	ring    []int64 // insertion order, bounded mode only
	next    int     // ring slot that receives the next id
	maxSize int     // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.seen = make(map[int64]struct{})
	if t.maxSize > 0 {
		t.ring = make([]int64, 0, t.maxSize)
	}
	return t
}

// SeenAndRecord implements Tracker.
func (t *inMemoryTracker) SeenAndRecord(_ context.Context, id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.seen[id]; exists {
		return true
	}

	if t.maxSize > 0 {
		if len(t.ring) < t.maxSize {
			t.ring = append(t.ring, id)
		} else {
			// Evict the oldest id, which occupies the slot about to be reused.
			delete(t.seen, t.ring[t.next])
			t.ring[t.next] = id
			t.size.Add(-1)
		}
		t.next = (t.next + 1) % t.maxSize
	}

	t.seen[id] = struct{}{}
	t.size.Add(1)
	return false
}

// Size implements Tracker.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
