package services

import (
	"sync"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
)

// PendingTracker knows which entity types have a mutation in flight. The
// periodic scheduler consults it so a background refresh never races a
// mutation that is about to invalidate the same entries.
type PendingTracker struct {
	mu     sync.Mutex
	counts map[domain.EntityType]int
}

// NewPendingTracker returns an empty tracker.
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{counts: make(map[domain.EntityType]int)}
}

// Begin marks every entity type of res as pending. The returned func ends the
// pending window; calling it more than once has no further effect.
func (t *PendingTracker) Begin(res domain.Resource) (end func()) {
	types := res.EntityTypes()
	t.mu.Lock()
	for _, e := range types {
		t.counts[e]++
	}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for _, e := range types {
				if t.counts[e] <= 1 {
					delete(t.counts, e)
					continue
				}
				t.counts[e]--
			}
		})
	}
}

// Pending reports whether any mutation touching e is unresolved.
func (t *PendingTracker) Pending(e domain.EntityType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[e] > 0
}

// Count returns the number of unresolved mutations touching e.
func (t *PendingTracker) Count(e domain.EntityType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[e]
}
