// Package generation discards stale results when several reloads for the
// same key overlap: only the most recently started reload may publish.
package generation

import "sync"

// Tracker hands out monotonically increasing generation ids per key.
type Tracker struct {
	mu        sync.Mutex
	started   map[string]uint64
	committed map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{
		started:   make(map[string]uint64),
		committed: make(map[string]uint64),
	}
}

// Begin starts a new generation for key and returns its id.
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[key]++
	return t.started[key]
}

// Current reports whether id is still the newest generation started for key.
func (t *Tracker) Current(key string, id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started[key] == id
}

// Commit runs fn only if id is the newest generation started for key and
// nothing newer has committed. It returns whether fn ran. fn runs under the
// tracker lock, so it must not call back into the tracker.
func (t *Tracker) Commit(key string, id uint64, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id != t.started[key] || id <= t.committed[key] {
		return false
	}
	t.committed[key] = id
	fn()
	return true
}
