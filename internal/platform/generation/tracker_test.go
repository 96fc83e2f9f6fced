package generation

import (
	"sync"
	"testing"
)

func TestTracker_LatestWins(t *testing.T) {
	tr := NewTracker()
	first := tr.Begin("2026-01")
	second := tr.Begin("2026-01")

	var published []string
	if tr.Commit("2026-01", second, func() { published = append(published, "second") }) != true {
		t.Fatal("expected newest generation to commit")
	}
	if tr.Commit("2026-01", first, func() { published = append(published, "first") }) {
		t.Fatal("stale generation must not commit")
	}
	if len(published) != 1 || published[0] != "second" {
		t.Errorf("expected only second published, got %v", published)
	}
}

func TestTracker_StaleFinishingFirstIsDropped(t *testing.T) {
	tr := NewTracker()
	first := tr.Begin("k")
	second := tr.Begin("k")

	if tr.Commit("k", first, func() {}) {
		t.Error("older generation finishing first must be dropped")
	}
	if !tr.Commit("k", second, func() {}) {
		t.Error("newest generation must commit")
	}
	if tr.Commit("k", second, func() {}) {
		t.Error("a generation commits at most once")
	}
}

func TestTracker_KeysAreIndependent(t *testing.T) {
	tr := NewTracker()
	a := tr.Begin("2026-01")
	b := tr.Begin("2026-02")
	if !tr.Current("2026-01", a) || !tr.Current("2026-02", b) {
		t.Error("generations on different keys must not interfere")
	}
}

func TestTracker_ConcurrentBeginsCommitOnce(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	ids := make([]uint64, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = tr.Begin("k")
		}(i)
	}
	wg.Wait()

	commits := 0
	for _, id := range ids {
		if tr.Commit("k", id, func() {}) {
			commits++
		}
	}
	if commits != 1 {
		t.Errorf("expected exactly one commit, got %d", commits)
	}
}
