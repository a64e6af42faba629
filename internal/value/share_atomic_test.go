//go:build kite_atomic

package value

import (
	"sync"
	"testing"
)

func TestAtomicSharingConcurrentWrites(t *testing.T) {
	if !AtomicSharing {
		t.Fatal("expected AtomicSharing under the kite_atomic tag")
	}

	const workers, perWorker = 8, 200
	l := NewList(nil)
	m := NewMap()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n := int64(w*perWorker + i)
				l.Append(Int(n))
				_ = m.Insert(Int(n), Int(n))
				m.EnsureMeta()
				_ = m.Len()
			}
		}(w)
	}
	wg.Wait()

	if l.Len() != workers*perWorker {
		t.Errorf("expected %d list items, got %d", workers*perWorker, l.Len())
	}
	if m.Len() != workers*perWorker {
		t.Errorf("expected %d map entries, got %d", workers*perWorker, m.Len())
	}
	seen := make(map[int64]bool)
	for _, v := range l.Snapshot() {
		n, _ := ToInt(v)
		seen[n] = true
	}
	if len(seen) != workers*perWorker {
		t.Errorf("expected every appended value once, got %d distinct", len(seen))
	}
}
