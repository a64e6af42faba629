//go:build kite_atomic

package value

import "sync"

// AtomicSharing reports whether shared containers synchronize access.
const AtomicSharing = true

type guard struct {
	mu sync.RWMutex
}

func (g *guard) lock()    { g.mu.Lock() }
func (g *guard) unlock()  { g.mu.Unlock() }
func (g *guard) rlock()   { g.mu.RLock() }
func (g *guard) runlock() { g.mu.RUnlock() }
