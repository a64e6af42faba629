//go:build !kite_atomic

package value

// AtomicSharing reports whether shared containers synchronize access.
// Without the kite_atomic tag containers must not be handed to concurrently
// running goroutines.
const AtomicSharing = false

type guard struct{}

func (guard) lock()    {}
func (guard) unlock()  {}
func (guard) rlock()   {}
func (guard) runlock() {}
