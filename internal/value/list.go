package value

import (
	"slices"
)

// List is a mutable ordered sequence shared by all holders.
type List struct {
	g     guard
	items []Value
}

// NewList takes ownership of items.
func NewList(items []Value) *List {
	return &List{items: items}
}

func (l *List) Len() int {
	l.g.rlock()
	defer l.g.runlock()
	return len(l.items)
}

// Get returns the element at i, accepting negative indices from the end.
func (l *List) Get(i int) (Value, bool) {
	l.g.rlock()
	defer l.g.runlock()
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 || i >= len(l.items) {
		return Null, false
	}
	return l.items[i], true
}

func (l *List) Set(i int, v Value) bool {
	l.g.lock()
	defer l.g.unlock()
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items[i] = v
	return true
}

func (l *List) Append(vs ...Value) {
	l.g.lock()
	l.items = append(l.items, vs...)
	l.g.unlock()
}

func (l *List) Insert(i int, v Value) bool {
	l.g.lock()
	defer l.g.unlock()
	if i < 0 || i > len(l.items) {
		return false
	}
	l.items = slices.Insert(l.items, i, v)
	return true
}

func (l *List) Remove(i int) (Value, bool) {
	l.g.lock()
	defer l.g.unlock()
	if i < 0 {
		i += len(l.items)
	}
	if i < 0 || i >= len(l.items) {
		return Null, false
	}
	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	return v, true
}

func (l *List) Pop() (Value, bool) {
	l.g.lock()
	defer l.g.unlock()
	n := len(l.items)
	if n == 0 {
		return Null, false
	}
	v := l.items[n-1]
	l.items[n-1] = Null
	l.items = l.items[:n-1]
	return v, true
}

func (l *List) Clear() {
	l.g.lock()
	clear(l.items)
	l.items = l.items[:0]
	l.g.unlock()
}

// Snapshot copies the current elements.
func (l *List) Snapshot() []Value {
	l.g.rlock()
	defer l.g.runlock()
	return slices.Clone(l.items)
}

// Replace swaps in a new backing slice, taking ownership of items.
func (l *List) Replace(items []Value) {
	l.g.lock()
	l.items = items
	l.g.unlock()
}

// Reverse reverses the list in place.
func (l *List) Reverse() {
	l.g.lock()
	slices.Reverse(l.items)
	l.g.unlock()
}

// SortFunc sorts a copy of the elements with cmp and installs the result, so a
// comparison that mutates the list cannot corrupt the sort.
func (l *List) SortFunc(cmp func(a, b Value) (int, error)) error {
	items := l.Snapshot()
	var failed error
	slices.SortStableFunc(items, func(a, b Value) int {
		if failed != nil {
			return 0
		}
		c, err := cmp(a, b)
		if err != nil {
			failed = err
		}
		return c
	})
	if failed != nil {
		return failed
	}
	l.Replace(items)
	return nil
}
