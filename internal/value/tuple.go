package value

// Tuple is an immutable ordered sequence. The backing slice is never written
// after construction, so slices of a tuple share storage.
type Tuple struct {
	items []Value
}

// NewTuple takes ownership of items.
func NewTuple(items []Value) *Tuple {
	return &Tuple{items: items}
}

func (t *Tuple) Len() int { return len(t.items) }

func (t *Tuple) At(i int) Value { return t.items[i] }

// Get returns the element at i, accepting negative indices from the end.
func (t *Tuple) Get(i int) (Value, bool) {
	if i < 0 {
		i += len(t.items)
	}
	if i < 0 || i >= len(t.items) {
		return Null, false
	}
	return t.items[i], true
}

// Items returns the backing slice. Callers must not modify it.
func (t *Tuple) Items() []Value { return t.items }

// Slice shares the backing storage.
func (t *Tuple) Slice(from, to int) *Tuple {
	return &Tuple{items: t.items[from:to:to]}
}
