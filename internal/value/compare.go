package value

import (
	"cmp"
	"fmt"
)

// ElemEqual compares nested container elements; the VM supplies a version
// that honours @== on nested maps.
type ElemEqual func(a, b Value) (bool, error)

// Equal compares values structurally without consulting metamaps.
func Equal(a, b Value) bool {
	eq, _ := EqualWith(a, b, func(x, y Value) (bool, error) { return Equal(x, y), nil })
	return eq
}

// EqualWith compares a and b structurally, delegating nested elements to elem.
func EqualWith(a, b Value, elem ElemEqual) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		if a.kind == KindInt && b.kind == KindInt {
			return a.bits == b.bits, nil
		}
		return a.AsFloat() == b.AsFloat(), nil
	}
	if a.kind != b.kind {
		return false, nil
	}
	switch a.kind {
	case KindNull:
		return true, nil
	case KindBool:
		return a.bits == b.bits, nil
	case KindString:
		return a.AsString() == b.AsString(), nil
	case KindTuple:
		return seqEqual(a.Tuple().Items(), b.Tuple().Items(), elem)
	case KindList:
		la, lb := a.List(), b.List()
		if la == lb {
			return true, nil
		}
		return seqEqual(la.Snapshot(), lb.Snapshot(), elem)
	case KindMap:
		ma, mb := a.Map(), b.Map()
		if ma == mb {
			return true, nil
		}
		if ma.Len() != mb.Len() {
			return false, nil
		}
		for _, e := range ma.Entries() {
			other, ok := mb.Get(e.Key)
			if !ok {
				return false, nil
			}
			eq, err := elem(e.Value, other)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case KindRange:
		return *a.Range() == *b.Range(), nil
	}
	return a.ref == b.ref, nil
}

func seqEqual(xs, ys []Value, elem ElemEqual) (bool, error) {
	if len(xs) != len(ys) {
		return false, nil
	}
	for i := range xs {
		eq, err := elem(xs[i], ys[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// ElemCompare orders nested elements.
type ElemCompare func(a, b Value) (int, error)

// Compare orders numbers, strings, and tuples/lists lexicographically.
func Compare(a, b Value) (int, error) {
	return CompareWith(a, b, Compare)
}

func CompareWith(a, b Value, elem ElemCompare) (int, error) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmp.Compare(int64(a.bits), int64(b.bits)), nil
	case a.IsNumber() && b.IsNumber():
		return cmp.Compare(a.AsFloat(), b.AsFloat()), nil
	case a.kind == KindString && b.kind == KindString:
		return cmp.Compare(a.AsString(), b.AsString()), nil
	case a.kind == KindTuple && b.kind == KindTuple:
		return seqCompare(a.Tuple().Items(), b.Tuple().Items(), elem)
	case a.kind == KindList && b.kind == KindList:
		return seqCompare(a.List().Snapshot(), b.List().Snapshot(), elem)
	}
	return 0, fmt.Errorf("unable to compare %s and %s", TypeName(a), TypeName(b))
}

func seqCompare(xs, ys []Value, elem ElemCompare) (int, error) {
	for i := 0; i < len(xs) && i < len(ys); i++ {
		c, err := elem(xs[i], ys[i])
		if err != nil || c != 0 {
			return c, err
		}
	}
	return cmp.Compare(len(xs), len(ys)), nil
}
