package value

import (
	"math"
	"strconv"
	"strings"
)

// ElemDisplay renders a nested container element.
type ElemDisplay func(v Value) (string, error)

// MaxDisplayDepth bounds container nesting in displayed output. Deeper
// elements, such as a List that contains itself, render as "...".
const MaxDisplayDepth = 64

// Display renders v without consulting metamaps.
func Display(v Value) string {
	depth := 0
	var nested ElemDisplay
	nested = func(v Value) (string, error) {
		if v.kind == KindString {
			return Quote(v.AsString()), nil
		}
		if depth >= MaxDisplayDepth {
			return "...", nil
		}
		depth++
		defer func() { depth-- }()
		return DisplayWith(v, nested)
	}
	s, _ := DisplayWith(v, nested)
	return s
}

// Quote renders a string the way it appears inside a container.
func Quote(s string) string {
	return "'" + s + "'"
}

// FormatFloat renders floats with a fractional part so they stay
// distinguishable from integers.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// DisplayWith renders v at top level: strings are written raw, nested
// elements go through elem.
func DisplayWith(v Value, elem ElemDisplay) (string, error) {
	switch v.kind {
	case KindNull:
		return "null", nil
	case KindBool:
		if v.bits != 0 {
			return "true", nil
		}
		return "false", nil
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10), nil
	case KindFloat:
		return FormatFloat(v.AsFloat()), nil
	case KindString:
		return v.AsString(), nil
	case KindTuple:
		return joinSeq("(", ")", v.Tuple().Items(), elem)
	case KindList:
		return joinSeq("[", "]", v.List().Snapshot(), elem)
	case KindMap:
		var b strings.Builder
		b.WriteByte('{')
		for i, e := range v.Map().Entries() {
			if i > 0 {
				b.WriteString(", ")
			}
			var ks string
			if e.Key.kind == KindString {
				ks = e.Key.AsString()
			} else {
				s, err := elem(e.Key)
				if err != nil {
					return "", err
				}
				ks = s
			}
			vs, err := elem(e.Value)
			if err != nil {
				return "", err
			}
			b.WriteString(ks)
			b.WriteString(": ")
			b.WriteString(vs)
		}
		b.WriteByte('}')
		return b.String(), nil
	case KindRange:
		return v.Range().String(), nil
	case KindIterator:
		return "Iterator", nil
	case KindFunction:
		return "Function", nil
	case KindNative:
		return "NativeFunction", nil
	case KindObject:
		return v.Object().TypeName(), nil
	}
	return "?", nil
}

func joinSeq(open, close string, items []Value, elem ElemDisplay) (string, error) {
	var b strings.Builder
	b.WriteString(open)
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		s, err := elem(item)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	b.WriteString(close)
	return b.String(), nil
}
