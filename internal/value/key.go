package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Key is the hashable form of a map key. Integral floats share the key of
// the equal integer so that 1 and 1.0 address the same entry.
type Key struct {
	kind uint8
	n    uint64
	s    string
}

const (
	keyNull uint8 = iota
	keyBool
	keyInt
	keyFloat
	keyString
	keyTuple
)

// KeyOf returns the hash key for v, or an error if v cannot be a map key.
func KeyOf(v Value) (Key, error) {
	switch v.kind {
	case KindNull:
		return Key{kind: keyNull}, nil
	case KindBool:
		return Key{kind: keyBool, n: v.bits}, nil
	case KindInt:
		return Key{kind: keyInt, n: v.bits}, nil
	case KindFloat:
		f := v.AsFloat()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return Key{kind: keyInt, n: uint64(int64(f))}, nil
		}
		return Key{kind: keyFloat, n: v.bits}, nil
	case KindString:
		return Key{kind: keyString, s: v.AsString()}, nil
	case KindTuple:
		var b strings.Builder
		var buf [8]byte
		for _, item := range v.Tuple().Items() {
			k, err := KeyOf(item)
			if err != nil {
				return Key{}, err
			}
			b.WriteByte(k.kind)
			binary.LittleEndian.PutUint64(buf[:], k.n)
			b.Write(buf[:])
			binary.LittleEndian.PutUint64(buf[:], uint64(len(k.s)))
			b.Write(buf[:])
			b.WriteString(k.s)
		}
		return Key{kind: keyTuple, s: b.String()}, nil
	}
	return Key{}, fmt.Errorf("%s can't be used as a map key", TypeName(v))
}

// StrKey is the key of a string.
func StrKey(s string) Key { return Key{kind: keyString, s: s} }
