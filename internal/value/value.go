// Package value defines the runtime values shared by the Kite compiler,
// virtual machine and libraries.
package value

import (
	"io"
	"math"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTuple
	KindList
	KindMap
	KindRange
	KindIterator
	KindFunction
	KindNative
	KindObject
)

var kindNames = [...]string{
	KindNull:     "Null",
	KindBool:     "Bool",
	KindInt:      "Number",
	KindFloat:    "Number",
	KindString:   "String",
	KindTuple:    "Tuple",
	KindList:     "List",
	KindMap:      "Map",
	KindRange:    "Range",
	KindIterator: "Iterator",
	KindFunction: "Function",
	KindNative:   "NativeFunction",
	KindObject:   "Object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is a tagged Kite value. Scalars live in bits; everything else is a
// shared reference held in ref.
type Value struct {
	kind Kind
	bits uint64
	ref  any
}

// Function is implemented by compiled closures.
type Function interface {
	FunctionName() string
}

// Runtime is the view of the virtual machine given to native code.
type Runtime interface {
	// Call invokes any callable value, running closures to completion.
	Call(fn Value, args ...Value) (Value, error)
	MakeIterator(v Value) (*Iterator, error)
	Display(v Value) (string, error)
	Equal(a, b Value) (bool, error)
	Compare(a, b Value) (int, error)
	// BinaryOp applies an arithmetic operator ("+", "-", "*", "/", "%" or
	// "^") with the same dispatch as the operator in a script.
	BinaryOp(op string, a, b Value) (Value, error)
	Size(v Value) (int, error)
	Index(v, idx Value) (Value, error)
	TypeOf(v Value) string
	ScriptPath() string
	// Exports is the export map of the running module.
	Exports() *Map
	// Args are the script arguments given by the host.
	Args() []Value
	Stdout() io.Writer
}

var (
	Null  = Value{}
	True  = Value{kind: KindBool, bits: 1}
	False = Value{kind: KindBool}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Int(i int64) Value     { return Value{kind: KindInt, bits: uint64(i)} }
func Float(f float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(f)} }
func Str(s string) Value    { return Value{kind: KindString, ref: s} }

func FromTuple(t *Tuple) Value       { return Value{kind: KindTuple, ref: t} }
func FromList(l *List) Value         { return Value{kind: KindList, ref: l} }
func FromMap(m *Map) Value           { return Value{kind: KindMap, ref: m} }
func FromRange(r *Range) Value       { return Value{kind: KindRange, ref: r} }
func FromIterator(it *Iterator) Value { return Value{kind: KindIterator, ref: it} }
func FromFunction(f Function) Value  { return Value{kind: KindFunction, ref: f} }
func FromNative(n *Native) Value     { return Value{kind: KindNative, ref: n} }
func FromObject(o Object) Value      { return Value{kind: KindObject, ref: o} }

// TupleOf builds a tuple value that takes ownership of items.
func TupleOf(items ...Value) Value { return FromTuple(NewTuple(items)) }

// ListOf builds a list value that takes ownership of items.
func ListOf(items ...Value) Value { return FromList(NewList(items)) }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsNumber() bool  { return v.kind == KindInt || v.kind == KindFloat }
func (v Value) IsInt() bool     { return v.kind == KindInt }
func (v Value) IsFloat() bool   { return v.kind == KindFloat }
func (v Value) IsString() bool  { return v.kind == KindString }
func (v Value) IsCallable() bool {
	switch v.kind {
	case KindFunction, KindNative:
		return true
	case KindObject:
		_, ok := v.ref.(Caller)
		return ok
	}
	return false
}

// Truthy reports whether v counts as true in a condition. Only null and
// false are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.bits != 0
	}
	return true
}

func (v Value) AsBool() bool   { return v.bits != 0 }
func (v Value) AsInt() int64 {
	if v.kind == KindFloat {
		return int64(math.Float64frombits(v.bits))
	}
	return int64(v.bits)
}
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(int64(v.bits))
	}
	return math.Float64frombits(v.bits)
}
func (v Value) AsString() string {
	s, _ := v.ref.(string)
	return s
}

func (v Value) Tuple() *Tuple       { t, _ := v.ref.(*Tuple); return t }
func (v Value) List() *List         { l, _ := v.ref.(*List); return l }
func (v Value) Map() *Map           { m, _ := v.ref.(*Map); return m }
func (v Value) Range() *Range       { r, _ := v.ref.(*Range); return r }
func (v Value) Iterator() *Iterator { it, _ := v.ref.(*Iterator); return it }
func (v Value) Function() Function  { f, _ := v.ref.(Function); return f }
func (v Value) Native() *Native     { n, _ := v.ref.(*Native); return n }
func (v Value) Object() Object      { o, _ := v.ref.(Object); return o }

// Ref exposes the reference payload, used for identity comparisons.
func (v Value) Ref() any { return v.ref }

// Same reports reference identity for shared values and equality for
// scalars.
func Same(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool, KindInt, KindFloat:
		return a.bits == b.bits
	case KindString:
		return a.AsString() == b.AsString()
	}
	return a.ref == b.ref
}

// TypeName returns the native type name of v. Maps with a @type entry are
// resolved by the VM, not here.
func TypeName(v Value) string {
	if v.kind == KindObject {
		if o, ok := v.ref.(Object); ok {
			return o.TypeName()
		}
	}
	return v.kind.String()
}

// ToFloat returns v as a float if it is a number.
func ToFloat(v Value) (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(int64(v.bits)), true
	case KindFloat:
		return math.Float64frombits(v.bits), true
	}
	return 0, false
}

// ToInt returns v as an integer if it is an integer or an integral float.
func ToInt(v Value) (int64, bool) {
	switch v.kind {
	case KindInt:
		return int64(v.bits), true
	case KindFloat:
		f := math.Float64frombits(v.bits)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
	}
	return 0, false
}
