package value

// Object is a host-defined value. Optional capability interfaces below let
// it take part in indexing, sizing, display, calls and iteration.
type Object interface {
	TypeName() string
}

type Indexer interface {
	Index(rt Runtime, idx Value) (Value, error)
}

type IndexSetter interface {
	SetIndex(rt Runtime, idx, v Value) error
}

// FieldGetter objects answer x.name before methods are looked up.
type FieldGetter interface {
	Field(rt Runtime, name string) (Value, bool, error)
}

type Sizer interface {
	Size(rt Runtime) (int, error)
}

type Displayer interface {
	Display(rt Runtime) (string, error)
}

type Caller interface {
	Call(rt Runtime, args []Value) (Value, error)
}

// MethodProvider exposes named methods. The returned function is already
// bound to the receiver.
type MethodProvider interface {
	Method(name string) (NativeFunc, bool)
}

// Iterable objects produce their own iterators.
type Iterable interface {
	Iterate(rt Runtime) (Producer, error)
}

// NativeFunc is the signature of host functions callable from scripts.
type NativeFunc func(rt Runtime, args []Value) (Value, error)

// Native is a named host function.
type Native struct {
	Name string
	Fn   NativeFunc
}

// NewNative wraps fn as a callable value.
func NewNative(name string, fn NativeFunc) Value {
	return FromNative(&Native{Name: name, Fn: fn})
}

// Bind returns a native that calls fn with recv prepended to the arguments.
func Bind(name string, recv Value, fn NativeFunc) Value {
	return NewNative(name, func(rt Runtime, args []Value) (Value, error) {
		full := make([]Value, 0, len(args)+1)
		full = append(full, recv)
		full = append(full, args...)
		return fn(rt, full)
	})
}
