package vm

import (
	"github.com/funvibe/kite/internal/modules"
	"github.com/funvibe/kite/internal/value"
)

// FunctionProto is a compiled function before its captures are bound.
type FunctionProto struct {
	Name        string
	Arity       int
	Variadic    bool // the last parameter collects extra arguments into a tuple
	IsGenerator bool // calling the function returns an iterator
	SelfParam   bool // the first parameter is `self`, bound by method calls
	Upvalues    []UpvalueDesc
	Chunk       *Chunk
}

// UpvalueDesc tells OP_CLOSURE where to find a captured variable.
type UpvalueDesc struct {
	Index   uint8 // Index of the local/upvalue in enclosing scope
	IsLocal bool  // True if captures a local, false if captures another upvalue
}

// Closure is a function prototype with its captured cells.
type Closure struct {
	Proto    *FunctionProto
	Upvalues []*Upvalue
	Module   *modules.Module
}

// FunctionName implements value.Function.
func (c *Closure) FunctionName() string {
	if c.Proto.Name == "" {
		return "<anonymous>"
	}
	return c.Proto.Name
}

// Upvalue is a captured variable cell. While open it aliases a stack slot
// of the fiber that owns it; once the frame returns it holds the value.
type Upvalue struct {
	fiber  *fiber
	slot   int
	closed value.Value
	open   bool
	next   *Upvalue
}

func (u *Upvalue) get() value.Value {
	if u.open {
		return u.fiber.stack[u.slot]
	}
	return u.closed
}

func (u *Upvalue) set(v value.Value) {
	if u.open {
		u.fiber.stack[u.slot] = v
		return
	}
	u.closed = v
}
