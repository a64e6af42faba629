package vm

import "github.com/funvibe/kite/internal/diagnostics"

type varKind int

const (
	varLocal varKind = iota
	varUpvalue
	varGlobal
)

// addLocal reserves the next slot of the function's frame for name. Hidden
// temporaries use an empty name and can never be resolved.
func (c *Compiler) addLocal(name string) int {
	slot := len(c.locals)
	if slot >= MaxLocals {
		c.abort(diagnostics.ErrC005, "too many local variables in function")
	}
	c.locals = append(c.locals, Local{Name: name, Slot: slot})
	c.chunk.Locals = append(c.chunk.Locals, name)
	return slot
}

func (c *Compiler) addTemp() int {
	return c.addLocal("")
}

// resolveLocal looks up a local variable by name
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return c.locals[i].Slot
		}
	}
	return -1
}

// resolveUpvalue looks for a variable in enclosing functions
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}

	if slot := c.enclosing.resolveLocal(name); slot != -1 {
		return c.addUpvalue(uint8(slot), true)
	}

	if upvalue := c.enclosing.resolveUpvalue(name); upvalue != -1 {
		return c.addUpvalue(uint8(upvalue), false)
	}

	return -1
}

// addUpvalue adds an upvalue to this function's upvalue list
func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i, uv := range c.proto.Upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}

	if len(c.proto.Upvalues) >= MaxUpvalues {
		c.abort(diagnostics.ErrC005, "too many captured variables in function")
	}

	c.proto.Upvalues = append(c.proto.Upvalues, UpvalueDesc{Index: index, IsLocal: isLocal})
	return len(c.proto.Upvalues) - 1
}

// resolve finds what an identifier refers to. Globals are resolved by name
// at runtime, so idx is unused for them.
func (c *Compiler) resolve(name string) (varKind, int, bool) {
	if slot := c.resolveLocal(name); slot != -1 {
		return varLocal, slot, true
	}
	if idx := c.resolveUpvalue(name); idx != -1 {
		return varUpvalue, idx, true
	}
	if c.unit.globals[name] {
		return varGlobal, 0, true
	}
	return 0, 0, false
}

// emitGetVar pushes the value of an identifier
func (c *Compiler) emitGetVar(name string) error {
	kind, idx, ok := c.resolve(name)
	if !ok {
		return c.errorf(diagnostics.ErrC001, name)
	}
	switch kind {
	case varLocal:
		c.emitOpU8(OP_GET_LOCAL, idx)
	case varUpvalue:
		c.emitOpU8(OP_GET_UPVALUE, idx)
	default:
		c.emitOpU16(OP_GET_GLOBAL, c.nameConstant(name))
	}
	return nil
}

// declareTarget resolves an assignment target, declaring a new local in the
// current function when the name isn't a local or a captured variable.
func (c *Compiler) declareTarget(name string) (varKind, int) {
	if slot := c.resolveLocal(name); slot != -1 {
		return varLocal, slot
	}
	if idx := c.resolveUpvalue(name); idx != -1 {
		return varUpvalue, idx
	}
	return varLocal, c.addLocal(name)
}

// emitSetVar stores the top of the stack, leaving it in place.
func (c *Compiler) emitSetVar(name string, kind varKind, idx int) {
	if kind == varUpvalue {
		c.emitOpU8(OP_SET_UPVALUE, idx)
	} else {
		c.emitOpU8(OP_SET_LOCAL, idx)
	}
	if c.unit.repl && c.isTopLevel() {
		c.emitOpU16(OP_SET_EXPORT, c.nameConstant(name))
	}
}

// bindName declares name if needed and stores the top of the stack in it.
func (c *Compiler) bindName(name string) {
	kind, idx := c.declareTarget(name)
	c.emitSetVar(name, kind, idx)
}
