package vm

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
)

// valueRef locates a value being matched: a local slot, or an element of the
// sequence held in that slot.
type valueRef struct {
	slot    int
	elem    int // -1 for the slot itself
	fromEnd bool
}

func slotRef(slot int) valueRef { return valueRef{slot: slot, elem: -1} }

func (c *Compiler) load(ref valueRef) {
	c.emitOpU8(OP_GET_LOCAL, ref.slot)
	switch {
	case ref.elem < 0:
	case ref.fromEnd:
		c.emitOpU8(OP_GET_ELEM_END, ref.elem)
	default:
		c.emitOpU8(OP_GET_ELEM, ref.elem)
	}
}

// materialize returns a slot holding the referenced value, copying an
// element into a temporary when needed.
func (c *Compiler) materialize(ref valueRef) int {
	if ref.elem < 0 {
		return ref.slot
	}
	tmp := c.addTemp()
	c.load(ref)
	c.emitOpU8(OP_SET_LOCAL, tmp)
	c.emit(OP_POP)
	return tmp
}

// seqShape splits sequence pattern elements around an optional rest pattern.
func (c *Compiler) seqShape(elems []ast.Pattern) (count int, rest int, err error) {
	rest = -1
	for i, el := range elems {
		if _, ok := el.(*ast.RestPattern); ok {
			rest = i
			continue
		}
		count++
	}
	if count > 255 {
		return 0, 0, c.errorf(diagnostics.ErrC005, "too many elements in pattern")
	}
	return count, rest, nil
}

// elemRef locates the i-th element of a sequence pattern; elements after a
// rest pattern are addressed from the end.
func elemRef(slot, i, rest, total int) valueRef {
	if rest >= 0 && i > rest {
		return valueRef{slot: slot, elem: total - i, fromEnd: true}
	}
	return valueRef{slot: slot, elem: i}
}

func patternKind(pat ast.Pattern) ([]ast.Pattern, byte, bool) {
	switch p := pat.(type) {
	case *ast.TuplePattern:
		return p.Elements, seqTuple, true
	case *ast.ListPattern:
		return p.Elements, seqList, true
	}
	return nil, 0, false
}

// compilePattern emits a refutable test of pat against ref. Bindings are
// assigned as the test proceeds; every failing branch is appended to failed.
func (c *Compiler) compilePattern(pat ast.Pattern, ref valueRef, failed *[]int) error {
	saved := c.pos
	c.pos = pat.GetToken()
	defer func() { c.pos = saved }()

	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return nil
	case *ast.IdentifierPattern:
		c.load(ref)
		c.bindName(p.Name)
		c.emit(OP_POP)
		return nil
	case *ast.LiteralPattern:
		c.load(ref)
		if err := c.compileExpression(p.Value); err != nil {
			return err
		}
		c.emit(OP_EQUAL)
		*failed = append(*failed, c.emitJump(OP_JUMP_IF_FALSE))
		return nil
	case *ast.RestPattern:
		return c.errorf(diagnostics.ErrC003, "'...' is only allowed inside a tuple or list pattern")
	}

	elems, kind, ok := patternKind(pat)
	if !ok {
		return c.errorf(diagnostics.ErrC003, "unsupported pattern")
	}
	count, rest, err := c.seqShape(elems)
	if err != nil {
		return err
	}
	slot := c.materialize(ref)
	c.emitOpU8(OP_GET_LOCAL, slot)
	c.emitSeqCheck(OP_MATCH_SEQ, kind, count, rest >= 0)
	*failed = append(*failed, c.emitJump(OP_JUMP_IF_FALSE))

	for i, el := range elems {
		if i == rest {
			if err := c.bindRest(el.(*ast.RestPattern), slot, rest, len(elems)); err != nil {
				return err
			}
			continue
		}
		if err := c.compilePattern(el, elemRef(slot, i, rest, len(elems)), failed); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) emitSeqCheck(op Opcode, kind byte, count int, hasRest bool) {
	c.emit(op)
	c.emitByte(kind)
	c.emitByte(byte(count))
	if hasRest {
		c.emitByte(1)
	} else {
		c.emitByte(0)
	}
}

func (c *Compiler) bindRest(rest *ast.RestPattern, slot, at, total int) error {
	if rest.Name == "" {
		return nil
	}
	c.emitOpU8(OP_GET_LOCAL, slot)
	c.emit(OP_SLICE_FROM)
	c.emitByte(byte(at))
	c.emitByte(byte(total - at - 1))
	c.bindName(rest.Name)
	c.emit(OP_POP)
	return nil
}

// destructure unpacks the value in slot into the bindings of an
// irrefutable pattern, throwing at runtime when the shape doesn't fit.
func (c *Compiler) destructure(pat ast.Pattern, slot int) error {
	return c.destructureRef(pat, slotRef(slot))
}

func (c *Compiler) destructureRef(pat ast.Pattern, ref valueRef) error {
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return nil
	case *ast.IdentifierPattern:
		c.load(ref)
		c.bindName(p.Name)
		c.emit(OP_POP)
		return nil
	}
	elems, _, ok := patternKind(pat)
	if !ok {
		return c.errorAt(pat.GetToken(), diagnostics.ErrC003, "only names and tuple or list patterns can be used here")
	}
	return c.destructureSeq(elems, seqAny, c.materialize(ref))
}

func (c *Compiler) destructureSeq(elems []ast.Pattern, kind byte, slot int) error {
	count, rest, err := c.seqShape(elems)
	if err != nil {
		return err
	}
	c.emitOpU8(OP_GET_LOCAL, slot)
	c.emitSeqCheck(OP_CHECK_SEQ, kind, count, rest >= 0)
	for i, el := range elems {
		if i == rest {
			if err := c.bindRest(el.(*ast.RestPattern), slot, rest, len(elems)); err != nil {
				return err
			}
			continue
		}
		if err := c.destructureRef(el, elemRef(slot, i, rest, len(elems))); err != nil {
			return err
		}
	}
	return nil
}
