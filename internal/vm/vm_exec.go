package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/kite/internal/value"
)

// executeOneOp executes a single opcode (except those that can leave the
// dispatch loop: RETURN, FINALLY_EXIT and YIELD)
func (vm *VM) executeOneOp(op Opcode) error {
	f := vm.cur

	switch op {
	case OP_CONST:
		vm.push(vm.readConstant())

	case OP_NULL:
		vm.push(value.Null)

	case OP_TRUE:
		vm.push(value.True)

	case OP_FALSE:
		vm.push(value.False)

	case OP_POP:
		vm.pop()

	case OP_DUP:
		vm.push(vm.peek(0))

	case OP_DUP2:
		a, b := vm.peek(1), vm.peek(0)
		vm.push(a)
		vm.push(b)

	case OP_SWAP:
		top := f.sp - 1
		if top < 1 {
			panic(errStackUnderflow)
		}
		f.stack[top], f.stack[top-1] = f.stack[top-1], f.stack[top]

	case OP_GET_LOCAL:
		slot := int(vm.readByte())
		vm.push(f.stack[f.frame.base+slot])

	case OP_SET_LOCAL:
		slot := int(vm.readByte())
		f.stack[f.frame.base+slot] = vm.peek(0)

	case OP_GET_UPVALUE:
		idx := int(vm.readByte())
		vm.push(f.frame.closure.Upvalues[idx].get())

	case OP_SET_UPVALUE:
		idx := int(vm.readByte())
		f.frame.closure.Upvalues[idx].set(vm.peek(0))

	case OP_GET_GLOBAL:
		name := vm.readName()
		v, ok := vm.global(name)
		if !ok {
			return value.Errorf("'%s' is not defined", name)
		}
		vm.push(v)

	case OP_CLOSURE:
		idx := vm.readU16()
		proto := f.frame.chunk.Functions[idx]
		closure := &Closure{
			Proto:    proto,
			Upvalues: make([]*Upvalue, len(proto.Upvalues)),
			Module:   f.frame.closure.Module,
		}
		for i, uv := range proto.Upvalues {
			if uv.IsLocal {
				closure.Upvalues[i] = vm.captureUpvalue(f.frame.base + int(uv.Index))
			} else {
				closure.Upvalues[i] = f.frame.closure.Upvalues[uv.Index]
			}
		}
		vm.push(value.FromFunction(closure))

	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_REM, OP_POW:
		b := vm.pop()
		a := vm.pop()
		res, err := vm.arith(op, a, b)
		if err != nil {
			return err
		}
		vm.push(res)

	case OP_NEGATE:
		res, err := vm.negate(vm.pop())
		if err != nil {
			return err
		}
		vm.push(res)

	case OP_NOT:
		v := vm.pop()
		if fn, ok := metaOf(v, value.MetaNot); ok {
			res, err := vm.Call(fn, v)
			if err != nil {
				return err
			}
			vm.push(res)
			break
		}
		vm.push(value.Bool(!v.Truthy()))

	case OP_EQUAL, OP_NOT_EQUAL:
		b := vm.pop()
		a := vm.pop()
		eq, err := vm.equalOp(op, a, b)
		if err != nil {
			return err
		}
		vm.push(value.Bool(eq))

	case OP_LESS, OP_LESS_EQ, OP_GREATER, OP_GREATER_EQ:
		b := vm.pop()
		a := vm.pop()
		res, err := vm.compareOp(op, a, b)
		if err != nil {
			return err
		}
		vm.push(value.Bool(res))

	case OP_JUMP:
		offset := vm.readU16()
		f.frame.ip += offset

	case OP_JUMP_IF_FALSE:
		offset := vm.readU16()
		if !vm.pop().Truthy() {
			f.frame.ip += offset
		}

	case OP_JUMP_IF_FALSE_KEEP:
		offset := vm.readU16()
		if !vm.peek(0).Truthy() {
			f.frame.ip += offset
		}

	case OP_JUMP_IF_TRUE_KEEP:
		offset := vm.readU16()
		if vm.peek(0).Truthy() {
			f.frame.ip += offset
		}

	case OP_LOOP:
		offset := vm.readU16()
		f.frame.ip -= offset

	case OP_SAVE_SP:
		slot := int(vm.readByte())
		f.stack[f.frame.base+slot] = value.Int(int64(f.sp))

	case OP_RESTORE_SP:
		slot := int(vm.readByte())
		height := int(f.stack[f.frame.base+slot].AsInt())
		for f.sp > height {
			vm.pop()
		}

	case OP_LIST:
		n := vm.readU16()
		vm.push(value.FromList(value.NewList(vm.popN(n))))

	case OP_TUPLE:
		n := vm.readU16()
		vm.push(value.FromTuple(value.NewTuple(vm.popN(n))))

	case OP_NEW_MAP:
		vm.push(value.FromMap(value.NewMap()))

	case OP_MAP_ENTRY:
		name := vm.readName()
		v := vm.pop()
		vm.peek(0).Map().SetStr(name, v)

	case OP_MAP_INSERT:
		v := vm.pop()
		k := vm.pop()
		if err := vm.peek(0).Map().Insert(k, v); err != nil {
			return err
		}

	case OP_MAP_META:
		key := vm.readName()
		v := vm.pop()
		if err := setMeta(vm.peek(0).Map(), key, v); err != nil {
			return err
		}

	case OP_RANGE:
		flags := vm.readByte()
		r, err := vm.makeRange(flags)
		if err != nil {
			return err
		}
		vm.push(value.FromRange(r))

	case OP_STRING:
		n := vm.readU16()
		parts := vm.popN(n)
		var b strings.Builder
		for _, p := range parts {
			s, err := vm.Display(p)
			if err != nil {
				return err
			}
			b.WriteString(s)
		}
		vm.push(value.Str(b.String()))

	case OP_FORMAT:
		spec := vm.readName()
		s, err := vm.format(vm.pop(), spec)
		if err != nil {
			return err
		}
		vm.push(value.Str(s))

	case OP_GET_FIELD:
		name := vm.readName()
		v, err := vm.getField(vm.pop(), name)
		if err != nil {
			return err
		}
		vm.push(v)

	case OP_SET_FIELD:
		name := vm.readName()
		v := vm.pop()
		obj := vm.pop()
		if err := vm.setField(obj, name, v); err != nil {
			return err
		}
		vm.push(v)

	case OP_GET_INDEX:
		idx := vm.pop()
		obj := vm.pop()
		v, err := vm.Index(obj, idx)
		if err != nil {
			return err
		}
		vm.push(v)

	case OP_SET_INDEX:
		v := vm.pop()
		idx := vm.pop()
		obj := vm.pop()
		if err := vm.setIndex(obj, idx, v); err != nil {
			return err
		}
		vm.push(v)

	case OP_CALL:
		argc := int(vm.readByte())
		return vm.callValue(argc)

	case OP_INVOKE:
		name := vm.readName()
		argc := int(vm.readByte())
		return vm.invoke(name, argc)

	case OP_ITER:
		it, err := vm.MakeIterator(vm.pop())
		if err != nil {
			return err
		}
		vm.push(value.FromIterator(it))

	case OP_ITER_NEXT:
		slot := int(vm.readByte())
		offset := vm.readU16()
		it := f.stack[f.frame.base+slot].Iterator()
		v, ok, err := it.Next(vm)
		if err != nil {
			return err
		}
		if !ok {
			f.frame.ip += offset
			break
		}
		vm.push(v)

	case OP_THROW:
		return value.Throw(vm.pop())

	case OP_TRY_START:
		catchIP := vm.readU16()
		finallyIP := vm.readU16()
		vm.pushHandler(catchIP, finallyIP)

	case OP_TRY_END:
		vm.popHandler()

	case OP_ENTER_FINALLY:
		vm.pushPending(pendingAction{kind: completionNormal, value: vm.pop(), frame: f.frameCount})

	case OP_DISCARD_PENDING:
		vm.discardPending()

	case OP_MATCH_SEQ:
		kind, count, hasRest := vm.readByte(), int(vm.readByte()), vm.readByte() != 0
		_, ok := seqFits(vm.pop(), kind, count, hasRest)
		vm.push(value.Bool(ok))

	case OP_CHECK_SEQ:
		kind, count, hasRest := vm.readByte(), int(vm.readByte()), vm.readByte() != 0
		v := vm.pop()
		if _, ok := seqFits(v, kind, count, hasRest); !ok {
			return destructureError(vm.TypeOf(v), v, count, hasRest)
		}

	case OP_GET_ELEM, OP_GET_ELEM_END:
		i := int(vm.readByte())
		items, ok := seqItems(vm.pop())
		if op == OP_GET_ELEM_END {
			i = len(items) - i
		}
		if !ok || i < 0 || i >= len(items) {
			return value.Errorf("index %d is out of bounds", i)
		}
		vm.push(items[i])

	case OP_SLICE_FROM:
		start, trailing := int(vm.readByte()), int(vm.readByte())
		v := vm.pop()
		items, _ := seqItems(v)
		end := len(items) - trailing
		if end < start {
			end = start
		}
		rest := append([]value.Value(nil), items[start:end]...)
		if v.Kind() == value.KindList {
			vm.push(value.FromList(value.NewList(rest)))
		} else {
			vm.push(value.FromTuple(value.NewTuple(rest)))
		}

	case OP_GET_UNPACKED:
		i := int(vm.readByte())
		v := vm.pop()
		if items, ok := seqItems(v); ok {
			if i < len(items) {
				vm.push(items[i])
			} else {
				vm.push(value.Null)
			}
		} else if i == 0 {
			vm.push(v)
		} else {
			vm.push(value.Null)
		}

	case OP_NO_MATCH:
		return value.Errorf("no match found")

	case OP_IMPORT:
		path := vm.readName()
		mod, err := vm.importModule(path)
		if err != nil {
			return err
		}
		vm.push(mod)

	case OP_SET_EXPORT:
		name := vm.readName()
		vm.currentModule().Exports.SetStr(name, vm.peek(0))

	case OP_EXPORT_MAP, OP_EXPORT_ITER:
		if err := vm.exportValue(vm.peek(0)); err != nil {
			return err
		}

	case OP_SET_MODULE_META:
		key := vm.readName()
		if err := setMeta(vm.currentModule().Exports, key, vm.peek(0)); err != nil {
			return err
		}

	case OP_DEBUG:
		source := vm.readName()
		s, err := vm.Display(vm.peek(0))
		if err != nil {
			return err
		}
		line := 0
		if ip := f.frame.ip - 1; ip < len(f.frame.chunk.Lines) {
			line = f.frame.chunk.Lines[ip]
		}
		fmt.Fprintf(vm.out, "[%s: %d] %s: %s\n", formatFilePath(f.frame.chunk.File), line, source, s)

	default:
		return fmt.Errorf("unknown opcode %d", op)
	}
	return nil
}

// seqItems returns the elements of a tuple or list.
func seqItems(v value.Value) ([]value.Value, bool) {
	switch v.Kind() {
	case value.KindTuple:
		return v.Tuple().Items(), true
	case value.KindList:
		return v.List().Snapshot(), true
	}
	return nil, false
}

// seqFits reports whether v is a sequence of the pattern's kind with count
// elements, or at least count when the pattern has a rest element.
func seqFits(v value.Value, kind byte, count int, hasRest bool) ([]value.Value, bool) {
	switch {
	case kind == seqTuple && v.Kind() != value.KindTuple:
		return nil, false
	case kind == seqList && v.Kind() != value.KindList:
		return nil, false
	}
	items, ok := seqItems(v)
	if !ok {
		return nil, false
	}
	if hasRest {
		return items, len(items) >= count
	}
	return items, len(items) == count
}

func destructureError(typeName string, v value.Value, count int, hasRest bool) error {
	items, ok := seqItems(v)
	if !ok {
		return value.Errorf("expected a Tuple or List to unpack, found %s", typeName)
	}
	if hasRest {
		return value.Errorf("expected at least %d elements to unpack, found %d", count, len(items))
	}
	return value.Errorf("expected %d elements to unpack, found %d", count, len(items))
}

// setMeta stores v under a metakey spelling such as "@+" or "@test name".
func setMeta(m *value.Map, key string, v value.Value) error {
	k, name, ok := value.ParseMetaEntry(key)
	if !ok {
		return value.Errorf("unknown metakey '%s'", key)
	}
	meta := m.EnsureMeta()
	if k == value.MetaTest {
		meta.SetTest(name, v)
	} else {
		meta.Set(k, v)
	}
	return nil
}

func (vm *VM) makeRange(flags byte) (*value.Range, error) {
	r := &value.Range{Inclusive: flags&rangeInclusive != 0}
	if flags&rangeHasEnd != 0 {
		end, ok := value.ToInt(vm.pop())
		if !ok {
			return nil, value.Errorf("range bounds must be integers")
		}
		r.End, r.HasEnd = end, true
	}
	if flags&rangeHasStart != 0 {
		start, ok := value.ToInt(vm.pop())
		if !ok {
			return nil, value.Errorf("range bounds must be integers")
		}
		r.Start, r.HasStart = start, true
	}
	return r, nil
}

// global resolves a name not bound in the running function: the module's
// exports first, then the prelude.
func (vm *VM) global(name string) (value.Value, bool) {
	if mod := vm.currentModule(); mod != nil {
		if v, ok := mod.Exports.GetStr(name); ok {
			return v, true
		}
	}
	return vm.prelude.GetStr(name)
}
