package vm

import (
	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/value"
)

// callValue calls the value sitting below argc arguments on the stack.
// Closures push a frame; everything else completes before returning and
// leaves its result in place of the callee.
func (vm *VM) callValue(argc int) error {
	f := vm.cur
	callee := f.stack[f.sp-1-argc]

	switch callee.Kind() {
	case value.KindFunction:
		if c, ok := callee.Function().(*Closure); ok {
			return vm.callClosure(c, argc)
		}
	case value.KindNative:
		n := callee.Native()
		args := vm.popN(argc)
		vm.pop()
		res, err := n.Fn(vm, args)
		if err != nil {
			return err
		}
		vm.push(res)
		return nil
	case value.KindMap:
		if fn, ok := callee.Map().Meta().Get(value.MetaCall); ok {
			vm.insertBelowArgs(fn, argc)
			return vm.callValue(argc + 1)
		}
	case value.KindObject:
		if caller, ok := callee.Object().(value.Caller); ok {
			args := vm.popN(argc)
			vm.pop()
			res, err := caller.Call(vm, args)
			if err != nil {
				return err
			}
			vm.push(res)
			return nil
		}
	}
	return value.Errorf("%s is not callable", vm.TypeOf(callee))
}

// insertBelowArgs turns [callee, args...] into [fn, callee, args...], so the
// old callee becomes the first argument.
func (vm *VM) insertBelowArgs(fn value.Value, argc int) {
	vm.push(value.Null)
	f := vm.cur
	at := f.sp - 2 - argc
	copy(f.stack[at+1:f.sp], f.stack[at:f.sp-1])
	f.stack[at] = fn
}

func (vm *VM) callClosure(c *Closure, argc int) error {
	proto := c.Proto
	f := vm.cur

	if proto.Variadic {
		fixed := proto.Arity - 1
		if argc < fixed {
			return value.Errorf("%s expects at least %d arguments, found %d", c.FunctionName(), fixed, argc)
		}
		rest := vm.popN(argc - fixed)
		vm.push(value.FromTuple(value.NewTuple(rest)))
		argc = proto.Arity
	} else if argc != proto.Arity {
		return value.Errorf("%s expects %d arguments, found %d", c.FunctionName(), proto.Arity, argc)
	}

	if proto.IsGenerator {
		return vm.startGenerator(c, argc)
	}
	if f.frameCount >= config.MaxFrameCount {
		return value.Errorf("stack overflow")
	}

	base := f.sp - argc
	locals := proto.Chunk.LocalCount()
	vm.growStack(locals - argc + 1)
	for i := f.sp; i < base+locals; i++ {
		f.stack[i] = value.Null
	}
	if base+locals > f.sp {
		f.sp = base + locals
	}
	vm.pushFrame(c, base)
	return nil
}

// Call implements value.Runtime. Closures run to completion in a nested
// dispatch loop; an error they don't handle is returned to the caller.
func (vm *VM) Call(fn value.Value, args ...value.Value) (value.Value, error) {
	if fn.Kind() == value.KindNative {
		return fn.Native().Fn(vm, args)
	}
	if vm.nested >= config.MaxNestedRuns {
		return value.Null, value.Errorf("stack overflow")
	}

	f := vm.cur
	savedSP := f.sp
	stopDepth := f.frameCount
	vm.growStack(len(args) + 1)
	vm.push(fn)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callValue(len(args)); err != nil {
		f.sp = savedSP
		return value.Null, err
	}
	if f.frameCount == stopDepth {
		return vm.pop(), nil
	}

	vm.nested++
	res, err := vm.run(stopDepth)
	vm.nested--
	f.sp = savedSP
	return res, err
}

// invoke calls method name on the receiver below argc arguments:
// a Map entry first, then host object methods, then the core module of the
// receiver's type, then the iterator module for anything iterable.
func (vm *VM) invoke(name string, argc int) error {
	f := vm.cur
	at := f.sp - 1 - argc
	recv := f.stack[at]

	if recv.Kind() == value.KindMap {
		if fn, ok := recv.Map().GetStr(name); ok {
			if c, isClosure := fn.Function().(*Closure); isClosure && c.Proto.SelfParam {
				vm.insertBelowArgs(fn, argc)
				return vm.callValue(argc + 1)
			}
			f.stack[at] = fn
			return vm.callValue(argc)
		}
	}
	if recv.Kind() == value.KindObject {
		if mp, ok := recv.Object().(value.MethodProvider); ok {
			if fn, ok := mp.Method(name); ok {
				f.stack[at] = value.NewNative(name, fn)
				return vm.callValue(argc)
			}
		}
	}
	if fn, ok := vm.coreMethod(recv, name); ok {
		vm.insertBelowArgs(fn, argc)
		return vm.callValue(argc + 1)
	}
	return value.Errorf("'%s' not found in %s", name, vm.TypeOf(recv))
}

// coreMethod finds name in the core module serving the receiver's type,
// falling back to the iterator module for iterables.
func (vm *VM) coreMethod(recv value.Value, name string) (value.Value, bool) {
	if mod, ok := vm.methods[methodModuleName(recv)]; ok {
		if fn, ok := mod.GetStr(name); ok {
			return fn, true
		}
	}
	if vm.isIterable(recv) {
		if mod, ok := vm.methods[config.IteratorModule]; ok {
			return mod.GetStr(name)
		}
	}
	return value.Null, false
}

func methodModuleName(v value.Value) string {
	switch v.Kind() {
	case value.KindInt, value.KindFloat:
		return config.NumberModule
	case value.KindString:
		return config.StringModule
	case value.KindList:
		return config.ListModule
	case value.KindMap:
		return config.MapModule
	case value.KindTuple:
		return config.TupleModule
	case value.KindRange:
		return config.RangeModule
	case value.KindIterator:
		return config.IteratorModule
	}
	return ""
}

func (vm *VM) isIterable(v value.Value) bool {
	switch v.Kind() {
	case value.KindList, value.KindTuple, value.KindMap, value.KindRange, value.KindString, value.KindIterator:
		return true
	case value.KindObject:
		_, ok := v.Object().(value.Iterable)
		return ok
	}
	return false
}

// boundMethod returns name looked up as a method of recv, bound to it.
func (vm *VM) boundMethod(recv value.Value, name string) (value.Value, bool) {
	if recv.Kind() == value.KindObject {
		if mp, ok := recv.Object().(value.MethodProvider); ok {
			if fn, ok := mp.Method(name); ok {
				return value.NewNative(name, fn), true
			}
		}
	}
	fn, ok := vm.coreMethod(recv, name)
	if !ok {
		return value.Null, false
	}
	return value.Bind(name, recv, func(rt value.Runtime, args []value.Value) (value.Value, error) {
		return rt.Call(fn, args...)
	}), true
}
