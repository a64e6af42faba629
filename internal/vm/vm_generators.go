package vm

import (
	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/value"
)

// generator runs a generator function's body on its own fiber, resuming it
// on each pull until it yields or returns.
type generator struct {
	vm      *VM
	fiber   *fiber
	name    string
	running bool
	done    bool
}

// startGenerator replaces the callee and its arguments with an iterator
// whose pulls resume the function body.
func (vm *VM) startGenerator(c *Closure, argc int) error {
	args := vm.popN(argc)
	vm.pop()

	gf := newFiber()
	prev := vm.cur
	vm.cur = gf
	vm.push(value.FromFunction(c))
	for _, a := range args {
		vm.push(a)
	}
	base := gf.sp - argc
	locals := c.Proto.Chunk.LocalCount()
	vm.growStack(locals - argc + 1)
	if base+locals > gf.sp {
		gf.sp = base + locals
	}
	vm.pushFrame(c, base)
	vm.cur = prev

	g := &generator{vm: vm, fiber: gf, name: c.FunctionName()}
	vm.push(value.FromIterator(value.NewIterator(g)))
	return nil
}

// Next implements value.Producer.
func (g *generator) Next(value.Runtime) (value.Value, bool, error) {
	if g.done {
		return value.Null, false, nil
	}
	if g.running {
		return value.Null, false, value.Errorf("generator %s resumed while it is running", g.name)
	}
	vm := g.vm
	if vm.nested >= config.MaxNestedRuns {
		return value.Null, false, value.Errorf("stack overflow")
	}

	g.running = true
	prev := vm.cur
	vm.cur = g.fiber
	vm.nested++
	v, err := vm.run(0)
	vm.nested--
	vm.cur = prev
	g.running = false

	if err != nil {
		g.done = true
		return value.Null, false, err
	}
	if g.fiber.yielded {
		g.fiber.yielded = false
		return v, true, nil
	}
	g.done = true
	g.fiber = nil
	return value.Null, false, nil
}
