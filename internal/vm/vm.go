package vm

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/core"
	"github.com/funvibe/kite/internal/modules"
	"github.com/funvibe/kite/internal/stdlib"
	"github.com/funvibe/kite/internal/value"
)

var errTruncatedBytecode = errors.New("truncated bytecode")
var errStackUnderflow = errors.New("stack underflow")
var errStackOverflow = errors.New("stack overflow")
var errInvalidConstantIndex = errors.New("invalid constant index")

// Initial sizes for stack and frames
const InitialStackSize = 256
const InitialFrameCount = 16

// Growth increment when the stack needs to expand
const StackGrowthIncrement = 1024

// CallFrame represents a single ongoing function call
type CallFrame struct {
	closure *Closure // The closure being executed
	chunk   *Chunk   // Shortcut to closure.Proto.Chunk
	ip      int      // Instruction pointer within this frame's chunk
	base    int      // Stack slot of the first local; the callee sits at base-1
}

// fiber is a value stack with its own call frames, handlers and open
// upvalues. Scripts run on the root fiber; every generator gets its own.
type fiber struct {
	stack []value.Value
	sp    int // Stack pointer (points to next free slot)

	frames     []CallFrame
	frameCount int
	frame      *CallFrame

	handlers []handler
	pending  []pendingAction

	// Linked list of open upvalues, sorted by stack slot (highest first)
	openUpvalues *Upvalue

	// Value of the frame that returned to the stop depth of a run
	result value.Value
	// Set by OP_YIELD when a generator suspends
	yielded bool
}

func newFiber() *fiber {
	return &fiber{
		stack:  make([]value.Value, InitialStackSize),
		frames: make([]CallFrame, InitialFrameCount),
	}
}

// Loader compiles the module at a canonical path.
type Loader func(path string) (*Chunk, error)

// VM is the virtual machine that executes bytecode
type VM struct {
	cur  *fiber
	root *fiber

	ctx  context.Context
	out  io.Writer
	args []value.Value

	// Names visible to every module after its own exports
	prelude *value.Map
	// Core modules used for method calls, by module name
	methods map[string]*value.Map

	registry *modules.Registry
	resolver modules.Resolver
	loader   Loader
	main     *modules.Module

	// Depth of dispatch loops re-entered from native code
	nested int
	// Instruction counter for periodic context checks
	opsSinceCheck int
	// Container nesting of the value being displayed
	displayDepth int
}

// New creates a VM with the core library and standard library installed.
func New() *VM {
	root := newFiber()
	vm := &VM{
		cur:      root,
		root:     root,
		ctx:      context.Background(),
		out:      os.Stdout,
		prelude:  value.NewMap(),
		methods:  make(map[string]*value.Map),
		registry: modules.NewRegistry(),
		resolver: modules.NewFileResolver(modules.SearchPathsFromEnv()...),
	}
	vm.loader = vm.compileFile
	core.Install(vm.prelude)
	stdlib.Install(vm.prelude)
	for _, name := range core.MethodModules {
		if m, ok := vm.prelude.GetStr(name); ok && m.Kind() == value.KindMap {
			vm.methods[name] = m.Map()
		}
	}
	return vm
}

// SetOutput sets the writer used by print and debug.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetContext sets the context checked while running. Cancellation aborts
// execution with an error scripts can't catch.
func (vm *VM) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	vm.ctx = ctx
}

// SetResolver replaces the module resolver.
func (vm *VM) SetResolver(r modules.Resolver) {
	vm.resolver = r
}

// SetLoader replaces the function that compiles imported modules.
func (vm *VM) SetLoader(l Loader) {
	vm.loader = l
}

// SetArgs sets the script arguments returned by kite.args and os.args.
func (vm *VM) SetArgs(args []string) {
	vm.args = make([]value.Value, len(args))
	for i, a := range args {
		vm.args[i] = value.Str(a)
	}
}

// SetGlobal adds a prelude binding visible to every module.
func (vm *VM) SetGlobal(name string, v value.Value) {
	vm.prelude.SetStr(name, v)
}

// Global returns a prelude binding.
func (vm *VM) Global(name string) (value.Value, bool) {
	return vm.prelude.GetStr(name)
}

// GlobalNames lists the prelude, for resolving identifiers at compile time.
func (vm *VM) GlobalNames() []string {
	entries := vm.prelude.Entries()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Key.IsString() {
			names = append(names, e.Key.AsString())
		}
	}
	return names
}

// Registry returns the module cache of this VM.
func (vm *VM) Registry() *modules.Registry {
	return vm.registry
}

// MainModule returns the module that Run executes chunks in.
func (vm *VM) MainModule() *modules.Module {
	return vm.main
}

// Run executes a compiled chunk as the top level of the main module and
// returns the value of its last expression. Chunks run on the same VM share
// the main module's exports, which is how REPL lines see each other.
func (vm *VM) Run(chunk *Chunk) (value.Value, error) {
	if vm.main == nil {
		vm.main = vm.registry.Add(chunk.File, value.NewMap())
	} else if vm.main.Path == "" && chunk.File != "" {
		vm.main.Path = chunk.File
	}
	return vm.RunModule(chunk, vm.main)
}

// RunModule executes a chunk's top level with mod's exports as its globals.
func (vm *VM) RunModule(chunk *Chunk, mod *modules.Module) (value.Value, error) {
	if vm.cur != vm.root || vm.root.frameCount != 0 {
		return value.Null, errors.New("vm: Run called while the VM is running")
	}
	closure := &Closure{Proto: scriptProto(chunk), Module: mod}
	return vm.Call(value.FromFunction(closure))
}

func scriptProto(chunk *Chunk) *FunctionProto {
	name := "<script>"
	if chunk.File != "" {
		name = config.ModuleName(chunk.File)
	}
	return &FunctionProto{Name: name, Chunk: chunk}
}

// run executes the current fiber until its frame count drops back to
// stopDepth, returning the value of the frame that returned. Errors not
// handled by frames above stopDepth are returned as *RuntimeError.
func (vm *VM) run(stopDepth int) (result value.Value, err error) {
	f := vm.cur
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !(e == errTruncatedBytecode || e == errStackUnderflow || e == errStackOverflow || e == errInvalidConstantIndex) {
				panic(r)
			}
			vm.cur = f
			rtErr := vm.newRuntimeError(value.Str(e.Error()), e)
			vm.unwindTo(stopDepth)
			result, err = value.Null, rtErr
		}
	}()

	for {
		vm.opsSinceCheck++
		if vm.opsSinceCheck >= config.ContextCheckInterval {
			vm.opsSinceCheck = 0
			if ctxErr := vm.ctx.Err(); ctxErr != nil {
				vm.unwindTo(stopDepth)
				return value.Null, ctxErr
			}
		}

		frame := f.frame
		if frame.ip >= len(frame.chunk.Code) {
			panic(errTruncatedBytecode)
		}
		op := Opcode(frame.chunk.Code[frame.ip])
		frame.ip++

		var opErr error
		switch op {
		case OP_RETURN:
			if vm.doReturn(vm.pop(), stopDepth) {
				return f.result, nil
			}
			continue

		case OP_FINALLY_EXIT:
			p := f.pending[len(f.pending)-1]
			f.pending = f.pending[:len(f.pending)-1]
			switch p.kind {
			case completionNormal:
				vm.push(p.value)
			case completionThrow:
				opErr = p.err
			case completionReturn:
				if vm.doReturn(p.value, stopDepth) {
					return f.result, nil
				}
			}

		case OP_YIELD:
			v := vm.pop()
			vm.push(value.Null)
			f.yielded = true
			return v, nil

		default:
			opErr = vm.executeOneOp(op)
		}

		if opErr != nil {
			if err := vm.throw(opErr, stopDepth); err != nil {
				return value.Null, err
			}
		}
	}
}

// Stack operations
func (vm *VM) push(v value.Value) {
	f := vm.cur
	if f.sp >= len(f.stack) {
		vm.growStack(1)
	}
	f.stack[f.sp] = v
	f.sp++
}

func (vm *VM) pop() value.Value {
	f := vm.cur
	if f.sp <= 0 {
		panic(errStackUnderflow)
	}
	f.sp--
	v := f.stack[f.sp]
	f.stack[f.sp] = value.Null
	return v
}

func (vm *VM) peek(distance int) value.Value {
	f := vm.cur
	idx := f.sp - 1 - distance
	if idx < 0 {
		panic(errStackUnderflow)
	}
	return f.stack[idx]
}

// popN removes the top n values and returns a copy of them.
func (vm *VM) popN(n int) []value.Value {
	f := vm.cur
	if f.sp < n {
		panic(errStackUnderflow)
	}
	items := make([]value.Value, n)
	copy(items, f.stack[f.sp-n:f.sp])
	for i := f.sp - n; i < f.sp; i++ {
		f.stack[i] = value.Null
	}
	f.sp -= n
	return items
}

// growStack makes room for n more values above sp.
func (vm *VM) growStack(n int) {
	f := vm.cur
	need := f.sp + n
	if need <= len(f.stack) {
		return
	}
	if need > config.MaxStackSize {
		panic(errStackOverflow)
	}
	size := len(f.stack) + StackGrowthIncrement
	if size < len(f.stack)*2 {
		size = len(f.stack) * 2
	}
	if size < need {
		size = need
	}
	grown := make([]value.Value, size)
	copy(grown, f.stack[:f.sp])
	f.stack = grown
}

// pushFrame adds a frame to the current fiber and makes it current.
func (vm *VM) pushFrame(c *Closure, base int) {
	f := vm.cur
	if f.frameCount >= len(f.frames) {
		grown := make([]CallFrame, len(f.frames)*2)
		copy(grown, f.frames)
		f.frames = grown
	}
	f.frames[f.frameCount] = CallFrame{closure: c, chunk: c.Proto.Chunk, base: base}
	f.frameCount++
	f.frame = &f.frames[f.frameCount-1]
}

// Read helpers
func (vm *VM) readByte() byte {
	frame := vm.cur.frame
	if frame.ip >= len(frame.chunk.Code) {
		panic(errTruncatedBytecode)
	}
	b := frame.chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readU16() int {
	high := vm.readByte()
	low := vm.readByte()
	return int(high)<<8 | int(low)
}

func (vm *VM) readConstant() value.Value {
	idx := vm.readU16()
	consts := vm.cur.frame.chunk.Constants
	if idx >= len(consts) {
		panic(errInvalidConstantIndex)
	}
	return consts[idx]
}

func (vm *VM) readName() string {
	return vm.readConstant().AsString()
}

// captureUpvalue returns the open upvalue for slot, creating it if needed.
func (vm *VM) captureUpvalue(slot int) *Upvalue {
	f := vm.cur
	var prev *Upvalue
	uv := f.openUpvalues
	for uv != nil && uv.slot > slot {
		prev = uv
		uv = uv.next
	}
	if uv != nil && uv.slot == slot {
		return uv
	}
	created := &Upvalue{fiber: f, slot: slot, open: true, next: uv}
	if prev == nil {
		f.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above slot.
func (vm *VM) closeUpvalues(slot int) {
	f := vm.cur
	for f.openUpvalues != nil && f.openUpvalues.slot >= slot {
		uv := f.openUpvalues
		uv.closed = f.stack[uv.slot]
		uv.open = false
		uv.fiber = nil
		f.openUpvalues = uv.next
		uv.next = nil
	}
}

// currentModule is the module of the innermost running frame.
func (vm *VM) currentModule() *modules.Module {
	if f := vm.cur; f.frameCount > 0 && f.frame.closure.Module != nil {
		return f.frame.closure.Module
	}
	return vm.main
}
