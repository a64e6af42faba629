// Package kite is the embedding API: compile and run Kite scripts from Go,
// share Go values with them and call back into them.
package kite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"

	"github.com/funvibe/kite/internal/cache"
	"github.com/funvibe/kite/internal/modules"
	"github.com/funvibe/kite/internal/parser"
	"github.com/funvibe/kite/internal/value"
	"github.com/funvibe/kite/internal/vm"
)

var log = commonlog.GetLogger("kite.embed")

// Engine wraps a Kite VM and provides a high-level embedding API.
type Engine struct {
	machine    *vm.VM
	marshaller *Marshaller
	cache      *cache.Cache
	ctx        context.Context
}

// New creates an engine with the core and standard libraries installed.
func New() *Engine {
	e := &Engine{
		machine:    vm.New(),
		marshaller: NewMarshaller(),
		ctx:        context.Background(),
	}
	e.machine.SetLoader(e.LoadFile)
	return e
}

// VM returns the underlying virtual machine.
func (e *Engine) VM() *vm.VM {
	return e.machine
}

// SetOutput sets the writer used by print and debug.
func (e *Engine) SetOutput(w io.Writer) {
	e.machine.SetOutput(w)
}

// SetContext bounds every later run; cancelling it stops the script.
func (e *Engine) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	e.ctx = ctx
	e.machine.SetContext(ctx)
}

// SetArgs sets the script arguments.
func (e *Engine) SetArgs(args []string) {
	e.machine.SetArgs(args)
}

// SetResolver replaces the import resolver.
func (e *Engine) SetResolver(r modules.Resolver) {
	e.machine.SetResolver(r)
}

// SetCache enables the persistent bytecode cache for files and imports.
// A nil cache disables it.
func (e *Engine) SetCache(c *cache.Cache) {
	e.cache = c
}

// SetGlobal adds a prelude binding. Globals are resolved when a script is
// compiled, so they must be set before Load.
func (e *Engine) SetGlobal(name string, v value.Value) {
	e.machine.SetGlobal(name, v)
}

// Bind converts a Go value with the marshaller and adds it as a global.
// Functions become native functions and pointers become host objects.
func (e *Engine) Bind(name string, val any) error {
	v, err := e.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("binding %s: %w", name, err)
	}
	if v.Kind() == value.KindNative {
		v = value.NewNative(name, v.Native().Fn)
	}
	e.SetGlobal(name, v)
	return nil
}

// Load compiles source without running it.
func (e *Engine) Load(source string) (*vm.Chunk, error) {
	return e.compile(source, "")
}

// LoadFile compiles a file, consulting the bytecode cache when one is set.
// It is also the engine's import loader.
func (e *Engine) LoadFile(path string) (*vm.Chunk, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module: %w", err)
	}
	if e.cache == nil {
		return e.compile(string(source), path)
	}

	key := cache.Key(source, e.machine.GlobalNames())
	chunk, err := e.cache.Get(e.ctx, path, key)
	if err == nil {
		return chunk, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warningf("cache lookup for %s: %s", path, err)
	}
	chunk, err = e.compile(string(source), path)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Put(e.ctx, path, key, chunk); err != nil {
		log.Warningf("caching %s: %s", path, err)
	}
	return chunk, nil
}

func (e *Engine) compile(source, path string) (*vm.Chunk, error) {
	program, err := parser.Parse(source, path)
	if err != nil {
		return nil, err
	}
	return vm.Compile(program, vm.CompileOptions{File: path, Globals: e.machine.GlobalNames()})
}

// Run compiles and executes source, returning the value of its final
// expression.
func (e *Engine) Run(source string) (value.Value, error) {
	chunk, err := e.Load(source)
	if err != nil {
		return value.Null, err
	}
	return e.RunChunk(chunk)
}

// RunChunk executes a compiled chunk as the main script.
func (e *Engine) RunChunk(chunk *vm.Chunk) (value.Value, error) {
	return e.machine.Run(chunk)
}

// RunFile compiles and executes a script file.
func (e *Engine) RunFile(path string) (value.Value, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return value.Null, err
	}
	chunk, err := e.LoadFile(abs)
	if err != nil {
		return value.Null, err
	}
	return e.RunChunk(chunk)
}

// Display formats v the way print does.
func (e *Engine) Display(v value.Value) (string, error) {
	return e.machine.Display(v)
}

// Get returns an export of the main script, or a global, converted to Go.
func (e *Engine) Get(name string) (any, error) {
	v, ok := e.lookup(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return e.marshaller.FromValue(v, nil)
}

// Call calls a function exported by the main script, or a global, by name.
func (e *Engine) Call(name string, args ...any) (any, error) {
	fn, ok := e.lookup(name)
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", name)
	}
	kiteArgs := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := e.marshaller.ToValue(arg)
		if err != nil {
			return nil, err
		}
		kiteArgs[i] = v
	}
	result, err := e.machine.Call(fn, kiteArgs...)
	if err != nil {
		return nil, err
	}
	return e.marshaller.FromValue(result, nil)
}

func (e *Engine) lookup(name string) (value.Value, bool) {
	if main := e.machine.MainModule(); main != nil {
		if v, ok := main.Exports.GetStr(name); ok {
			return v, true
		}
	}
	return e.machine.Global(name)
}

func (e *Engine) meta() *value.MetaMap {
	main := e.machine.MainModule()
	if main == nil {
		return nil
	}
	return main.Exports.Meta()
}

// Main calls the @main entry of the main script with the arguments as a
// Tuple. It reports false when the script has no @main.
func (e *Engine) Main(args []string) (value.Value, bool, error) {
	fn, ok := e.meta().Get(value.MetaMain)
	if !ok {
		return value.Null, false, nil
	}
	items := make([]value.Value, len(args))
	for i, a := range args {
		items[i] = value.Str(a)
	}
	result, err := e.machine.Call(fn, value.TupleOf(items...))
	return result, true, err
}

// TestResult is the outcome of one @test entry.
type TestResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Passed reports whether the test ran without error.
func (r TestResult) Passed() bool { return r.Err == nil }

// RunTests runs each @test entry of the main script in definition order,
// with @pre_test before and @post_test after it. report, when not nil, is
// called as each test finishes.
func (e *Engine) RunTests(report func(TestResult)) []TestResult {
	meta := e.meta()
	pre, hasPre := meta.Get(value.MetaPreTest)
	post, hasPost := meta.Get(value.MetaPostTest)

	var results []TestResult
	for _, test := range meta.Tests() {
		start := time.Now()
		err := func() (err error) {
			if hasPre {
				if _, err := e.machine.Call(pre); err != nil {
					return fmt.Errorf("@pre_test: %w", err)
				}
			}
			if hasPost {
				defer func() {
					if _, postErr := e.machine.Call(post); postErr != nil && err == nil {
						err = fmt.Errorf("@post_test: %w", postErr)
					}
				}()
			}
			_, err = e.machine.Call(test.Value)
			return err
		}()
		r := TestResult{Name: test.Name, Err: err, Duration: time.Since(start)}
		log.Debugf("test %s finished in %s", r.Name, r.Duration)
		if report != nil {
			report(r)
		}
		results = append(results, r)
	}
	return results
}
