package vm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/funvibe/kite/internal/parser"
	"github.com/funvibe/kite/internal/value"
)

// importModule returns the export map for an import path. Core and
// standard library modules come first; files are resolved relative to the
// importing script, and each runs its top level once per VM.
func (vm *VM) importModule(path string) (value.Value, error) {
	if m, ok := vm.prelude.GetStr(path); ok && m.Kind() == value.KindMap {
		return m, nil
	}

	fromDir := "."
	if script := vm.ScriptPath(); script != "" {
		fromDir = filepath.Dir(script)
	}
	canonical, err := vm.resolver.Resolve(fromDir, path)
	if err != nil {
		return value.Null, fmt.Errorf("import %s: %w", path, err)
	}

	mod, found, err := vm.registry.Lookup(canonical)
	if err != nil {
		return value.Null, err
	}
	if found {
		return value.FromMap(mod.Exports), nil
	}

	chunk, err := vm.loader(canonical)
	if err != nil {
		return value.Null, err
	}
	mod = vm.registry.Begin(canonical)
	closure := &Closure{Proto: scriptProto(chunk), Module: mod}
	if _, err := vm.Call(value.FromFunction(closure)); err != nil {
		vm.registry.Abort(canonical)
		return value.Null, err
	}
	vm.registry.Finish(canonical)
	return value.FromMap(mod.Exports), nil
}

// compileFile is the default loader: read, parse and compile.
func (vm *VM) compileFile(path string) (*Chunk, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module: %w", err)
	}
	program, err := parser.Parse(string(source), path)
	if err != nil {
		return nil, err
	}
	return Compile(program, CompileOptions{File: path, Globals: vm.GlobalNames()})
}

// exportValue adds the entries of a map, or the (name, value) pairs of any
// other iterable, to the running module's exports. Later pairs overwrite
// earlier ones.
func (vm *VM) exportValue(v value.Value) error {
	exports := vm.currentModule().Exports
	if v.Kind() == value.KindMap {
		m := v.Map()
		for _, e := range m.Entries() {
			if err := exports.Insert(e.Key, e.Value); err != nil {
				return err
			}
		}
		if meta := m.Meta(); !meta.Empty() {
			exports.EnsureMeta().Merge(meta)
		}
		return nil
	}

	it, err := vm.MakeIterator(v)
	if err != nil {
		return value.Errorf("export expects a Map or pairs of names and values, found %s", vm.TypeOf(v))
	}
	for {
		pair, ok, err := it.Next(vm)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		items, isSeq := seqItems(pair)
		if !isSeq || len(items) != 2 {
			return value.Errorf("export expects (name, value) pairs, found %s", vm.TypeOf(pair))
		}
		if !items[0].IsString() {
			return value.Errorf("export names must be Strings, found %s", vm.TypeOf(items[0]))
		}
		exports.SetStr(items[0].AsString(), items[1])
	}
}
