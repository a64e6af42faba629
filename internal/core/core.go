// Package core provides the built-in functions and modules installed into
// every Kite VM: the top-level prelude and the per-type method modules.
package core

import (
	"sort"

	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/value"
)

// MethodModules are the modules whose functions can also be called as
// methods on values of the matching type.
var MethodModules = []string{
	config.IteratorModule,
	config.ListModule,
	config.MapModule,
	config.NumberModule,
	config.RangeModule,
	config.StringModule,
	config.TupleModule,
}

// Install adds the prelude functions and the core modules to globals.
func Install(globals *value.Map) {
	for name, fn := range PreludeBuiltins() {
		globals.SetStr(name, value.NewNative(name, fn))
	}
	modules := map[string]map[string]value.NativeFunc{
		config.IteratorModule: IteratorBuiltins(),
		config.ListModule:     ListBuiltins(),
		config.MapModule:      MapBuiltins(),
		config.NumberModule:   NumberBuiltins(),
		config.RangeModule:    RangeBuiltins(),
		config.StringModule:   StringBuiltins(),
		config.TupleModule:    TupleBuiltins(),
		config.IOModule:       IOBuiltins(),
		config.KiteModule:     KiteBuiltins(),
	}
	for name, fns := range modules {
		m := NewModule(name, fns)
		if name == config.NumberModule {
			addNumberConstants(m)
		}
		globals.SetStr(name, value.FromMap(m))
	}
}

// NewModule builds a module map from named natives. Entries are inserted
// in name order so module display is stable.
func NewModule(module string, fns map[string]value.NativeFunc) *value.Map {
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	m := value.NewMapCap(len(names))
	for _, name := range names {
		m.SetStr(name, value.NewNative(module+"."+name, fns[name]))
	}
	return m
}

// argInt returns args[i] as an integer.
func argInt(fn string, args []value.Value, i int) (int64, error) {
	n, ok := value.ToInt(args[i])
	if !ok {
		return 0, value.Errorf("%s: expected a whole Number as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return n, nil
}

// argFloat returns args[i] as a float.
func argFloat(fn string, args []value.Value, i int) (float64, error) {
	f, ok := value.ToFloat(args[i])
	if !ok {
		return 0, value.Errorf("%s: expected a Number as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return f, nil
}

// argString returns args[i] as a string.
func argString(fn string, args []value.Value, i int) (string, error) {
	if !args[i].IsString() {
		return "", value.Errorf("%s: expected a String as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return args[i].AsString(), nil
}

// argCallable checks that args[i] can be called.
func argCallable(fn string, args []value.Value, i int) (value.Value, error) {
	if !args[i].IsCallable() && args[i].Kind() != value.KindMap {
		return value.Null, value.Errorf("%s: expected a Function as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return args[i], nil
}

// argList returns args[i] as a list.
func argList(fn string, args []value.Value, i int) (*value.List, error) {
	if args[i].Kind() != value.KindList {
		return nil, value.Errorf("%s: expected a List as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return args[i].List(), nil
}

// argMap returns args[i] as a map.
func argMap(fn string, args []value.Value, i int) (*value.Map, error) {
	if args[i].Kind() != value.KindMap {
		return nil, value.Errorf("%s: expected a Map as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return args[i].Map(), nil
}

// argTuple returns args[i] as a tuple.
func argTuple(fn string, args []value.Value, i int) (*value.Tuple, error) {
	if args[i].Kind() != value.KindTuple {
		return nil, value.Errorf("%s: expected a Tuple as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return args[i].Tuple(), nil
}

// argRange returns args[i] as a range.
func argRange(fn string, args []value.Value, i int) (*value.Range, error) {
	if args[i].Kind() != value.KindRange {
		return nil, value.Errorf("%s: expected a Range as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
	}
	return args[i].Range(), nil
}
