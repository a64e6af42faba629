package vm

import (
	"io"
	"unicode/utf8"

	"github.com/funvibe/kite/internal/value"
)

var _ value.Runtime = (*VM)(nil)

// Display implements value.Runtime. Strings are raw at the top level and
// quoted inside containers; maps with @display render themselves.
func (vm *VM) Display(v value.Value) (string, error) {
	if s, ok, err := vm.customDisplay(v); ok {
		return s, err
	}
	return value.DisplayWith(v, vm.displayNested)
}

func (vm *VM) displayNested(v value.Value) (string, error) {
	if v.IsString() {
		return value.Quote(v.AsString()), nil
	}
	if s, ok, err := vm.customDisplay(v); ok {
		return s, err
	}
	if vm.displayDepth >= value.MaxDisplayDepth {
		return "...", nil
	}
	vm.displayDepth++
	defer func() { vm.displayDepth-- }()
	return value.DisplayWith(v, vm.displayNested)
}

func (vm *VM) customDisplay(v value.Value) (string, bool, error) {
	switch v.Kind() {
	case value.KindMap:
		fn, ok := metaOf(v, value.MetaDisplay)
		if !ok {
			return "", false, nil
		}
		res, err := vm.Call(fn, v)
		if err != nil {
			return "", true, err
		}
		if !res.IsString() {
			return "", true, value.Errorf("@display must return a String, found %s", vm.TypeOf(res))
		}
		return res.AsString(), true, nil
	case value.KindObject:
		if d, ok := v.Object().(value.Displayer); ok {
			s, err := d.Display(vm)
			return s, true, err
		}
	}
	return "", false, nil
}

// TypeOf implements value.Runtime. A map's @type entry, a String or a
// function returning one, overrides its type name.
func (vm *VM) TypeOf(v value.Value) string {
	if fn, ok := metaOf(v, value.MetaType); ok {
		if fn.IsString() {
			return fn.AsString()
		}
		if res, err := vm.Call(fn, v); err == nil && res.IsString() {
			return res.AsString()
		}
	}
	return value.TypeName(v)
}

// Size implements value.Runtime.
func (vm *VM) Size(v value.Value) (int, error) {
	switch v.Kind() {
	case value.KindList:
		return v.List().Len(), nil
	case value.KindTuple:
		return v.Tuple().Len(), nil
	case value.KindString:
		return utf8.RuneCountInString(v.AsString()), nil
	case value.KindRange:
		return v.Range().Size()
	case value.KindMap:
		if fn, ok := metaOf(v, value.MetaSize); ok {
			res, err := vm.Call(fn, v)
			if err != nil {
				return 0, err
			}
			n, ok := value.ToInt(res)
			if !ok {
				return 0, value.Errorf("@size must return a Number, found %s", vm.TypeOf(res))
			}
			return int(n), nil
		}
		return v.Map().Len(), nil
	case value.KindObject:
		if s, ok := v.Object().(value.Sizer); ok {
			return s.Size(vm)
		}
	}
	return 0, value.Errorf("%s has no size", vm.TypeOf(v))
}

// MakeIterator implements value.Runtime. Maps can supply their own
// iteration with @iterator, returning any iterable, or with @next, called
// until it returns null.
func (vm *VM) MakeIterator(v value.Value) (*value.Iterator, error) {
	switch v.Kind() {
	case value.KindIterator:
		return v.Iterator(), nil
	case value.KindMap:
		if fn, ok := metaOf(v, value.MetaIterator); ok {
			res, err := vm.Call(fn, v)
			if err != nil {
				return nil, err
			}
			if res.Kind() == value.KindMap && res.Map() == v.Map() {
				return nil, value.Errorf("@iterator returned its own map")
			}
			return vm.MakeIterator(res)
		}
		if fn, ok := metaOf(v, value.MetaNext); ok {
			return value.NewIterator(value.ProducerFunc(func(rt value.Runtime) (value.Value, bool, error) {
				next, err := rt.Call(fn, v)
				if err != nil || next.IsNull() {
					return value.Null, false, err
				}
				return next, true, nil
			})), nil
		}
	case value.KindObject:
		if it, ok := v.Object().(value.Iterable); ok {
			p, err := it.Iterate(vm)
			if err != nil {
				return nil, err
			}
			return value.NewIterator(p), nil
		}
	}
	if p, ok := value.NativeProducer(v); ok {
		return value.NewIterator(p), nil
	}
	return nil, value.Errorf("%s is not iterable", vm.TypeOf(v))
}

// ScriptPath implements value.Runtime.
func (vm *VM) ScriptPath() string {
	if mod := vm.currentModule(); mod != nil {
		return mod.Path
	}
	return ""
}

// Exports implements value.Runtime.
func (vm *VM) Exports() *value.Map {
	if mod := vm.currentModule(); mod != nil {
		return mod.Exports
	}
	return value.NewMap()
}

// Args implements value.Runtime.
func (vm *VM) Args() []value.Value {
	return vm.args
}

// Stdout implements value.Runtime.
func (vm *VM) Stdout() io.Writer {
	return vm.out
}
