package core

import (
	"slices"

	"github.com/funvibe/kite/internal/value"
)

// TupleBuiltins returns the tuple module.
func TupleBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"contains":  builtinTupleContains,
		"first":     builtinTupleFirst,
		"get":       builtinTupleGet,
		"is_empty":  builtinTupleIsEmpty,
		"last":      builtinTupleLast,
		"size":      builtinTupleSize,
		"sort_copy": builtinTupleSortCopy,
		"to_list":   builtinTupleToList,
	}
}

func tupleArgs(fn string, args []value.Value, min, max int) (*value.Tuple, error) {
	if err := value.CheckArgs(fn, args, min, max); err != nil {
		return nil, err
	}
	return argTuple(fn, args, 0)
}

func builtinTupleContains(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("contains", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	found, err := containsValue(rt, t.Items(), args[1])
	return value.Bool(found), err
}

func builtinTupleFirst(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("first", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	v, _ := t.Get(0)
	return v, nil
}

func builtinTupleGet(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("get", args, 2, 3)
	if err != nil {
		return value.Null, err
	}
	i, err := argInt("get", args, 1)
	if err != nil {
		return value.Null, err
	}
	if v, ok := t.Get(int(i)); ok {
		return v, nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return value.Null, nil
}

func builtinTupleIsEmpty(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("is_empty", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Bool(t.Len() == 0), nil
}

func builtinTupleLast(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("last", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	v, _ := t.Get(-1)
	return v, nil
}

func builtinTupleSize(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("size", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Int(int64(t.Len())), nil
}

// builtinTupleSortCopy returns a sorted copy; tuples are never sorted in
// place.
func builtinTupleSortCopy(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("sort_copy", args, 1, 2)
	if err != nil {
		return value.Null, err
	}
	var key value.Value
	if len(args) == 2 {
		if key, err = argCallable("sort_copy", args, 1); err != nil {
			return value.Null, err
		}
	}
	l := value.NewList(slices.Clone(t.Items()))
	if err := l.SortFunc(keyCompare(rt, key)); err != nil {
		return value.Null, err
	}
	return value.TupleOf(l.Snapshot()...), nil
}

func builtinTupleToList(rt value.Runtime, args []value.Value) (value.Value, error) {
	t, err := tupleArgs("to_list", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.ListOf(slices.Clone(t.Items())...), nil
}
