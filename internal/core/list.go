package core

import (
	"github.com/funvibe/kite/internal/value"
)

// ListBuiltins returns the list module.
func ListBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"clear":     builtinListClear,
		"contains":  builtinListContains,
		"copy":      builtinListCopy,
		"deep_copy": builtinListDeepCopy,
		"extend":    builtinListExtend,
		"fill":      builtinListFill,
		"first":     builtinListFirst,
		"get":       builtinListGet,
		"insert":    builtinListInsert,
		"is_empty":  builtinListIsEmpty,
		"last":      builtinListLast,
		"pop":       builtinListPop,
		"push":      builtinListPush,
		"remove":    builtinListRemove,
		"resize":    builtinListResize,
		"retain":    builtinListRetain,
		"reverse":   builtinListReverse,
		"size":      builtinListSize,
		"sort":      builtinListSort,
		"swap":      builtinListSwap,
		"to_tuple":  builtinListToTuple,
		"transform": builtinListTransform,
	}
}

// listArgs checks the argument count and returns the receiver list.
func listArgs(fn string, args []value.Value, min, max int) (*value.List, error) {
	if err := value.CheckArgs(fn, args, min, max); err != nil {
		return nil, err
	}
	return argList(fn, args, 0)
}

func builtinListClear(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("clear", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	l.Clear()
	return args[0], nil
}

func builtinListContains(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("contains", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	found, err := containsValue(rt, l.Snapshot(), args[1])
	return value.Bool(found), err
}

func builtinListCopy(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("copy", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.ListOf(l.Snapshot()...), nil
}

func builtinListDeepCopy(rt value.Runtime, args []value.Value) (value.Value, error) {
	if _, err := listArgs("deep_copy", args, 1, 1); err != nil {
		return value.Null, err
	}
	return value.DeepCopy(args[0]), nil
}

// builtinListExtend appends every value of an iterable.
func builtinListExtend(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("extend", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "extend", args, 1)
	if err != nil {
		return value.Null, err
	}
	items, err := collect(rt, it)
	if err != nil {
		return value.Null, err
	}
	l.Append(items...)
	return args[0], nil
}

func builtinListFill(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("fill", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	items := make([]value.Value, l.Len())
	for i := range items {
		items[i] = args[1]
	}
	l.Replace(items)
	return args[0], nil
}

func builtinListFirst(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("first", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	v, _ := l.Get(0)
	return v, nil
}

func builtinListLast(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("last", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	v, _ := l.Get(-1)
	return v, nil
}

// builtinListGet returns the element at an index, or the default (null)
// when the index is out of bounds.
func builtinListGet(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("get", args, 2, 3)
	if err != nil {
		return value.Null, err
	}
	i, err := argInt("get", args, 1)
	if err != nil {
		return value.Null, err
	}
	if v, ok := l.Get(int(i)); ok {
		return v, nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return value.Null, nil
}

func builtinListInsert(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("insert", args, 3, 3)
	if err != nil {
		return value.Null, err
	}
	i, err := argInt("insert", args, 1)
	if err != nil {
		return value.Null, err
	}
	if !l.Insert(int(i), args[2]) {
		return value.Null, value.Errorf("insert: index %d is out of bounds for size %d", i, l.Len())
	}
	return args[0], nil
}

func builtinListIsEmpty(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("is_empty", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Bool(l.Len() == 0), nil
}

func builtinListPop(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("pop", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	v, _ := l.Pop()
	return v, nil
}

func builtinListPush(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("push", args, 2, -1)
	if err != nil {
		return value.Null, err
	}
	l.Append(args[1:]...)
	return args[0], nil
}

func builtinListRemove(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("remove", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	i, err := argInt("remove", args, 1)
	if err != nil {
		return value.Null, err
	}
	v, ok := l.Remove(int(i))
	if !ok {
		return value.Null, value.Errorf("remove: index %d is out of bounds for size %d", i, l.Len())
	}
	return v, nil
}

// builtinListResize truncates the list or pads it with a value.
func builtinListResize(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("resize", args, 2, 3)
	if err != nil {
		return value.Null, err
	}
	n, err := argInt("resize", args, 1)
	if err != nil {
		return value.Null, err
	}
	if n < 0 {
		return value.Null, value.Errorf("resize: negative size %d", n)
	}
	fill := value.Null
	if len(args) == 3 {
		fill = args[2]
	}
	items := l.Snapshot()
	for int64(len(items)) < n {
		items = append(items, fill)
	}
	l.Replace(items[:n])
	return args[0], nil
}

// builtinListRetain keeps the elements that satisfy a predicate, or that
// equal a value.
func builtinListRetain(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("retain", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	items := l.Snapshot()
	kept := items[:0]
	for _, item := range items {
		var keep bool
		if args[1].IsCallable() {
			keep, err = callPredicate(rt, args[1], item)
		} else {
			keep, err = rt.Equal(item, args[1])
		}
		if err != nil {
			return value.Null, err
		}
		if keep {
			kept = append(kept, item)
		}
	}
	l.Replace(kept)
	return args[0], nil
}

func builtinListReverse(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("reverse", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	l.Reverse()
	return args[0], nil
}

func builtinListSize(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("size", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Int(int64(l.Len())), nil
}

// builtinListSort sorts in place, comparing the results of an optional key
// function.
func builtinListSort(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("sort", args, 1, 2)
	if err != nil {
		return value.Null, err
	}
	var key value.Value
	if len(args) == 2 {
		if key, err = argCallable("sort", args, 1); err != nil {
			return value.Null, err
		}
	}
	if err := l.SortFunc(keyCompare(rt, key)); err != nil {
		return value.Null, err
	}
	return args[0], nil
}

func builtinListSwap(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("swap", args, 3, 3)
	if err != nil {
		return value.Null, err
	}
	i, err := argInt("swap", args, 1)
	if err != nil {
		return value.Null, err
	}
	j, err := argInt("swap", args, 2)
	if err != nil {
		return value.Null, err
	}
	a, okA := l.Get(int(i))
	b, okB := l.Get(int(j))
	if !okA || !okB {
		return value.Null, value.Errorf("swap: index out of bounds for size %d", l.Len())
	}
	l.Set(int(i), b)
	l.Set(int(j), a)
	return value.Null, nil
}

func builtinListToTuple(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("to_tuple", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.TupleOf(l.Snapshot()...), nil
}

// builtinListTransform replaces each element with the result of a function.
func builtinListTransform(rt value.Runtime, args []value.Value) (value.Value, error) {
	l, err := listArgs("transform", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	f, err := argCallable("transform", args, 1)
	if err != nil {
		return value.Null, err
	}
	items := l.Snapshot()
	for i, item := range items {
		if items[i], err = rt.Call(f, item); err != nil {
			return value.Null, err
		}
	}
	l.Replace(items)
	return args[0], nil
}

func containsValue(rt value.Runtime, items []value.Value, v value.Value) (bool, error) {
	for _, item := range items {
		eq, err := rt.Equal(item, v)
		if err != nil || eq {
			return eq, err
		}
	}
	return false, nil
}

// keyCompare orders values, or the results of key when it is not null.
func keyCompare(rt value.Runtime, key value.Value) func(a, b value.Value) (int, error) {
	return func(a, b value.Value) (int, error) {
		if !key.IsNull() {
			var err error
			if a, err = rt.Call(key, a); err != nil {
				return 0, err
			}
			if b, err = rt.Call(key, b); err != nil {
				return 0, err
			}
		}
		return rt.Compare(a, b)
	}
}
