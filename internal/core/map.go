package core

import (
	"github.com/funvibe/kite/internal/value"
)

// MapBuiltins returns the map module.
func MapBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"clear":        builtinMapClear,
		"contains_key": builtinMapContainsKey,
		"copy":         builtinMapCopy,
		"deep_copy":    builtinMapDeepCopy,
		"extend":       builtinMapExtend,
		"get":          builtinMapGet,
		"get_index":    builtinMapGetIndex,
		"get_meta":     builtinMapGetMeta,
		"insert":       builtinMapInsert,
		"is_empty":     builtinMapIsEmpty,
		"keys":         builtinMapKeys,
		"remove":       builtinMapRemove,
		"size":         builtinMapSize,
		"sort":         builtinMapSort,
		"update":       builtinMapUpdate,
		"values":       builtinMapValues,
		"with_meta":    builtinMapWithMeta,
	}
}

func mapArgs(fn string, args []value.Value, min, max int) (*value.Map, error) {
	if err := value.CheckArgs(fn, args, min, max); err != nil {
		return nil, err
	}
	return argMap(fn, args, 0)
}

func builtinMapClear(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("clear", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	m.Clear()
	return args[0], nil
}

func builtinMapContainsKey(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("contains_key", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	_, ok := m.Get(args[1])
	return value.Bool(ok), nil
}

func builtinMapCopy(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("copy", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.FromMap(m.Copy()), nil
}

func builtinMapDeepCopy(rt value.Runtime, args []value.Value) (value.Value, error) {
	if _, err := mapArgs("deep_copy", args, 1, 1); err != nil {
		return value.Null, err
	}
	return value.DeepCopy(args[0]), nil
}

// builtinMapExtend inserts the entries of another map, or the (key, value)
// pairs of any iterable.
func builtinMapExtend(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("extend", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	if args[1].Kind() == value.KindMap {
		for _, e := range args[1].Map().Entries() {
			if err := m.Insert(e.Key, e.Value); err != nil {
				return value.Null, err
			}
		}
		return args[0], nil
	}
	it, err := iterArg(rt, "extend", args, 1)
	if err != nil {
		return value.Null, err
	}
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		if v.Kind() != value.KindTuple || v.Tuple().Len() != 2 {
			return false, value.Errorf("extend: expected (key, value) pairs, found %s", rt.TypeOf(v))
		}
		return true, m.Insert(v.Tuple().At(0), v.Tuple().At(1))
	})
	if err != nil {
		return value.Null, err
	}
	return args[0], nil
}

func builtinMapGet(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("get", args, 2, 3)
	if err != nil {
		return value.Null, err
	}
	if v, ok := m.Get(args[1]); ok {
		return v, nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return value.Null, nil
}

// builtinMapGetIndex returns the entry at a position in insertion order as
// a (key, value) Tuple.
func builtinMapGetIndex(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("get_index", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	i, err := argInt("get_index", args, 1)
	if err != nil {
		return value.Null, err
	}
	e, ok := m.EntryAt(int(i))
	if !ok {
		return value.Null, nil
	}
	return value.TupleOf(e.Key, e.Value), nil
}

// builtinMapGetMeta returns an empty map sharing the argument's metamap.
func builtinMapGetMeta(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("get_meta", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	if m.Meta().Empty() {
		return value.Null, nil
	}
	out := value.NewMap()
	out.SetMeta(m.Meta())
	return value.FromMap(out), nil
}

// builtinMapInsert returns the previous value for the key, or null.
func builtinMapInsert(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("insert", args, 2, 3)
	if err != nil {
		return value.Null, err
	}
	v := value.Null
	if len(args) == 3 {
		v = args[2]
	}
	old, _ := m.Get(args[1])
	if err := m.Insert(args[1], v); err != nil {
		return value.Null, err
	}
	return old, nil
}

func builtinMapIsEmpty(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("is_empty", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Bool(m.Len() == 0), nil
}

// mapPart iterates over the map, yielding element i of each entry pair.
func mapPart(rt value.Runtime, fn string, args []value.Value, part int) (value.Value, error) {
	if _, err := mapArgs(fn, args, 1, 1); err != nil {
		return value.Null, err
	}
	p, _ := value.NativeProducer(args[0])
	it := value.NewIterator(p)
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		pair, ok, err := it.Next(rt)
		if err != nil || !ok {
			return value.Null, false, err
		}
		return pair.Tuple().At(part), true, nil
	}), nil
}

func builtinMapKeys(rt value.Runtime, args []value.Value) (value.Value, error) {
	return mapPart(rt, "keys", args, 0)
}

func builtinMapValues(rt value.Runtime, args []value.Value) (value.Value, error) {
	return mapPart(rt, "values", args, 1)
}

// builtinMapRemove returns the removed value, or null.
func builtinMapRemove(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("remove", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	v, _ := m.Remove(args[1])
	return v, nil
}

func builtinMapSize(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("size", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Int(int64(m.Len())), nil
}

// builtinMapSort reorders the entries by key, or by the result of calling a
// function with each key and value.
func builtinMapSort(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("sort", args, 1, 2)
	if err != nil {
		return value.Null, err
	}
	entries := m.Entries()
	pairs := make([]value.Value, len(entries))
	for i, e := range entries {
		pairs[i] = value.TupleOf(e.Key, e.Value)
	}
	var key value.Value
	if len(args) == 2 {
		if key, err = argCallable("sort", args, 1); err != nil {
			return value.Null, err
		}
	}
	sorted := value.NewList(pairs)
	err = sorted.SortFunc(func(a, b value.Value) (int, error) {
		ka, kb := a.Tuple().At(0), b.Tuple().At(0)
		if !key.IsNull() {
			var err error
			if ka, err = rt.Call(key, ka, a.Tuple().At(1)); err != nil {
				return 0, err
			}
			if kb, err = rt.Call(key, kb, b.Tuple().At(1)); err != nil {
				return 0, err
			}
		}
		return rt.Compare(ka, kb)
	})
	if err != nil {
		return value.Null, err
	}
	m.Clear()
	for _, pair := range sorted.Snapshot() {
		if err := m.Insert(pair.Tuple().At(0), pair.Tuple().At(1)); err != nil {
			return value.Null, err
		}
	}
	return args[0], nil
}

// builtinMapUpdate replaces the value for a key with the result of calling
// a function with the current value (null when missing).
func builtinMapUpdate(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("update", args, 3, 3)
	if err != nil {
		return value.Null, err
	}
	f, err := argCallable("update", args, 2)
	if err != nil {
		return value.Null, err
	}
	old, _ := m.Get(args[1])
	v, err := rt.Call(f, old)
	if err != nil {
		return value.Null, err
	}
	if err := m.Insert(args[1], v); err != nil {
		return value.Null, err
	}
	return v, nil
}

// builtinMapWithMeta returns a copy of the first map carrying the metamap
// of the second.
func builtinMapWithMeta(rt value.Runtime, args []value.Value) (value.Value, error) {
	m, err := mapArgs("with_meta", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	meta, err := argMap("with_meta", args, 1)
	if err != nil {
		return value.Null, err
	}
	out := m.Copy()
	out.SetMeta(nil)
	if m.Meta() != nil {
		out.EnsureMeta().Merge(m.Meta())
	}
	if meta.Meta() != nil {
		out.EnsureMeta().Merge(meta.Meta())
	}
	return value.FromMap(out), nil
}
