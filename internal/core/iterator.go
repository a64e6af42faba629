package core

import (
	"strings"

	"github.com/funvibe/kite/internal/value"
)

// IteratorBuiltins returns the iterator module. Every function takes the
// iterable as its first argument, so all of them work as methods on any
// iterable value.
func IteratorBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"all":         builtinIterAll,
		"any":         builtinIterAny,
		"chain":       builtinIterChain,
		"chunks":      builtinIterChunks,
		"consume":     builtinIterConsume,
		"count":       builtinIterCount,
		"cycle":       builtinIterCycle,
		"each":        builtinIterEach,
		"enumerate":   builtinIterEnumerate,
		"find":        builtinIterFind,
		"flatten":     builtinIterFlatten,
		"fold":        builtinIterFold,
		"generate":    builtinIterGenerate,
		"intersperse": builtinIterIntersperse,
		"keep":        builtinIterKeep,
		"last":        builtinIterLast,
		"max":         builtinIterMax,
		"min":         builtinIterMin,
		"min_max":     builtinIterMinMax,
		"next":        builtinIterNext,
		"once":        builtinIterOnce,
		"peekable":    builtinIterPeekable,
		"position":    builtinIterPosition,
		"product":     builtinIterProduct,
		"repeat":      builtinIterRepeat,
		"reversed":    builtinIterReversed,
		"skip":        builtinIterSkip,
		"step":        builtinIterStep,
		"sum":         builtinIterSum,
		"take":        builtinIterTake,
		"take_while":  builtinIterTakeWhile,
		"to_list":     builtinIterToList,
		"to_map":      builtinIterToMap,
		"to_string":   builtinIterToString,
		"to_tuple":    builtinIterToTuple,
		"windows":     builtinIterWindows,
		"zip":         builtinIterZip,
	}
}

func iterArg(rt value.Runtime, fn string, args []value.Value, i int) (*value.Iterator, error) {
	it, err := rt.MakeIterator(args[i])
	if err != nil {
		return nil, value.Errorf("%s: expected an iterable as argument %d, found %s", fn, i+1, rt.TypeOf(args[i]))
	}
	return it, nil
}

// iterAndFn handles the common (iterable, function) signature.
func iterAndFn(rt value.Runtime, fn string, args []value.Value) (*value.Iterator, value.Value, error) {
	if err := value.CheckArgs(fn, args, 2, 2); err != nil {
		return nil, value.Null, err
	}
	it, err := iterArg(rt, fn, args, 0)
	if err != nil {
		return nil, value.Null, err
	}
	f, err := argCallable(fn, args, 1)
	if err != nil {
		return nil, value.Null, err
	}
	return it, f, nil
}

// iterAndCount handles the common (iterable, n) signature with n >= 1 when
// positive is set, or n >= 0 otherwise.
func iterAndCount(rt value.Runtime, fn string, args []value.Value, positive bool) (*value.Iterator, int64, error) {
	if err := value.CheckArgs(fn, args, 2, 2); err != nil {
		return nil, 0, err
	}
	it, err := iterArg(rt, fn, args, 0)
	if err != nil {
		return nil, 0, err
	}
	n, err := argInt(fn, args, 1)
	if err != nil {
		return nil, 0, err
	}
	if n < 0 || (positive && n == 0) {
		return nil, 0, value.Errorf("%s: invalid count %d", fn, n)
	}
	return it, n, nil
}

// forEach pulls every value from it, stopping early when visit returns
// false.
func forEach(rt value.Runtime, it *value.Iterator, visit func(v value.Value) (bool, error)) error {
	for {
		v, ok, err := it.Next(rt)
		if err != nil || !ok {
			return err
		}
		more, err := visit(v)
		if err != nil || !more {
			return err
		}
	}
}

// collect drains it into a slice.
func collect(rt value.Runtime, it *value.Iterator) ([]value.Value, error) {
	var out []value.Value
	err := forEach(rt, it, func(v value.Value) (bool, error) {
		out = append(out, v)
		return true, nil
	})
	return out, err
}

// lazy wraps a producer function as an iterator value.
func lazy(next func(rt value.Runtime) (value.Value, bool, error)) value.Value {
	return value.FromIterator(value.NewIterator(value.ProducerFunc(next)))
}

// callPredicate calls f with v and reports the truthiness of the result.
func callPredicate(rt value.Runtime, f, v value.Value) (bool, error) {
	res, err := rt.Call(f, v)
	if err != nil {
		return false, err
	}
	return res.Truthy(), nil
}

func builtinIterAll(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, f, err := iterAndFn(rt, "all", args)
	if err != nil {
		return value.Null, err
	}
	result := true
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		ok, err := callPredicate(rt, f, v)
		if !ok {
			result = false
		}
		return ok, err
	})
	return value.Bool(result), err
}

func builtinIterAny(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, f, err := iterAndFn(rt, "any", args)
	if err != nil {
		return value.Null, err
	}
	result := false
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		ok, err := callPredicate(rt, f, v)
		if ok {
			result = true
		}
		return !ok, err
	})
	return value.Bool(result), err
}

func builtinIterChain(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("chain", args, 2, 2); err != nil {
		return value.Null, err
	}
	first, err := iterArg(rt, "chain", args, 0)
	if err != nil {
		return value.Null, err
	}
	second, err := iterArg(rt, "chain", args, 1)
	if err != nil {
		return value.Null, err
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if !first.Done() {
			v, ok, err := first.Next(rt)
			if err != nil || ok {
				return v, ok, err
			}
		}
		return second.Next(rt)
	}), nil
}

// builtinIterChunks yields Tuples of up to n consecutive values.
func builtinIterChunks(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, n, err := iterAndCount(rt, "chunks", args, true)
	if err != nil {
		return value.Null, err
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		chunk := make([]value.Value, 0, n)
		for int64(len(chunk)) < n {
			v, ok, err := it.Next(rt)
			if err != nil {
				return value.Null, false, err
			}
			if !ok {
				break
			}
			chunk = append(chunk, v)
		}
		if len(chunk) == 0 {
			return value.Null, false, nil
		}
		return value.TupleOf(chunk...), true, nil
	}), nil
}

func builtinIterConsume(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("consume", args, 1, 2); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "consume", args, 0)
	if err != nil {
		return value.Null, err
	}
	var f value.Value
	if len(args) == 2 {
		if f, err = argCallable("consume", args, 1); err != nil {
			return value.Null, err
		}
	}
	return value.Null, forEach(rt, it, func(v value.Value) (bool, error) {
		if f.IsNull() {
			return true, nil
		}
		_, err := rt.Call(f, v)
		return true, err
	})
}

func builtinIterCount(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("count", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "count", args, 0)
	if err != nil {
		return value.Null, err
	}
	var n int64
	err = forEach(rt, it, func(value.Value) (bool, error) {
		n++
		return true, nil
	})
	return value.Int(n), err
}

// builtinIterCycle repeats the values of its input forever, caching them
// on the first pass.
func builtinIterCycle(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("cycle", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "cycle", args, 0)
	if err != nil {
		return value.Null, err
	}
	var cache []value.Value
	pos := 0
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if !it.Done() {
			v, ok, err := it.Next(rt)
			if err != nil {
				return value.Null, false, err
			}
			if ok {
				cache = append(cache, v)
				return v, true, nil
			}
		}
		if len(cache) == 0 {
			return value.Null, false, nil
		}
		v := cache[pos%len(cache)]
		pos++
		return v, true, nil
	}), nil
}

func builtinIterEach(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, f, err := iterAndFn(rt, "each", args)
	if err != nil {
		return value.Null, err
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		v, ok, err := it.Next(rt)
		if err != nil || !ok {
			return value.Null, false, err
		}
		res, err := rt.Call(f, v)
		if err != nil {
			return value.Null, false, err
		}
		return res, true, nil
	}), nil
}

func builtinIterEnumerate(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("enumerate", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "enumerate", args, 0)
	if err != nil {
		return value.Null, err
	}
	var i int64
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		v, ok, err := it.Next(rt)
		if err != nil || !ok {
			return value.Null, false, err
		}
		pair := value.TupleOf(value.Int(i), v)
		i++
		return pair, true, nil
	}), nil
}

func builtinIterFind(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, f, err := iterAndFn(rt, "find", args)
	if err != nil {
		return value.Null, err
	}
	found := value.Null
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		ok, err := callPredicate(rt, f, v)
		if ok {
			found = v
		}
		return !ok, err
	})
	return found, err
}

// builtinIterFlatten iterates over each value of its input in turn.
func builtinIterFlatten(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("flatten", args, 1, 1); err != nil {
		return value.Null, err
	}
	outer, err := iterArg(rt, "flatten", args, 0)
	if err != nil {
		return value.Null, err
	}
	var inner *value.Iterator
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		for {
			if inner != nil {
				v, ok, err := inner.Next(rt)
				if err != nil || ok {
					return v, ok, err
				}
				inner = nil
			}
			next, ok, err := outer.Next(rt)
			if err != nil || !ok {
				return value.Null, false, err
			}
			if inner, err = rt.MakeIterator(next); err != nil {
				return value.Null, false, err
			}
		}
	}), nil
}

func builtinIterFold(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("fold", args, 3, 3); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "fold", args, 0)
	if err != nil {
		return value.Null, err
	}
	f, err := argCallable("fold", args, 2)
	if err != nil {
		return value.Null, err
	}
	acc := args[1]
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		acc, err = rt.Call(f, acc, v)
		return true, err
	})
	return acc, err
}

// builtinIterGenerate calls a function for each value, forever or n times.
func builtinIterGenerate(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("generate", args, 1, 2); err != nil {
		return value.Null, err
	}
	f, err := argCallable("generate", args, len(args)-1)
	if err != nil {
		return value.Null, err
	}
	limit := int64(-1)
	if len(args) == 2 {
		if limit, err = argInt("generate", args, 0); err != nil {
			return value.Null, err
		}
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if limit == 0 {
			return value.Null, false, nil
		}
		if limit > 0 {
			limit--
		}
		v, err := rt.Call(f)
		if err != nil {
			return value.Null, false, err
		}
		return v, true, nil
	}), nil
}

func builtinIterIntersperse(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("intersperse", args, 2, 2); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "intersperse", args, 0)
	if err != nil {
		return value.Null, err
	}
	sep := args[1]
	var pending value.Value
	havePending, started := false, false
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if havePending {
			havePending = false
			return pending, true, nil
		}
		v, ok, err := it.Next(rt)
		if err != nil || !ok {
			return value.Null, false, err
		}
		if !started {
			started = true
			return v, true, nil
		}
		pending, havePending = v, true
		return sep, true, nil
	}), nil
}

func builtinIterKeep(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, f, err := iterAndFn(rt, "keep", args)
	if err != nil {
		return value.Null, err
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		for {
			v, ok, err := it.Next(rt)
			if err != nil || !ok {
				return value.Null, false, err
			}
			keep, err := callPredicate(rt, f, v)
			if err != nil {
				return value.Null, false, err
			}
			if keep {
				return v, true, nil
			}
		}
	}), nil
}

func builtinIterLast(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("last", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "last", args, 0)
	if err != nil {
		return value.Null, err
	}
	last := value.Null
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		last = v
		return true, nil
	})
	return last, err
}

// extremes finds the smallest and largest values, comparing the results of
// key when it is given.
func extremes(rt value.Runtime, fn string, args []value.Value) (lo, hi value.Value, found bool, err error) {
	if err := value.CheckArgs(fn, args, 1, 2); err != nil {
		return value.Null, value.Null, false, err
	}
	it, err := iterArg(rt, fn, args, 0)
	if err != nil {
		return value.Null, value.Null, false, err
	}
	var key value.Value
	if len(args) == 2 {
		if key, err = argCallable(fn, args, 1); err != nil {
			return value.Null, value.Null, false, err
		}
	}
	var loKey, hiKey value.Value
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		k := v
		if !key.IsNull() {
			var err error
			if k, err = rt.Call(key, v); err != nil {
				return false, err
			}
		}
		if !found {
			lo, hi, loKey, hiKey, found = v, v, k, k, true
			return true, nil
		}
		c, err := rt.Compare(k, loKey)
		if err != nil {
			return false, err
		}
		if c < 0 {
			lo, loKey = v, k
		}
		c, err = rt.Compare(k, hiKey)
		if err != nil {
			return false, err
		}
		if c > 0 {
			hi, hiKey = v, k
		}
		return true, nil
	})
	return lo, hi, found, err
}

func builtinIterMax(rt value.Runtime, args []value.Value) (value.Value, error) {
	_, hi, _, err := extremes(rt, "max", args)
	return hi, err
}

func builtinIterMin(rt value.Runtime, args []value.Value) (value.Value, error) {
	lo, _, _, err := extremes(rt, "min", args)
	return lo, err
}

func builtinIterMinMax(rt value.Runtime, args []value.Value) (value.Value, error) {
	lo, hi, found, err := extremes(rt, "min_max", args)
	if err != nil || !found {
		return value.Null, err
	}
	return value.TupleOf(lo, hi), nil
}

// builtinIterNext pulls one value, returning null when exhausted.
func builtinIterNext(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("next", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "next", args, 0)
	if err != nil {
		return value.Null, err
	}
	v, _, err := it.Next(rt)
	return v, err
}

func builtinIterOnce(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("once", args, 1, 1); err != nil {
		return value.Null, err
	}
	return value.FromIterator(value.NewIterator(&value.SliceProducer{Items: []value.Value{args[0]}})), nil
}

func builtinIterPeekable(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("peekable", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "peekable", args, 0)
	if err != nil {
		return value.Null, err
	}
	return value.FromObject(&peekable{it: it}), nil
}

func builtinIterPosition(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, f, err := iterAndFn(rt, "position", args)
	if err != nil {
		return value.Null, err
	}
	var i int64
	found := value.Null
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		ok, err := callPredicate(rt, f, v)
		if ok {
			found = value.Int(i)
		}
		i++
		return !ok, err
	})
	return found, err
}

// reduceOp folds op over the values, starting from initial or the given
// second argument.
func reduceOp(rt value.Runtime, fn, op string, initial value.Value, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs(fn, args, 1, 2); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, fn, args, 0)
	if err != nil {
		return value.Null, err
	}
	acc := initial
	if len(args) == 2 {
		acc = args[1]
	}
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		acc, err = rt.BinaryOp(op, acc, v)
		return true, err
	})
	return acc, err
}

func builtinIterProduct(rt value.Runtime, args []value.Value) (value.Value, error) {
	return reduceOp(rt, "product", "*", value.Int(1), args)
}

func builtinIterSum(rt value.Runtime, args []value.Value) (value.Value, error) {
	return reduceOp(rt, "sum", "+", value.Int(0), args)
}

// builtinIterRepeat yields a value forever, or n times.
func builtinIterRepeat(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("repeat", args, 1, 2); err != nil {
		return value.Null, err
	}
	limit := int64(-1)
	if len(args) == 2 {
		n, err := argInt("repeat", args, 1)
		if err != nil {
			return value.Null, err
		}
		limit = max(n, 0)
	}
	v := args[0]
	return lazy(func(value.Runtime) (value.Value, bool, error) {
		if limit == 0 {
			return value.Null, false, nil
		}
		if limit > 0 {
			limit--
		}
		return v, true, nil
	}), nil
}

// builtinIterReversed materializes the input on the first pull.
func builtinIterReversed(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("reversed", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "reversed", args, 0)
	if err != nil {
		return value.Null, err
	}
	var items []value.Value
	loaded := false
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if !loaded {
			loaded = true
			if items, err = collect(rt, it); err != nil {
				return value.Null, false, err
			}
		}
		if len(items) == 0 {
			return value.Null, false, nil
		}
		v := items[len(items)-1]
		items = items[:len(items)-1]
		return v, true, nil
	}), nil
}

func builtinIterSkip(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, n, err := iterAndCount(rt, "skip", args, false)
	if err != nil {
		return value.Null, err
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		for ; n > 0; n-- {
			if _, ok, err := it.Next(rt); err != nil || !ok {
				return value.Null, false, err
			}
		}
		return it.Next(rt)
	}), nil
}

// builtinIterStep yields the first value and then every n-th one.
func builtinIterStep(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, n, err := iterAndCount(rt, "step", args, true)
	if err != nil {
		return value.Null, err
	}
	first := true
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if !first {
			for i := int64(1); i < n; i++ {
				if _, ok, err := it.Next(rt); err != nil || !ok {
					return value.Null, false, err
				}
			}
		}
		first = false
		return it.Next(rt)
	}), nil
}

// builtinIterTake pulls at most n values from its input.
func builtinIterTake(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, n, err := iterAndCount(rt, "take", args, false)
	if err != nil {
		return value.Null, err
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if n == 0 {
			return value.Null, false, nil
		}
		n--
		return it.Next(rt)
	}), nil
}

func builtinIterTakeWhile(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, f, err := iterAndFn(rt, "take_while", args)
	if err != nil {
		return value.Null, err
	}
	stopped := false
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if stopped {
			return value.Null, false, nil
		}
		v, ok, err := it.Next(rt)
		if err != nil || !ok {
			return value.Null, false, err
		}
		keep, err := callPredicate(rt, f, v)
		if err != nil {
			return value.Null, false, err
		}
		if !keep {
			stopped = true
			return value.Null, false, nil
		}
		return v, true, nil
	}), nil
}

func builtinIterToList(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("to_list", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "to_list", args, 0)
	if err != nil {
		return value.Null, err
	}
	items, err := collect(rt, it)
	if err != nil {
		return value.Null, err
	}
	return value.ListOf(items...), nil
}

// builtinIterToMap inserts (key, value) pairs; any other value becomes a
// key with a null value.
func builtinIterToMap(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("to_map", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "to_map", args, 0)
	if err != nil {
		return value.Null, err
	}
	m := value.NewMap()
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		if v.Kind() == value.KindTuple && v.Tuple().Len() == 2 {
			return true, m.Insert(v.Tuple().At(0), v.Tuple().At(1))
		}
		return true, m.Insert(v, value.Null)
	})
	if err != nil {
		return value.Null, err
	}
	return value.FromMap(m), nil
}

func builtinIterToString(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("to_string", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "to_string", args, 0)
	if err != nil {
		return value.Null, err
	}
	var sb strings.Builder
	err = forEach(rt, it, func(v value.Value) (bool, error) {
		s, err := rt.Display(v)
		sb.WriteString(s)
		return true, err
	})
	if err != nil {
		return value.Null, err
	}
	return value.Str(sb.String()), nil
}

func builtinIterToTuple(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("to_tuple", args, 1, 1); err != nil {
		return value.Null, err
	}
	it, err := iterArg(rt, "to_tuple", args, 0)
	if err != nil {
		return value.Null, err
	}
	items, err := collect(rt, it)
	if err != nil {
		return value.Null, err
	}
	return value.TupleOf(items...), nil
}

// builtinIterWindows yields overlapping Tuples of n consecutive values.
func builtinIterWindows(rt value.Runtime, args []value.Value) (value.Value, error) {
	it, n, err := iterAndCount(rt, "windows", args, true)
	if err != nil {
		return value.Null, err
	}
	var window []value.Value
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		if int64(len(window)) == n {
			window = window[1:]
		}
		for int64(len(window)) < n {
			v, ok, err := it.Next(rt)
			if err != nil || !ok {
				return value.Null, false, err
			}
			window = append(window, v)
		}
		return value.TupleOf(append([]value.Value(nil), window...)...), true, nil
	}), nil
}

// builtinIterZip pairs values until either input is exhausted.
func builtinIterZip(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("zip", args, 2, 2); err != nil {
		return value.Null, err
	}
	a, err := iterArg(rt, "zip", args, 0)
	if err != nil {
		return value.Null, err
	}
	b, err := iterArg(rt, "zip", args, 1)
	if err != nil {
		return value.Null, err
	}
	return lazy(func(rt value.Runtime) (value.Value, bool, error) {
		x, ok, err := a.Next(rt)
		if err != nil || !ok {
			return value.Null, false, err
		}
		y, ok, err := b.Next(rt)
		if err != nil || !ok {
			return value.Null, false, err
		}
		return value.TupleOf(x, y), true, nil
	}), nil
}

// peekable wraps an iterator with one value of lookahead.
type peekable struct {
	it      *value.Iterator
	peeked  value.Value
	hasPeek bool
}

func (p *peekable) TypeName() string { return "Peekable" }

func (p *peekable) Next(rt value.Runtime) (value.Value, bool, error) {
	if p.hasPeek {
		p.hasPeek = false
		return p.peeked, true, nil
	}
	return p.it.Next(rt)
}

func (p *peekable) Iterate(value.Runtime) (value.Producer, error) {
	return p, nil
}

func (p *peekable) Method(name string) (value.NativeFunc, bool) {
	switch name {
	case "peek":
		return func(rt value.Runtime, args []value.Value) (value.Value, error) {
			if err := value.CheckArgs("peek", args, 0, 0); err != nil {
				return value.Null, err
			}
			if !p.hasPeek {
				v, ok, err := p.it.Next(rt)
				if err != nil || !ok {
					return value.Null, err
				}
				p.peeked, p.hasPeek = v, true
			}
			return p.peeked, nil
		}, true
	case "next":
		return func(rt value.Runtime, args []value.Value) (value.Value, error) {
			if err := value.CheckArgs("next", args, 0, 0); err != nil {
				return value.Null, err
			}
			v, _, err := p.Next(rt)
			return v, err
		}, true
	}
	return nil, false
}
