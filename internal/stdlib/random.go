package stdlib

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/funvibe/kite/internal/value"
)

// rng is a seedable PCG generator. The process-wide instance is shared by
// every VM, so access is serialized.
type rng struct {
	mu  sync.Mutex
	src *rand.Rand
}

func newRNG(seed uint64) *rng {
	return &rng{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

var globalRNG = newRNG(uint64(time.Now().UnixNano()))

func (r *rng) seed(seed uint64) {
	r.mu.Lock()
	r.src = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.mu.Unlock()
}

func (r *rng) float() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *rng) intN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

func (r *rng) shuffle(items []value.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// builtins returns the functions shared by the random module and generator
// objects.
func (r *rng) builtins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"bool": func(rt value.Runtime, args []value.Value) (value.Value, error) {
			if err := value.CheckArgs("bool", args, 0, 0); err != nil {
				return value.Null, err
			}
			return value.Bool(r.intN(2) == 1), nil
		},
		"number": func(rt value.Runtime, args []value.Value) (value.Value, error) {
			if err := value.CheckArgs("number", args, 0, 0); err != nil {
				return value.Null, err
			}
			return value.Float(r.float()), nil
		},
		"pick": func(rt value.Runtime, args []value.Value) (value.Value, error) {
			if err := value.CheckArgs("pick", args, 1, 1); err != nil {
				return value.Null, err
			}
			return r.pick(rt, args[0])
		},
		"seed": func(rt value.Runtime, args []value.Value) (value.Value, error) {
			if err := value.CheckArgs("seed", args, 1, 1); err != nil {
				return value.Null, err
			}
			n, ok := value.ToInt(args[0])
			if !ok {
				return value.Null, value.UnexpectedArgs("seed", "a whole Number", args)
			}
			r.seed(uint64(n))
			return value.Null, nil
		},
		"shuffle": func(rt value.Runtime, args []value.Value) (value.Value, error) {
			if err := value.CheckArgs("shuffle", args, 1, 1); err != nil {
				return value.Null, err
			}
			if args[0].Kind() != value.KindList {
				return value.Null, value.UnexpectedArgs("shuffle", "a List", args)
			}
			l := args[0].List()
			items := l.Snapshot()
			r.shuffle(items)
			l.Replace(items)
			return args[0], nil
		},
	}
}

// pick returns a random element of a container, or null when it is empty.
// Maps yield a (key, value) Tuple.
func (r *rng) pick(rt value.Runtime, v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindList:
		items := v.List().Snapshot()
		if len(items) == 0 {
			return value.Null, nil
		}
		return items[r.intN(len(items))], nil
	case value.KindTuple:
		items := v.Tuple().Items()
		if len(items) == 0 {
			return value.Null, nil
		}
		return items[r.intN(len(items))], nil
	case value.KindMap:
		m := v.Map()
		if m.Len() == 0 {
			return value.Null, nil
		}
		e, _ := m.EntryAt(r.intN(m.Len()))
		return value.TupleOf(e.Key, e.Value), nil
	case value.KindRange:
		rg := v.Range()
		n, err := rg.Size()
		if err != nil {
			return value.Null, value.Errorf("pick: %s", err)
		}
		if n == 0 {
			return value.Null, nil
		}
		i := int64(r.intN(n))
		if rg.End < rg.Start {
			return value.Int(rg.Start - i), nil
		}
		return value.Int(rg.Start + i), nil
	case value.KindString:
		chars := []rune(v.AsString())
		if len(chars) == 0 {
			return value.Null, nil
		}
		return value.Str(string(chars[r.intN(len(chars))])), nil
	}
	return value.Null, value.Errorf("pick: expected a container, found %s", rt.TypeOf(v))
}

// RandomBuiltins returns the random module, backed by the process-wide
// generator.
func RandomBuiltins() map[string]value.NativeFunc {
	fns := globalRNG.builtins()
	fns["generator"] = builtinRandomGenerator
	return fns
}

// builtinRandomGenerator returns an independent generator, seeded when a
// seed is given.
func builtinRandomGenerator(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("generator", args, 0, 1); err != nil {
		return value.Null, err
	}
	seed := uint64(time.Now().UnixNano())
	if len(args) == 1 {
		n, ok := value.ToInt(args[0])
		if !ok {
			return value.Null, value.UnexpectedArgs("generator", "a whole Number", args)
		}
		seed = uint64(n)
	}
	r := newRNG(seed)
	return value.FromObject(&generatorObject{methods: r.builtins()}), nil
}

// generatorObject exposes an independent rng as a script value.
type generatorObject struct {
	methods map[string]value.NativeFunc
}

func (g *generatorObject) TypeName() string { return "RandomGenerator" }

func (g *generatorObject) Method(name string) (value.NativeFunc, bool) {
	fn, ok := g.methods[name]
	return fn, ok
}
