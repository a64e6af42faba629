package core

import (
	"math"

	"github.com/funvibe/kite/internal/value"
)

// NumberBuiltins returns the number module.
func NumberBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"abs":      builtinNumberAbs,
		"acos":     floatFunc("acos", math.Acos),
		"asin":     floatFunc("asin", math.Asin),
		"atan":     floatFunc("atan", math.Atan),
		"atan2":    builtinNumberAtan2,
		"ceil":     roundFunc("ceil", math.Ceil),
		"clamp":    builtinNumberClamp,
		"cos":      floatFunc("cos", math.Cos),
		"exp":      floatFunc("exp", math.Exp),
		"floor":    roundFunc("floor", math.Floor),
		"is_nan":   builtinNumberIsNaN,
		"ln":       floatFunc("ln", math.Log),
		"log10":    floatFunc("log10", math.Log10),
		"log2":     floatFunc("log2", math.Log2),
		"max":      builtinNumberMax,
		"min":      builtinNumberMin,
		"pow":      builtinNumberPow,
		"round":    roundFunc("round", math.Round),
		"sin":      floatFunc("sin", math.Sin),
		"sqrt":     floatFunc("sqrt", math.Sqrt),
		"tan":      floatFunc("tan", math.Tan),
		"to_float": builtinNumberToFloat,
		"to_int":   builtinNumberToInt,
	}
}

func addNumberConstants(m *value.Map) {
	m.SetStr("pi", value.Float(math.Pi))
	m.SetStr("tau", value.Float(2*math.Pi))
	m.SetStr("e", value.Float(math.E))
	m.SetStr("infinity", value.Float(math.Inf(1)))
	m.SetStr("negative_infinity", value.Float(math.Inf(-1)))
	m.SetStr("nan", value.Float(math.NaN()))
}

func numberArg(fn string, args []value.Value, n int) error {
	if err := value.CheckArgs(fn, args, n, n); err != nil {
		return err
	}
	for i := range args {
		if !args[i].IsNumber() {
			return value.Errorf("%s: expected a Number as argument %d, found %s", fn, i+1, value.TypeName(args[i]))
		}
	}
	return nil
}

// floatFunc adapts a float function of one argument.
func floatFunc(name string, f func(float64) float64) value.NativeFunc {
	return func(rt value.Runtime, args []value.Value) (value.Value, error) {
		if err := numberArg(name, args, 1); err != nil {
			return value.Null, err
		}
		return value.Float(f(args[0].AsFloat())), nil
	}
}

// roundFunc adapts a rounding function; integers pass through and finite
// results are integers.
func roundFunc(name string, f func(float64) float64) value.NativeFunc {
	return func(rt value.Runtime, args []value.Value) (value.Value, error) {
		if err := numberArg(name, args, 1); err != nil {
			return value.Null, err
		}
		if args[0].IsInt() {
			return args[0], nil
		}
		r := f(args[0].AsFloat())
		if math.IsInf(r, 0) || math.IsNaN(r) || r > math.MaxInt64 || r < math.MinInt64 {
			return value.Float(r), nil
		}
		return value.Int(int64(r)), nil
	}
}

func builtinNumberAbs(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("abs", args, 1); err != nil {
		return value.Null, err
	}
	if args[0].IsInt() {
		n := args[0].AsInt()
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	}
	return value.Float(math.Abs(args[0].AsFloat())), nil
}

func builtinNumberAtan2(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("atan2", args, 2); err != nil {
		return value.Null, err
	}
	return value.Float(math.Atan2(args[0].AsFloat(), args[1].AsFloat())), nil
}

func builtinNumberClamp(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("clamp", args, 3); err != nil {
		return value.Null, err
	}
	lo, err := rt.Compare(args[0], args[1])
	if err != nil {
		return value.Null, err
	}
	if lo < 0 {
		return args[1], nil
	}
	hi, err := rt.Compare(args[0], args[2])
	if err != nil {
		return value.Null, err
	}
	if hi > 0 {
		return args[2], nil
	}
	return args[0], nil
}

func builtinNumberIsNaN(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("is_nan", args, 1); err != nil {
		return value.Null, err
	}
	return value.Bool(args[0].IsFloat() && math.IsNaN(args[0].AsFloat())), nil
}

func builtinNumberMax(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("max", args, 2); err != nil {
		return value.Null, err
	}
	c, err := rt.Compare(args[0], args[1])
	if err != nil {
		return value.Null, err
	}
	if c < 0 {
		return args[1], nil
	}
	return args[0], nil
}

func builtinNumberMin(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("min", args, 2); err != nil {
		return value.Null, err
	}
	c, err := rt.Compare(args[0], args[1])
	if err != nil {
		return value.Null, err
	}
	if c > 0 {
		return args[1], nil
	}
	return args[0], nil
}

func builtinNumberPow(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("pow", args, 2); err != nil {
		return value.Null, err
	}
	return rt.BinaryOp("^", args[0], args[1])
}

func builtinNumberToFloat(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("to_float", args, 1); err != nil {
		return value.Null, err
	}
	return value.Float(args[0].AsFloat()), nil
}

// builtinNumberToInt truncates towards zero.
func builtinNumberToInt(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := numberArg("to_int", args, 1); err != nil {
		return value.Null, err
	}
	if args[0].IsInt() {
		return args[0], nil
	}
	f := args[0].AsFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return value.Null, value.Errorf("to_int: %s can't be converted to an integer", value.FormatFloat(f))
	}
	return value.Int(int64(f)), nil
}
