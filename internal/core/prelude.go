package core

import (
	"fmt"
	"math"

	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/value"
)

// PreludeBuiltins returns the functions available without an import.
func PreludeBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		config.PrintFuncName:      builtinPrint,
		config.TypeFuncName:       builtinType,
		config.SizeFuncName:       builtinSize,
		config.AssertFuncName:     builtinAssert,
		config.AssertEqFuncName:   builtinAssertEq,
		config.AssertNeFuncName:   builtinAssertNe,
		config.AssertNearFuncName: builtinAssertNear,
	}
}

// builtinPrint writes its argument followed by a newline. With more than
// one argument the first is a format string.
func builtinPrint(rt value.Runtime, args []value.Value) (value.Value, error) {
	var text string
	switch {
	case len(args) == 0:
	case len(args) == 1:
		s, err := rt.Display(args[0])
		if err != nil {
			return value.Null, err
		}
		text = s
	default:
		f, err := argString(config.PrintFuncName, args, 0)
		if err != nil {
			return value.Null, err
		}
		text, err = formatString(rt, f, args[1:])
		if err != nil {
			return value.Null, err
		}
	}
	if _, err := fmt.Fprintln(rt.Stdout(), text); err != nil {
		return value.Null, err
	}
	return value.Null, nil
}

func builtinType(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs(config.TypeFuncName, args, 1, 1); err != nil {
		return value.Null, err
	}
	return value.Str(rt.TypeOf(args[0])), nil
}

func builtinSize(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs(config.SizeFuncName, args, 1, 1); err != nil {
		return value.Null, err
	}
	n, err := rt.Size(args[0])
	if err != nil {
		return value.Null, err
	}
	return value.Int(int64(n)), nil
}

func builtinAssert(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs(config.AssertFuncName, args, 1, 2); err != nil {
		return value.Null, err
	}
	if args[0].Truthy() {
		return value.Null, nil
	}
	if len(args) == 2 {
		msg, err := rt.Display(args[1])
		if err != nil {
			return value.Null, err
		}
		return value.Null, value.Errorf("assertion failed: %s", msg)
	}
	return value.Null, value.Errorf("assertion failed")
}

func builtinAssertEq(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs(config.AssertEqFuncName, args, 2, 2); err != nil {
		return value.Null, err
	}
	eq, err := rt.Equal(args[0], args[1])
	if err != nil {
		return value.Null, err
	}
	if !eq {
		return value.Null, assertionFailure(rt, "assertion failed, '%s' is not equal to '%s'", args[0], args[1])
	}
	return value.Null, nil
}

func builtinAssertNe(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs(config.AssertNeFuncName, args, 2, 2); err != nil {
		return value.Null, err
	}
	eq, err := rt.Equal(args[0], args[1])
	if err != nil {
		return value.Null, err
	}
	if eq {
		return value.Null, assertionFailure(rt, "assertion failed, '%s' is equal to '%s'", args[0], args[1])
	}
	return value.Null, nil
}

// defaultNearTolerance is used by assert_near without an explicit
// tolerance.
const defaultNearTolerance = 1e-12

func builtinAssertNear(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs(config.AssertNearFuncName, args, 2, 3); err != nil {
		return value.Null, err
	}
	a, err := argFloat(config.AssertNearFuncName, args, 0)
	if err != nil {
		return value.Null, err
	}
	b, err := argFloat(config.AssertNearFuncName, args, 1)
	if err != nil {
		return value.Null, err
	}
	tolerance := defaultNearTolerance
	if len(args) == 3 {
		if tolerance, err = argFloat(config.AssertNearFuncName, args, 2); err != nil {
			return value.Null, err
		}
	}
	if math.Abs(a-b) > tolerance {
		return value.Null, value.Errorf("assertion failed, '%s' and '%s' are not within %s of each other",
			value.FormatFloat(a), value.FormatFloat(b), value.FormatFloat(tolerance))
	}
	return value.Null, nil
}

func assertionFailure(rt value.Runtime, format string, a, b value.Value) error {
	as, err := rt.Display(a)
	if err != nil {
		return err
	}
	bs, err := rt.Display(b)
	if err != nil {
		return err
	}
	return value.Errorf(format, as, bs)
}
