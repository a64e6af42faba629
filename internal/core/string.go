package core

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/funvibe/kite/internal/value"
)

// StringBuiltins returns the string module.
func StringBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"bytes":        builtinStringBytes,
		"chars":        builtinStringChars,
		"contains":     builtinStringContains,
		"ends_with":    builtinStringEndsWith,
		"format":       builtinStringFormat,
		"is_empty":     builtinStringIsEmpty,
		"lines":        builtinStringLines,
		"repeat":       builtinStringRepeat,
		"replace":      builtinStringReplace,
		"size":         builtinStringSize,
		"split":        builtinStringSplit,
		"starts_with":  builtinStringStartsWith,
		"to_lowercase": builtinStringToLowercase,
		"to_number":    builtinStringToNumber,
		"to_uppercase": builtinStringToUppercase,
		"trim":         builtinStringTrim,
		"trim_end":     builtinStringTrimEnd,
		"trim_start":   builtinStringTrimStart,
	}
}

func stringArgs(fn string, args []value.Value, min, max int) (string, error) {
	if err := value.CheckArgs(fn, args, min, max); err != nil {
		return "", err
	}
	return argString(fn, args, 0)
}

// stringOp adapts a (string, string) -> value function.
func stringOp(fn string, args []value.Value, f func(s, t string) value.Value) (value.Value, error) {
	s, err := stringArgs(fn, args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	t, err := argString(fn, args, 1)
	if err != nil {
		return value.Null, err
	}
	return f(s, t), nil
}

// stringMap adapts a string -> string function.
func stringMap(fn string, args []value.Value, f func(string) string) (value.Value, error) {
	s, err := stringArgs(fn, args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Str(f(s)), nil
}

func builtinStringBytes(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("bytes", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	i := 0
	return lazy(func(value.Runtime) (value.Value, bool, error) {
		if i >= len(s) {
			return value.Null, false, nil
		}
		b := s[i]
		i++
		return value.Int(int64(b)), true, nil
	}), nil
}

func builtinStringChars(rt value.Runtime, args []value.Value) (value.Value, error) {
	if _, err := stringArgs("chars", args, 1, 1); err != nil {
		return value.Null, err
	}
	p, _ := value.NativeProducer(args[0])
	return value.FromIterator(value.NewIterator(p)), nil
}

func builtinStringContains(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringOp("contains", args, func(s, t string) value.Value {
		return value.Bool(strings.Contains(s, t))
	})
}

func builtinStringEndsWith(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringOp("ends_with", args, func(s, t string) value.Value {
		return value.Bool(strings.HasSuffix(s, t))
	})
}

func builtinStringStartsWith(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringOp("starts_with", args, func(s, t string) value.Value {
		return value.Bool(strings.HasPrefix(s, t))
	})
}

func builtinStringFormat(rt value.Runtime, args []value.Value) (value.Value, error) {
	f, err := stringArgs("format", args, 1, -1)
	if err != nil {
		return value.Null, err
	}
	s, err := formatString(rt, f, args[1:])
	if err != nil {
		return value.Null, err
	}
	return value.Str(s), nil
}

// formatString replaces {} with the next argument and {n} with the n-th;
// {{ and }} are literal braces.
func formatString(rt value.Runtime, f string, args []value.Value) (string, error) {
	var sb strings.Builder
	next := 0
	for i := 0; i < len(f); i++ {
		c := f[i]
		switch {
		case c == '{' && i+1 < len(f) && f[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(f) && f[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(f[i:], '}')
			if end < 0 {
				return "", value.Errorf("format: unclosed '{' in format string")
			}
			placeholder := f[i+1 : i+end]
			pos := next
			if placeholder == "" {
				next++
			} else {
				n, err := strconv.Atoi(placeholder)
				if err != nil {
					return "", value.Errorf("format: invalid placeholder '{%s}'", placeholder)
				}
				pos = n
			}
			if pos < 0 || pos >= len(args) {
				return "", value.Errorf("format: missing argument for placeholder %d", pos)
			}
			s, err := rt.Display(args[pos])
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
			i += end
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

func builtinStringIsEmpty(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("is_empty", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Bool(s == ""), nil
}

// builtinStringLines splits on \n, dropping a trailing \r from each line.
func builtinStringLines(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("lines", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	rest, done := s, s == ""
	return lazy(func(value.Runtime) (value.Value, bool, error) {
		if done {
			return value.Null, false, nil
		}
		line, tail, found := strings.Cut(rest, "\n")
		if !found || tail == "" {
			done = true
		}
		rest = tail
		return value.Str(strings.TrimSuffix(line, "\r")), true, nil
	}), nil
}

func builtinStringRepeat(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("repeat", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	n, err := argInt("repeat", args, 1)
	if err != nil {
		return value.Null, err
	}
	if n < 0 {
		return value.Null, value.Errorf("repeat: negative count %d", n)
	}
	return value.Str(strings.Repeat(s, int(n))), nil
}

func builtinStringReplace(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("replace", args, 3, 3)
	if err != nil {
		return value.Null, err
	}
	old, err := argString("replace", args, 1)
	if err != nil {
		return value.Null, err
	}
	repl, err := argString("replace", args, 2)
	if err != nil {
		return value.Null, err
	}
	return value.Str(strings.ReplaceAll(s, old, repl)), nil
}

func builtinStringSize(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("size", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Int(int64(utf8.RuneCountInString(s))), nil
}

// builtinStringSplit splits on a separator String, or wherever a predicate
// called with each character returns true.
func builtinStringSplit(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("split", args, 2, 2)
	if err != nil {
		return value.Null, err
	}
	var parts []string
	if args[1].IsString() {
		parts = strings.Split(s, args[1].AsString())
	} else {
		f, err := argCallable("split", args, 1)
		if err != nil {
			return value.Null, err
		}
		start := 0
		for i, r := range s {
			split, err := callPredicate(rt, f, value.Str(string(r)))
			if err != nil {
				return value.Null, err
			}
			if split {
				parts = append(parts, s[start:i])
				start = i + utf8.RuneLen(r)
			}
		}
		parts = append(parts, s[start:])
	}
	items := make([]value.Value, len(parts))
	for i, p := range parts {
		items[i] = value.Str(p)
	}
	return value.FromIterator(value.NewIterator(&value.SliceProducer{Items: items})), nil
}

func builtinStringToLowercase(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringMap("to_lowercase", args, strings.ToLower)
}

func builtinStringToUppercase(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringMap("to_uppercase", args, strings.ToUpper)
}

// builtinStringToNumber parses an integer or a float, returning null when
// the text is neither.
func builtinStringToNumber(rt value.Runtime, args []value.Value) (value.Value, error) {
	s, err := stringArgs("to_number", args, 1, 1)
	if err != nil {
		return value.Null, err
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return value.Int(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f), nil
	}
	return value.Null, nil
}

func builtinStringTrim(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringMap("trim", args, strings.TrimSpace)
}

func builtinStringTrimEnd(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringMap("trim_end", args, func(s string) string {
		return strings.TrimRight(s, " \t\r\n")
	})
}

func builtinStringTrimStart(rt value.Runtime, args []value.Value) (value.Value, error) {
	return stringMap("trim_start", args, func(s string) string {
		return strings.TrimLeft(s, " \t\r\n")
	})
}
