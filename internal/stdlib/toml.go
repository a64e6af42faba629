package stdlib

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/funvibe/kite/internal/value"
)

// TOMLBuiltins returns the toml module.
func TOMLBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"from_string": builtinTOMLFromString,
		"to_string":   builtinTOMLToString,
	}
}

// tomlKeyOrder records the order in which keys first appear under each
// table path. Elements of an array of tables share their array's path.
type tomlKeyOrder map[string][]string

func newTOMLKeyOrder(md toml.MetaData) tomlKeyOrder {
	order := tomlKeyOrder{}
	seen := map[string]bool{}
	for _, key := range md.Keys() {
		if len(key) == 0 {
			continue
		}
		parent := strings.Join(key[:len(key)-1], ".")
		full := strings.Join(key, ".")
		if seen[full] {
			continue
		}
		seen[full] = true
		order[parent] = append(order[parent], key[len(key)-1])
	}
	return order
}

// keys returns the keys of table in document order, with any key the
// metadata doesn't mention appended in sorted order.
func (o tomlKeyOrder) keys(path string, table map[string]any) []string {
	out := make([]string, 0, len(table))
	listed := map[string]bool{}
	for _, k := range o[path] {
		if _, ok := table[k]; ok && !listed[k] {
			out = append(out, k)
			listed[k] = true
		}
	}
	var rest []string
	for k := range table {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func builtinTOMLFromString(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("from_string", args, 1, 1); err != nil {
		return value.Null, err
	}
	if !args[0].IsString() {
		return value.Null, value.UnexpectedArgs("from_string", "a String", args)
	}
	var doc map[string]any
	md, err := toml.Decode(args[0].AsString(), &doc)
	if err != nil {
		return value.Null, value.Errorf("toml parse error: %s", err)
	}
	return fromTOMLTable(newTOMLKeyOrder(md), "", doc), nil
}

func fromTOMLTable(order tomlKeyOrder, path string, table map[string]any) value.Value {
	m := value.NewMapCap(len(table))
	for _, k := range order.keys(path, table) {
		child := k
		if path != "" {
			child = path + "." + k
		}
		m.SetStr(k, fromTOML(order, child, table[k]))
	}
	return value.FromMap(m)
}

func fromTOML(order tomlKeyOrder, path string, v any) value.Value {
	switch x := v.(type) {
	case map[string]any:
		return fromTOMLTable(order, path, x)
	case []map[string]any:
		items := make([]value.Value, len(x))
		for i, t := range x {
			items[i] = fromTOMLTable(order, path, t)
		}
		return value.ListOf(items...)
	case []any:
		items := make([]value.Value, len(x))
		for i, item := range x {
			items[i] = fromTOML(order, path, item)
		}
		return value.ListOf(items...)
	case string:
		return value.Str(x)
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	case time.Time:
		return value.Str(x.Format(time.RFC3339Nano))
	}
	return value.Str(fmt.Sprint(v))
}

// builtinTOMLToString encodes a Map as a TOML document.
func builtinTOMLToString(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("to_string", args, 1, 1); err != nil {
		return value.Null, err
	}
	if args[0].Kind() != value.KindMap {
		return value.Null, value.UnexpectedArgs("to_string", "a Map", args)
	}
	doc, err := toTOML(rt, args[0])
	if err != nil {
		return value.Null, err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return value.Null, value.Errorf("toml: %s", err)
	}
	return value.Str(buf.String()), nil
}

func toTOML(rt value.Runtime, v value.Value) (any, error) {
	switch v.Kind() {
	case value.KindBool:
		return v.AsBool(), nil
	case value.KindInt:
		return v.AsInt(), nil
	case value.KindFloat:
		return v.AsFloat(), nil
	case value.KindString:
		return v.AsString(), nil
	case value.KindList, value.KindTuple:
		var items []value.Value
		if v.Kind() == value.KindList {
			items = v.List().Snapshot()
		} else {
			items = v.Tuple().Items()
		}
		out := make([]any, len(items))
		for i, item := range items {
			x, err := toTOML(rt, item)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case value.KindMap:
		out := map[string]any{}
		for _, e := range v.Map().Entries() {
			if !e.Key.IsString() {
				return nil, value.Errorf("toml: keys must be Strings, found %s", rt.TypeOf(e.Key))
			}
			x, err := toTOML(rt, e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key.AsString()] = x
		}
		return out, nil
	}
	return nil, value.Errorf("toml: %s can't be serialized", rt.TypeOf(v))
}
