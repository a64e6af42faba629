package stdlib

import (
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/kite/internal/value"
)

// YAMLBuiltins returns the yaml module.
func YAMLBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"from_string": builtinYAMLFromString,
		"to_string":   builtinYAMLToString,
	}
}

// builtinYAMLFromString parses a document. Mappings become Maps in
// document order.
func builtinYAMLFromString(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("from_string", args, 1, 1); err != nil {
		return value.Null, err
	}
	if !args[0].IsString() {
		return value.Null, value.UnexpectedArgs("from_string", "a String", args)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(args[0].AsString()), &doc); err != nil {
		return value.Null, value.Errorf("yaml parse error: %s", err)
	}
	if doc.Kind == 0 {
		return value.Null, nil
	}
	return fromYAMLNode(&doc)
}

func fromYAMLNode(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null, nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		items := make([]value.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return value.Null, err
			}
			items[i] = v
		}
		return value.ListOf(items...), nil
	case yaml.MappingNode:
		m := value.NewMapCap(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := fromYAMLNode(n.Content[i])
			if err != nil {
				return value.Null, err
			}
			v, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return value.Null, err
			}
			if err := m.Insert(k, v); err != nil {
				return value.Null, value.Errorf("yaml: line %d: %s", n.Content[i].Line, err)
			}
		}
		return value.FromMap(m), nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	}
	return value.Null, value.Errorf("yaml: line %d: unsupported node", n.Line)
}

func fromYAMLScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.Null, value.Errorf("yaml: line %d: %s", n.Line, err)
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return value.Null, value.Errorf("yaml: line %d: %s", n.Line, err)
		}
		return value.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value.Null, value.Errorf("yaml: line %d: %s", n.Line, err)
		}
		return value.Float(f), nil
	}
	return value.Str(n.Value), nil
}

func builtinYAMLToString(rt value.Runtime, args []value.Value) (value.Value, error) {
	if err := value.CheckArgs("to_string", args, 1, 1); err != nil {
		return value.Null, err
	}
	node, err := toYAMLNode(rt, args[0])
	if err != nil {
		return value.Null, err
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return value.Null, value.Errorf("yaml: %s", err)
	}
	return value.Str(string(out)), nil
}

func toYAMLNode(rt value.Runtime, v value.Value) (*yaml.Node, error) {
	scalar := func(tag, s string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: s}
	}
	switch v.Kind() {
	case value.KindNull:
		return scalar("!!null", "null"), nil
	case value.KindBool:
		return scalar("!!bool", strconv.FormatBool(v.AsBool())), nil
	case value.KindInt:
		return scalar("!!int", strconv.FormatInt(v.AsInt(), 10)), nil
	case value.KindFloat:
		return scalar("!!float", yamlFloat(v.AsFloat())), nil
	case value.KindString:
		return scalar("!!str", v.AsString()), nil
	case value.KindList, value.KindTuple:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		var items []value.Value
		if v.Kind() == value.KindList {
			items = v.List().Snapshot()
		} else {
			items = v.Tuple().Items()
		}
		for _, item := range items {
			c, err := toYAMLNode(rt, item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, c)
		}
		return seq, nil
	case value.KindMap:
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.Map().Entries() {
			k, err := toYAMLNode(rt, e.Key)
			if err != nil {
				return nil, err
			}
			c, err := toYAMLNode(rt, e.Value)
			if err != nil {
				return nil, err
			}
			mapping.Content = append(mapping.Content, k, c)
		}
		return mapping, nil
	}
	return nil, value.Errorf("yaml: %s can't be serialized", rt.TypeOf(v))
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return value.FormatFloat(f)
}
