package kite

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/funvibe/kite/internal/value"
)

var (
	valueType = reflect.TypeOf(value.Value{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
)

// Marshaller handles conversion between Go and Kite values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value to a Kite value. Pointers become host objects
// whose exported fields and methods are visible to scripts; functions
// become native functions.
func (m *Marshaller) ToValue(val any) (value.Value, error) {
	if val == nil {
		return value.Null, nil
	}
	if v, ok := val.(value.Value); ok {
		return v, nil
	}
	return m.reflectToValue(reflect.ValueOf(val))
}

func (m *Marshaller) reflectToValue(v reflect.Value) (value.Value, error) {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() {
		return value.Null, nil
	}
	if v.Type() == valueType {
		return v.Interface().(value.Value), nil
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Int(int64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Float(v.Float()), nil
	case reflect.Bool:
		return value.Bool(v.Bool()), nil
	case reflect.String:
		return value.Str(v.String()), nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return value.Null, nil
		}
		return m.sliceToList(v)
	case reflect.Map:
		if v.IsNil() {
			return value.Null, nil
		}
		return m.goMapToMap(v)
	case reflect.Struct:
		// Struct by value -> Map (copy)
		return m.structToMap(v)
	case reflect.Ptr:
		if v.IsNil() {
			return value.Null, nil
		}
		return value.FromObject(&hostObject{val: v, m: m}), nil
	case reflect.Func:
		if v.IsNil() {
			return value.Null, nil
		}
		return value.NewNative("host", m.wrapFunc(v)), nil
	}
	return value.Null, fmt.Errorf("unsupported Go type %s", v.Type())
}

// FromValue converts a Kite value to a Go value. targetType is optional;
// when given, the result is converted to it.
func (m *Marshaller) FromValue(v value.Value, targetType reflect.Type) (any, error) {
	if targetType == valueType {
		return v, nil
	}
	if targetType != nil && targetType != anyType {
		rv, err := m.toType(v, targetType)
		if err != nil {
			return nil, err
		}
		return rv.Interface(), nil
	}

	switch v.Kind() {
	case value.KindNull:
		return nil, nil
	case value.KindBool:
		return v.AsBool(), nil
	case value.KindInt:
		return v.AsInt(), nil
	case value.KindFloat:
		return v.AsFloat(), nil
	case value.KindString:
		return v.AsString(), nil
	case value.KindList:
		return m.itemsToSlice(v.List().Snapshot())
	case value.KindTuple:
		return m.itemsToSlice(v.Tuple().Items())
	case value.KindMap:
		return m.mapToGoMap(v.Map())
	case value.KindObject:
		if h, ok := v.Object().(*hostObject); ok {
			return h.val.Interface(), nil
		}
	}
	return v, nil
}

// toType converts v to a Go value of type t.
func (m *Marshaller) toType(v value.Value, t reflect.Type) (reflect.Value, error) {
	if t == valueType {
		return reflect.ValueOf(v), nil
	}
	if v.IsNull() {
		switch t.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot convert null to %s", t)
	}

	switch t.Kind() {
	case reflect.Interface:
		x, err := m.FromValue(v, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.ValueOf(x)
		if !rv.Type().Implements(t) {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := value.ToInt(v)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := value.ToInt(v)
		if !ok || n < 0 {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, ok := value.ToFloat(v)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.Bool:
		if v.Kind() != value.KindBool {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		return reflect.ValueOf(v.AsBool()).Convert(t), nil
	case reflect.String:
		if !v.IsString() {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		return reflect.ValueOf(v.AsString()).Convert(t), nil
	case reflect.Slice:
		var items []value.Value
		switch v.Kind() {
		case value.KindList:
			items = v.List().Snapshot()
		case value.KindTuple:
			items = v.Tuple().Items()
		default:
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		slice := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			ev, err := m.toType(item, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			slice.Index(i).Set(ev)
		}
		return slice, nil
	case reflect.Map:
		if v.Kind() != value.KindMap {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
		}
		entries := v.Map().Entries()
		result := reflect.MakeMapWithSize(t, len(entries))
		for _, e := range entries {
			kv, err := m.toType(e.Key, t.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("map key: %w", err)
			}
			vv, err := m.toType(e.Value, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("map value: %w", err)
			}
			result.SetMapIndex(kv, vv)
		}
		return result, nil
	case reflect.Ptr:
		if v.Kind() == value.KindObject {
			if h, ok := v.Object().(*hostObject); ok && h.val.Type().AssignableTo(t) {
				return h.val, nil
			}
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", value.TypeName(v), t)
}

func (m *Marshaller) sliceToList(v reflect.Value) (value.Value, error) {
	items := make([]value.Value, v.Len())
	for i := range items {
		item, err := m.reflectToValue(v.Index(i))
		if err != nil {
			return value.Null, err
		}
		items[i] = item
	}
	return value.ListOf(items...), nil
}

// goMapToMap converts a Go map. Keys are sorted by their Go string form so
// the resulting order is stable.
func (m *Marshaller) goMapToMap(v reflect.Value) (value.Value, error) {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	result := value.NewMapCap(len(keys))
	for _, k := range keys {
		key, err := m.reflectToValue(k)
		if err != nil {
			return value.Null, fmt.Errorf("map key: %w", err)
		}
		val, err := m.reflectToValue(v.MapIndex(k))
		if err != nil {
			return value.Null, fmt.Errorf("map value: %w", err)
		}
		if err := result.Insert(key, val); err != nil {
			return value.Null, err
		}
	}
	return value.FromMap(result), nil
}

func (m *Marshaller) structToMap(v reflect.Value) (value.Value, error) {
	t := v.Type()
	result := value.NewMapCap(t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		val, err := m.reflectToValue(v.Field(i))
		if err != nil {
			return value.Null, fmt.Errorf("field %s: %w", field.Name, err)
		}
		result.SetStr(field.Name, val)
	}
	return value.FromMap(result), nil
}

func (m *Marshaller) itemsToSlice(items []value.Value) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		x, err := m.FromValue(item, nil)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// mapToGoMap converts to map[string]any; other keys use their display form.
func (m *Marshaller) mapToGoMap(km *value.Map) (map[string]any, error) {
	entries := km.Entries()
	result := make(map[string]any, len(entries))
	for _, e := range entries {
		key := value.Display(e.Key)
		if e.Key.IsString() {
			key = e.Key.AsString()
		}
		val, err := m.FromValue(e.Value, nil)
		if err != nil {
			return nil, fmt.Errorf("map value: %w", err)
		}
		result[key] = val
	}
	return result, nil
}

// wrapFunc adapts a Go function to a native function. A trailing error
// result becomes a script error; several other results become a Tuple.
func (m *Marshaller) wrapFunc(fn reflect.Value) value.NativeFunc {
	fnType := fn.Type()
	return func(rt value.Runtime, args []value.Value) (value.Value, error) {
		numIn := fnType.NumIn()
		isVariadic := fnType.IsVariadic()

		if isVariadic {
			if len(args) < numIn-1 {
				return value.Null, value.Errorf("expected at least %d arguments, found %d", numIn-1, len(args))
			}
		} else if len(args) != numIn {
			return value.Null, value.Errorf("expects %d arguments, found %d", numIn, len(args))
		}

		goArgs := make([]reflect.Value, len(args))
		for i, arg := range args {
			var targetType reflect.Type
			if isVariadic && i >= numIn-1 {
				targetType = fnType.In(numIn - 1).Elem()
			} else {
				targetType = fnType.In(i)
			}
			rv, err := m.toType(arg, targetType)
			if err != nil {
				return value.Null, value.Errorf("argument %d: %s", i+1, err)
			}
			goArgs[i] = rv
		}

		results := fn.Call(goArgs)
		if n := len(results); n > 0 && fnType.Out(n-1) == errorType {
			if err, _ := results[n-1].Interface().(error); err != nil {
				return value.Null, value.Errorf("%s", err)
			}
			results = results[:n-1]
		}

		switch len(results) {
		case 0:
			return value.Null, nil
		case 1:
			return m.reflectToValue(results[0])
		}
		items := make([]value.Value, len(results))
		for i, res := range results {
			item, err := m.reflectToValue(res)
			if err != nil {
				return value.Null, err
			}
			items[i] = item
		}
		return value.TupleOf(items...), nil
	}
}

// hostObject is a Go pointer shared with scripts by reference.
type hostObject struct {
	val reflect.Value
	m   *Marshaller
}

func (h *hostObject) TypeName() string {
	return h.val.Type().Elem().Name()
}

func (h *hostObject) Field(rt value.Runtime, name string) (value.Value, bool, error) {
	elem := h.val.Elem()
	if elem.Kind() != reflect.Struct {
		return value.Null, false, nil
	}
	field, ok := elem.Type().FieldByName(name)
	if !ok || !field.IsExported() {
		return value.Null, false, nil
	}
	v, err := h.m.reflectToValue(elem.FieldByIndex(field.Index))
	return v, true, err
}

func (h *hostObject) SetIndex(rt value.Runtime, idx, v value.Value) error {
	elem := h.val.Elem()
	if !idx.IsString() || elem.Kind() != reflect.Struct {
		return value.Errorf("unable to assign by index to %s", h.TypeName())
	}
	field, ok := elem.Type().FieldByName(idx.AsString())
	if !ok || !field.IsExported() {
		return value.Errorf("'%s' not found in %s", idx.AsString(), h.TypeName())
	}
	rv, err := h.m.toType(v, field.Type)
	if err != nil {
		return value.Errorf("%s", err)
	}
	elem.FieldByIndex(field.Index).Set(rv)
	return nil
}

func (h *hostObject) Method(name string) (value.NativeFunc, bool) {
	method := h.val.MethodByName(name)
	if !method.IsValid() {
		return nil, false
	}
	return h.m.wrapFunc(method), true
}
