package vm

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/funvibe/kite/internal/value"
)

var opSymbols = map[Opcode]string{
	OP_ADD:        "+",
	OP_SUB:        "-",
	OP_MUL:        "*",
	OP_DIV:        "/",
	OP_REM:        "%",
	OP_POW:        "^",
	OP_LESS:       "<",
	OP_LESS_EQ:    "<=",
	OP_GREATER:    ">",
	OP_GREATER_EQ: ">=",
}

var opMetaKeys = map[Opcode]value.MetaKey{
	OP_ADD:        value.MetaAdd,
	OP_SUB:        value.MetaSub,
	OP_MUL:        value.MetaMul,
	OP_DIV:        value.MetaDiv,
	OP_REM:        value.MetaRem,
	OP_POW:        value.MetaPow,
	OP_LESS:       value.MetaLess,
	OP_LESS_EQ:    value.MetaLessEq,
	OP_GREATER:    value.MetaGreater,
	OP_GREATER_EQ: value.MetaGreaterEq,
}

// metaOf returns the metamap entry k of a Map value.
func metaOf(v value.Value, k value.MetaKey) (value.Value, bool) {
	if v.Kind() != value.KindMap {
		return value.Null, false
	}
	return v.Map().Meta().Get(k)
}

// binaryMeta calls the operator's metamethod of the left operand, or else
// of the right one, with the operands in source order.
func (vm *VM) binaryMeta(k value.MetaKey, a, b value.Value) (value.Value, bool, error) {
	fn, ok := metaOf(a, k)
	if !ok {
		fn, ok = metaOf(b, k)
	}
	if !ok {
		return value.Null, false, nil
	}
	res, err := vm.Call(fn, a, b)
	return res, true, err
}

// arith applies an arithmetic operator: native number, string and
// sequence behavior first, then metamethods.
func (vm *VM) arith(op Opcode, a, b value.Value) (value.Value, error) {
	if a.IsInt() && b.IsInt() {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case OP_ADD:
			return value.Int(x + y), nil
		case OP_SUB:
			return value.Int(x - y), nil
		case OP_MUL:
			return value.Int(x * y), nil
		case OP_DIV:
			return value.Float(float64(x) / float64(y)), nil
		case OP_REM:
			if y == 0 {
				return value.Null, value.Errorf("integer remainder by zero")
			}
			return value.Int(x % y), nil
		case OP_POW:
			if y >= 0 {
				return value.Int(intPow(x, y)), nil
			}
			return value.Float(math.Pow(float64(x), float64(y))), nil
		}
	}
	if a.IsNumber() && b.IsNumber() {
		x, _ := value.ToFloat(a)
		y, _ := value.ToFloat(b)
		switch op {
		case OP_ADD:
			return value.Float(x + y), nil
		case OP_SUB:
			return value.Float(x - y), nil
		case OP_MUL:
			return value.Float(x * y), nil
		case OP_DIV:
			return value.Float(x / y), nil
		case OP_REM:
			return value.Float(math.Mod(x, y)), nil
		case OP_POW:
			return value.Float(math.Pow(x, y)), nil
		}
	}
	if op == OP_ADD && a.Kind() == b.Kind() {
		switch a.Kind() {
		case value.KindString:
			return value.Str(a.AsString() + b.AsString()), nil
		case value.KindList:
			items := a.List().Snapshot()
			items = append(items, b.List().Snapshot()...)
			return value.FromList(value.NewList(items)), nil
		case value.KindTuple:
			x, y := a.Tuple().Items(), b.Tuple().Items()
			items := make([]value.Value, 0, len(x)+len(y))
			items = append(items, x...)
			items = append(items, y...)
			return value.FromTuple(value.NewTuple(items)), nil
		}
	}

	if res, ok, err := vm.binaryMeta(opMetaKeys[op], a, b); ok {
		return res, err
	}
	return value.Null, value.Errorf("unable to apply '%s' to %s and %s", opSymbols[op], vm.TypeOf(a), vm.TypeOf(b))
}

// BinaryOp implements value.Runtime.
func (vm *VM) BinaryOp(op string, a, b value.Value) (value.Value, error) {
	for code, sym := range opSymbols {
		if sym == op && code <= OP_POW {
			return vm.arith(code, a, b)
		}
	}
	return value.Null, value.Errorf("unknown operator '%s'", op)
}

// intPow computes x^y for y >= 0 by repeated squaring, wrapping on
// overflow like the other integer operators.
func intPow(x, y int64) int64 {
	result := int64(1)
	for y > 0 {
		if y&1 == 1 {
			result *= x
		}
		x *= x
		y >>= 1
	}
	return result
}

func (vm *VM) negate(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindInt:
		return value.Int(-v.AsInt()), nil
	case value.KindFloat:
		return value.Float(-v.AsFloat()), nil
	}
	if fn, ok := metaOf(v, value.MetaNegate); ok {
		return vm.Call(fn, v)
	}
	return value.Null, value.Errorf("unable to negate %s", vm.TypeOf(v))
}

func (vm *VM) equalOp(op Opcode, a, b value.Value) (bool, error) {
	if op == OP_NOT_EQUAL {
		if res, ok, err := vm.binaryMeta(value.MetaNotEqual, a, b); ok {
			if err != nil {
				return false, err
			}
			return res.Truthy(), nil
		}
		eq, err := vm.Equal(a, b)
		return !eq, err
	}
	return vm.Equal(a, b)
}

// Equal implements value.Runtime. Maps with @== decide their own equality,
// including when nested in containers.
func (vm *VM) Equal(a, b value.Value) (bool, error) {
	if res, ok, err := vm.binaryMeta(value.MetaEqual, a, b); ok {
		if err != nil {
			return false, err
		}
		return res.Truthy(), nil
	}
	return value.EqualWith(a, b, vm.Equal)
}

func (vm *VM) compareOp(op Opcode, a, b value.Value) (bool, error) {
	native := (a.IsNumber() && b.IsNumber()) || (a.IsString() && b.IsString())
	if !native {
		if res, ok, err := vm.binaryMeta(opMetaKeys[op], a, b); ok {
			if err != nil {
				return false, err
			}
			return res.Truthy(), nil
		}
	}
	c, err := vm.Compare(a, b)
	if err != nil {
		return false, value.Errorf("unable to apply '%s' to %s and %s", opSymbols[op], vm.TypeOf(a), vm.TypeOf(b))
	}
	if a.IsFloat() || b.IsFloat() {
		// NaN compares false with everything.
		x, _ := value.ToFloat(a)
		y, _ := value.ToFloat(b)
		if math.IsNaN(x) || math.IsNaN(y) {
			return false, nil
		}
	}
	switch op {
	case OP_LESS:
		return c < 0, nil
	case OP_LESS_EQ:
		return c <= 0, nil
	case OP_GREATER:
		return c > 0, nil
	}
	return c >= 0, nil
}

// Compare implements value.Runtime, ordering maps by @< when they define it.
func (vm *VM) Compare(a, b value.Value) (int, error) {
	if fn, ok := metaOf(a, value.MetaLess); ok {
		less, err := vm.Call(fn, a, b)
		if err != nil {
			return 0, err
		}
		if less.Truthy() {
			return -1, nil
		}
		greater, err := vm.Call(fn, b, a)
		if err != nil {
			return 0, err
		}
		if greater.Truthy() {
			return 1, nil
		}
		return 0, nil
	}
	return value.CompareWith(a, b, vm.Compare)
}

// index normalizes an integer index against size, accepting negative
// indices from the end.
func index(idx value.Value, size int) (int, error) {
	n, ok := value.ToInt(idx)
	if !ok {
		return 0, value.Errorf("expected an integer index, found %s", value.TypeName(idx))
	}
	i := int(n)
	if i < 0 {
		i += size
	}
	if i < 0 || i >= size {
		return 0, value.Errorf("index %d is out of bounds for size %d", n, size)
	}
	return i, nil
}

// Index implements value.Runtime.
func (vm *VM) Index(v, idx value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindList, value.KindTuple:
		items, _ := seqItems(v)
		if idx.Kind() == value.KindRange {
			from, to, err := idx.Range().Bounds(len(items))
			if err != nil {
				return value.Null, err
			}
			slice := append([]value.Value(nil), items[from:to]...)
			if v.Kind() == value.KindList {
				return value.FromList(value.NewList(slice)), nil
			}
			return value.FromTuple(value.NewTuple(slice)), nil
		}
		i, err := index(idx, len(items))
		if err != nil {
			return value.Null, err
		}
		return items[i], nil

	case value.KindString:
		runes := []rune(v.AsString())
		if idx.Kind() == value.KindRange {
			from, to, err := idx.Range().Bounds(len(runes))
			if err != nil {
				return value.Null, err
			}
			return value.Str(string(runes[from:to])), nil
		}
		i, err := index(idx, len(runes))
		if err != nil {
			return value.Null, err
		}
		return value.Str(string(runes[i])), nil

	case value.KindMap:
		if fn, ok := metaOf(v, value.MetaIndex); ok {
			return vm.Call(fn, v, idx)
		}
		res, _ := v.Map().Get(idx)
		return res, nil

	case value.KindRange:
		r := v.Range()
		if !r.HasStart {
			return value.Null, value.Errorf("unable to index a range without a start")
		}
		n, ok := value.ToInt(idx)
		if !ok || n < 0 {
			return value.Null, value.Errorf("expected a non-negative integer index, found %s", value.TypeName(idx))
		}
		if r.HasEnd {
			size, _ := r.Size()
			if int(n) >= size {
				return value.Null, value.Errorf("index %d is out of bounds for %s", n, r)
			}
			if r.End < r.Start {
				return value.Int(r.Start - n), nil
			}
		}
		return value.Int(r.Start + n), nil

	case value.KindObject:
		if ix, ok := v.Object().(value.Indexer); ok {
			return ix.Index(vm, idx)
		}
	}
	return value.Null, value.Errorf("unable to index %s", vm.TypeOf(v))
}

func (vm *VM) setIndex(obj, idx, v value.Value) error {
	switch obj.Kind() {
	case value.KindList:
		l := obj.List()
		i, err := index(idx, l.Len())
		if err != nil {
			return err
		}
		l.Set(i, v)
		return nil
	case value.KindMap:
		if fn, ok := metaOf(obj, value.MetaIndexMut); ok {
			_, err := vm.Call(fn, obj, idx, v)
			return err
		}
		return obj.Map().Insert(idx, v)
	case value.KindObject:
		if ix, ok := obj.Object().(value.IndexSetter); ok {
			return ix.SetIndex(vm, idx, v)
		}
	}
	return value.Errorf("unable to assign by index to %s", vm.TypeOf(obj))
}

// getField reads x.name: a Map entry or host object field, or a method
// bound to the receiver.
func (vm *VM) getField(obj value.Value, name string) (value.Value, error) {
	switch obj.Kind() {
	case value.KindMap:
		if v, ok := obj.Map().GetStr(name); ok {
			return v, nil
		}
	case value.KindObject:
		if fg, ok := obj.Object().(value.FieldGetter); ok {
			v, found, err := fg.Field(vm, name)
			if err != nil || found {
				return v, err
			}
		}
	}
	if m, ok := vm.boundMethod(obj, name); ok {
		return m, nil
	}
	return value.Null, value.Errorf("'%s' not found in %s", name, vm.TypeOf(obj))
}

func (vm *VM) setField(obj value.Value, name string, v value.Value) error {
	switch obj.Kind() {
	case value.KindMap:
		obj.Map().SetStr(name, v)
		return nil
	case value.KindObject:
		if ix, ok := obj.Object().(value.IndexSetter); ok {
			return ix.SetIndex(vm, value.Str(name), v)
		}
	}
	return value.Errorf("unable to assign field '%s' of %s", name, vm.TypeOf(obj))
}

// formatSpec is a parsed interpolation format: [[fill]align][width][.precision]
type formatSpec struct {
	fill      rune
	align     rune
	width     int
	precision int
}

func parseFormatSpec(s string) (formatSpec, error) {
	spec := formatSpec{fill: ' ', precision: -1}
	runes := []rune(s)
	isAlign := func(r rune) bool { return r == '<' || r == '^' || r == '>' }
	switch {
	case len(runes) >= 2 && isAlign(runes[1]):
		spec.fill, spec.align = runes[0], runes[1]
		runes = runes[2:]
	case len(runes) >= 1 && isAlign(runes[0]):
		spec.align = runes[0]
		runes = runes[1:]
	}
	rest := string(runes)
	widthStr, precStr, hasPrec := strings.Cut(rest, ".")
	if widthStr != "" {
		w, err := strconv.Atoi(widthStr)
		if err != nil || w < 0 {
			return spec, value.Errorf("invalid format string '%s'", s)
		}
		spec.width = w
	}
	if hasPrec {
		p, err := strconv.Atoi(precStr)
		if err != nil || p < 0 {
			return spec, value.Errorf("invalid format string '%s'", s)
		}
		spec.precision = p
	}
	return spec, nil
}

// format renders v for an interpolation with a format spec such as {x:.2}.
func (vm *VM) format(v value.Value, specStr string) (string, error) {
	spec, err := parseFormatSpec(specStr)
	if err != nil {
		return "", err
	}
	var s string
	defaultAlign := '<'
	switch {
	case v.IsNumber():
		defaultAlign = '>'
		if spec.precision >= 0 {
			f, _ := value.ToFloat(v)
			s = strconv.FormatFloat(f, 'f', spec.precision, 64)
			break
		}
		s, _ = vm.Display(v)
	default:
		s, err = vm.Display(v)
		if err != nil {
			return "", err
		}
		if spec.precision >= 0 && utf8.RuneCountInString(s) > spec.precision {
			s = string([]rune(s)[:spec.precision])
		}
	}

	pad := spec.width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s, nil
	}
	align := spec.align
	if align == 0 {
		align = defaultAlign
	}
	fill := string(spec.fill)
	switch align {
	case '>':
		return strings.Repeat(fill, pad) + s, nil
	case '^':
		left := pad / 2
		return strings.Repeat(fill, left) + s + strings.Repeat(fill, pad-left), nil
	}
	return s + strings.Repeat(fill, pad), nil
}
