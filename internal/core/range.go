package core

import (
	"github.com/funvibe/kite/internal/value"
)

// RangeBuiltins returns the range module.
func RangeBuiltins() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"contains":     builtinRangeContains,
		"end":          builtinRangeEnd,
		"expanded":     builtinRangeExpanded,
		"intersection": builtinRangeIntersection,
		"is_inclusive": builtinRangeIsInclusive,
		"size":         builtinRangeSize,
		"start":        builtinRangeStart,
		"union":        builtinRangeUnion,
	}
}

func rangeArgs(fn string, args []value.Value, n int) (*value.Range, error) {
	if err := value.CheckArgs(fn, args, n, n); err != nil {
		return nil, err
	}
	return argRange(fn, args, 0)
}

// halfOpen returns bounded [start, end) limits of an ascending range.
func halfOpen(fn string, r *value.Range) (int64, int64, error) {
	if !r.HasStart || !r.HasEnd {
		return 0, 0, value.Errorf("%s: expected a bounded Range, found %s", fn, r)
	}
	end := r.End
	if r.Inclusive {
		end++
	}
	if end < r.Start {
		return 0, 0, value.Errorf("%s: expected an ascending Range, found %s", fn, r)
	}
	return r.Start, end, nil
}

// builtinRangeContains accepts a Number or another Range.
func builtinRangeContains(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("contains", args, 2)
	if err != nil {
		return value.Null, err
	}
	if args[1].Kind() == value.KindRange {
		start, end, err := halfOpen("contains", r)
		if err != nil {
			return value.Null, err
		}
		oStart, oEnd, err := halfOpen("contains", args[1].Range())
		if err != nil {
			return value.Null, err
		}
		return value.Bool(oStart >= start && oEnd <= end), nil
	}
	n, err := argFloat("contains", args, 1)
	if err != nil {
		return value.Null, err
	}
	if r.HasStart && r.HasEnd && r.End < r.Start {
		reversed := value.Range{Start: r.End, End: r.Start, HasStart: true, HasEnd: true, Inclusive: true}
		if !r.Inclusive {
			reversed.Start++
		}
		return value.Bool(reversed.Contains(n)), nil
	}
	return value.Bool(r.Contains(n)), nil
}

func builtinRangeEnd(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("end", args, 1)
	if err != nil || !r.HasEnd {
		return value.Null, err
	}
	return value.Int(r.End), nil
}

func builtinRangeStart(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("start", args, 1)
	if err != nil || !r.HasStart {
		return value.Null, err
	}
	return value.Int(r.Start), nil
}

// builtinRangeExpanded grows both ends of a range by n.
func builtinRangeExpanded(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("expanded", args, 2)
	if err != nil {
		return value.Null, err
	}
	n, err := argInt("expanded", args, 1)
	if err != nil {
		return value.Null, err
	}
	out := *r
	if out.HasStart && out.HasEnd && out.End < out.Start {
		out.Start += n
		out.End -= n
	} else {
		out.Start -= n
		out.End += n
	}
	return value.FromRange(&out), nil
}

// builtinRangeIntersection returns the overlap of two ranges, or null.
func builtinRangeIntersection(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("intersection", args, 2)
	if err != nil {
		return value.Null, err
	}
	other, err := argRange("intersection", args, 1)
	if err != nil {
		return value.Null, err
	}
	start, end, err := halfOpen("intersection", r)
	if err != nil {
		return value.Null, err
	}
	oStart, oEnd, err := halfOpen("intersection", other)
	if err != nil {
		return value.Null, err
	}
	lo, hi := max(start, oStart), min(end, oEnd)
	if lo > hi {
		return value.Null, nil
	}
	return value.FromRange(&value.Range{Start: lo, End: hi, HasStart: true, HasEnd: true}), nil
}

func builtinRangeIsInclusive(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("is_inclusive", args, 1)
	if err != nil {
		return value.Null, err
	}
	return value.Bool(r.Inclusive), nil
}

func builtinRangeSize(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("size", args, 1)
	if err != nil {
		return value.Null, err
	}
	n, err := r.Size()
	if err != nil {
		return value.Null, value.Errorf("size: %s", err)
	}
	return value.Int(int64(n)), nil
}

// builtinRangeUnion extends a range to cover a Number or another Range.
func builtinRangeUnion(rt value.Runtime, args []value.Value) (value.Value, error) {
	r, err := rangeArgs("union", args, 2)
	if err != nil {
		return value.Null, err
	}
	start, end, err := halfOpen("union", r)
	if err != nil {
		return value.Null, err
	}
	if args[1].Kind() == value.KindRange {
		oStart, oEnd, err := halfOpen("union", args[1].Range())
		if err != nil {
			return value.Null, err
		}
		start, end = min(start, oStart), max(end, oEnd)
	} else {
		n, err := argInt("union", args, 1)
		if err != nil {
			return value.Null, err
		}
		start, end = min(start, n), max(end, n+1)
	}
	return value.FromRange(&value.Range{Start: start, End: end, HasStart: true, HasEnd: true}), nil
}
