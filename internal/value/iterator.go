package value

import "unicode/utf8"

// Producer yields values on demand. ok is false once exhausted.
type Producer interface {
	Next(rt Runtime) (v Value, ok bool, err error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(rt Runtime) (Value, bool, error)

func (f ProducerFunc) Next(rt Runtime) (Value, bool, error) { return f(rt) }

// Iterator is a single-pass lazy sequence. Once its producer reports
// exhaustion every later pull reports exhaustion too.
type Iterator struct {
	src  Producer
	done bool
}

func NewIterator(p Producer) *Iterator {
	return &Iterator{src: p}
}

func (it *Iterator) Next(rt Runtime) (Value, bool, error) {
	if it.done {
		return Null, false, nil
	}
	v, ok, err := it.src.Next(rt)
	if err != nil {
		return Null, false, err
	}
	if !ok {
		it.done = true
		it.src = nil
	}
	return v, ok, nil
}

func (it *Iterator) Done() bool { return it.done }

// Next implements Producer so an Iterator can feed another.
var _ Producer = (*Iterator)(nil)

// NativeProducer returns a producer for values with built-in iteration.
func NativeProducer(v Value) (Producer, bool) {
	switch v.kind {
	case KindIterator:
		return v.Iterator(), true
	case KindRange:
		return newRangeProducer(v.Range()), true
	case KindList:
		return &listProducer{list: v.List()}, true
	case KindTuple:
		return &SliceProducer{Items: v.Tuple().Items()}, true
	case KindString:
		return &stringProducer{s: v.AsString()}, true
	case KindMap:
		m := v.Map()
		return &mapProducer{m: m, c: m.cursor()}, true
	}
	return nil, false
}

type rangeProducer struct {
	next, end int64
	step      int64
	bounded   bool
}

func newRangeProducer(r *Range) *rangeProducer {
	p := &rangeProducer{next: r.Start, step: 1, bounded: r.HasEnd}
	if r.HasEnd {
		p.end = r.End
		if r.Start > r.End {
			p.step = -1
			if r.Inclusive {
				p.end--
			}
		} else if r.Inclusive {
			p.end++
		}
	}
	return p
}

func (p *rangeProducer) Next(Runtime) (Value, bool, error) {
	if p.bounded && p.next == p.end {
		return Null, false, nil
	}
	v := p.next
	p.next += p.step
	return Int(v), true, nil
}

type listProducer struct {
	list *List
	pos  int
}

func (p *listProducer) Next(Runtime) (Value, bool, error) {
	v, ok := p.list.Get(p.pos)
	if !ok || p.pos < 0 {
		return Null, false, nil
	}
	p.pos++
	return v, true, nil
}

// SliceProducer walks a fixed slice.
type SliceProducer struct {
	Items []Value
	pos   int
}

func (p *SliceProducer) Next(Runtime) (Value, bool, error) {
	if p.pos >= len(p.Items) {
		return Null, false, nil
	}
	v := p.Items[p.pos]
	p.pos++
	return v, true, nil
}

type stringProducer struct {
	s   string
	pos int
}

func (p *stringProducer) Next(Runtime) (Value, bool, error) {
	if p.pos >= len(p.s) {
		return Null, false, nil
	}
	_, size := utf8.DecodeRuneInString(p.s[p.pos:])
	v := Str(p.s[p.pos : p.pos+size])
	p.pos += size
	return v, true, nil
}

type mapProducer struct {
	m *Map
	c mapCursor
}

func (p *mapProducer) Next(Runtime) (Value, bool, error) {
	e, ok := p.m.next(&p.c)
	if !ok {
		return Null, false, nil
	}
	return TupleOf(e.Key, e.Value), true, nil
}
