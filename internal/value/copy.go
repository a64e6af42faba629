package value

// DeepCopy copies lists and maps recursively. Tuples are copied only when
// they contain mutable containers.
func DeepCopy(v Value) Value {
	switch v.kind {
	case KindList:
		items := v.List().Snapshot()
		for i := range items {
			items[i] = DeepCopy(items[i])
		}
		return FromList(NewList(items))
	case KindMap:
		src := v.Map()
		out := NewMapCap(src.Len())
		for _, e := range src.Entries() {
			_ = out.Insert(e.Key, DeepCopy(e.Value))
		}
		out.meta = src.Meta()
		return FromMap(out)
	case KindTuple:
		items := v.Tuple().Items()
		var copied []Value
		for i, item := range items {
			c := DeepCopy(item)
			if copied == nil && (item.kind == KindList || item.kind == KindMap || item.kind == KindTuple) && c.ref != item.ref {
				copied = make([]Value, len(items))
				copy(copied, items[:i])
			}
			if copied != nil {
				copied[i] = c
			}
		}
		if copied == nil {
			return v
		}
		return TupleOf(copied...)
	}
	return v
}
