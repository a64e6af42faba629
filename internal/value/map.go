package value

import "sort"

// Map is a mutable insertion-ordered mapping shared by all holders. Removed
// entries leave tombstones that are compacted once they outnumber live ones.
// Every entry carries an increasing insertion sequence number, so entries
// stays sorted by seq through compaction.
type Map struct {
	g       guard
	entries []mapEntry
	index   map[Key]int
	dead    int
	epoch   int
	seq     uint64
	meta    *MetaMap
}

type mapEntry struct {
	key   Value
	value Value
	seq   uint64
	dead  bool
}

// Entry is a key/value pair returned by snapshots.
type Entry struct {
	Key   Value
	Value Value
}

func NewMap() *Map {
	return &Map{index: make(map[Key]int)}
}

// NewMapCap preallocates room for n entries.
func NewMapCap(n int) *Map {
	return &Map{entries: make([]mapEntry, 0, n), index: make(map[Key]int, n)}
}

func (m *Map) Len() int {
	m.g.rlock()
	defer m.g.runlock()
	return len(m.index)
}

// Get looks up key. Unhashable keys are never present.
func (m *Map) Get(key Value) (Value, bool) {
	k, err := KeyOf(key)
	if err != nil {
		return Null, false
	}
	return m.GetKey(k)
}

func (m *Map) GetKey(k Key) (Value, bool) {
	m.g.rlock()
	defer m.g.runlock()
	if i, ok := m.index[k]; ok {
		return m.entries[i].value, true
	}
	return Null, false
}

func (m *Map) GetStr(name string) (Value, bool) {
	return m.GetKey(StrKey(name))
}

// Insert adds or replaces an entry. A replaced entry keeps its position.
func (m *Map) Insert(key, val Value) error {
	k, err := KeyOf(key)
	if err != nil {
		return err
	}
	m.insert(k, key, val)
	return nil
}

func (m *Map) SetStr(name string, val Value) {
	m.insert(StrKey(name), Str(name), val)
}

func (m *Map) insert(k Key, key, val Value) {
	m.g.lock()
	defer m.g.unlock()
	if i, ok := m.index[k]; ok {
		m.entries[i].value = val
		return
	}
	m.seq++
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, mapEntry{key: key, value: val, seq: m.seq})
}

// Remove deletes key and returns the previous value.
func (m *Map) Remove(key Value) (Value, bool) {
	k, err := KeyOf(key)
	if err != nil {
		return Null, false
	}
	m.g.lock()
	defer m.g.unlock()
	i, ok := m.index[k]
	if !ok {
		return Null, false
	}
	old := m.entries[i].value
	delete(m.index, k)
	m.entries[i] = mapEntry{seq: m.entries[i].seq, dead: true}
	m.dead++
	if m.dead > 16 && m.dead*2 > len(m.entries) {
		m.compact()
	}
	return old, true
}

func (m *Map) compact() {
	live := m.entries[:0]
	for _, e := range m.entries {
		if !e.dead {
			live = append(live, e)
		}
	}
	clear(m.entries[len(live):])
	m.entries = live
	m.dead = 0
	m.epoch++
	for i, e := range m.entries {
		k, _ := KeyOf(e.key)
		m.index[k] = i
	}
}

func (m *Map) Clear() {
	m.g.lock()
	m.entries = nil
	m.index = make(map[Key]int)
	m.dead = 0
	m.epoch++
	m.g.unlock()
}

// Entries snapshots the live entries in insertion order.
func (m *Map) Entries() []Entry {
	m.g.rlock()
	defer m.g.runlock()
	out := make([]Entry, 0, len(m.index))
	for _, e := range m.entries {
		if !e.dead {
			out = append(out, Entry{Key: e.key, Value: e.value})
		}
	}
	return out
}

// mapCursor is a live iteration position. pos is a raw slot index, valid
// while epoch matches the map's; last is the seq of the entry produced
// most recently and locates the cursor again after compaction or Clear.
type mapCursor struct {
	pos   int
	last  uint64
	epoch int
}

func (m *Map) cursor() mapCursor {
	m.g.rlock()
	defer m.g.runlock()
	return mapCursor{epoch: m.epoch}
}

// next advances c to the following live entry.
func (m *Map) next(c *mapCursor) (Entry, bool) {
	m.g.rlock()
	defer m.g.runlock()
	if c.epoch != m.epoch {
		c.pos = sort.Search(len(m.entries), func(i int) bool {
			return m.entries[i].seq > c.last
		})
		c.epoch = m.epoch
	}
	for c.pos < len(m.entries) {
		e := m.entries[c.pos]
		c.pos++
		if !e.dead {
			c.last = e.seq
			return Entry{Key: e.key, Value: e.value}, true
		}
	}
	return Entry{}, false
}

// EntryAt returns the i-th live entry in insertion order.
func (m *Map) EntryAt(i int) (Entry, bool) {
	m.g.rlock()
	defer m.g.runlock()
	if m.dead == 0 {
		if i < 0 || i >= len(m.entries) {
			return Entry{}, false
		}
		e := m.entries[i]
		return Entry{Key: e.key, Value: e.value}, true
	}
	n := 0
	for _, e := range m.entries {
		if e.dead {
			continue
		}
		if n == i {
			return Entry{Key: e.key, Value: e.value}, true
		}
		n++
	}
	return Entry{}, false
}

// Meta returns the metamap, or nil for a plain map.
func (m *Map) Meta() *MetaMap {
	m.g.rlock()
	defer m.g.runlock()
	return m.meta
}

// EnsureMeta returns the metamap, creating it if needed.
func (m *Map) EnsureMeta() *MetaMap {
	m.g.lock()
	defer m.g.unlock()
	if m.meta == nil {
		m.meta = &MetaMap{}
	}
	return m.meta
}

func (m *Map) SetMeta(meta *MetaMap) {
	m.g.lock()
	m.meta = meta
	m.g.unlock()
}

// Copy makes a shallow copy sharing the metamap.
func (m *Map) Copy() *Map {
	out := NewMapCap(m.Len())
	for _, e := range m.Entries() {
		_ = out.Insert(e.Key, e.Value)
	}
	out.meta = m.Meta()
	return out
}
