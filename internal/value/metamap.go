package value

import "strings"

// MetaKey is one of the closed set of protocol slots a metamap can fill.
type MetaKey uint8

const (
	MetaAdd MetaKey = iota
	MetaSub
	MetaMul
	MetaDiv
	MetaRem
	MetaPow
	MetaLess
	MetaLessEq
	MetaGreater
	MetaGreaterEq
	MetaEqual
	MetaNotEqual
	MetaNegate
	MetaNot
	MetaIndex
	MetaIndexMut
	MetaSize
	MetaType
	MetaDisplay
	MetaIterator
	MetaNext
	MetaCall
	MetaMain
	MetaPreTest
	MetaPostTest
	// MetaTest entries are named and kept in an ordered list.
	MetaTest
	metaKeyCount
)

var metaKeyNames = [...]string{
	MetaAdd:       "@+",
	MetaSub:       "@-",
	MetaMul:       "@*",
	MetaDiv:       "@/",
	MetaRem:       "@%",
	MetaPow:       "@^",
	MetaLess:      "@<",
	MetaLessEq:    "@<=",
	MetaGreater:   "@>",
	MetaGreaterEq: "@>=",
	MetaEqual:     "@==",
	MetaNotEqual:  "@!=",
	MetaNegate:    "@negate",
	MetaNot:       "@not",
	MetaIndex:     "@index",
	MetaIndexMut:  "@index_mut",
	MetaSize:      "@size",
	MetaType:      "@type",
	MetaDisplay:   "@display",
	MetaIterator:  "@iterator",
	MetaNext:      "@next",
	MetaCall:      "@call",
	MetaMain:      "@main",
	MetaPreTest:   "@pre_test",
	MetaPostTest:  "@post_test",
	MetaTest:      "@test",
}

func (k MetaKey) String() string {
	if int(k) < len(metaKeyNames) {
		return metaKeyNames[k]
	}
	return "@?"
}

// LookupMetaKey maps a metakey spelling such as "@+" to its slot.
func LookupMetaKey(s string) (MetaKey, bool) {
	for i, name := range metaKeyNames {
		if name == s {
			return MetaKey(i), true
		}
	}
	return 0, false
}

// ParseMetaEntry splits an encoded metamap entry such as "@test basics"
// into its slot and name.
func ParseMetaEntry(s string) (MetaKey, string, bool) {
	head, name, _ := strings.Cut(s, " ")
	k, ok := LookupMetaKey(head)
	if !ok {
		return 0, "", false
	}
	if (k == MetaTest) != (name != "") {
		return 0, "", false
	}
	return k, name, true
}

// NamedEntry is a named metamap entry.
type NamedEntry struct {
	Name  string
	Value Value
}

// MetaMap is the capability table attached to a Map.
type MetaMap struct {
	slots [metaKeyCount]Value
	set   uint32
	tests []NamedEntry
}

func (m *MetaMap) Get(k MetaKey) (Value, bool) {
	if m == nil || m.set&(1<<k) == 0 {
		return Null, false
	}
	return m.slots[k], true
}

func (m *MetaMap) Has(k MetaKey) bool {
	return m != nil && m.set&(1<<k) != 0
}

func (m *MetaMap) Set(k MetaKey, v Value) {
	m.slots[k] = v
	m.set |= 1 << k
}

// SetTest adds or replaces a named test entry.
func (m *MetaMap) SetTest(name string, v Value) {
	for i := range m.tests {
		if m.tests[i].Name == name {
			m.tests[i].Value = v
			return
		}
	}
	m.tests = append(m.tests, NamedEntry{Name: name, Value: v})
	m.set |= 1 << MetaTest
}

// Tests returns the named test entries in definition order.
func (m *MetaMap) Tests() []NamedEntry {
	if m == nil {
		return nil
	}
	return m.tests
}

// Merge copies every entry of other into m.
func (m *MetaMap) Merge(other *MetaMap) {
	if other == nil {
		return
	}
	for k := MetaKey(0); k < MetaTest; k++ {
		if v, ok := other.Get(k); ok {
			m.Set(k, v)
		}
	}
	for _, t := range other.tests {
		m.SetTest(t.Name, t.Value)
	}
}

// Empty reports whether no slot is filled.
func (m *MetaMap) Empty() bool { return m == nil || m.set == 0 }
