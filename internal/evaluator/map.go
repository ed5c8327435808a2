package evaluator

// MapPair is a single key/value entry.
type MapPair struct {
	Key   Object
	Value Object
}

// Map is an insertion-ordered hash map. Keys may be any hashable object,
// including tuples, so grid coordinates like (x, y) work as keys. The
// insertion order is preserved so rendering and iteration stay
// deterministic across runs.
type Map struct {
	pairs []MapPair
	index map[uint32][]int
}

func NewMap() *Map {
	return &Map{index: make(map[uint32][]int)}
}

func (m *Map) Type() ObjectType { return MAP_OBJ }
func (m *Map) Hash() uint32     { return 0 }

func (m *Map) Len() int { return len(m.pairs) }

// Pairs returns the entries in insertion order. The slice is shared;
// callers must not mutate it.
func (m *Map) Pairs() []MapPair { return m.pairs }

func (m *Map) Get(key Object) (Object, bool) {
	for _, i := range m.index[key.Hash()] {
		if ObjectsEqual(m.pairs[i].Key, key) {
			return m.pairs[i].Value, true
		}
	}
	return nil, false
}

func (m *Map) Set(key, value Object) {
	h := key.Hash()
	for _, i := range m.index[h] {
		if ObjectsEqual(m.pairs[i].Key, key) {
			m.pairs[i].Value = value
			return
		}
	}
	m.pairs = append(m.pairs, MapPair{Key: key, Value: value})
	m.index[h] = append(m.index[h], len(m.pairs)-1)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Object {
	keys := make([]Object, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Copy returns a new map with the same entries. Values are copied
// deeply so snapshots cannot alias into live state.
func (m *Map) Copy() *Map {
	out := NewMap()
	for _, p := range m.pairs {
		out.Set(p.Key, CopyValue(p.Value))
	}
	return out
}
