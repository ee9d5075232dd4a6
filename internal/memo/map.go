package memo

// Map is a memoizing map. The zero value is not usable; create one with New.
type Map[K comparable, V any] struct {
	entries map[slot[K]]V
	create  func(key K) V
}

// New returns an empty Map that computes missing values with create.
//
// create must not return a nil value. Doing so makes Get panic with an
// *InvariantError.
func New[K comparable, V any](create func(key K) V) *Map[K, V] {
	if create == nil {
		panic("memo: nil creation function")
	}
	return &Map[K, V]{
		entries: make(map[slot[K]]V),
		create:  create,
	}
}

// Get returns the value for key, computing and caching it on first use.
func (m *Map[K, V]) Get(key K) V {
	s := slotFor(key)
	if v, ok := m.entries[s]; ok {
		return v
	}

	v := m.create(key)
	if isAbsent(v) {
		panic(&InvariantError{Key: key})
	}
	m.entries[s] = v
	return v
}

// ContainsKey reports whether a value for key has already been computed.
// It never invokes the creation function.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.entries[slotFor(key)]
	return ok
}

// Len returns the number of computed entries.
func (m *Map[K, V]) Len() int {
	return len(m.entries)
}
