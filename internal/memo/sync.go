package memo

import (
	"sync"
	"sync/atomic"
)

// Sync is a memoizing map that is safe for concurrent use. Concurrent Get
// calls for the same missing key block until a single invocation of the
// creation function finishes; it is never run twice for one key.
type Sync[K comparable, V any] struct {
	mu     sync.Mutex
	cells  map[slot[K]]*cell[V]
	create func(key K) V
}

type cell[V any] struct {
	once  sync.Once
	ready atomic.Bool
	value V
	fault any
}

// NewSync returns an empty Sync that computes missing values with create.
func NewSync[K comparable, V any](create func(key K) V) *Sync[K, V] {
	if create == nil {
		panic("memo: nil creation function")
	}
	return &Sync[K, V]{
		cells:  make(map[slot[K]]*cell[V]),
		create: create,
	}
}

// Get returns the value for key, computing and caching it on first use.
//
// If the creation function panics, the panic is replayed on every later Get
// for the same key instead of calling the function again.
func (m *Sync[K, V]) Get(key K) V {
	s := slotFor(key)

	m.mu.Lock()
	c, ok := m.cells[s]
	if !ok {
		c = &cell[V]{}
		m.cells[s] = c
	}
	m.mu.Unlock()

	c.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				c.fault = r
			}
		}()
		v := m.create(key)
		if isAbsent(v) {
			panic(&InvariantError{Key: key})
		}
		c.value = v
		c.ready.Store(true)
	})

	if c.fault != nil {
		panic(c.fault)
	}
	return c.value
}

// ContainsKey reports whether a value for key has been computed successfully.
// A key whose computation is still running reports false.
func (m *Sync[K, V]) ContainsKey(key K) bool {
	m.mu.Lock()
	c, ok := m.cells[slotFor(key)]
	m.mu.Unlock()
	return ok && c.ready.Load()
}

// Len returns the number of keys with a computed value.
func (m *Sync[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.cells {
		if c.ready.Load() {
			n++
		}
	}
	return n
}
