package persist

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// Memory keeps diffs in process memory. It is used for tests and for the
// "memory" storage backend.
type Memory struct {
	mu      sync.RWMutex
	diffs   map[string]setdiff.Diff[string]
	options map[string]bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		diffs:   make(map[string]setdiff.Diff[string]),
		options: make(map[string]bool),
	}
}

// Load implements Backend.
func (m *Memory) Load(_ context.Context, classifier string) (setdiff.Diff[string], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.diffs[classifier]
	if !ok {
		return setdiff.Diff[string]{}, ErrNotFound
	}
	return d, nil
}

// Save implements Backend.
func (m *Memory) Save(_ context.Context, classifier string, d setdiff.Diff[string]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.IsEmpty() {
		delete(m.diffs, classifier)
		return nil
	}
	m.diffs[classifier] = d
	return nil
}

// List implements Backend.
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.diffs))
	for k := range m.diffs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

// LoadOptions implements Backend.
func (m *Memory) LoadOptions(_ context.Context) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.options), nil
}

// SaveOption implements Backend.
func (m *Memory) SaveOption(_ context.Context, id string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[id] = value
	return nil
}
