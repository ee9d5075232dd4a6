package provider

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// ErrAlreadyRegistered is returned when two providers claim one language.
var ErrAlreadyRegistered = errors.New("provider already registered")

// Normalize folds a classifier so that "Java" and " java " name the same
// language.
func Normalize(id string) string {
	return cases.Fold().String(strings.TrimSpace(id))
}

// Registry maps classifiers to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding ps. It fails on duplicate languages.
func NewRegistry(ps ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p under its normalized language ID.
func (r *Registry) Register(p Provider) error {
	id := Normalize(p.Language().ID)
	if id == "" {
		return fmt.Errorf("register provider: empty language id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	r.providers[id] = p
	return nil
}

// Lookup returns the provider for classifier.
func (r *Registry) Lookup(classifier string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[Normalize(classifier)]
	return p, ok
}

// Languages returns every registered language, shortest display name first
// and then alphabetically.
func (r *Registry) Languages() []Language {
	r.mu.RLock()
	langs := make([]Language, 0, len(r.providers))
	for _, p := range r.providers {
		langs = append(langs, p.Language())
	}
	r.mu.RUnlock()

	slices.SortFunc(langs, func(a, b Language) int {
		if c := cmp.Compare(len(a.DisplayName), len(b.DisplayName)); c != 0 {
			return c
		}
		return cmp.Compare(a.DisplayName, b.DisplayName)
	})
	return langs
}
