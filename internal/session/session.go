// Package session models one interactive editing pass over the per-language
// exclusion lists.
//
// A Session opens a Panel per language on demand, seeded with the language's
// effective list (baseline plus stored diff). Panels are validated as they
// change; Commit refuses to write anything while any opened panel holds a
// malformed pattern. On success each opened panel's list is turned back into
// a diff against the baseline and handed to the override store.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/hintprefs/internal/logging"
	"github.com/dshills/hintprefs/internal/memo"
	"github.com/dshills/hintprefs/internal/override"
	"github.com/dshills/hintprefs/internal/provider"
	"github.com/dshills/hintprefs/internal/setdiff"
)

// Session is a single configuration pass. It is not safe for concurrent use.
type Session struct {
	id       string
	store    *override.Store
	registry *provider.Registry
	panels   *memo.Map[string, *Panel]
	staged   map[*provider.Option]bool
	log      *logging.Logger

	preselect []preselection
}

type preselection struct {
	classifier string
	pattern    string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPreselect opens classifier's panel with pattern appended and selected.
func WithPreselect(classifier, pattern string) Option {
	return func(s *Session) {
		s.preselect = append(s.preselect, preselection{classifier: classifier, pattern: pattern})
	}
}

// Open starts a session over store and registry.
func Open(store *override.Store, registry *provider.Registry, opts ...Option) (*Session, error) {
	s := &Session{
		id:       uuid.NewString(),
		store:    store,
		registry: registry,
		staged:   make(map[*provider.Option]bool),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithSession(s.id)
	s.panels = memo.New(s.createPanel)

	for _, p := range s.preselect {
		if err := s.AddPattern(p.classifier, p.pattern); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Languages returns every language with a provider, in display order.
func (s *Session) Languages() []provider.Language {
	return s.registry.Languages()
}

func (s *Session) createPanel(classifier string) *Panel {
	p, _ := s.registry.Lookup(classifier)
	effective := s.store.EffectiveSet(classifier, p.DefaultBlacklist())
	s.log.WithLanguage(classifier).Debug("opened panel", "patterns", effective.Len())
	return newPanel(p, effective)
}

// resolve maps a user-supplied classifier to its provider's canonical ID.
func (s *Session) resolve(classifier string) (provider.Provider, string, error) {
	p, ok := s.registry.Lookup(classifier)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownLanguage, classifier)
	}
	return p, p.Language().ID, nil
}

// Panel returns the editing panel for classifier, creating it on first use.
func (s *Session) Panel(classifier string) (*Panel, error) {
	p, id, err := s.resolve(classifier)
	if err != nil {
		return nil, err
	}
	if !p.SupportsBlacklist() {
		return nil, fmt.Errorf("%w: %s", ErrNoBlacklist, id)
	}
	return s.panels.Get(id), nil
}

// AddPattern appends pattern to classifier's panel and selects it.
func (s *Session) AddPattern(classifier, pattern string) error {
	pn, err := s.Panel(classifier)
	if err != nil {
		return err
	}
	pn.appendPattern(pattern)
	return nil
}

// opened returns the panels created so far, in display order.
func (s *Session) opened() []*Panel {
	var out []*Panel
	for _, l := range s.registry.Languages() {
		if s.panels.ContainsKey(l.ID) {
			out = append(out, s.panels.Get(l.ID))
		}
	}
	return out
}

// Invalid returns the malformed lines of every opened panel that has any.
func (s *Session) Invalid() map[string][]int {
	invalid := make(map[string][]int)
	for _, pn := range s.opened() {
		if !pn.Valid() {
			invalid[pn.Language().ID] = pn.InvalidLines()
		}
	}
	return invalid
}

// CanCommit reports whether every opened panel is valid. Panels that were
// never opened cannot be invalid and are not created by this check.
func (s *Session) CanCommit() bool {
	for _, pn := range s.opened() {
		if !pn.Valid() {
			return false
		}
	}
	return true
}

// Options returns the boolean options for classifier.
func (s *Session) Options(classifier string) ([]*provider.Option, error) {
	p, _, err := s.resolve(classifier)
	if err != nil {
		return nil, err
	}
	return p.Options(), nil
}

// SetOption stages a new value for opt. It takes effect on Commit.
func (s *Session) SetOption(opt *provider.Option, v bool) {
	s.staged[opt] = v
}

// OptionValue returns the staged value for opt, or its current value.
func (s *Session) OptionValue(opt *provider.Option) bool {
	if v, ok := s.staged[opt]; ok {
		return v
	}
	return opt.Get()
}

// Commit stores a diff for every opened panel, applies staged options and
// flushes the store. If any panel is invalid it returns a *ValidationError
// and changes nothing.
func (s *Session) Commit(ctx context.Context) error {
	if invalid := s.Invalid(); len(invalid) > 0 {
		s.log.Info("commit refused", "languages", len(invalid))
		return &ValidationError{Invalid: invalid}
	}

	for _, pn := range s.opened() {
		id := pn.Language().ID
		d := setdiff.Build(pn.provider.DefaultBlacklist(), pn.customized())
		if err := s.store.SetDiff(id, d); err != nil {
			return fmt.Errorf("store %s: %w", id, err)
		}
		s.log.WithLanguage(id).Debug("committed diff", "diff", d.String())
	}

	for opt, v := range s.staged {
		opt.Set(v)
		s.store.SetOptionValue(opt.ID, v)
	}
	clear(s.staged)

	return s.store.Flush(ctx)
}
