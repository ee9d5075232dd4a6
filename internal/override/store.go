// Package override remembers, per language, how a user's exclusion list
// deviates from the provider's baseline.
//
// The Store is a bounded cache of per-classifier diffs in front of a
// persist.Backend. A diff missing from the cache is loaded from the backend on
// first use. Changed diffs stay pending in memory until Flush writes them. A
// classifier with nothing stored behaves as if it had an empty diff, so the
// effective list equals the baseline.
package override

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/hintprefs/internal/config/notify"
	"github.com/dshills/hintprefs/internal/logging"
	"github.com/dshills/hintprefs/internal/override/persist"
	"github.com/dshills/hintprefs/internal/setdiff"
)

const (
	// DefaultFlushConcurrency bounds parallel saves during Flush.
	DefaultFlushConcurrency = 4

	// DefaultCacheSize bounds how many stored diffs are kept in memory.
	DefaultCacheSize = 256
)

type entry struct {
	diff    setdiff.Diff[string]
	version uint64
}

// Store caches per-classifier diffs in front of a persistence backend. All
// methods are safe for concurrent use; writes are serialized so a SetDiff is
// visible to every later GetDiff.
type Store struct {
	mu sync.RWMutex
	// pending holds diffs set since the last successful save.
	pending map[string]*entry
	// stored caches what the backend holds; an empty diff means nothing is
	// stored.
	stored *lru.Cache[string, setdiff.Diff[string]]
	// gen changes whenever stored is rewritten from something other than a
	// backend read, so a slow read cannot overwrite newer state.
	gen uint64
	seq uint64

	options      map[string]bool
	optionsDirty map[string]bool

	backend     persist.Backend
	notifier    *notify.Notifier
	log         *logging.Logger
	concurrency int
	cacheSize   int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithNotifier publishes a notify.Change for every replaced diff.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithFlushConcurrency bounds parallel saves during Flush.
func WithFlushConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCacheSize bounds how many stored diffs are kept in memory. Evicted
// classifiers are loaded again on their next use.
func WithCacheSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// New creates a Store over backend. A nil backend keeps diffs in memory only.
func New(backend persist.Backend, opts ...Option) *Store {
	if backend == nil {
		backend = persist.NewMemory()
	}
	s := &Store{
		pending:      make(map[string]*entry),
		options:      make(map[string]bool),
		optionsDirty: make(map[string]bool),
		backend:      backend,
		log:          logging.Noop(),
		concurrency:  DefaultFlushConcurrency,
		cacheSize:    DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stored = s.newCache()
	return s
}

func (s *Store) newCache() *lru.Cache[string, setdiff.Diff[string]] {
	c, err := lru.New[string, setdiff.Diff[string]](s.cacheSize)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return c
}

// Load warms the cache with the stored diffs for classifiers, or with every
// classifier the backend lists when none are given; the latter also reads the
// stored option values. Failures are logged and the affected classifier falls
// back to no customization. Pending changes are left alone.
func (s *Store) Load(ctx context.Context, classifiers ...string) {
	if len(classifiers) == 0 {
		if values, err := s.backend.LoadOptions(ctx); err != nil {
			s.log.Warn("loading option values failed", "error", &PersistenceError{Op: "load options", Err: err})
		} else {
			s.replaceOptions(values)
		}

		listed, err := s.backend.List(ctx)
		if err != nil {
			s.log.Warn("listing stored diffs failed", "error", &PersistenceError{Op: "list", Err: err})
			return
		}
		classifiers = listed
	}

	gen := s.generation()
	loaded := s.fetch(ctx, classifiers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	for c, d := range loaded {
		s.stored.Add(c, d)
	}
}

// fetch reads classifiers from the backend. Classifiers whose read failed are
// left out so a later lookup tries again.
func (s *Store) fetch(ctx context.Context, classifiers []string) map[string]setdiff.Diff[string] {
	out := make(map[string]setdiff.Diff[string], len(classifiers))
	for _, c := range classifiers {
		if d, ok := s.loadOne(ctx, c); ok {
			out[c] = d
		}
	}
	return out
}

// loadOne reads one classifier. ok is false when the read failed and the
// result must not be cached.
func (s *Store) loadOne(ctx context.Context, classifier string) (d setdiff.Diff[string], ok bool) {
	log := s.log.WithLanguage(classifier)

	d, err := s.backend.Load(ctx, classifier)
	if errors.Is(err, persist.ErrNotFound) {
		return setdiff.Diff[string]{}, true
	}
	if err != nil {
		log.Warn("loading stored diff failed, using defaults",
			"error", &PersistenceError{Op: "load", Classifier: classifier, Err: err})
		return setdiff.Diff[string]{}, false
	}
	if err := d.Validate(); err != nil {
		log.Warn("ignoring malformed stored diff", "error", err)
		return setdiff.Diff[string]{}, true
	}
	log.Debug("loaded stored diff", "diff", d.String())
	return d, true
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// GetDiff returns the diff for classifier, or an empty diff when none is
// stored. It never fails.
func (s *Store) GetDiff(classifier string) setdiff.Diff[string] {
	return s.GetDiffContext(context.Background(), classifier)
}

// GetDiffContext is GetDiff with a context for the backend read made on a
// cache miss.
func (s *Store) GetDiffContext(ctx context.Context, classifier string) setdiff.Diff[string] {
	s.mu.RLock()
	if e, ok := s.pending[classifier]; ok {
		s.mu.RUnlock()
		return e.diff
	}
	if d, ok := s.stored.Get(classifier); ok {
		s.mu.RUnlock()
		return d
	}
	gen := s.gen
	s.mu.RUnlock()

	d, ok := s.loadOne(ctx, classifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, pending := s.pending[classifier]; pending {
		return e.diff
	}
	if ok && s.gen == gen {
		s.stored.Add(classifier, d)
	}
	return d
}

// SetDiff replaces the diff for classifier and marks it for the next Flush.
// It rejects a diff that adds and removes the same element.
func (s *Store) SetDiff(classifier string, d setdiff.Diff[string]) error {
	if err := d.Validate(); err != nil {
		return err
	}
	old := s.GetDiff(classifier)

	s.mu.Lock()
	if e, ok := s.pending[classifier]; ok {
		old = e.diff
	}
	s.seq++
	s.pending[classifier] = &entry{diff: d, version: s.seq}
	s.mu.Unlock()

	if s.notifier != nil && !old.Equal(d) {
		typ := notify.ChangeSet
		if d.IsEmpty() {
			typ = notify.ChangeReset
		}
		s.notifier.Notify(notify.Change{
			Classifier: classifier,
			Type:       typ,
			Old:        old,
			New:        d,
			Source:     "store",
		})
	}
	return nil
}

// Reset drops the customization for classifier.
func (s *Store) Reset(classifier string) {
	// The empty diff always validates.
	_ = s.SetDiff(classifier, setdiff.Diff[string]{})
}

// EffectiveSet returns GetDiff(classifier).ApplyOn(baseline).
func (s *Store) EffectiveSet(classifier string, baseline setdiff.Set[string]) setdiff.Set[string] {
	return s.GetDiff(classifier).ApplyOn(baseline)
}

// Customized returns the classifiers with a non-empty diff, sorted: the ones
// the backend lists, adjusted by pending changes. When listing fails the
// pending customizations are returned along with the error.
func (s *Store) Customized(ctx context.Context) ([]string, error) {
	listed, listErr := s.backend.List(ctx)
	if listErr != nil {
		listErr = &PersistenceError{Op: "list", Err: listErr}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]bool, len(listed)+len(s.pending))
	for _, c := range listed {
		set[c] = true
	}
	for c, e := range s.pending {
		set[c] = !e.diff.IsEmpty()
	}

	var out []string
	for c, customized := range set {
		if customized {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out, listErr
}

// Dirty returns the classifiers with changes not yet flushed, sorted.
func (s *Store) Dirty() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Keys(s.pending))
	slices.Sort(out)
	return out
}

// OptionValue returns the stored value of a provider option and whether one
// is stored or pending.
func (s *Store) OptionValue(id string) (value, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.optionsDirty[id]; ok {
		return v, true
	}
	v, ok := s.options[id]
	return v, ok
}

// SetOptionValue records a provider option value for the next Flush.
func (s *Store) SetOptionValue(id string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.optionsDirty[id] = value
}

func (s *Store) replaceOptions(values map[string]bool) {
	if values == nil {
		values = make(map[string]bool)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = values
}

type pendingSave struct {
	classifier string
	diff       setdiff.Diff[string]
	version    uint64
}

// Flush saves every pending diff and option value. Saves run concurrently; a
// change whose save fails stays pending and its error is returned, joined
// with any others. A SetDiff that races with Flush is kept for the next one.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	work := make([]pendingSave, 0, len(s.pending))
	for c, e := range s.pending {
		work = append(work, pendingSave{classifier: c, diff: e.diff, version: e.version})
	}
	options := maps.Clone(s.optionsDirty)
	s.mu.RUnlock()

	if len(work) == 0 && len(options) == 0 {
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) error {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		return err
	}
	g.SetLimit(s.concurrency)
	for _, p := range work {
		g.Go(func() error {
			if err := s.backend.Save(ctx, p.classifier, p.diff); err != nil {
				return fail(&PersistenceError{Op: "save", Classifier: p.classifier, Err: err})
			}
			s.markClean(p)
			s.log.WithLanguage(p.classifier).Debug("saved diff", "diff", p.diff.String())
			return nil
		})
	}
	for id, v := range options {
		g.Go(func() error {
			if err := s.backend.SaveOption(ctx, id, v); err != nil {
				return fail(&PersistenceError{Op: "save option", Classifier: id, Err: err})
			}
			s.markOptionClean(id, v)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (s *Store) markClean(p pendingSave) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[p.classifier]
	if !ok || e.version != p.version {
		return
	}
	delete(s.pending, p.classifier)
	s.stored.Add(p.classifier, p.diff)
	s.gen++
}

func (s *Store) markOptionClean(id string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.options[id] = value
	if v, ok := s.optionsDirty[id]; ok && v == value {
		delete(s.optionsDirty, id)
	}
}

// Reload re-reads every stored diff and option value into a fresh cache and
// swaps it in. Pending changes win over what is on storage. When the backend
// cannot be listed the current cache is kept and the error is returned.
func (s *Store) Reload(ctx context.Context) error {
	listed, err := s.backend.List(ctx)
	if err != nil {
		return &PersistenceError{Op: "list", Err: err}
	}
	values, err := s.backend.LoadOptions(ctx)
	if err != nil {
		return &PersistenceError{Op: "load options", Err: err}
	}

	gen := s.generation()
	loaded := s.fetch(ctx, listed)
	fresh := s.newCache()
	for c, d := range loaded {
		fresh.Add(c, d)
	}

	s.mu.Lock()
	if s.gen != gen {
		// A save landed while reading; start cold rather than risk stale entries.
		fresh.Purge()
	}
	s.stored = fresh
	s.gen++
	s.mu.Unlock()
	s.replaceOptions(values)

	if s.notifier != nil {
		s.notifier.Notify(notify.Change{Type: notify.ChangeReload, Source: "storage"})
	}
	return nil
}
