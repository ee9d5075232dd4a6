package override

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/hintprefs/internal/config/notify"
	"github.com/dshills/hintprefs/internal/logging"
	"github.com/dshills/hintprefs/internal/override/persist"
	"github.com/dshills/hintprefs/internal/setdiff"
)

// flakyBackend wraps a backend and fails selected operations.
type flakyBackend struct {
	persist.Backend

	mu      sync.Mutex
	loadErr error
	saveErr map[string]error
	listErr error
	saves   []string
	loads   int
	stored  map[string]setdiff.Diff[string]
}

func newFlaky() *flakyBackend {
	return &flakyBackend{Backend: persist.NewMemory(), saveErr: map[string]error{}}
}

func (f *flakyBackend) Load(ctx context.Context, c string) (setdiff.Diff[string], error) {
	f.mu.Lock()
	f.loads++
	err := f.loadErr
	f.mu.Unlock()
	if err != nil {
		return setdiff.Diff[string]{}, err
	}
	if d, ok := f.stored[c]; ok {
		return d, nil
	}
	return f.Backend.Load(ctx, c)
}

func (f *flakyBackend) Save(ctx context.Context, c string, d setdiff.Diff[string]) error {
	f.mu.Lock()
	err := f.saveErr[c]
	f.saves = append(f.saves, c)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Backend.Save(ctx, c, d)
}

func (f *flakyBackend) List(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Backend.List(ctx)
}

func (f *flakyBackend) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func scenarioDiff() setdiff.Diff[string] {
	return setdiff.Build(
		setdiff.NewSet("java.util.*", "kotlin.*"),
		setdiff.NewSet("kotlin.*", "my.pkg.Foo"),
	)
}

func TestStore_DefaultIsEmpty(t *testing.T) {
	s := New(nil)

	assert.True(t, s.GetDiff("java").IsEmpty())

	baseline := setdiff.NewSet("a.*", "b.*")
	assert.True(t, s.EffectiveSet("java", baseline).Equal(baseline))
	customized, err := s.Customized(context.Background())
	require.NoError(t, err)
	assert.Empty(t, customized)
	assert.Empty(t, s.Dirty())
}

func TestStore_ReadYourWrites(t *testing.T) {
	s := New(nil)
	d := scenarioDiff()

	require.NoError(t, s.SetDiff("java", d))
	got := s.GetDiff("java")
	assert.True(t, got.Added().Equal(d.Added()))
	assert.True(t, got.Removed().Equal(d.Removed()))

	want := setdiff.NewSet("kotlin.*", "new.default.*", "my.pkg.Foo")
	assert.True(t, s.EffectiveSet("java", setdiff.NewSet("java.util.*", "kotlin.*", "new.default.*")).Equal(want))
	assert.Equal(t, []string{"java"}, s.Dirty())
	customized, err := s.Customized(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"java"}, customized)
}

func TestStore_SetDiffReplaces(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SetDiff("java", scenarioDiff()))

	next := setdiff.Build(setdiff.NewSet("x"), setdiff.NewSet("y"))
	require.NoError(t, s.SetDiff("java", next))

	assert.True(t, s.GetDiff("java").Equal(next))
}

func TestStore_SetDiffRejectsOverlap(t *testing.T) {
	s := New(nil)
	bad := setdiff.Of(setdiff.NewSet("a"), setdiff.NewSet("a"))

	err := s.SetDiff("java", bad)
	require.ErrorIs(t, err, setdiff.ErrOverlap)
	assert.True(t, s.GetDiff("java").IsEmpty())
	assert.Empty(t, s.Dirty())
}

func TestStore_FlushAndLoad(t *testing.T) {
	ctx := context.Background()
	backend := persist.NewMemory()

	s := New(backend)
	require.NoError(t, s.SetDiff("java", scenarioDiff()))
	require.NoError(t, s.Flush(ctx))
	assert.Empty(t, s.Dirty())

	fresh := New(backend)
	fresh.Load(ctx)
	assert.True(t, fresh.GetDiff("java").Equal(scenarioDiff()))
}

func TestStore_ResetDeletesStoredEntry(t *testing.T) {
	ctx := context.Background()
	backend := persist.NewMemory()
	s := New(backend)
	require.NoError(t, s.SetDiff("java", scenarioDiff()))
	require.NoError(t, s.Flush(ctx))

	s.Reset("java")
	require.NoError(t, s.Flush(ctx))

	_, err := backend.Load(ctx, "java")
	assert.ErrorIs(t, err, persist.ErrNotFound)
	assert.True(t, s.GetDiff("java").IsEmpty())
}

func TestStore_LoadFailureFallsBack(t *testing.T) {
	var logs bytes.Buffer
	backend := newFlaky()
	backend.loadErr = errors.New("storage unavailable")

	s := New(backend, WithLogger(logging.NewText(&logs, slog.LevelDebug)))
	s.Load(context.Background(), "java")

	assert.True(t, s.GetDiff("java").IsEmpty())
	assert.Contains(t, logs.String(), "storage unavailable")
}

func TestStore_LoadListFailure(t *testing.T) {
	backend := newFlaky()
	backend.listErr = errors.New("no listing")

	s := New(backend)
	s.Load(context.Background())
	require.NoError(t, s.SetDiff("java", scenarioDiff()))

	customized, err := s.Customized(context.Background())
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, []string{"java"}, customized)
}

func TestStore_LoadIgnoresMalformedDiff(t *testing.T) {
	backend := newFlaky()
	backend.stored = map[string]setdiff.Diff[string]{
		"java": setdiff.Of(setdiff.NewSet("a"), setdiff.NewSet("a")),
	}

	s := New(backend)
	s.Load(context.Background(), "java")
	assert.True(t, s.GetDiff("java").IsEmpty())
}

func TestStore_LoadKeepsDirtyEntries(t *testing.T) {
	ctx := context.Background()
	backend := persist.NewMemory()
	require.NoError(t, backend.Save(ctx, "java", setdiff.Build(setdiff.NewSet("old"), setdiff.NewSet[string]())))

	s := New(backend)
	require.NoError(t, s.SetDiff("java", scenarioDiff()))
	s.Load(ctx)

	assert.True(t, s.GetDiff("java").Equal(scenarioDiff()))
}

func TestStore_FlushFailureKeepsDirty(t *testing.T) {
	ctx := context.Background()
	backend := newFlaky()
	backend.saveErr["java"] = errors.New("disk full")

	s := New(backend)
	require.NoError(t, s.SetDiff("java", scenarioDiff()))
	require.NoError(t, s.SetDiff("kotlin", scenarioDiff()))

	err := s.Flush(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "java", perr.Classifier)
	assert.Equal(t, "save", perr.Op)

	assert.Equal(t, []string{"java"}, s.Dirty())
	assert.True(t, s.GetDiff("java").Equal(scenarioDiff()))

	delete(backend.saveErr, "java")
	require.NoError(t, s.Flush(ctx))
	assert.Empty(t, s.Dirty())
}

func TestStore_FlushNothingDirty(t *testing.T) {
	backend := newFlaky()
	s := New(backend)
	require.NoError(t, s.Flush(context.Background()))
	assert.Empty(t, backend.saves)
}

func TestStore_Notifications(t *testing.T) {
	n := notify.New()
	defer n.Close()

	var changes []notify.Change
	n.Subscribe(func(c notify.Change) { changes = append(changes, c) })

	s := New(nil, WithNotifier(n))
	require.NoError(t, s.SetDiff("java", scenarioDiff()))
	require.NoError(t, s.SetDiff("java", scenarioDiff()))
	s.Reset("java")

	require.Len(t, changes, 2)
	assert.Equal(t, notify.ChangeSet, changes[0].Type)
	assert.True(t, changes[0].New.Equal(scenarioDiff()))
	assert.Equal(t, notify.ChangeReset, changes[1].Type)
	assert.True(t, changes[1].Old.Equal(scenarioDiff()))
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()
	backend := newFlaky()
	n := notify.New()
	defer n.Close()

	var reloads int
	n.Subscribe(func(c notify.Change) {
		if c.Type == notify.ChangeReload {
			reloads++
		}
	})

	s := New(backend, WithNotifier(n))
	s.Load(ctx)
	assert.True(t, s.GetDiff("java").IsEmpty())

	require.NoError(t, backend.Backend.Save(ctx, "java", scenarioDiff()))
	require.NoError(t, backend.Backend.SaveOption(ctx, "java.opt", true))
	require.NoError(t, s.SetDiff("kotlin", scenarioDiff()))
	assert.True(t, s.GetDiff("java").IsEmpty(), "cached before reload")

	require.NoError(t, s.Reload(ctx))

	assert.True(t, s.GetDiff("java").Equal(scenarioDiff()))
	assert.True(t, s.GetDiff("kotlin").Equal(scenarioDiff()))
	assert.Equal(t, []string{"kotlin"}, s.Dirty())
	v, ok := s.OptionValue("java.opt")
	assert.True(t, ok)
	assert.True(t, v)
	assert.Equal(t, 1, reloads)
}

func TestStore_ReloadListFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	backend := newFlaky()
	require.NoError(t, backend.Backend.Save(ctx, "java", scenarioDiff()))

	s := New(backend)
	s.Load(ctx)
	require.True(t, s.GetDiff("java").Equal(scenarioDiff()))
	loads := backend.loadCount()

	backend.listErr = errors.New("connection refused")
	err := s.Reload(ctx)
	require.ErrorIs(t, err, ErrPersistence)

	assert.True(t, s.GetDiff("java").Equal(scenarioDiff()))
	assert.Equal(t, loads, backend.loadCount(), "cache must survive a failed reload")
}

func TestStore_LazyLoadIsCached(t *testing.T) {
	ctx := context.Background()
	backend := newFlaky()
	require.NoError(t, backend.Backend.Save(ctx, "java", scenarioDiff()))

	s := New(backend)
	for range 5 {
		assert.True(t, s.GetDiff("java").Equal(scenarioDiff()))
		assert.True(t, s.GetDiff("go").IsEmpty())
	}
	assert.Equal(t, 2, backend.loadCount())

	require.NoError(t, s.SetDiff("java", setdiff.Build(setdiff.NewSet("x"), setdiff.NewSet[string]())))
	require.NoError(t, s.Flush(ctx))
	assert.True(t, s.GetDiff("java").Removed().Has("x"))
	assert.Equal(t, 2, backend.loadCount(), "a flushed diff is served from the cache")
}

func TestStore_FailedLoadIsRetried(t *testing.T) {
	ctx := context.Background()
	backend := newFlaky()
	require.NoError(t, backend.Backend.Save(ctx, "java", scenarioDiff()))
	backend.loadErr = errors.New("storage unavailable")

	s := New(backend)
	assert.True(t, s.GetDiff("java").IsEmpty())

	backend.mu.Lock()
	backend.loadErr = nil
	backend.mu.Unlock()
	assert.True(t, s.GetDiff("java").Equal(scenarioDiff()))
	assert.True(t, s.GetDiff("java").Equal(scenarioDiff()))
	assert.Equal(t, 2, backend.loadCount())
}

func TestStore_CacheEviction(t *testing.T) {
	backend := newFlaky()
	s := New(backend, WithCacheSize(1))

	s.GetDiff("java")
	s.GetDiff("kotlin")
	s.GetDiff("java")
	assert.Equal(t, 3, backend.loadCount())

	s.GetDiff("java")
	assert.Equal(t, 3, backend.loadCount())
}

func TestStore_OptionValues(t *testing.T) {
	ctx := context.Background()
	backend := persist.NewMemory()
	s := New(backend)

	_, ok := s.OptionValue("java.opt")
	assert.False(t, ok)

	s.SetOptionValue("java.opt", true)
	v, ok := s.OptionValue("java.opt")
	assert.True(t, ok)
	assert.True(t, v)
	require.NoError(t, s.Flush(ctx))

	stored, err := backend.LoadOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"java.opt": true}, stored)

	fresh := New(backend)
	fresh.Load(ctx)
	v, ok = fresh.OptionValue("java.opt")
	assert.True(t, ok)
	assert.True(t, v)
}

func TestStore_ConcurrentReadersSeeWrites(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := setdiff.Build(setdiff.NewSet[string](), setdiff.NewSet(string(rune('a'+i))))
			assert.NoError(t, s.SetDiff("java", d))
			_ = s.GetDiff("java")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.GetDiff("java").Added().Len())
}
