package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func newWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 16)}
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_DetectsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklists.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t)
	rec := newRecorder()
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want, _ := filepath.Abs(path)
	if rec.events[0].Path != want {
		t.Errorf("Path = %q, want %q", rec.events[0].Path, want)
	}
}

func TestWatcher_DetectsRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklists.toml")

	w := newWatcher(t)
	rec := newRecorder()
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	tmp := filepath.Join(dir, ".blacklists.toml.tmp")
	if err := os.WriteFile(tmp, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	rec.wait(t)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklists.toml")

	w := newWatcher(t)
	rec := newRecorder()
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-rec.ch:
		t.Error("unexpected event for unwatched file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklists.toml")

	w, err := New(WithDebounce(150 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	rec := newRecorder()
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	for i := range 5 {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	rec.wait(t)
	time.Sleep(300 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 {
		t.Errorf("got %d events, want 1", len(rec.events))
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := newWatcher(t)
	err := w.Watch(filepath.Join(t.TempDir(), "nope", "file.toml"))
	if err != ErrPathNotExist {
		t.Errorf("err = %v, want ErrPathNotExist", err)
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")

	w := newWatcher(t)
	if err := w.Watch(a); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(b); err != nil {
		t.Fatal(err)
	}
	if got := len(w.WatchedFiles()); got != 2 {
		t.Fatalf("watching %d files, want 2", got)
	}

	if err := w.Unwatch(a); err != nil {
		t.Fatalf("Unwatch failed: %v", err)
	}
	if got := len(w.WatchedFiles()); got != 1 {
		t.Errorf("watching %d files, want 1", got)
	}
}

func TestWatcher_Close(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "x")); err != ErrWatcherClosed {
		t.Errorf("Watch after Close = %v, want ErrWatcherClosed", err)
	}
}

func TestWatcher_HandlerPanic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.toml")

	w := newWatcher(t)
	rec := newRecorder()
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(rec.handle)
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.wait(t)
}
