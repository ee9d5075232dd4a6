package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// File stores every classifier's diff in a single TOML or YAML file:
//
//	[languages.java]
//	  added = ["my.pkg.Foo"]
//	  removed = ["java.util.*"]
//
//	[options]
//	  "java.show.for.non.literals" = true
//
// Writes go to a temporary file that is renamed over the original.
type File struct {
	mu    sync.Mutex
	path  string
	codec Codec
}

// NewFile creates a file backend. The codec is chosen from the extension.
func NewFile(path string) (*File, error) {
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	return NewFileWithCodec(path, codec), nil
}

// NewFileWithCodec creates a file backend with an explicit codec.
func NewFileWithCodec(path string, codec Codec) *File {
	return &File{path: path, codec: codec}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load implements Backend.
func (f *File) Load(_ context.Context, classifier string) (setdiff.Diff[string], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if err != nil {
		return setdiff.Diff[string]{}, err
	}
	rec, ok := doc.Languages[classifier]
	if !ok {
		return setdiff.Diff[string]{}, ErrNotFound
	}
	return rec.Diff(), nil
}

// Save implements Backend.
func (f *File) Save(_ context.Context, classifier string, d setdiff.Diff[string]) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if err != nil {
		return err
	}
	if d.IsEmpty() {
		if _, ok := doc.Languages[classifier]; !ok {
			return nil
		}
		delete(doc.Languages, classifier)
	} else {
		doc.Languages[classifier] = RecordOf(d)
	}
	return f.writeLocked(doc)
}

// List implements Backend.
func (f *File) List(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(doc.Languages))
	for k := range doc.Languages {
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

// LoadOptions implements Backend.
func (f *File) LoadOptions(_ context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if err != nil {
		return nil, err
	}
	return doc.Options, nil
}

// SaveOption implements Backend.
func (f *File) SaveOption(_ context.Context, id string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if err != nil {
		return err
	}
	if v, ok := doc.Options[id]; ok && v == value {
		return nil
	}
	doc.Options[id] = value
	return f.writeLocked(doc)
}

func (f *File) readLocked() (Document, error) {
	doc := Document{Languages: make(map[string]Record), Options: make(map[string]bool)}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read %s: %w", f.path, err)
	}
	if err := f.codec.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if doc.Languages == nil {
		doc.Languages = make(map[string]Record)
	}
	if doc.Options == nil {
		doc.Options = make(map[string]bool)
	}
	return doc, nil
}

func (f *File) writeLocked(doc Document) error {
	data, err := f.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
