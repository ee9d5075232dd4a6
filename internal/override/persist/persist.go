// Package persist holds the storage backends behind an override store.
//
// Every backend stores one diff per classifier. A diff is kept as two string
// lists, added and removed; list order is only for readability and carries no
// meaning. Saving an empty diff deletes the classifier's entry.
//
// Backends also keep provider option values, keyed by option ID, next to the
// diffs.
package persist

import (
	"context"
	"errors"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// ErrNotFound is returned by Load when nothing is stored for a classifier.
var ErrNotFound = errors.New("no stored diff")

// Backend is a durable home for per-classifier diffs.
type Backend interface {
	// Load returns the stored diff for classifier, or ErrNotFound.
	Load(ctx context.Context, classifier string) (setdiff.Diff[string], error)

	// Save replaces the stored diff for classifier.
	Save(ctx context.Context, classifier string, d setdiff.Diff[string]) error

	// List returns every classifier with a stored diff, sorted.
	List(ctx context.Context) ([]string, error)

	// LoadOptions returns every stored option value keyed by option ID.
	LoadOptions(ctx context.Context) (map[string]bool, error)

	// SaveOption stores the value of one option.
	SaveOption(ctx context.Context, id string, value bool) error
}

// Record is the serialized form of a diff.
type Record struct {
	Added   []string `toml:"added" yaml:"added" json:"added"`
	Removed []string `toml:"removed" yaml:"removed" json:"removed"`
}

// RecordOf converts a diff to its serialized form with sorted lists.
func RecordOf(d setdiff.Diff[string]) Record {
	return Record{
		Added:   setdiff.Sorted(d.Added()),
		Removed: setdiff.Sorted(d.Removed()),
	}
}

// Diff converts a record back to a diff. Duplicate entries collapse.
func (r Record) Diff() setdiff.Diff[string] {
	return setdiff.Of(setdiff.NewSet(r.Added...), setdiff.NewSet(r.Removed...))
}
