package setdiff

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOverlap is matched by errors reporting a diff that both adds and removes
// the same element.
var ErrOverlap = errors.New("diff adds and removes the same elements")

// OverlapError lists the elements present in both halves of a malformed diff.
type OverlapError struct {
	Elements []string
}

// Error implements the error interface.
func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %s", ErrOverlap, strings.Join(e.Elements, ", "))
}

// Is implements error matching for OverlapError.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

// Diff is the delta between a baseline set and a customized set. A Diff is
// immutable: accessors return copies and no method changes the receiver. The
// zero value is the empty diff.
type Diff[T comparable] struct {
	added   Set[T]
	removed Set[T]
}

// Empty returns a diff that changes nothing.
func Empty[T comparable]() Diff[T] {
	return Diff[T]{}
}

// Build computes the diff that turns baseline into customized.
func Build[T comparable](baseline, customized Set[T]) Diff[T] {
	return Diff[T]{
		added:   customized.Minus(baseline),
		removed: baseline.Minus(customized),
	}
}

// Of assembles a diff from stored halves, for example when reading it back
// from persistence. The inputs are copied.
func Of[T comparable](added, removed Set[T]) Diff[T] {
	return Diff[T]{
		added:   added.Clone(),
		removed: removed.Clone(),
	}
}

// Added returns a copy of the elements present in the customized set only.
func (d Diff[T]) Added() Set[T] {
	return d.added.Clone()
}

// Removed returns a copy of the elements present in the baseline only.
func (d Diff[T]) Removed() Set[T] {
	return d.removed.Clone()
}

// IsEmpty reports whether the diff changes nothing.
func (d Diff[T]) IsEmpty() bool {
	return len(d.added) == 0 && len(d.removed) == 0
}

// ApplyOn returns (baseline \ removed) ∪ added. Removal happens before
// addition. baseline is not modified.
func (d Diff[T]) ApplyOn(baseline Set[T]) Set[T] {
	out := make(Set[T], len(baseline)+len(d.added))
	for e := range baseline {
		if _, gone := d.removed[e]; !gone {
			out[e] = struct{}{}
		}
	}
	for e := range d.added {
		out[e] = struct{}{}
	}
	return out
}

// Equal reports whether d and o add and remove the same elements.
func (d Diff[T]) Equal(o Diff[T]) bool {
	return d.added.Equal(o.added) && d.removed.Equal(o.removed)
}

// Validate returns an *OverlapError when an element is both added and
// removed. Build never produces such a diff; stored diffs may.
func (d Diff[T]) Validate() error {
	both := d.added.Intersect(d.removed)
	if len(both) == 0 {
		return nil
	}
	return &OverlapError{Elements: sortedAny(both)}
}

// String renders the diff as "+[a b] -[c]" with elements in sorted order.
func (d Diff[T]) String() string {
	return fmt.Sprintf("+[%s] -[%s]",
		strings.Join(sortedAny(d.added), " "),
		strings.Join(sortedAny(d.removed), " "))
}
