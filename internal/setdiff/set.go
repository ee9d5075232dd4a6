// Package setdiff records how a customized set deviates from a baseline set.
//
// A Diff holds the elements added to and removed from a baseline. It is built
// once from a (baseline, customized) pair and can be applied to any baseline
// later, including one that changed since the diff was built:
//
//	d := setdiff.Build(defaults, edited)
//	effective := d.ApplyOn(newDefaults)
//
// Removed elements stay removed, added elements stay added, and baseline
// elements the diff does not mention pass through.
package setdiff

import (
	"cmp"
	"fmt"
	"slices"
)

// Set is an unordered collection of distinct elements.
type Set[T comparable] map[T]struct{}

// NewSet returns a set holding elems.
func NewSet[T comparable](elems ...T) Set[T] {
	s := make(Set[T], len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts e into s.
func (s Set[T]) Add(e T) {
	s[e] = struct{}{}
}

// Has reports whether e is in s.
func (s Set[T]) Has(e T) bool {
	_, ok := s[e]
	return ok
}

// Len returns the number of elements.
func (s Set[T]) Len() int {
	return len(s)
}

// Clone returns an independent copy of s. Cloning a nil set yields an empty,
// non-nil set.
func (s Set[T]) Clone() Set[T] {
	c := make(Set[T], len(s))
	for e := range s {
		c[e] = struct{}{}
	}
	return c
}

// Minus returns the elements of s that are not in o.
func (s Set[T]) Minus(o Set[T]) Set[T] {
	r := make(Set[T])
	for e := range s {
		if _, ok := o[e]; !ok {
			r[e] = struct{}{}
		}
	}
	return r
}

// Intersect returns the elements present in both s and o.
func (s Set[T]) Intersect(o Set[T]) Set[T] {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	r := make(Set[T])
	for e := range small {
		if _, ok := large[e]; ok {
			r[e] = struct{}{}
		}
	}
	return r
}

// Equal reports whether s and o hold the same elements.
func (s Set[T]) Equal(o Set[T]) bool {
	if len(s) != len(o) {
		return false
	}
	for e := range s {
		if _, ok := o[e]; !ok {
			return false
		}
	}
	return true
}

// Slice returns the elements of s in unspecified order.
func (s Set[T]) Slice() []T {
	out := make([]T, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	return out
}

// Sorted returns the elements of s in ascending order, for presentation.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := s.Slice()
	slices.Sort(out)
	return out
}

// sortedAny orders elements by their formatted value.
func sortedAny[T comparable](s Set[T]) []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, fmt.Sprint(e))
	}
	slices.Sort(out)
	return out
}
