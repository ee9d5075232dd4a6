// Package provider defines the per-language capability objects that supply
// baseline exclusion lists and boolean hint options.
package provider

import (
	"github.com/dshills/hintprefs/internal/setdiff"
)

// DefaultExplanation is shown for languages that do not describe their own
// pattern syntax.
const DefaultExplanation = "Hints are not shown for calls matching any pattern below. " +
	"Use a qualified method name, a parameter list, or both, e.g. *.set*(*) or (begin*, end*)."

// Language identifies a classifier and how to present it.
type Language struct {
	// ID is the classifier key, e.g. "java".
	ID string
	// DisplayName is the human-readable name, e.g. "Java".
	DisplayName string
}

// Provider supplies the baseline exclusion list and options for one language.
type Provider interface {
	// Language returns the language this provider serves.
	Language() Language

	// DefaultBlacklist returns the baseline set of patterns. Callers own the
	// returned set.
	DefaultBlacklist() setdiff.Set[string]

	// SupportsBlacklist reports whether the language honours exclusion
	// patterns at all.
	SupportsBlacklist() bool

	// Options returns the boolean options the language supports.
	Options() []*Option

	// Explanation describes the pattern syntax for this language.
	Explanation() string
}
