package session

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPatterns is matched by a commit refused because of malformed
	// patterns.
	ErrInvalidPatterns = errors.New("invalid exclusion patterns")

	// ErrUnknownLanguage indicates no provider serves the classifier.
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrNoBlacklist indicates the language has no exclusion list to edit.
	ErrNoBlacklist = errors.New("language does not support exclusion patterns")
)

// ValidationError lists the malformed lines per language. Line numbers are
// zero-based.
type ValidationError struct {
	Invalid map[string][]int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	langs := make([]string, 0, len(e.Invalid))
	for l := range e.Invalid {
		langs = append(langs, l)
	}
	slices.Sort(langs)

	parts := make([]string, 0, len(langs))
	for _, l := range langs {
		lines := make([]string, 0, len(e.Invalid[l]))
		for _, n := range e.Invalid[l] {
			lines = append(lines, strconv.Itoa(n+1))
		}
		parts = append(parts, fmt.Sprintf("%s line %s", l, strings.Join(lines, ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPatterns, strings.Join(parts, "; "))
}

// Is implements error matching for ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPatterns
}
