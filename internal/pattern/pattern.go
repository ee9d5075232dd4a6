// Package pattern parses, validates and matches parameter-hint exclusion
// patterns.
//
// A pattern names the calls for which inline parameter-name hints are
// suppressed. It has an optional qualified method name and an optional
// parameter list, at least one of which must be present:
//
//	java.lang.Math.*
//	*.set*(*)
//	(begin*, end*)
//	*Exception
//
// Both parts accept '*' and '?' wildcards.
package pattern

import (
	"regexp"
	"strings"
)

var (
	namePart  = `[\p{L}\p{N}_$*?]+(?:\.[\p{L}\p{N}_$*?]+)*`
	paramPart = `\s*[\p{L}\p{N}_$*?]+\s*`
	syntax    = regexp.MustCompile(`^(` + namePart + `)?(\((?:` + paramPart + `(?:,` + paramPart + `)*)?\))?$`)
)

// Valid reports whether p is a well-formed pattern. Surrounding whitespace is
// ignored; the empty pattern is not valid.
func Valid(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" {
		return false
	}
	return syntax.MatchString(p)
}

// InvalidLines returns the zero-based numbers of the lines in text that hold a
// malformed pattern. Blank lines are never reported.
func InvalidLines(text string) []int {
	var invalid []int
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !Valid(line) {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

// ParseLines splits text into patterns, one per line. Lines are trimmed,
// blank lines are dropped and duplicates keep their first position.
func ParseLines(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(text, "\n") {
		p := strings.TrimSpace(line)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Join renders patterns one per line.
func Join(patterns []string) string {
	return strings.Join(patterns, "\n")
}
