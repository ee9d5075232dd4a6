package pattern

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/match"

	"github.com/dshills/hintprefs/internal/memo"
)

// Call describes a method invocation a hint would be shown for.
type Call struct {
	// Method is the fully qualified method name, e.g. "java.util.List.set".
	Method string
	// Params are the declared parameter names in order.
	Params []string
}

// Matches reports whether pattern p suppresses hints for c. A malformed
// pattern matches nothing.
func Matches(p string, c Call) bool {
	return compile(p).matches(c)
}

// compiled is a pattern split into its globs.
type compiled struct {
	valid     bool
	name      string
	params    []string
	hasParams bool
}

func compile(p string) *compiled {
	p = strings.TrimSpace(p)
	if !Valid(p) {
		return &compiled{}
	}
	name, params, hasParams := split(p)
	return &compiled{valid: true, name: name, params: params, hasParams: hasParams}
}

func (cp *compiled) matches(c Call) bool {
	if !cp.valid {
		return false
	}

	if cp.name != "" && !match.Match(c.Method, cp.name) {
		return false
	}
	if !cp.hasParams {
		return true
	}
	if len(cp.params) != len(c.Params) {
		return false
	}
	for i, want := range cp.params {
		if !match.Match(c.Params[i], want) {
			return false
		}
	}
	return true
}

// Matcher checks calls against one pattern list. Patterns are compiled on
// first use and kept for the life of the Matcher, so its memory is bounded by
// the list. A Matcher is safe for concurrent use.
type Matcher struct {
	patterns []string
	compiled *memo.Sync[string, *compiled]
}

// NewMatcher creates a Matcher over a copy of patterns.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{
		patterns: slices.Clone(patterns),
		compiled: memo.NewSync(compile),
	}
}

// Matching returns the patterns that suppress hints for c, in list order.
func (m *Matcher) Matching(c Call) []string {
	var out []string
	for _, p := range m.patterns {
		if m.compiled.Get(p).matches(c) {
			out = append(out, p)
		}
	}
	return out
}

// ErrInvalidCall indicates a call description that cannot be parsed.
var ErrInvalidCall = errors.New("invalid call")

// ParseCall parses a call written as "qualified.Name(param, ...)". The name
// is required and must not contain wildcards.
func ParseCall(s string) (Call, error) {
	s = strings.TrimSpace(s)
	if !Valid(s) || strings.ContainsAny(s, "*?") {
		return Call{}, fmt.Errorf("%w: %q", ErrInvalidCall, s)
	}
	name, params, _ := split(s)
	if name == "" {
		return Call{}, fmt.Errorf("%w: %q has no method name", ErrInvalidCall, s)
	}
	return Call{Method: name, Params: params}, nil
}

// split breaks a valid pattern into its name and parameter globs.
func split(p string) (name string, params []string, hasParams bool) {
	open := strings.IndexByte(p, '(')
	if open < 0 {
		return p, nil, false
	}
	name = p[:open]
	inner := strings.TrimSpace(p[open+1 : len(p)-1])
	if inner == "" {
		return name, []string{}, true
	}
	for _, part := range strings.Split(inner, ",") {
		params = append(params, strings.TrimSpace(part))
	}
	return name, params, true
}
