package session

import (
	"slices"

	"github.com/dshills/hintprefs/internal/pattern"
	"github.com/dshills/hintprefs/internal/provider"
	"github.com/dshills/hintprefs/internal/setdiff"
)

// Range is a byte range in a panel's text.
type Range struct {
	Start int
	End   int
}

// Panel is the editable exclusion list of one language within a session.
type Panel struct {
	provider  provider.Provider
	text      string
	invalid   []int
	selection *Range
}

func newPanel(p provider.Provider, effective setdiff.Set[string]) *Panel {
	pn := &Panel{provider: p}
	pn.SetText(pattern.Join(setdiff.Sorted(effective)))
	return pn
}

// Language returns the language being edited.
func (p *Panel) Language() provider.Language {
	return p.provider.Language()
}

// Explanation describes the pattern syntax for the language.
func (p *Panel) Explanation() string {
	return p.provider.Explanation()
}

// Text returns the current pattern text, one pattern per line.
func (p *Panel) Text() string {
	return p.text
}

// SetText replaces the pattern text and revalidates it.
func (p *Panel) SetText(text string) {
	p.text = text
	p.invalid = pattern.InvalidLines(text)
	p.selection = nil
}

// InvalidLines returns the zero-based numbers of malformed lines.
func (p *Panel) InvalidLines() []int {
	return slices.Clone(p.invalid)
}

// Valid reports whether every line holds a well-formed pattern.
func (p *Panel) Valid() bool {
	return len(p.invalid) == 0
}

// Selection returns the range of the most recently appended pattern.
func (p *Panel) Selection() (Range, bool) {
	if p.selection == nil {
		return Range{}, false
	}
	return *p.selection, true
}

// Patterns returns the parsed patterns in text order.
func (p *Panel) Patterns() []string {
	return pattern.ParseLines(p.text)
}

// appendPattern adds pat on a new line and selects it.
func (p *Panel) appendPattern(pat string) {
	text := p.text
	if text != "" {
		text += "\n"
	}
	start := len(text)
	p.SetText(text + pat)
	p.selection = &Range{Start: start, End: len(p.text)}
}

// customized returns the edited set of patterns.
func (p *Panel) customized() setdiff.Set[string] {
	return setdiff.NewSet(p.Patterns()...)
}
