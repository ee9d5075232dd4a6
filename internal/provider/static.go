package provider

import (
	"slices"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// Static is a Provider backed by fixed data.
type Static struct {
	Lang            Language
	Blacklist       []string
	NoBlacklist     bool
	OptionList      []*Option
	ExplanationText string
}

// Language implements Provider.
func (s *Static) Language() Language {
	return s.Lang
}

// DefaultBlacklist implements Provider.
func (s *Static) DefaultBlacklist() setdiff.Set[string] {
	return setdiff.NewSet(s.Blacklist...)
}

// SupportsBlacklist implements Provider.
func (s *Static) SupportsBlacklist() bool {
	return !s.NoBlacklist
}

// Options implements Provider.
func (s *Static) Options() []*Option {
	return slices.Clone(s.OptionList)
}

// Explanation implements Provider.
func (s *Static) Explanation() string {
	if s.ExplanationText == "" {
		return DefaultExplanation
	}
	return s.ExplanationText
}
