package provider

import (
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

//go:embed builtin.toml
var builtinData []byte

type builtinFile struct {
	Languages []builtinLanguage `toml:"language"`
}

type builtinLanguage struct {
	ID          string          `toml:"id"`
	Name        string          `toml:"name"`
	Blacklist   []string        `toml:"blacklist"`
	NoBlacklist bool            `toml:"no_blacklist"`
	Explanation string          `toml:"explanation"`
	Options     []builtinOption `toml:"option"`
}

type builtinOption struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Default bool   `toml:"default"`
}

// Builtins returns fresh providers for the bundled languages. Each call
// returns independent option state.
func Builtins() ([]Provider, error) {
	return Parse(builtinData)
}

// Parse decodes providers from a TOML document in the builtin.toml layout.
func Parse(data []byte) ([]Provider, error) {
	var f builtinFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}

	out := make([]Provider, 0, len(f.Languages))
	for _, l := range f.Languages {
		opts := make([]*Option, 0, len(l.Options))
		for _, o := range l.Options {
			opts = append(opts, NewOption(o.ID, o.Name, o.Default))
		}
		out = append(out, &Static{
			Lang:            Language{ID: l.ID, DisplayName: l.Name},
			Blacklist:       l.Blacklist,
			NoBlacklist:     l.NoBlacklist,
			OptionList:      opts,
			ExplanationText: l.Explanation,
		})
	}
	return out, nil
}

// BuiltinRegistry returns a registry of the bundled languages.
func BuiltinRegistry() (*Registry, error) {
	ps, err := Builtins()
	if err != nil {
		return nil, err
	}
	return NewRegistry(ps...)
}
