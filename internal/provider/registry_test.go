package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/hintprefs/internal/pattern"
)

func TestBuiltins(t *testing.T) {
	r, err := BuiltinRegistry()
	require.NoError(t, err)

	java, ok := r.Lookup("Java")
	require.True(t, ok)
	assert.Equal(t, "Java", java.Language().DisplayName)
	assert.True(t, java.SupportsBlacklist())
	assert.True(t, java.DefaultBlacklist().Has("java.lang.Math.*"))
	assert.Len(t, java.Options(), 2)
	assert.Equal(t, DefaultExplanation, java.Explanation())

	xml, ok := r.Lookup("xml")
	require.True(t, ok)
	assert.False(t, xml.SupportsBlacklist())
	assert.NotEqual(t, DefaultExplanation, xml.Explanation())
}

func TestBuiltins_PatternsAreValid(t *testing.T) {
	ps, err := Builtins()
	require.NoError(t, err)

	for _, p := range ps {
		for e := range p.DefaultBlacklist() {
			assert.Truef(t, pattern.Valid(e), "%s: invalid builtin pattern %q", p.Language().ID, e)
		}
	}
}

func TestBuiltins_IndependentOptionState(t *testing.T) {
	a, err := Builtins()
	require.NoError(t, err)
	b, err := Builtins()
	require.NoError(t, err)

	a[0].Options()[0].Set(true)
	assert.False(t, b[0].Options()[0].Get())
}

func TestRegistry_Languages(t *testing.T) {
	r, err := NewRegistry(
		&Static{Lang: Language{ID: "kotlin", DisplayName: "Kotlin"}},
		&Static{Lang: Language{ID: "go", DisplayName: "Go"}},
		&Static{Lang: Language{ID: "java", DisplayName: "Java"}},
		&Static{Lang: Language{ID: "xml", DisplayName: "XML"}},
	)
	require.NoError(t, err)

	var names []string
	for _, l := range r.Languages() {
		names = append(names, l.DisplayName)
	}
	assert.Equal(t, []string{"Go", "XML", "Java", "Kotlin"}, names)
}

func TestRegistry_Duplicate(t *testing.T) {
	_, err := NewRegistry(
		&Static{Lang: Language{ID: "java", DisplayName: "Java"}},
		&Static{Lang: Language{ID: "JAVA", DisplayName: "Java again"}},
	)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))

	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, r.Register(&Static{Lang: Language{ID: "  "}}))
}

func TestOption(t *testing.T) {
	o := NewOption("id", "Name", true)
	assert.True(t, o.Get())
	o.Set(false)
	assert.False(t, o.Get())
	assert.True(t, o.Default())
}
