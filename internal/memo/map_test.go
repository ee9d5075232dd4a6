package memo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panel struct {
	lang string
}

func TestMap_GetComputesOnce(t *testing.T) {
	calls := map[string]int{}
	m := New(func(key string) *panel {
		calls[key]++
		return &panel{lang: key}
	})

	first := m.Get("java")
	for range 5 {
		require.Same(t, first, m.Get("java"))
	}

	assert.Equal(t, 1, calls["java"])
	assert.Equal(t, "java", first.lang)
	assert.Equal(t, 1, m.Len())
}

func TestMap_ContainsKeyDoesNotCompute(t *testing.T) {
	calls := 0
	m := New(func(key string) int {
		calls++
		return len(key)
	})

	assert.False(t, m.ContainsKey("kotlin"))
	assert.Equal(t, 0, calls)

	assert.Equal(t, 6, m.Get("kotlin"))
	assert.True(t, m.ContainsKey("kotlin"))
	assert.False(t, m.ContainsKey("java"))
	assert.Equal(t, 1, calls)
}

func TestMap_ZeroValueKeyIsARealKey(t *testing.T) {
	m := New(func(key string) string { return "v:" + key })

	assert.Equal(t, "v:", m.Get(""))
	assert.True(t, m.ContainsKey(""))
}

func TestMap_AbsentKey(t *testing.T) {
	var seen []*string
	m := New(func(key *string) string {
		seen = append(seen, key)
		if key == nil {
			return "any-language"
		}
		return *key
	})

	assert.False(t, m.ContainsKey(nil))
	assert.Equal(t, "any-language", m.Get(nil))
	assert.Equal(t, "any-language", m.Get(nil))
	assert.True(t, m.ContainsKey(nil))

	java := "java"
	assert.Equal(t, "java", m.Get(&java))
	assert.Len(t, seen, 2)
	assert.Nil(t, seen[0])
}

func TestMap_AbsentKeyDoesNotCollide(t *testing.T) {
	m := New(func(key any) string {
		if key == nil {
			return "absent"
		}
		return "real"
	})

	// Real keys that look like the internal sentinel shape stay distinct.
	assert.Equal(t, "real", m.Get(slot[any]{absent: true}))
	assert.Equal(t, "real", m.Get(struct{}{}))
	assert.False(t, m.ContainsKey(nil))

	assert.Equal(t, "absent", m.Get(nil))
	assert.Equal(t, 3, m.Len())
}

func TestMap_TypedNilKeysAreDistinct(t *testing.T) {
	calls := 0
	m := New(func(key any) string {
		calls++
		if key == nil {
			return "absent"
		}
		return "typed"
	})

	assert.Equal(t, "typed", m.Get((*int)(nil)))
	assert.False(t, m.ContainsKey((*string)(nil)))
	assert.False(t, m.ContainsKey(nil))

	assert.Equal(t, "typed", m.Get((*string)(nil)))
	assert.Equal(t, "absent", m.Get(nil))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, m.Len())
}

func TestMap_NilResultPanics(t *testing.T) {
	m := New(func(key string) *panel { return nil })

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrNilValue))
		assert.True(t, strings.Contains(err.Error(), "go"))
		assert.False(t, m.ContainsKey("go"))
	}()
	m.Get("go")
}
