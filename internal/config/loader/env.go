package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Kind is the type an environment value is converted to.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

// Binding maps one environment variable to a setting path.
type Binding struct {
	Path string
	Kind Kind
}

// EnvLoader loads settings from environment variables.
type EnvLoader struct {
	lookup   func(string) (string, bool)
	bindings map[string]Binding
}

// NewEnvLoader creates a loader for the given variable bindings.
func NewEnvLoader(bindings map[string]Binding) *EnvLoader {
	return &EnvLoader{lookup: os.LookupEnv, bindings: bindings}
}

// WithLookup replaces the environment lookup function.
func (l *EnvLoader) WithLookup(lookup func(string) (string, bool)) *EnvLoader {
	l.lookup = lookup
	return l
}

// Load reads every bound variable that is set.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	for env, b := range l.bindings {
		raw, ok := l.lookup(env)
		if !ok {
			continue
		}
		v, err := parseValue(b.Kind, raw)
		if err != nil {
			return nil, &EnvError{Var: env, Value: raw, Err: err}
		}
		setByPath(config, b.Path, v)
	}
	return config, nil
}

// EnvError reports an environment variable that could not be converted.
type EnvError struct {
	Var   string
	Value string
	Err   error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("environment variable %s=%q: %v", e.Var, e.Value, e.Err)
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

func parseValue(kind Kind, s string) (any, error) {
	switch kind {
	case KindInt:
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	case KindBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0", "":
			return false, nil
		}
		return nil, fmt.Errorf("not a boolean")
	default:
		return s, nil
	}
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
