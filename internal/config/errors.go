package config

import (
	"errors"
	"fmt"

	"github.com/dshills/hintprefs/internal/config/loader"
)

var (
	// ErrInvalidBackend indicates an unknown storage backend name.
	ErrInvalidBackend = errors.New("invalid storage backend")

	// ErrValidationFailed is matched by every ValidationError.
	ErrValidationFailed = errors.New("validation failed")
)

// ParseError represents an error while parsing a configuration file.
type ParseError = loader.ParseError

// ValidationError describes an unusable setting.
type ValidationError struct {
	// Path is the setting path, e.g. "postgres.dsn".
	Path string
	// Message describes the problem.
	Message string
	// Value is the offending value, if any.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got %v)", e.Path, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Is implements error matching for ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
