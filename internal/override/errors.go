package override

import (
	"errors"
	"fmt"
)

// ErrPersistence is matched by errors from the persistence backend.
var ErrPersistence = errors.New("persistence failure")

// PersistenceError reports a failed backend operation for one classifier.
type PersistenceError struct {
	// Op is the backend operation: "load", "save", "list", "load options"
	// or "save option".
	Op string
	// Classifier is the affected language, or the option ID for "save
	// option". It is empty for "list" and "load options".
	Classifier string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Classifier == "" {
		return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrPersistence, e.Op, e.Classifier, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
