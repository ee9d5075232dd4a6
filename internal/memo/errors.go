package memo

import (
	"errors"
	"fmt"
)

// ErrNilValue is matched by the panic value raised when a creation function
// returns a nil result.
var ErrNilValue = errors.New("memo: creation function returned nil")

// InvariantError is the panic value raised when a creation function breaks
// its contract. It is a programming error, not a runtime condition.
type InvariantError struct {
	// Key is the key the creation function was called with.
	Key any
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Key == nil {
		return "memo: creation function returned nil for the absent key"
	}
	return fmt.Sprintf("memo: creation function returned nil for key %v", e.Key)
}

// Is implements error matching for InvariantError.
func (e *InvariantError) Is(target error) bool {
	return target == ErrNilValue
}
