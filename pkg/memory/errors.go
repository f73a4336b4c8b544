package memory

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable indicates that a vector store operation failed.
	// On the chat path this is always recovered locally: writes are dropped
	// and reads degrade to empty results.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// MemoryError wraps errors with operation context.
//
// Example:
//
//	err := &MemoryError{Op: "RetrieveRelevantMemories", Err: ErrStoreUnavailable}
//	// Error() returns: "memory: RetrieveRelevantMemories: vector store unavailable"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
// Returns nil if err is nil.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{Op: op, Err: err}
}
