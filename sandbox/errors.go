package sandbox

import (
	"errors"
	"fmt"
)

// EnvironmentError represents a failure to provision or prepare an isolated
// test environment. The owning component is marked errored, not failed: no
// verdict about the component itself was reached.
type EnvironmentError struct {
	Err error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// NewEnvironmentError creates a new EnvironmentError
func NewEnvironmentError(err error) *EnvironmentError {
	return &EnvironmentError{Err: err}
}

// IsEnvironmentError checks if the error is or wraps an EnvironmentError
func IsEnvironmentError(err error) bool {
	var envErr *EnvironmentError
	return err != nil && errors.As(err, &envErr)
}
