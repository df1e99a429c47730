package verifier

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include configuration errors, unreachable infrastructure, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// VerificationFailureError represents a run whose components did not all pass
// (exit code 1). The orchestration itself worked; the build did not.
type VerificationFailureError struct {
	Message string
}

func (e *VerificationFailureError) Error() string {
	return fmt.Sprintf("verification failure: %s", e.Message)
}

// NewVerificationFailureError creates a new VerificationFailureError
func NewVerificationFailureError(message string) *VerificationFailureError {
	return &VerificationFailureError{Message: message}
}

// IsVerificationFailureError checks if the error is or wraps a VerificationFailureError
func IsVerificationFailureError(err error) bool {
	var failErr *VerificationFailureError
	return err != nil && errors.As(err, &failErr)
}
