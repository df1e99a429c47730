package runner

import (
	"errors"
	"fmt"
	"time"
)

// TestExecutionFailure represents a harness that ran to completion and
// reported failing checks. This is a verdict about the component, distinct
// from infrastructure errors: the component is marked failed, not errored.
type TestExecutionFailure struct {
	Check    string
	ExitCode int
}

func (e *TestExecutionFailure) Error() string {
	return fmt.Sprintf("check %q failed with exit code %d", e.Check, e.ExitCode)
}

// NewTestExecutionFailure creates a new TestExecutionFailure
func NewTestExecutionFailure(check string, exitCode int) *TestExecutionFailure {
	return &TestExecutionFailure{Check: check, ExitCode: exitCode}
}

// IsTestExecutionFailure checks if the error is or wraps a TestExecutionFailure
func IsTestExecutionFailure(err error) bool {
	var execErr *TestExecutionFailure
	return err != nil && errors.As(err, &execErr)
}

// DuplicateResultError represents a second result recorded for a component
// within one run. The first result always wins; the duplicate indicates a
// dispatch defect and is surfaced rather than silently merged.
type DuplicateResultError struct {
	Component string
}

func (e *DuplicateResultError) Error() string {
	return fmt.Sprintf("duplicate result for component %q", e.Component)
}

// NewDuplicateResultError creates a new DuplicateResultError
func NewDuplicateResultError(component string) *DuplicateResultError {
	return &DuplicateResultError{Component: component}
}

// IsDuplicateResultError checks if the error is or wraps a DuplicateResultError
func IsDuplicateResultError(err error) bool {
	var dupErr *DuplicateResultError
	return err != nil && errors.As(err, &dupErr)
}

// TimeoutError represents an exceeded deadline, either one component's or
// the whole run's. The affected components are marked errored; the run-level
// variant additionally aborts orchestration after the summary is built.
type TimeoutError struct {
	Scope string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded its %s timeout", e.Scope, e.Limit)
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(scope string, limit time.Duration) *TimeoutError {
	return &TimeoutError{Scope: scope, Limit: limit}
}

// IsTimeoutError checks if the error is or wraps a TimeoutError
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	return err != nil && errors.As(err, &timeoutErr)
}
