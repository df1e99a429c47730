// Package artifacts fetches built component artifacts from the storage
// backend the build pipeline published them to.
package artifacts

import (
	"context"
	"errors"
	"fmt"
)

// Store is the artifact storage backend. Implementations must be safe for
// concurrent use; every component task fetches independently.
type Store interface {
	// Fetch downloads the artifact at remotePath into destPath, creating
	// parent directories as needed. The destination is written atomically:
	// a partial download never lands at destPath.
	Fetch(ctx context.Context, remotePath, destPath string) error
	// Read returns the raw content of the object at remotePath.
	Read(ctx context.Context, remotePath string) ([]byte, error)
}

// FetchError represents a failed artifact download. The owning component is
// marked errored; the failure never aborts sibling components.
type FetchError struct {
	RemotePath string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("artifact fetch error (%s): %v", e.RemotePath, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(remotePath string, err error) *FetchError {
	return &FetchError{RemotePath: remotePath, Err: err}
}

// IsFetchError checks if the error is or wraps a FetchError
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return err != nil && errors.As(err, &fetchErr)
}
