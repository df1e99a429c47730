package manifest

import (
	"errors"
	"fmt"
)

// ManifestError represents an invalid or unusable manifest document.
// It is always fatal: the orchestrator refuses to dispatch any work from a
// manifest it cannot fully trust, so this error surfaces before the first
// component task is launched.
type ManifestError struct {
	Source string // path or URL of the document, empty for in-memory manifests
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("manifest error: %v", e.Err)
	}
	return fmt.Sprintf("manifest error (%s): %v", e.Source, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ManifestError) Unwrap() error {
	return e.Err
}

// NewManifestError creates a new ManifestError
func NewManifestError(source string, err error) *ManifestError {
	return &ManifestError{Source: source, Err: err}
}

// IsManifestError checks if the error is or wraps a ManifestError
func IsManifestError(err error) bool {
	var manifestErr *ManifestError
	return err != nil && errors.As(err, &manifestErr)
}
