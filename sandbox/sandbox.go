// Package sandbox provisions the isolated environments component checks run
// in. Environments are created per component task, never shared, and always
// destroyed when the task finishes, whatever the outcome.
package sandbox

import "context"

// Mount binds a host path into the sandbox.
type Mount struct {
	Host      string
	Container string
	ReadOnly  bool
}

// Spec describes the environment a component's checks need.
type Spec struct {
	// Name is a human-readable hint used in runtime identifiers and logs,
	// typically the component name.
	Name    string
	Image   string
	WorkDir string
	Env     map[string]string
	Mounts  []Mount
}

// Handle identifies one live sandbox instance.
type Handle struct {
	ID string
}

// ExecResult is the outcome of one command run inside a sandbox. A non-zero
// exit code is a verdict from the harness, not an infrastructure error.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Runtime provisions and tears down sandboxes. Implementations must support
// concurrent independent instances; one component's sandbox never observes
// another's.
type Runtime interface {
	// Create provisions a sandbox from the given Spec and returns its handle.
	Create(ctx context.Context, spec Spec) (Handle, error)
	// Run executes argv inside the sandbox and returns its exit code and
	// combined output. The error is non-nil only for infrastructure
	// failures; harness verdicts come back in ExecResult.
	Run(ctx context.Context, h Handle, argv []string) (ExecResult, error)
	// Destroy tears the sandbox down. Destroying an already-gone sandbox
	// is an error the caller is expected to log, not act on.
	Destroy(ctx context.Context, h Handle) error
}
