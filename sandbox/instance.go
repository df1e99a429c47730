package sandbox

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// WithInstance provisions a sandbox, runs body inside it, and destroys it on
// every exit path. Acquisition failures surface as EnvironmentError; teardown
// failures are logged and never mask body's outcome. Teardown runs on a fresh
// context so run cancellation cannot leak the sandbox.
func WithInstance(ctx context.Context, lgr log.Logger, rt Runtime, spec Spec, body func(Handle) error) error {
	h, err := rt.Create(ctx, spec)
	if err != nil {
		return NewEnvironmentError(fmt.Errorf("creating sandbox for %q: %w", spec.Name, err))
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dockerDestroyTimeout)
		defer cancel()
		if derr := rt.Destroy(dctx, h); derr != nil {
			lgr.Error("Failed to destroy sandbox", "sandbox", h.ID, "err", derr)
		}
	}()
	return body(h)
}
