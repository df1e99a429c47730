package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	managedLabel         = "dev.op-verifier.managed=true"
	dockerCreateTimeout  = 5 * time.Minute // includes image pull
	dockerDestroyTimeout = 1 * time.Minute
)

// dockerCLI is the seam between the runtime and the docker binary, so tests
// can script command results.
type dockerCLI interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, args ...string) (output string, exitCode int, err error)
}

type execDockerCLI struct{}

func (execDockerCLI) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (execDockerCLI) Run(ctx context.Context, args ...string) (string, int, error) {
	if len(args) == 0 {
		return "", 0, errors.New("docker command requires arguments")
	}
	cmd := exec.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// a kill by context expiry is not an exit code
		if ctxErr := ctx.Err(); ctxErr != nil {
			return string(output), 0, ctxErr
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			// the command ran; its exit code is the result
			return string(output), ee.ExitCode(), nil
		}
		return string(output), 0, err
	}
	return string(output), 0, nil
}

// DockerRuntime provisions sandboxes as docker containers driven through the
// docker CLI. Each Create starts an idle container; Run execs the harness
// command inside it; Destroy force-removes it.
type DockerRuntime struct {
	cli dockerCLI
}

// NewDockerRuntime creates a docker-backed runtime.
func NewDockerRuntime() *DockerRuntime {
	return &DockerRuntime{cli: execDockerCLI{}}
}

// Check verifies the docker CLI is available.
func (r *DockerRuntime) Check() error {
	if _, err := r.cli.LookPath("docker"); err != nil {
		return fmt.Errorf("docker CLI not found: %w", err)
	}
	return nil
}

// Create starts an idle container for the given Spec and returns its handle.
func (r *DockerRuntime) Create(ctx context.Context, spec Spec) (Handle, error) {
	if spec.Image == "" {
		return Handle{}, errors.New("sandbox image is required")
	}
	name := containerName(spec.Name)

	cctx, cancel := context.WithTimeout(ctx, dockerCreateTimeout)
	defer cancel()
	output, code, err := r.cli.Run(cctx, buildRunArgs(spec, name)...)
	if err != nil {
		return Handle{}, fmt.Errorf("starting sandbox container: %w", err)
	}
	if code != 0 {
		return Handle{}, fmt.Errorf("starting sandbox container: %s", strings.TrimSpace(output))
	}
	return Handle{ID: name}, nil
}

// Run executes argv inside the sandbox. The returned error is non-nil only
// when the command could not be executed at all; a non-zero exit comes back
// in the ExecResult.
func (r *DockerRuntime) Run(ctx context.Context, h Handle, argv []string) (ExecResult, error) {
	if len(argv) == 0 {
		return ExecResult{}, errors.New("command is required")
	}
	args := append([]string{"exec", h.ID}, argv...)
	output, code, err := r.cli.Run(ctx, args...)
	if err != nil {
		return ExecResult{}, err
	}
	return ExecResult{ExitCode: code, Output: output}, nil
}

// Destroy force-removes the sandbox container.
func (r *DockerRuntime) Destroy(ctx context.Context, h Handle) error {
	dctx, cancel := context.WithTimeout(ctx, dockerDestroyTimeout)
	defer cancel()
	output, code, err := r.cli.Run(dctx, "rm", "-f", h.ID)
	if err != nil {
		return fmt.Errorf("removing sandbox container: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("removing sandbox container: %s", strings.TrimSpace(output))
	}
	return nil
}

func buildRunArgs(spec Spec, name string) []string {
	args := []string{"run", "--pull=missing", "-d", "--name", name, "--label", managedLabel}
	if spec.WorkDir != "" {
		args = append(args, "-w", spec.WorkDir)
	}
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, spec.Env[k]))
	}
	for _, m := range spec.Mounts {
		bind := m.Host + ":" + m.Container
		if m.ReadOnly {
			bind += ":ro"
		}
		args = append(args, "-v", bind)
	}
	return append(args, spec.Image, "sleep", "infinity")
}

// containerName derives a docker-safe unique container name from an
// instance name hint.
func containerName(hint string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return '-'
	}, hint)
	sanitized = strings.Trim(sanitized, "-.")
	if sanitized == "" {
		sanitized = "sandbox"
	}
	return fmt.Sprintf("op-verifier-%s-%s", sanitized, uuid.NewString()[:8])
}
