// Package runner dispatches one verification task per manifest component,
// bounded by the agent's capacity and staggered so simultaneous environment
// creation does not overwhelm shared infrastructure. Every task runs to a
// terminal outcome; one component's failure never short-circuits another's
// verification.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/infra/op-verifier/artifacts"
	"github.com/ethereum-optimism/infra/op-verifier/logging"
	"github.com/ethereum-optimism/infra/op-verifier/manifest"
	"github.com/ethereum-optimism/infra/op-verifier/metrics"
	"github.com/ethereum-optimism/infra/op-verifier/sandbox"
	"github.com/ethereum-optimism/infra/op-verifier/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultStaggerInterval  = 20 * time.Second
	DefaultRunTimeout       = 4 * time.Hour
	DefaultComponentTimeout = 1 * time.Hour

	containerWorkDir     = "/work"
	containerArtifactDir = "/work/artifact"
	containerOutDir      = "/work/out"
)

// Runner executes one verification run for a build manifest
type Runner interface {
	Run(ctx context.Context) (*Summary, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Manifest         *manifest.BuildManifest
	Tests            *manifest.TestManifest // optional; built-in checks apply without one
	Store            artifacts.Store
	Runtime          sandbox.Runtime
	RunLog           *logging.RunLog // optional
	JobName          string          // build job whose artifact root is fetched from
	WorkDir          string          // root for per-task workspaces
	SandboxImage     string
	AgentLabel       string
	StaggerInterval  time.Duration
	Concurrency      int // 0 means one goroutine per component
	RunTimeout       time.Duration
	ComponentTimeout time.Duration
	Retries          int // infrastructure retries per component; failed verdicts are final
	Log              log.Logger
}

type runner struct {
	manifest         *manifest.BuildManifest
	tests            *manifest.TestManifest
	store            artifacts.Store
	runtime          sandbox.Runtime
	runLog           *logging.RunLog
	artifactRoot     string
	workDir          string
	sandboxImage     string
	agentLabel       string
	stagger          time.Duration
	concurrency      int
	runTimeout       time.Duration
	componentTimeout time.Duration
	retries          int
	log              log.Logger
	tracer           trace.Tracer
}

// NewRunner creates a new runner instance
func NewRunner(cfg Config) (Runner, error) {
	if cfg.Manifest == nil {
		return nil, fmt.Errorf("build manifest is required")
	}
	if len(cfg.Manifest.Components) == 0 {
		return nil, fmt.Errorf("build manifest lists no components")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("sandbox runtime is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if cfg.SandboxImage == "" {
		return nil, fmt.Errorf("sandbox image is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	jobName := cfg.JobName
	if jobName == "" {
		jobName = "build"
	}
	agentLabel := cfg.AgentLabel
	if agentLabel == "" {
		agentLabel = "unknown"
	}
	if cfg.StaggerInterval < 0 {
		cfg.StaggerInterval = 0
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.ComponentTimeout <= 0 {
		cfg.ComponentTimeout = DefaultComponentTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	cfg.Log.Debug("NewRunner()", "jobName", jobName, "workDir", cfg.WorkDir,
		"stagger", cfg.StaggerInterval, "concurrency", cfg.Concurrency,
		"runTimeout", cfg.RunTimeout, "componentTimeout", cfg.ComponentTimeout,
		"retries", cfg.Retries, "agentLabel", agentLabel)

	return &runner{
		manifest:         cfg.Manifest,
		tests:            cfg.Tests,
		store:            cfg.Store,
		runtime:          cfg.Runtime,
		runLog:           cfg.RunLog,
		artifactRoot:     cfg.Manifest.ArtifactRootFor(jobName),
		workDir:          cfg.WorkDir,
		sandboxImage:     cfg.SandboxImage,
		agentLabel:       agentLabel,
		stagger:          cfg.StaggerInterval,
		concurrency:      cfg.Concurrency,
		runTimeout:       cfg.RunTimeout,
		componentTimeout: cfg.ComponentTimeout,
		retries:          cfg.Retries,
		log:              cfg.Log,
		tracer:           otel.Tracer("verification runner"),
	}, nil
}

// Run implements the Runner interface. It dispatches every component task,
// waits for all of them to reach a terminal outcome, and reduces the results
// into a single summary. The returned error is run-level only (timeout or
// cancellation); component failures are reported through the summary.
func (r *runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	if r.runLog != nil {
		runID = r.runLog.RunID()
	}
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "verification run")
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()

	tasks := BuildTasks(r.manifest.Components, r.stagger, r.workDir)
	collector := NewCollector(r.manifest.ComponentNames())
	capacity := r.capacity(len(tasks))

	r.log.Info("Starting verification run",
		"run_id", runID,
		"distribution", r.manifest.Distribution,
		"build_id", r.manifest.BuildID,
		"components", len(tasks),
		"capacity", capacity,
		"stagger", r.stagger)

	p := pool.New().WithMaxGoroutines(capacity)
	for _, task := range tasks {
		p.Go(func() {
			res := r.runTask(runCtx, runID, task)
			if err := collector.Record(task.Component.Name, res); err != nil {
				r.log.Error("Failed to record component result", "component", task.Component.Name, "err", err)
				metrics.RecordErrorDetails("record_result", err)
			}
			// the workspace is reclaimed as soon as the result is in,
			// whatever the outcome
			if err := os.RemoveAll(task.Workspace); err != nil {
				r.log.Warn("Failed to remove task workspace", "workspace", task.Workspace, "err", err)
			}
		})
	}
	p.Wait()

	var runErr error
	if cause := runCtx.Err(); cause != nil {
		if errors.Is(cause, context.DeadlineExceeded) && ctx.Err() == nil {
			runErr = NewTimeoutError("verification run", r.runTimeout)
		} else {
			runErr = fmt.Errorf("verification run aborted: %w", context.Cause(ctx))
		}
		r.recordMissing(collector, runErr)
	}

	summary := BuildSummary(runID, r.manifest, r.agentLabel, collector.Results(), start)
	r.log.Info("Verification run complete",
		"run_id", runID,
		"overall", summary.Overall,
		"passed", summary.Stats.Passed,
		"failed", summary.Stats.Failed,
		"errored", summary.Stats.Errored,
		"duration", summary.Duration)
	return summary, runErr
}

// capacity bounds the number of concurrently executing tasks.
func (r *runner) capacity(tasks int) int {
	if r.concurrency > 0 && r.concurrency < tasks {
		return r.concurrency
	}
	if tasks < 1 {
		return 1
	}
	return tasks
}

// recordMissing marks every component without a result as errored. This only
// happens when the run deadline expired before a task could record anything.
func (r *runner) recordMissing(collector *Collector, reason error) {
	versions := make(map[string]string, len(r.manifest.Components))
	for _, c := range r.manifest.Components {
		versions[c.Name] = c.Version
	}
	for _, name := range collector.Missing() {
		res := &types.ComponentResult{
			Component: name,
			Version:   versions[name],
			Outcome:   types.OutcomeErrored,
			Reason:    reason,
		}
		if err := collector.Record(name, res); err != nil {
			r.log.Error("Failed to record missing component result", "component", name, "err", err)
		}
	}
}

// runTask drives one component from staggered start to terminal outcome. It
// never returns nil and never panics: any fault is contained in the returned
// result so sibling tasks are undisturbed.
func (r *runner) runTask(ctx context.Context, runID string, task *Task) (res *types.ComponentResult) {
	c := task.Component
	lgr := r.log.New("component", c.Name, "version", c.Version)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			lgr.Error("Component verification panicked", "panic", p)
			res = &types.ComponentResult{
				Component: c.Name,
				Version:   c.Version,
				Outcome:   types.OutcomeErrored,
				Reason:    fmt.Errorf("panic during verification: %v", p),
				Duration:  time.Since(start),
				Attempts:  1,
			}
		}
		metrics.RecordComponentResult(r.agentLabel, runID, c.Name, res.Outcome, res.Duration)
	}()

	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("component %s", c.Name))
	defer span.End()

	if task.StartDelay > 0 {
		lgr.Debug("Waiting for staggered start", "delay", task.StartDelay)
		if !sleepCtx(ctx, task.StartDelay) {
			return r.abortedResult(ctx, c, start)
		}
	}

	lgr.Info("Component verification started", "delay", task.StartDelay)

	attempts := r.retries + 1
	for attempt := 1; ; attempt++ {
		res = r.attemptComponent(ctx, lgr, task)
		res.Attempts = attempt
		if res.Outcome != types.OutcomeErrored || attempt >= attempts || ctx.Err() != nil {
			break
		}
		// only infrastructure outcomes are retried; a failed verdict is final
		lgr.Warn("Component verification errored, retrying", "attempt", attempt, "err", res.Reason)
	}

	res.Duration = time.Since(start)
	if res.Outcome != types.OutcomePassed && r.runLog != nil {
		if err := r.runLog.MarkFailed(c.Name); err != nil {
			lgr.Warn("Failed to mark component as failed", "err", err)
		}
	}
	lgr.Info("Component verification finished",
		"outcome", res.Outcome,
		"attempts", res.Attempts,
		"duration", res.Duration,
		"err", res.Reason)
	return res
}

// abortedResult is the terminal result for a task overtaken by run-level
// timeout or cancellation before it could finish an attempt.
func (r *runner) abortedResult(ctx context.Context, c manifest.ComponentRef, start time.Time) *types.ComponentResult {
	var reason error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = NewTimeoutError("verification run", r.runTimeout)
	} else {
		reason = fmt.Errorf("verification aborted: %w", context.Cause(ctx))
	}
	return &types.ComponentResult{
		Component: c.Name,
		Version:   c.Version,
		Outcome:   types.OutcomeErrored,
		Reason:    reason,
		Duration:  time.Since(start),
		Attempts:  1,
	}
}

// attemptComponent runs one verification attempt under the per-component
// deadline and classifies the outcome.
func (r *runner) attemptComponent(ctx context.Context, lgr log.Logger, task *Task) *types.ComponentResult {
	c := task.Component
	start := time.Now()
	res := &types.ComponentResult{Component: c.Name, Version: c.Version}

	cctx, cancel := context.WithTimeout(ctx, r.componentTimeout)
	defer cancel()

	err := r.verifyComponent(cctx, lgr, task, res)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			err = NewTimeoutError("verification run", r.runTimeout)
		} else {
			err = NewTimeoutError(fmt.Sprintf("component %s", c.Name), r.componentTimeout)
		}
	}

	res.Duration = time.Since(start)
	res.Reason = err
	switch {
	case err == nil:
		res.Outcome = types.OutcomePassed
	case IsTestExecutionFailure(err):
		res.Outcome = types.OutcomeFailed
	default:
		res.Outcome = types.OutcomeErrored
	}
	return res
}

// verifyComponent is the per-task pipeline: locate the artifact, fetch it
// into the task's workspace, and run the component's checks inside one
// sandbox. Diagnostics are salvaged into the run log whatever the outcome.
func (r *runner) verifyComponent(ctx context.Context, lgr log.Logger, task *Task, res *types.ComponentResult) error {
	c := task.Component

	remote, err := manifest.Locate(c, r.artifactRoot)
	if err != nil {
		return err
	}

	artifactDir := filepath.Join(task.Workspace, "artifact")
	outDir := filepath.Join(task.Workspace, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("preparing workspace: %w", err)
	}
	dest := filepath.Join(artifactDir, path.Base(remote))

	lgr.Debug("Fetching artifact", "remote", remote, "dest", dest)
	if err := r.store.Fetch(ctx, remote, dest); err != nil {
		return err
	}

	plan := r.tests.PlanFor(c.Version)
	image := r.sandboxImage
	if plan.Image != "" {
		image = plan.Image
	}

	spec := sandbox.Spec{
		Name:    c.Name,
		Image:   image,
		WorkDir: containerWorkDir,
		Env: map[string]string{
			"COMPONENT":         c.Name,
			"COMPONENT_VERSION": c.Version,
			"ARTIFACT":          containerArtifactDir + "/" + path.Base(remote),
			"OUTPUT_DIR":        containerOutDir,
		},
		Mounts: []sandbox.Mount{
			{Host: artifactDir, Container: containerArtifactDir, ReadOnly: true},
			{Host: outDir, Container: containerOutDir},
		},
	}

	verr := sandbox.WithInstance(ctx, lgr, r.runtime, spec, func(h sandbox.Handle) error {
		for _, check := range plan.Checks {
			if err := r.runCheck(ctx, lgr, h, task, check, res); err != nil {
				return err
			}
		}
		return nil
	})

	r.salvageReport(lgr, c.Name, outDir, res)
	return verr
}

// runCheck executes one check inside the sandbox and persists its output.
func (r *runner) runCheck(ctx context.Context, lgr log.Logger, h sandbox.Handle, task *Task, check manifest.Check, res *types.ComponentResult) error {
	cctx := ctx
	if check.Timeout != nil && *check.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, *check.Timeout)
		defer cancel()
	}

	lgr.Info("Running check", "check", check.Name)
	execRes, err := r.runtime.Run(cctx, h, check.Command)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && check.Timeout != nil {
			return NewTimeoutError(fmt.Sprintf("check %s", check.Name), *check.Timeout)
		}
		return fmt.Errorf("running check %q: %w", check.Name, err)
	}

	if r.runLog != nil {
		if logPath, werr := r.runLog.AppendComponentOutput(task.Component.Name, check.Name, execRes.Output); werr != nil {
			lgr.Warn("Failed to persist check output", "check", check.Name, "err", werr)
		} else {
			res.Diagnostics.LogPath = logPath
		}
	}
	res.Diagnostics.Excerpt = logging.Excerpt(execRes.Output)

	if execRes.ExitCode != 0 {
		return NewTestExecutionFailure(check.Name, execRes.ExitCode)
	}
	return nil
}

// salvageReport copies a harness-written report out of the workspace before
// it is reclaimed.
func (r *runner) salvageReport(lgr log.Logger, component, outDir string, res *types.ComponentResult) {
	if r.runLog == nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(outDir, "report.json"))
	if err != nil {
		return
	}
	reportPath := filepath.Join(r.runLog.RunDir(), component+"-report.json")
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		lgr.Warn("Failed to salvage component report", "err", err)
		return
	}
	res.Diagnostics.ReportPath = reportPath
}

// sleepCtx waits for the duration unless the context ends first, reporting
// whether the full wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
