package verifier

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-verifier/artifacts"
	"github.com/ethereum-optimism/infra/op-verifier/exitcodes"
	"github.com/ethereum-optimism/infra/op-verifier/logging"
	"github.com/ethereum-optimism/infra/op-verifier/manifest"
	"github.com/ethereum-optimism/infra/op-verifier/metrics"
	"github.com/ethereum-optimism/infra/op-verifier/notify"
	"github.com/ethereum-optimism/infra/op-verifier/runner"
	"github.com/ethereum-optimism/infra/op-verifier/sandbox"
	"github.com/ethereum-optimism/infra/op-verifier/service"
	"github.com/ethereum-optimism/infra/op-verifier/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// verifier implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &verifier{}

// verifier drives build verification runs: every component of the build
// manifest is tested in its own sandbox and the run's verdict is reported
// exactly once.
type verifier struct {
	ctx       context.Context
	config    *Config
	version   string
	manifest  *manifest.BuildManifest
	tests     *manifest.TestManifest
	store     artifacts.Store
	runtime   sandbox.Runtime
	scheduler Scheduler
	formatter SummaryFormatter
	reporter  MetricsReporter
	notifier  notify.Notifier
	service   *service.Service
	summary   *runner.Summary

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*verifier, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating verifier with config",
		"manifest", config.ManifestSource,
		"testManifest", config.TestManifestSource,
		"artifactSource", config.ArtifactSource,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	buildManifest, err := manifest.Load(ctx, config.ManifestSource)
	if err != nil {
		return nil, fmt.Errorf("failed to load build manifest: %w", err)
	}

	var testManifest *manifest.TestManifest
	if config.TestManifestSource != "" {
		testManifest, err = manifest.LoadTests(ctx, config.TestManifestSource)
		if err != nil {
			return nil, fmt.Errorf("failed to load test manifest: %w", err)
		}
	}

	runtime := sandbox.NewDockerRuntime()
	if err := runtime.Check(); err != nil {
		return nil, fmt.Errorf("sandbox runtime unavailable: %w", err)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if config.NotifyWebhook != "" {
		notifier, err = notify.NewWebhookNotifier(config.NotifyWebhook, config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create notifier: %w", err)
		}
	}

	config.Log.Info("verifier.New: loaded manifests and created collaborators",
		"distribution", buildManifest.Distribution,
		"buildID", buildManifest.BuildID,
		"components", len(buildManifest.Components))

	return &verifier{
		ctx:              ctx,
		config:           config,
		version:          version,
		manifest:         buildManifest,
		tests:            testManifest,
		store:            newStore(config),
		runtime:          runtime,
		scheduler:        NewDefaultScheduler(config.RunInterval, config.RunOnce, config.Log),
		formatter:        NewConsoleSummaryFormatter(config.Log),
		reporter:         NewDefaultMetricsReporter(),
		notifier:         notifier,
		service:          service.New(service.Config{HealthzAddr: config.HealthzAddr, MetricsAddr: config.MetricsAddr}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// newStore picks the artifact store for the configured source.
func newStore(config *Config) artifacts.Store {
	if manifest.IsRemote(config.ArtifactSource) {
		return artifacts.NewHTTPStore(config.ArtifactSource, config.Log, artifacts.WithAttempts(3))
	}
	return artifacts.NewDirStore(config.ArtifactSource)
}

// Start runs verification periodically at the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (v *verifier) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			v.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	v.ctx = ctx
	v.service.Start(ctx)
	v.scheduler.RegisterCallback(v.runVerification)

	if err := v.scheduler.Start(ctx); err != nil {
		// For runtime errors (like configuration or environment issues),
		// return exit code 2
		v.config.Log.Error("Runtime error running verification", "error", err)
		return cli.Exit(err.Error(), 2)
	}

	// If in run-once mode, trigger shutdown and return
	if v.config.RunOnce {
		v.config.Log.Info("Verification completed, exiting (run-once mode)")

		// Check the verdict and return the appropriate exit code
		if v.summary != nil && v.summary.Overall == types.OverallFailure {
			v.config.Log.Warn("Run-once verification completed with failures, returning exit code 1")
			// Return exit code 1 for verification failures
			return NewVerificationFailureError(v.summary.String())
		}

		// Only need to call this when we're in run-once mode and the build passed
		go func() {
			v.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	v.config.Log.Debug("op-verifier started successfully")
	return nil
}

// runVerification runs one verification of the build manifest and processes
// the summary
func (v *verifier) runVerification() error {
	v.config.Log.Info("Running verification...")

	runLog, err := logging.NewRunLog(v.config.LogDir, uuid.New().String())
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create run log: %w", err))
	}

	r, err := runner.NewRunner(runner.Config{
		Manifest:         v.manifest,
		Tests:            v.tests,
		Store:            v.store,
		Runtime:          v.runtime,
		RunLog:           runLog,
		JobName:          v.config.BuildJob,
		WorkDir:          v.config.WorkDir,
		SandboxImage:     v.config.SandboxImage,
		AgentLabel:       v.config.AgentLabel,
		StaggerInterval:  v.config.StaggerInterval,
		Concurrency:      v.config.Concurrency,
		RunTimeout:       v.config.RunTimeout,
		ComponentTimeout: v.config.ComponentTimeout,
		Retries:          v.config.ComponentRetries,
		Log:              v.config.Log,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	summary, runErr := r.Run(v.ctx)
	v.summary = summary
	v.processSummary(runLog, summary)

	if runErr != nil {
		// This is a runtime error (not a verification failure)
		v.config.Log.Error("Runtime error running verification", "error", runErr)
		return NewRuntimeError(runErr)
	}
	return nil
}

// processSummary renders, persists, reports and publishes one run's verdict.
// The summary is published exactly once per run, whatever the verdict.
func (v *verifier) processSummary(runLog *logging.RunLog, summary *runner.Summary) {
	rendered, err := v.formatter.FormatSummary(summary)
	if err != nil {
		v.config.Log.Error("Failed to format summary", "error", err)
	}

	if err := runLog.WriteSummary(rendered + "\n" + summary.String() + "\n"); err != nil {
		v.config.Log.Warn("Failed to write run summary", "error", err)
	}
	if err := runLog.WriteSummaryJSON(notify.NewPayload(summary)); err != nil {
		v.config.Log.Warn("Failed to write machine-readable summary", "error", err)
	}

	v.reporter.ReportSummary(summary)

	// The notification goes out even when the run context is already done,
	// so publishing is detached from it. A failed publish is logged and
	// counted, never escalated.
	if err := v.notifier.Publish(context.WithoutCancel(v.ctx), summary); err != nil {
		v.config.Log.Error("Failed to publish run notification", "error", err)
		metrics.RecordNotificationFailure(v.config.AgentLabel)
	}

	v.config.Log.Info("Verification run completed",
		"run_id", summary.RunID,
		"overall", summary.Overall,
		"logs", runLog.RunDir())
}

// Stop stops the op-verifier service.
// Stop implements the cliapp.Lifecycle interface.
func (v *verifier) Stop(ctx context.Context) error {
	v.config.Log.Info("Stopping op-verifier")

	if err := v.scheduler.Stop(); err != nil {
		return err
	}
	v.service.Shutdown()

	v.config.Log.Info("op-verifier stopped successfully")
	return nil
}

// Stopped returns true if the op-verifier service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (v *verifier) Stopped() bool {
	return v.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (v *verifier) WaitForShutdown(ctx context.Context) error {
	return v.scheduler.WaitForShutdown(ctx)
}
