package verifier

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-verifier/flags"
	"github.com/ethereum-optimism/infra/op-verifier/manifest"
	"github.com/ethereum-optimism/infra/op-verifier/service"
	"github.com/ethereum/go-ethereum/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Config holds the application configuration
type Config struct {
	ManifestSource     string        // build manifest path or URL
	TestManifestSource string        // test manifest path or URL, optional
	ArtifactSource     string        // artifact base URL or local directory
	BuildJob           string        // job name the artifact root is derived from
	AgentLabel         string        // agent identity in metrics and notifications
	SandboxImage       string        // default harness image
	WorkDir            string        // root for per-component workspaces
	LogDir             string        // root for per-run log directories
	NotifyWebhook      string        // notification endpoint, optional
	Concurrency        int           // maximum verifications in flight (0 = one per component)
	StaggerInterval    time.Duration // delay between consecutive component starts
	RunTimeout         time.Duration // deadline for a whole run
	ComponentTimeout   time.Duration // deadline for one component attempt
	ComponentRetries   int           // extra attempts for errored components
	RunInterval        time.Duration // interval between runs
	RunOnce            bool          // exit after one run
	HealthzAddr        string        // healthz listen address (empty disables)
	MetricsAddr        string        // metrics listen address (empty disables)
	Log                log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	manifestSource := ctx.String(flags.Manifest.Name)
	testManifestSource := ctx.String(flags.TestManifest.Name)
	artifactSource := ctx.String(flags.ArtifactSource.Name)
	sandboxImage := ctx.String(flags.SandboxImage.Name)

	// local document sources are resolved up front so later chdirs cannot
	// change what a run reads
	var err error
	if !manifest.IsRemote(manifestSource) {
		manifestSource, err = filepath.Abs(manifestSource)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", ctx.String(flags.Manifest.Name), err)
		}
	}
	if testManifestSource != "" && !manifest.IsRemote(testManifestSource) {
		testManifestSource, err = filepath.Abs(testManifestSource)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for test manifest '%s': %w", ctx.String(flags.TestManifest.Name), err)
		}
	}
	if !manifest.IsRemote(artifactSource) {
		artifactSource, err = filepath.Abs(artifactSource)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for artifact source '%s': %w", ctx.String(flags.ArtifactSource.Name), err)
		}
	}

	workDir, err := filepath.Abs(ctx.String(flags.WorkDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for work directory '%s': %w", ctx.String(flags.WorkDir.Name), err)
	}
	logDir, err := filepath.Abs(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", ctx.String(flags.LogDir.Name), err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	metricsAddr := ""
	if metricsCfg.Enabled {
		metricsAddr = net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort))
	}

	return &Config{
		ManifestSource:     manifestSource,
		TestManifestSource: testManifestSource,
		ArtifactSource:     artifactSource,
		BuildJob:           ctx.String(flags.BuildJob.Name),
		AgentLabel:         ctx.String(flags.AgentLabel.Name),
		SandboxImage:       sandboxImage,
		WorkDir:            workDir,
		LogDir:             logDir,
		NotifyWebhook:      ctx.String(flags.NotifyWebhook.Name),
		Concurrency:        ctx.Int(flags.Concurrency.Name),
		StaggerInterval:    ctx.Duration(flags.StaggerInterval.Name),
		RunTimeout:         ctx.Duration(flags.RunTimeout.Name),
		ComponentTimeout:   ctx.Duration(flags.ComponentTimeout.Name),
		ComponentRetries:   ctx.Int(flags.ComponentRetries.Name),
		RunInterval:        runInterval,
		RunOnce:            runOnce,
		HealthzAddr:        service.DefaultConfig().HealthzAddr,
		MetricsAddr:        metricsAddr,
		Log:                log,
	}, nil
}
