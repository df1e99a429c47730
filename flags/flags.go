package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-verifier/runner"
	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_VERIFIER"

var (
	Manifest = &cli.StringFlag{
		Name:     "manifest",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "MANIFEST"),
		Usage:    "Path or URL of the build manifest (eg. 'manifest.yaml')",
	}
	ArtifactSource = &cli.StringFlag{
		Name:     "artifact-source",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "ARTIFACT_SOURCE"),
		Usage:    "Base URL or local directory the build's artifacts are fetched from",
	}
	SandboxImage = &cli.StringFlag{
		Name:     "sandbox-image",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "SANDBOX_IMAGE"),
		Usage:    "Default container image the component checks run in",
	}
	TestManifest = &cli.StringFlag{
		Name:    "test-manifest",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_MANIFEST"),
		Usage:   "Path or URL of the test manifest mapping version lines to checks",
	}
	BuildJob = &cli.StringFlag{
		Name:    "build-job",
		Value:   "build",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BUILD_JOB"),
		Usage:   "Build job name the artifact root is derived from",
	}
	AgentLabel = &cli.StringFlag{
		Name:    "agent-label",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "AGENT_LABEL"),
		Usage:   "Label identifying this verification agent in metrics and notifications",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONCURRENCY"),
		Usage:   "Maximum component verifications in flight (0 = one per component)",
	}
	StaggerInterval = &cli.DurationFlag{
		Name:    "stagger-interval",
		Value:   runner.DefaultStaggerInterval,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STAGGER_INTERVAL"),
		Usage:   "Delay between consecutive component starts (0 disables staggering)",
	}
	RunTimeout = &cli.DurationFlag{
		Name:    "run-timeout",
		Value:   runner.DefaultRunTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_TIMEOUT"),
		Usage:   "Deadline for a whole verification run",
	}
	ComponentTimeout = &cli.DurationFlag{
		Name:    "component-timeout",
		Value:   runner.DefaultComponentTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPONENT_TIMEOUT"),
		Usage:   "Deadline for a single component's verification attempt",
	}
	ComponentRetries = &cli.IntFlag{
		Name:    "component-retries",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPONENT_RETRIES"),
		Usage:   "Extra attempts for components that errored (failed verdicts are final)",
	}
	WorkDir = &cli.StringFlag{
		Name:    "work-dir",
		Value:   "work",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORK_DIR"),
		Usage:   "Directory holding per-component scratch workspaces",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_DIR"),
		Usage:   "Directory run logs and summaries are written to",
	}
	NotifyWebhook = &cli.StringFlag{
		Name:    "notify-webhook",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NOTIFY_WEBHOOK"),
		Usage:   "URL the aggregated run notification is posted to (empty disables)",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between verification runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}

	// promote subcommand flags
	PromoteEndpoint = &cli.StringFlag{
		Name:    "promote-endpoint",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROMOTE_ENDPOINT"),
		Usage:   "URL of the distribution service's promotion endpoint",
	}
	Distribution = &cli.StringFlag{
		Name:    "distribution",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DISTRIBUTION"),
		Usage:   "Distribution whose build is promoted",
	}
	BuildID = &cli.StringFlag{
		Name:    "build-id",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BUILD_ID"),
		Usage:   "Build to promote",
	}
	Channel = &cli.StringFlag{
		Name:    "channel",
		Value:   "release",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CHANNEL"),
		Usage:   "Release channel the build is promoted into",
	}
)

var requiredFlags = []cli.Flag{
	Manifest,
	ArtifactSource,
	SandboxImage,
}

var optionalFlags = []cli.Flag{
	TestManifest,
	BuildJob,
	AgentLabel,
	Concurrency,
	StaggerInterval,
	RunTimeout,
	ComponentTimeout,
	ComponentRetries,
	WorkDir,
	LogDir,
	NotifyWebhook,
	RunInterval,
}

var Flags []cli.Flag

// PromoteFlags are the flags of the promote subcommand.
var PromoteFlags = []cli.Flag{
	PromoteEndpoint,
	Distribution,
	BuildID,
	Channel,
}

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
