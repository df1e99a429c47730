package verifier

import (
	"github.com/ethereum-optimism/infra/op-verifier/metrics"
	"github.com/ethereum-optimism/infra/op-verifier/runner"
)

// MetricsReporter is responsible for reporting metrics from run summaries.
type MetricsReporter interface {
	ReportSummary(summary *runner.Summary)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportSummary reports the run summary to metrics systems.
func (r *DefaultMetricsReporter) ReportSummary(summary *runner.Summary) {
	metrics.RecordVerification(
		summary.AgentLabel,
		summary.RunID,
		string(summary.Overall),
		summary.Stats.Total,
		summary.Stats.Passed,
		summary.Stats.Failed,
		summary.Stats.Errored,
		summary.Duration,
	)
}
