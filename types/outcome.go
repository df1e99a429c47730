package types

import "time"

// Outcome represents the possible states of a component verification
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeRunning Outcome = "running"
	OutcomePassed  Outcome = "pass"
	OutcomeFailed  Outcome = "fail"
	OutcomeErrored Outcome = "error"
)

// Terminal reports whether the outcome is final. A component holds exactly
// one terminal outcome per run once its task has finished.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomePassed, OutcomeFailed, OutcomeErrored:
		return true
	}
	return false
}

// Overall represents the aggregate verdict of a whole verification run
type Overall string

const (
	OverallSuccess Overall = "success"
	OverallFailure Overall = "failure"
)

// Diagnostics points at the artifacts retained for a component's run,
// regardless of its outcome.
type Diagnostics struct {
	LogPath    string // harness output log on disk
	ReportPath string // machine-readable report, if the harness produced one
	Excerpt    string // tail of the harness output, for notifications
}

// ComponentResult captures the outcome of a single component verification
type ComponentResult struct {
	Component   string
	Version     string
	Outcome     Outcome
	Reason      error // populated for fail and error outcomes
	Duration    time.Duration
	Attempts    int // 1 unless infrastructure retries were configured
	Diagnostics Diagnostics
}

// Passed reports whether the component verification succeeded.
func (r *ComponentResult) Passed() bool {
	return r.Outcome == OutcomePassed
}
