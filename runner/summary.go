package runner

import (
	"fmt"
	"time"

	"github.com/ethereum-optimism/infra/op-verifier/manifest"
	"github.com/ethereum-optimism/infra/op-verifier/types"
)

// Stats tracks component counts for a run
type Stats struct {
	Total     int
	Passed    int
	Failed    int
	Errored   int
	StartTime time.Time
	EndTime   time.Time
}

// Summary is the aggregate verdict of one verification run. It is built
// exactly once, after every component holds a terminal outcome, and is
// immutable from then on.
type Summary struct {
	RunID        string
	Distribution string
	BuildID      string
	AgentLabel   string
	PerComponent map[string]*types.ComponentResult
	// Order lists the components in manifest order for stable rendering.
	Order    []string
	Overall  types.Overall
	Duration time.Duration
	Stats    Stats
}

// BuildSummary reduces the collected component results into a run summary.
// The overall verdict is success only when at least one component was
// verified and every one of them passed; an empty result set can never
// report success.
func BuildSummary(runID string, m *manifest.BuildManifest, agentLabel string, results map[string]*types.ComponentResult, start time.Time) *Summary {
	end := time.Now()
	s := &Summary{
		RunID:        runID,
		Distribution: m.Distribution,
		BuildID:      m.BuildID,
		AgentLabel:   agentLabel,
		PerComponent: results,
		Overall:      types.OverallFailure,
		Duration:     end.Sub(start),
		Stats:        Stats{StartTime: start, EndTime: end},
	}

	for _, name := range m.ComponentNames() {
		if _, ok := results[name]; ok {
			s.Order = append(s.Order, name)
		}
	}

	for _, res := range results {
		s.Stats.Total++
		switch res.Outcome {
		case types.OutcomePassed:
			s.Stats.Passed++
		case types.OutcomeFailed:
			s.Stats.Failed++
		default:
			s.Stats.Errored++
		}
	}

	if s.Stats.Total > 0 && s.Stats.Passed == s.Stats.Total {
		s.Overall = types.OverallSuccess
	}
	return s
}

// String returns a one-line description of the run's outcome.
func (s *Summary) String() string {
	return fmt.Sprintf("%s build %s: %d/%d components passed (%d failed, %d errored)",
		s.Distribution, s.BuildID, s.Stats.Passed, s.Stats.Total, s.Stats.Failed, s.Stats.Errored)
}
