package runner

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-verifier/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passedResult(component string) *types.ComponentResult {
	return &types.ComponentResult{
		Component: component,
		Outcome:   types.OutcomePassed,
		Duration:  100 * time.Millisecond,
		Attempts:  1,
	}
}

func TestCollector_RecordAndResults(t *testing.T) {
	collector := NewCollector([]string{"alpha", "beta", "gamma"})

	require.NoError(t, collector.Record("alpha", passedResult("alpha")))
	require.NoError(t, collector.Record("gamma", &types.ComponentResult{
		Component: "gamma",
		Outcome:   types.OutcomeFailed,
		Reason:    NewTestExecutionFailure("component-tests", 1),
	}))

	assert.Equal(t, 2, collector.Count(), "Should have recorded two results")

	results := collector.Results()
	require.Len(t, results, 2)
	assert.Equal(t, types.OutcomePassed, results["alpha"].Outcome)
	assert.Equal(t, types.OutcomeFailed, results["gamma"].Outcome)
}

func TestCollector_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name      string
		component string
		result    *types.ComponentResult
	}{
		{
			name:      "nil result",
			component: "alpha",
			result:    nil,
		},
		{
			name:      "pending outcome is not terminal",
			component: "alpha",
			result:    &types.ComponentResult{Component: "alpha", Outcome: types.OutcomePending},
		},
		{
			name:      "running outcome is not terminal",
			component: "alpha",
			result:    &types.ComponentResult{Component: "alpha", Outcome: types.OutcomeRunning},
		},
		{
			name:      "component outside the run",
			component: "delta",
			result:    passedResult("delta"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := NewCollector([]string{"alpha", "beta"})
			err := collector.Record(tt.component, tt.result)
			require.Error(t, err, "Record should reject the input")
			assert.Equal(t, 0, collector.Count(), "Nothing should have been recorded")
		})
	}
}

func TestCollector_DuplicateKeepsFirstResult(t *testing.T) {
	collector := NewCollector([]string{"alpha"})

	first := passedResult("alpha")
	require.NoError(t, collector.Record("alpha", first))

	second := &types.ComponentResult{Component: "alpha", Outcome: types.OutcomeFailed}
	err := collector.Record("alpha", second)
	require.Error(t, err, "Second record for the same component should be rejected")
	assert.True(t, IsDuplicateResultError(err), "Error should be a DuplicateResultError")

	results := collector.Results()
	require.Len(t, results, 1)
	assert.Same(t, first, results["alpha"], "First result should win")
	assert.Equal(t, types.OutcomePassed, results["alpha"].Outcome, "First outcome should be untouched")
}

func TestCollector_Missing(t *testing.T) {
	collector := NewCollector([]string{"alpha", "beta", "gamma"})
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, collector.Missing(), "All components missing before any record")

	require.NoError(t, collector.Record("beta", passedResult("beta")))
	assert.Equal(t, []string{"alpha", "gamma"}, collector.Missing(), "Missing should preserve dispatch order")

	require.NoError(t, collector.Record("alpha", passedResult("alpha")))
	require.NoError(t, collector.Record("gamma", passedResult("gamma")))
	assert.Empty(t, collector.Missing(), "Nothing should be missing once all components recorded")
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	const n = 50
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("component-%02d", i)
	}
	collector := NewCollector(names)

	// every component records once, and every component also races a
	// duplicate; exactly one of each pair may win
	var wg sync.WaitGroup
	dupErrs := make([]error, n)
	for i, name := range names {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = collector.Record(name, passedResult(name))
		}()
		go func() {
			defer wg.Done()
			if err := collector.Record(name, passedResult(name)); err != nil {
				dupErrs[i] = err
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n, collector.Count(), "Each component should hold exactly one result")
	assert.Empty(t, collector.Missing(), "No component should be missing")
	for i := range names {
		if dupErrs[i] != nil {
			assert.True(t, IsDuplicateResultError(dupErrs[i]), "Losing record should see a DuplicateResultError")
		}
	}
}
