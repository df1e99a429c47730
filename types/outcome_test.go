package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeTerminal(t *testing.T) {
	tests := []struct {
		name     string
		outcome  Outcome
		terminal bool
	}{
		{
			name:     "pending is not terminal",
			outcome:  OutcomePending,
			terminal: false,
		},
		{
			name:     "running is not terminal",
			outcome:  OutcomeRunning,
			terminal: false,
		},
		{
			name:     "pass is terminal",
			outcome:  OutcomePassed,
			terminal: true,
		},
		{
			name:     "fail is terminal",
			outcome:  OutcomeFailed,
			terminal: true,
		},
		{
			name:     "error is terminal",
			outcome:  OutcomeErrored,
			terminal: true,
		},
		{
			name:     "unknown is not terminal",
			outcome:  Outcome("bogus"),
			terminal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.outcome.Terminal())
		})
	}
}

func TestComponentResultPassed(t *testing.T) {
	tests := []struct {
		name   string
		result ComponentResult
		passed bool
	}{
		{
			name: "passed component",
			result: ComponentResult{
				Component: "api-server",
				Outcome:   OutcomePassed,
			},
			passed: true,
		},
		{
			name: "failed component",
			result: ComponentResult{
				Component: "worker",
				Outcome:   OutcomeFailed,
				Reason:    errors.New("check exited with code 1"),
			},
			passed: false,
		},
		{
			name: "errored component",
			result: ComponentResult{
				Component: "scheduler",
				Outcome:   OutcomeErrored,
				Reason:    errors.New("sandbox create failed"),
			},
			passed: false,
		},
		{
			name: "pending component",
			result: ComponentResult{
				Component: "api-server",
				Outcome:   OutcomePending,
			},
			passed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.passed, tt.result.Passed())
		})
	}
}
