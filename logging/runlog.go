// Package logging persists per-run verification output: one directory per
// run holding each component's harness output, a human-readable summary and
// a machine-readable one. Diagnostics stay on disk whatever the outcome.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
)

const (
	// RunDirectoryPrefix is the prefix used for a run's log directory
	RunDirectoryPrefix = "verify-"

	// FailedDirName collects copies of failing components' logs for quick triage
	FailedDirName = "failed"

	summaryFileName     = "summary.log"
	summaryJSONFileName = "summary.json"

	// excerptLines is how many trailing output lines are kept for notifications
	excerptLines = 20
)

// RunLog owns one run's log directory. Safe for concurrent use; component
// tasks write their harness output from their own goroutines.
type RunLog struct {
	mu      sync.Mutex
	baseDir string
	runID   string
	runDir  string
}

// NewRunLog creates the run directory under baseDir.
func NewRunLog(baseDir, runID string) (*RunLog, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &RunLog{baseDir: baseDir, runID: runID, runDir: runDir}, nil
}

// RunID returns the run identifier this log belongs to.
func (l *RunLog) RunID() string {
	return l.runID
}

// RunDir returns the run's log directory.
func (l *RunLog) RunDir() string {
	return l.runDir
}

// AppendComponentOutput appends one check's output to the component's log
// file and returns the file's path. ANSI escapes are stripped so the logs
// read cleanly outside a terminal.
func (l *RunLog) AppendComponentOutput(component, check, output string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.runDir, component+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening component log: %w", err)
	}
	defer f.Close()

	header := fmt.Sprintf("=== check %s ===\n", check)
	if _, err := f.WriteString(header + stripansi.Strip(output) + "\n"); err != nil {
		return "", fmt.Errorf("writing component log: %w", err)
	}
	return path, nil
}

// MarkFailed copies the component's log into the failed/ subdirectory so
// failing components can be triaged without scanning the whole run.
func (l *RunLog) MarkFailed(component string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	src := filepath.Join(l.runDir, component+".log")
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			// nothing was logged before the failure
			data = nil
		} else {
			return fmt.Errorf("reading component log: %w", err)
		}
	}
	failedDir := filepath.Join(l.runDir, FailedDirName)
	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		return fmt.Errorf("creating failed directory: %w", err)
	}
	return os.WriteFile(filepath.Join(failedDir, component+".log"), data, 0o644)
}

// WriteSummary writes the human-readable run summary.
func (l *RunLog) WriteSummary(text string) error {
	return os.WriteFile(filepath.Join(l.runDir, summaryFileName), []byte(text), 0o644)
}

// WriteSummaryJSON writes the machine-readable run summary.
func (l *RunLog) WriteSummaryJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return os.WriteFile(filepath.Join(l.runDir, summaryJSONFileName), data, 0o644)
}

// Excerpt returns the trailing lines of harness output, ANSI-stripped, for
// inclusion in notifications.
func Excerpt(output string) string {
	clean := strings.TrimRight(stripansi.Strip(output), "\n")
	if clean == "" {
		return ""
	}
	lines := strings.Split(clean, "\n")
	if len(lines) > excerptLines {
		lines = lines[len(lines)-excerptLines:]
	}
	return strings.Join(lines, "\n")
}
