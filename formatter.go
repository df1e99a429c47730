package verifier

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-verifier/runner"
	"github.com/ethereum-optimism/infra/op-verifier/types"
)

// SummaryFormatter is responsible for formatting and displaying run summaries.
type SummaryFormatter interface {
	FormatSummary(summary *runner.Summary) (string, error)
}

// ConsoleSummaryFormatter implements the SummaryFormatter interface.
type ConsoleSummaryFormatter struct {
	logger log.Logger
}

// NewConsoleSummaryFormatter creates a new ConsoleSummaryFormatter.
func NewConsoleSummaryFormatter(logger log.Logger) *ConsoleSummaryFormatter {
	return &ConsoleSummaryFormatter{
		logger: logger,
	}
}

// FormatSummary prints the run's component table to the console and returns
// the rendered text so callers can persist it next to the run logs.
func (f *ConsoleSummaryFormatter) FormatSummary(summary *runner.Summary) (string, error) {
	f.logger.Info("Printing results...")
	rendered := renderSummaryTable(summary, os.Stdout)
	fmt.Println(summary.String())
	return rendered, nil
}

// renderSummaryTable builds the per-component results table. Output is
// mirrored to the given writer when one is provided.
func renderSummaryTable(summary *runner.Summary, mirror io.Writer) string {
	t := table.NewWriter()
	if mirror != nil {
		t.SetOutputMirror(mirror)
	}
	t.SetTitle(fmt.Sprintf("Component Verification Results (%s)", formatDuration(summary.Duration)))

	// Configure columns
	t.AppendHeader(table.Row{
		"Component", "Version", "Duration", "Attempts", "Outcome", "Reason",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Component", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Attempts", Align: text.AlignRight},
		{Name: "Reason", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, name := range summary.Order {
		res := summary.PerComponent[name]
		if res == nil {
			continue
		}
		t.AppendRow(table.Row{
			res.Component,
			res.Version,
			formatDuration(res.Duration),
			res.Attempts,
			outcomeString(res.Outcome),
			reasonString(res.Reason),
		})
	}

	// Update the table style setting based on the overall verdict
	if summary.Overall == types.OverallSuccess {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(summary.Duration),
		"",
		overallString(summary.Overall),
		fmt.Sprintf("%d/%d passed", summary.Stats.Passed, summary.Stats.Total),
	})

	return t.Render()
}

// outcomeString returns a colored string representing the component outcome
func outcomeString(outcome types.Outcome) string {
	switch outcome {
	case types.OutcomePassed:
		return "✓ pass"
	case types.OutcomeFailed:
		return "✗ fail"
	default:
		return "! error"
	}
}

// overallString returns a colored string representing the run verdict
func overallString(overall types.Overall) string {
	if overall == types.OverallSuccess {
		return "✓ success"
	}
	return "✗ failure"
}

// reasonString reduces an error to a single table-friendly line
func reasonString(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, "\n"); idx != -1 {
		msg = msg[:idx]
	}
	if len(msg) > 120 {
		msg = msg[:110] + "..."
	}
	return msg
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
