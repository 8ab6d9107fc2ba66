package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/guildcrawl/internal/model"
)

// SimpleWriter outputs a human-readable status summary.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the status in human-readable format.
func (w *SimpleWriter) Write(report *model.StatusReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Checkpoint:      %s\n", report.Location))
	sb.WriteString(fmt.Sprintf("Status:          %s\n", statusText(report)))
	if !report.Found {
		return w.output.Write([]byte(sb.String()))
	}

	if report.SeedTotal > 0 {
		sb.WriteString(fmt.Sprintf("Progress:        %d/%d (%.1f%%)\n",
			report.Finished(), report.SeedTotal, report.PercentDone()))
		sb.WriteString(fmt.Sprintf("Remaining:       %d\n", report.Remaining))
	} else {
		sb.WriteString(fmt.Sprintf("Processed:       %d\n", report.Finished()))
	}
	sb.WriteString(fmt.Sprintf("Resume cursor:   %d\n", report.ProcessedCount))
	if report.CompletedAhead > 0 {
		sb.WriteString(fmt.Sprintf("Completed ahead: %d\n", report.CompletedAhead))
	}
	sb.WriteString(fmt.Sprintf("Visited groups:  %d\n", report.VisitedGroups))
	sb.WriteString(fmt.Sprintf("Collected ids:   %d\n", report.CollectedIDs))
	if !report.UpdatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Updated:         %s\n", report.UpdatedAt.Local().Format(timeLayout)))
	}

	if len(report.Runs) > 0 {
		sb.WriteString("\nRecent runs:\n")
		for _, run := range report.Runs {
			sb.WriteString(fmt.Sprintf("  %s  %-12s  %s  processed=%d ids=%d\n",
				run.StartedAt.Local().Format(timeLayout), run.Status, run.ID,
				run.ProcessedCount, run.CollectedIDs))
		}
	}

	return w.output.Write([]byte(sb.String()))
}
