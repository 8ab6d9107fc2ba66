package report

import (
	"io"

	"github.com/nao1215/guildcrawl/internal/model"
)

// Writer defines the interface for status output.
type Writer interface {
	// Write outputs the status report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.StatusReport) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for every timestamp shown to humans.
const timeLayout = "2006-01-02 15:04:05 MST"

// statusText describes the crawl state in a few words.
func statusText(report *model.StatusReport) string {
	switch {
	case !report.Found:
		return "Not started"
	case report.Complete():
		return "Complete"
	case report.SeedTotal <= 0:
		return "In progress (seed total unknown)"
	default:
		return "In progress"
	}
}
