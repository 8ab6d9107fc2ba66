package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/guildcrawl/internal/model"
)

// JSONWriter outputs the status as JSON.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the payload is small and flat.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonStatus adds the derived fields to the report.
type jsonStatus struct {
	*model.StatusReport

	Status      string  `json:"status"`
	Finished    int     `json:"finished"`
	PercentDone float64 `json:"percent_done"`
}

// Write outputs the status in JSON format.
func (w *JSONWriter) Write(report *model.StatusReport) (int, error) {
	v := jsonStatus{
		StatusReport: report,
		Status:       statusText(report),
		Finished:     report.Finished(),
		PercentDone:  report.PercentDone(),
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}
