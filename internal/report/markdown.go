package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/guildcrawl/internal/model"
)

// MarkdownWriter outputs the status in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, including a mermaid pie chart of crawl progress.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the status in Markdown format.
func (w *MarkdownWriter) Write(report *model.StatusReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("guildcrawl Status")
	md.PlainText("")

	rows := [][]string{
		{"Checkpoint", "`" + report.Location + "`"},
		{"Status", statusText(report)},
	}
	if report.Found {
		rows = append(rows,
			[]string{"Resume cursor", strconv.Itoa(report.ProcessedCount)},
			[]string{"Completed ahead", strconv.Itoa(report.CompletedAhead)},
			[]string{"Visited groups", strconv.Itoa(report.VisitedGroups)},
			[]string{"Collected ids", strconv.Itoa(report.CollectedIDs)},
		)
		if report.SeedTotal > 0 {
			rows = append(rows,
				[]string{"Progress", fmt.Sprintf("%d/%d (%.1f%%)", report.Finished(), report.SeedTotal, report.PercentDone())},
				[]string{"Remaining", strconv.Itoa(report.Remaining)},
			)
		}
		if !report.UpdatedAt.IsZero() {
			rows = append(rows, []string{"Updated", report.UpdatedAt.Format(timeLayout)})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeProgress(md, report)
	w.writeRuns(md, report)

	return len(md.String()), md.Build()
}

// writeProgress writes an alert and, when the total is known, a pie chart.
func (w *MarkdownWriter) writeProgress(md *markdown.Markdown, report *model.StatusReport) {
	switch {
	case !report.Found:
		md.Note("No checkpoint yet. Run `guildcrawl crawl` to start.")
		md.PlainText("")
		return
	case report.Complete():
		md.Tip("Every seed entry has been processed.")
	default:
		md.Importantf("%d seed entries remain. Re-run `guildcrawl crawl` to continue.", report.Remaining)
	}
	md.PlainText("")

	if report.SeedTotal <= 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Seed Progress"),
		piechart.WithShowData(true),
	)
	if report.Finished() > 0 {
		chart.LabelAndIntValue("Processed", uint64(report.Finished()))
	}
	if report.Remaining > 0 {
		chart.LabelAndIntValue("Remaining", uint64(report.Remaining))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRuns writes the run history table.
func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, report *model.StatusReport) {
	if len(report.Runs) == 0 {
		return
	}

	md.H2("Recent Runs")
	md.PlainText("")

	rows := make([][]string, len(report.Runs))
	for i, run := range report.Runs {
		finished := "-"
		if !run.FinishedAt.IsZero() {
			finished = run.FinishedAt.Format(timeLayout)
		}
		rows[i] = []string{
			"`" + run.ID + "`",
			run.StartedAt.Format(timeLayout),
			finished,
			run.Status,
			strconv.Itoa(run.ProcessedCount),
			strconv.Itoa(run.CollectedIDs),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Finished", "Status", "Processed", "Ids"},
		Rows:   rows,
	})
	md.PlainText("")
}
