// Package report renders crawl results.
//
// It writes the final artifact (collected ids, sorted, one per line) and
// renders checkpoint status in three formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown for sharing progress in issues or chat
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably by the status command.
package report
