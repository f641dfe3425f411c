package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs summaries in Markdown format for documentation
// and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides type-safe tables and GitHub-flavored output.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Leadscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + summary.RunID + "`"},
			{"Stage", summary.Stage},
			{"Started", summary.Started.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().Round(timePrecision).String()},
			{"Records", strconv.Itoa(summary.Records)},
			{"With Email", strconv.Itoa(summary.WithEmail)},
			{"With Phone", strconv.Itoa(summary.WithPhone)},
			{"Output", "`" + summary.OutputPath + "`"},
		},
	})
	md.PlainText("")

	if len(summary.Letters) > 0 {
		w.writeLetters(md, summary)
	}

	return len(md.String()), md.Build()
}

// writeLetters writes the per-letter breakdown table.
func (w *MarkdownWriter) writeLetters(md *markdown.Markdown, summary *Summary) {
	md.H2("Letters")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Letters))
	for _, l := range summary.Letters {
		status := "OK"
		if l.Err != "" {
			status = "FAILED: " + l.Err
		}
		rows = append(rows, []string{
			l.Letter,
			strconv.Itoa(l.Records),
			strconv.Itoa(l.Captures),
			status,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Letter", "Records", "Captures", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}
