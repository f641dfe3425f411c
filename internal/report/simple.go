package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// timePrecision rounds durations for display.
const timePrecision = 100 * time.Millisecond

// SimpleWriter outputs human-readable text summaries for terminal display.
//
// Design decision: plain text with ASCII formatting rather than ANSI
// colors, so output pipes cleanly to files and other tools.
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-letter breakdown.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-letter breakdown.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "=== leadscan %s ===\n", summary.Stage)
	fmt.Fprintf(&sb, "Run:      %s\n", summary.RunID)
	fmt.Fprintf(&sb, "Duration: %s\n", summary.Duration().Round(timePrecision))
	fmt.Fprintf(&sb, "Records:  %d (%d with email, %d with phone)\n",
		summary.Records, summary.WithEmail, summary.WithPhone)
	if summary.Captures > 0 {
		fmt.Fprintf(&sb, "Captures: %d\n", summary.Captures)
	}
	if failed := summary.FailedLetters(); failed > 0 {
		fmt.Fprintf(&sb, "Failed letters: %d of %d\n", failed, len(summary.Letters))
	}
	fmt.Fprintf(&sb, "Output:   %s\n", summary.OutputPath)
	if summary.DBPath != "" {
		fmt.Fprintf(&sb, "Database: %s\n", summary.DBPath)
	}

	if w.verbose && len(summary.Letters) > 0 {
		sb.WriteString("\nLetters:\n")
		for _, l := range summary.Letters {
			if l.Err != "" {
				fmt.Fprintf(&sb, "  %s: FAILED (%s)\n", l.Letter, l.Err)
				continue
			}
			fmt.Fprintf(&sb, "  %s: %d records, %d captures\n", l.Letter, l.Records, l.Captures)
		}
	}

	return w.output.Write([]byte(sb.String()))
}
