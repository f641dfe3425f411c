package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter outputs summaries as indented JSON for machine consumption.
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary as JSON.
func (w *JSONWriter) Write(summary *Summary) (int, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal summary: %w", err)
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
