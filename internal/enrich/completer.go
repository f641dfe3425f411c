package enrich

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/model"
)

// defaultConfidence is assigned to records that skipped the completer or
// whose answer carried no usable score.
const defaultConfidence = "1.0"

// NewCompleter builds the last-resort stage. It selects records still
// missing an email after enrichment, searches the open web by name, and
// merges the found email with a confidence score. Every record leaves the
// stage with a confidence value.
func NewCompleter(cfg *config.Config, client completionClient, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{
		name:          "completer",
		columns:       model.FinalColumns,
		selects:       func(r model.Record) bool { return !r.HasEmail() },
		prompt:        completerPrompt,
		answerColumns: []string{model.ColumnEmail, model.ColumnConfidence},
		fill: func(r *model.Record) {
			if r.Confidence == "" {
				r.Confidence = defaultConfidence
			}
		},
		output: cfg.CompleterOutput,
		client: client,
		cfg:    cfg,
		logger: logger,
		sink:   newAnswerSink(cfg.CaptureDir, "agent3"),
	}
}

// completerPrompt embeds the batch as a JSON array, same convention as
// enricherPrompt. Phone numbers help disambiguate agents with common names.
func completerPrompt(records []model.Record) string {
	type entry struct {
		Name  string `json:"name"`
		Phone string `json:"phone,omitempty"`
	}
	entries := make([]entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, entry{Name: r.Name, Phone: r.Phone})
	}
	payload, _ := json.Marshal(entries)

	var b strings.Builder
	b.WriteString("You are tracking down email addresses for Saskatchewan real estate agents\n")
	b.WriteString("whose websites did not list one. Search the web for each name in the JSON\n")
	b.WriteString("array below, checking brokerage rosters, listing portals, and social profiles.\n\n")
	b.Write(payload)
	b.WriteString("\n\nReply with exactly one CSV line per realtor, no header and no commentary:\n")
	b.WriteString("name,email,confidence\n")
	b.WriteString("Confidence is a number between 0 and 1 scoring how sure you are the email\n")
	b.WriteString("belongs to that specific agent. Use an empty email field when nothing is found.\n")
	return b.String()
}
