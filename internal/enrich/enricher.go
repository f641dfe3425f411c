package enrich

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/model"
)

// NewEnricher builds the stage that hunts for email addresses. It selects
// records that have a website but no email, asks the service to search
// each realtor's site, and merges email and extra_emails back.
func NewEnricher(cfg *config.Config, client completionClient, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{
		name:          "enricher",
		columns:       model.EnrichedColumns,
		selects:       func(r model.Record) bool { return !r.HasEmail() && r.HasWebsite() },
		prompt:        enricherPrompt,
		answerColumns: []string{model.ColumnEmail, model.ColumnExtraEmails},
		output:        cfg.EnricherOutput,
		client:        client,
		cfg:           cfg,
		logger:        logger,
		sink:          newAnswerSink(cfg.CaptureDir, "agent2"),
	}
}

// enricherPrompt embeds the batch as a JSON array so names survive
// verbatim; the answer is merged back by name.
func enricherPrompt(records []model.Record) string {
	type entry struct {
		Name    string `json:"name"`
		Website string `json:"website"`
	}
	entries := make([]entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, entry{Name: r.Name, Website: r.Website})
	}
	payload, _ := json.Marshal(entries)

	var b strings.Builder
	b.WriteString("You are looking up contact emails for Saskatchewan real estate agents.\n")
	b.WriteString("For each realtor in the JSON array below, visit their website and find\n")
	b.WriteString("their direct email address. Also collect any additional office or team\n")
	b.WriteString("emails you encounter.\n\n")
	b.Write(payload)
	b.WriteString("\n\nReply with exactly one CSV line per realtor, no header and no commentary:\n")
	b.WriteString("name,email,extra_emails\n")
	b.WriteString("Separate multiple extra emails with semicolons. Use an empty field when nothing is found.\n")
	return b.String()
}
