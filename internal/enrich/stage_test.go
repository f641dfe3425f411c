package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/croneb/leadscan/internal/anthropic"
	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/csvio"
	"github.com/croneb/leadscan/internal/model"
)

// fakeClient returns scripted answers in call order.
type fakeClient struct {
	prompts []string
	answers []string
	errs    []error
}

func (f *fakeClient) CompleteWithSearch(_ context.Context, _, prompt string, _, _ int) (*anthropic.Response, error) {
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	answer := ""
	if call < len(f.answers) {
		answer = f.answers[call]
	}
	return &anthropic.Response{
		Content: []anthropic.ContentBlock{{Type: "text", Text: answer}},
	}, nil
}

func writeInput(t *testing.T, columns []string, records []model.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := csvio.WriteRecords(path, columns, records); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	cfg.CaptureDir = filepath.Join(dir, "found")
	cfg.EnricherOutput = filepath.Join(dir, "personal-output.csv")
	cfg.CompleterOutput = filepath.Join(dir, "final-output.csv")
	return cfg
}

func TestEnricherRun(t *testing.T) {
	t.Parallel()

	t.Run("fills emails for records with a website and none without", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		client := &fakeClient{answers: []string{
			"Jane Doe,jane@janedoe.ca,office@janedoe.ca;team@janedoe.ca\n" +
				"John Roe,,\n",
		}}
		input := writeInput(t, model.BaseColumns, []model.Record{
			{Name: "Jane Doe", Phone: "(306) 555-1234", Website: "https://janedoe.ca"},
			{Name: "John Roe", Website: "https://johnroe.ca"},
			{Name: "No Site"},
			{Name: "Has Email", Email: "keep@me.ca", Website: "https://keep.ca"},
		})

		out, err := NewEnricher(cfg, client, nil).Run(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}
		if out != cfg.EnricherOutput {
			t.Errorf("output = %s", out)
		}
		if len(client.prompts) != 1 {
			t.Fatalf("calls = %d, want 1", len(client.prompts))
		}
		if !strings.Contains(client.prompts[0], "Jane Doe") || strings.Contains(client.prompts[0], "Has Email") {
			t.Errorf("prompt selects wrong records:\n%s", client.prompts[0])
		}

		records, err := csvio.ReadRecords(out)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 4 {
			t.Fatalf("records = %d, want 4", len(records))
		}
		if records[0].Email != "jane@janedoe.ca" {
			t.Errorf("email = %q", records[0].Email)
		}
		if records[0].ExtraEmails != "office@janedoe.ca;team@janedoe.ca" {
			t.Errorf("extra emails = %q", records[0].ExtraEmails)
		}
		if records[1].Email != "" {
			t.Errorf("John Roe email = %q, want empty", records[1].Email)
		}
		if records[3].Email != "keep@me.ca" {
			t.Errorf("existing email overwritten: %q", records[3].Email)
		}
	})

	t.Run("header-only input writes header-only output without service calls", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		client := &fakeClient{}
		input := writeInput(t, model.BaseColumns, nil)

		out, err := NewEnricher(cfg, client, nil).Run(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}
		if len(client.prompts) != 0 {
			t.Errorf("calls = %d, want 0", len(client.prompts))
		}
		raw, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.TrimSpace(string(raw)); got != strings.Join(model.EnrichedColumns, ",") {
			t.Errorf("output = %q", got)
		}
	})

	t.Run("a failed batch passes its records through", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.BatchSize = 1
		client := &fakeClient{
			errs:    []error{errors.New("overloaded"), nil},
			answers: []string{"", "John Roe,john@johnroe.ca,"},
		}
		input := writeInput(t, model.BaseColumns, []model.Record{
			{Name: "Jane Doe", Website: "https://janedoe.ca"},
			{Name: "John Roe", Website: "https://johnroe.ca"},
		})

		out, err := NewEnricher(cfg, client, nil).Run(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}
		if len(client.prompts) != 2 {
			t.Fatalf("calls = %d, want 2", len(client.prompts))
		}

		records, err := csvio.ReadRecords(out)
		if err != nil {
			t.Fatal(err)
		}
		if records[0].Email != "" {
			t.Errorf("failed batch filled email %q", records[0].Email)
		}
		if records[1].Email != "john@johnroe.ca" {
			t.Errorf("second batch email = %q", records[1].Email)
		}
	})

	t.Run("splits selected records into batches of the configured size", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.BatchSize = 2
		client := &fakeClient{}
		var records []model.Record
		for _, name := range []string{"A One", "B Two", "C Three", "D Four", "E Five"} {
			records = append(records, model.Record{Name: name, Website: "https://example.ca"})
		}
		input := writeInput(t, model.BaseColumns, records)

		if _, err := NewEnricher(cfg, client, nil).Run(context.Background(), input); err != nil {
			t.Fatal(err)
		}
		if len(client.prompts) != 3 {
			t.Errorf("calls = %d, want 3", len(client.prompts))
		}
	})
}

func TestCompleterRun(t *testing.T) {
	t.Parallel()

	t.Run("fills emails by name search and defaults confidence", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		client := &fakeClient{answers: []string{
			"Jane Doe,jane@remax.ca,0.8\nJohn Roe,,\n",
		}}
		input := writeInput(t, model.EnrichedColumns, []model.Record{
			{Name: "Jane Doe", Phone: "(306) 555-1234"},
			{Name: "John Roe"},
			{Name: "Has Email", Email: "keep@me.ca"},
		})

		out, err := NewCompleter(cfg, client, nil).Run(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}
		if out != cfg.CompleterOutput {
			t.Errorf("output = %s", out)
		}

		records, err := csvio.ReadRecords(out)
		if err != nil {
			t.Fatal(err)
		}
		if records[0].Email != "jane@remax.ca" || records[0].Confidence != "0.8" {
			t.Errorf("Jane Doe = %+v", records[0])
		}
		// No answer means the default applies.
		if records[1].Confidence != "1.0" {
			t.Errorf("John Roe confidence = %q", records[1].Confidence)
		}
		// Untouched records also leave with a confidence value.
		if records[2].Email != "keep@me.ca" || records[2].Confidence != "1.0" {
			t.Errorf("Has Email = %+v", records[2])
		}
	})

	t.Run("clamps out-of-range confidence", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		client := &fakeClient{answers: []string{
			"Jane Doe,jane@remax.ca,1.7\nJohn Roe,john@remax.ca,-2\n",
		}}
		input := writeInput(t, model.EnrichedColumns, []model.Record{
			{Name: "Jane Doe"},
			{Name: "John Roe"},
		})

		out, err := NewCompleter(cfg, client, nil).Run(context.Background(), input)
		if err != nil {
			t.Fatal(err)
		}
		records, err := csvio.ReadRecords(out)
		if err != nil {
			t.Fatal(err)
		}
		if records[0].Confidence != "1.0" {
			t.Errorf("high confidence = %q, want 1.0", records[0].Confidence)
		}
		if records[1].Confidence != "0.0" {
			t.Errorf("low confidence = %q, want 0.0", records[1].Confidence)
		}
	})

	t.Run("saves raw batch answers for diagnosis", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		client := &fakeClient{answers: []string{"Jane Doe,jane@remax.ca,0.9"}}
		input := writeInput(t, model.EnrichedColumns, []model.Record{{Name: "Jane Doe"}})

		if _, err := NewCompleter(cfg, client, nil).Run(context.Background(), input); err != nil {
			t.Fatal(err)
		}

		entries, err := os.ReadDir(cfg.CaptureDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatalf("capture files = %d, want 1", len(entries))
		}
		name := entries[0].Name()
		if !strings.HasPrefix(name, "agent3_batch_1_") || !strings.HasSuffix(name, ".txt") {
			t.Errorf("answer file name = %s", name)
		}
	})
}

func TestMergeAnswer(t *testing.T) {
	t.Parallel()

	t.Run("matches case-insensitively and skips prose", func(t *testing.T) {
		t.Parallel()

		records := []model.Record{{Name: "Jane Doe"}, {Name: "John Roe"}}
		answer := "Here are the results I found:\n" +
			"```\n" +
			"name,email,extra_emails\n" +
			"JANE DOE,jane@janedoe.ca,\n" +
			"```\n" +
			"Let me know if you need anything else."

		merged := mergeAnswer(records, []int{0, 1}, answer, []string{model.ColumnEmail, model.ColumnExtraEmails})
		if merged != 1 {
			t.Errorf("merged = %d, want 1", merged)
		}
		if records[0].Email != "jane@janedoe.ca" {
			t.Errorf("email = %q", records[0].Email)
		}
		if records[1].Email != "" {
			t.Errorf("unmatched record filled: %q", records[1].Email)
		}
	})

	t.Run("placeholder values are treated as empty", func(t *testing.T) {
		t.Parallel()

		records := []model.Record{{Name: "Jane Doe"}}
		merged := mergeAnswer(records, []int{0}, "Jane Doe,not found,N/A", []string{model.ColumnEmail, model.ColumnExtraEmails})
		if merged != 0 {
			t.Errorf("merged = %d, want 0", merged)
		}
		if records[0].Email != "" || records[0].ExtraEmails != "" {
			t.Errorf("record = %+v", records[0])
		}
	})

	t.Run("never touches records outside the batch", func(t *testing.T) {
		t.Parallel()

		records := []model.Record{{Name: "Jane Doe"}, {Name: "John Roe"}}
		mergeAnswer(records, []int{0}, "John Roe,john@roe.ca,", []string{model.ColumnEmail, model.ColumnExtraEmails})
		if records[1].Email != "" {
			t.Errorf("out-of-batch record filled: %q", records[1].Email)
		}
	})
}

// TestPromptBatchJSON tests that both prompts embed the batch as a JSON
// array, keeping names verbatim for the merge-back.
func TestPromptBatchJSON(t *testing.T) {
	t.Parallel()

	batch := []model.Record{
		{Name: `Jane "JJ" Doe`, Phone: "306-555-1234", Website: "https://janedoe.ca"},
		{Name: "John Roe", Website: "https://johnroe.ca"},
	}

	extractArray := func(t *testing.T, prompt string) []map[string]string {
		t.Helper()
		start := strings.Index(prompt, "[{")
		end := strings.LastIndex(prompt, "}]")
		if start < 0 || end < start {
			t.Fatalf("prompt carries no JSON array:\n%s", prompt)
		}
		var entries []map[string]string
		if err := json.Unmarshal([]byte(prompt[start:end+2]), &entries); err != nil {
			t.Fatalf("embedded array does not parse: %v", err)
		}
		return entries
	}

	t.Run("enricher embeds name and website", func(t *testing.T) {
		t.Parallel()

		entries := extractArray(t, enricherPrompt(batch))
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2", len(entries))
		}
		if entries[0]["name"] != `Jane "JJ" Doe` || entries[0]["website"] != "https://janedoe.ca" {
			t.Errorf("entry = %v", entries[0])
		}
	})

	t.Run("completer embeds name and optional phone", func(t *testing.T) {
		t.Parallel()

		entries := extractArray(t, completerPrompt(batch))
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2", len(entries))
		}
		if entries[0]["phone"] != "306-555-1234" {
			t.Errorf("entry = %v", entries[0])
		}
		if _, ok := entries[1]["phone"]; ok {
			t.Errorf("empty phone serialized: %v", entries[1])
		}
	})
}
