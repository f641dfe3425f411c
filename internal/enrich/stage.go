package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/croneb/leadscan/internal/anthropic"
	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/csvio"
	"github.com/croneb/leadscan/internal/model"
)

// completionClient is the completion surface a stage needs.
// *anthropic.Client satisfies it; tests substitute a fake.
type completionClient interface {
	CompleteWithSearch(ctx context.Context, model, prompt string, maxTokens, maxToolUses int) (*anthropic.Response, error)
}

// Stage batches selected records through the completion service and merges
// the answers back by name. Records the stage does not select, and records
// whose batch fails, pass through unchanged apart from default fills; the
// output always contains every input record in input order.
type Stage struct {
	// name identifies the stage in logs.
	name string

	// columns is the output CSV header.
	columns []string

	// selects reports whether a record needs this stage.
	selects func(model.Record) bool

	// prompt builds the service prompt for one batch.
	prompt func([]model.Record) string

	// answerColumns are the per-line answer fields after the leading name.
	answerColumns []string

	// fill applies the stage's defaults to a record after merging.
	fill func(*model.Record)

	// output is the CSV the stage writes.
	output string

	client completionClient
	cfg    *config.Config
	logger *slog.Logger
	sink   *answerSink
}

// Name identifies the stage.
func (s *Stage) Name() string { return s.name }

// Run reads the input CSV, processes batches, and writes the output CSV.
// An empty or header-only input yields a header-only output and no service
// calls. Individual batch failures are logged and skipped.
func (s *Stage) Run(ctx context.Context, inputPath string) (string, error) {
	records, err := csvio.ReadRecords(inputPath)
	if err != nil && !errors.Is(err, csvio.ErrEmptyFile) {
		return "", fmt.Errorf("failed to read %s input: %w", s.name, err)
	}

	targets := make([]int, 0, len(records))
	for i, rec := range records {
		if s.selects(rec) {
			targets = append(targets, i)
		}
	}
	s.logger.Info("starting batches",
		"stage", s.name,
		"records", len(records),
		"selected", len(targets),
	)

	for start := 0; start < len(targets); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(targets) {
			end = len(targets)
		}
		idx := start/s.cfg.BatchSize + 1

		if err := ctx.Err(); err != nil {
			return "", err
		}
		s.runBatch(ctx, records, targets[start:end], idx)
	}

	if s.fill != nil {
		for i := range records {
			s.fill(&records[i])
		}
	}

	if err := csvio.WriteRecords(s.output, s.columns, records); err != nil {
		return "", fmt.Errorf("failed to write %s output: %w", s.name, err)
	}
	return s.output, nil
}

// runBatch sends one batch and merges its answer. Failures never abort the
// stage: the batch's records simply keep whatever they already had.
func (s *Stage) runBatch(ctx context.Context, records []model.Record, batch []int, idx int) {
	members := make([]model.Record, 0, len(batch))
	for _, i := range batch {
		members = append(members, records[i])
	}

	resp, err := s.client.CompleteWithSearch(ctx, s.cfg.Model, s.prompt(members), s.cfg.MaxTokens, s.cfg.MaxToolUses)
	if err != nil {
		s.logger.Warn("batch failed",
			"stage", s.name,
			"batch", idx,
			"size", len(batch),
			"error", err,
		)
		return
	}

	answer := resp.Text()
	if path, err := s.sink.save(idx, answer); err != nil {
		s.logger.Warn("failed to persist batch answer", "stage", s.name, "batch", idx, "error", err)
	} else {
		s.logger.Debug("saved batch answer", "stage", s.name, "path", path)
	}

	merged := mergeAnswer(records, batch, answer, s.answerColumns)
	s.logger.Info("batch done",
		"stage", s.name,
		"batch", idx,
		"size", len(batch),
		"merged", merged,
	)
}
