package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/csvio"
	"github.com/croneb/leadscan/internal/enrich"
	"github.com/croneb/leadscan/internal/pipeline"
)

// NewEnrichCmd creates the enrich command.
func NewEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich [input-csv]",
		Short: "Find emails by searching each realtor's website",
		Long: `Enrich reads a scraped CSV and, for every record that has a website but
no email address, asks the completion service to search the site for contact
emails. Answers are merged back by name; records already carrying an email
pass through untouched.

Requires an Anthropic API key in the ANTHROPIC_API_KEY environment variable
or a .env file.

Examples:
  # Enrich the default scrape output
  leadscan enrich

  # Enrich a specific file with smaller batches
  leadscan enrich myleads.csv --batch 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEnrichCmd,
	}

	addServiceFlags(cmd)
	cmd.Flags().String("out", config.DefaultEnricherOutput,
		"Output CSV file path")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .leadscan in current or home directory)")

	return cmd
}

// addServiceFlags registers the completion service flags shared by the
// enrichment commands.
func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Records per completion service request")
	cmd.Flags().String("model", config.DefaultModel,
		"Completion service model")
	cmd.Flags().Int("max-retries", config.DefaultMaxRetries,
		"Retries per request after rate limiting")
}

// buildServiceConfig creates a Config from enrichment command flags.
func buildServiceConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()
	cfg.Verbose = getVerboseFlag(cmd)

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Model, err = cmd.Flags().GetString("model"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runEnrichCmd executes the enrich command.
func runEnrichCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildServiceConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.EnricherOutput, err = cmd.Flags().GetString("out"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	input := cfg.CollectorOutput
	if len(args) == 1 {
		input = args[0]
	}

	client, err := newCompletionClient(cfg, logger)
	if err != nil {
		return err
	}

	stage := enrich.NewEnricher(cfg, client, logger)
	return runStage(ctx, cfg, stage, input)
}

// runStage executes one enrichment stage and prints its summary.
func runStage(ctx context.Context, cfg *config.Config, stage pipeline.Stage, input string) error {
	summary := newSummary(stage.Name())

	stop := startSpinner(fmt.Sprintf("Running %s on %s...", stage.Name(), input), cfg.Verbose)
	output, err := stage.Run(ctx, input)
	stop()
	if err != nil {
		return err
	}

	records, err := csvio.ReadRecords(output)
	if err != nil && !errors.Is(err, csvio.ErrEmptyFile) {
		return err
	}

	summary.Finished = time.Now()
	summary.OutputPath = output
	summary.CountFields(records)
	return outputSummary(cfg, summary)
}
