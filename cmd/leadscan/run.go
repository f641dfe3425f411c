package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/croneb/leadscan/internal/collector"
	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/csvio"
	"github.com/croneb/leadscan/internal/enrich"
	"github.com/croneb/leadscan/internal/pipeline"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape and optionally enrich in one pass",
		Long: `Run executes the full pipeline: scrape the directory, then optionally
push the records through the enricher and completer stages. Both enrichment
stages are off by default because they call a paid completion service;
enable them explicitly.

Examples:
  # Scrape only (same as leadscan scrape)
  leadscan run

  # Scrape, then search realtor websites for emails
  leadscan run --enrich

  # Full pipeline including the web-search fallback
  leadscan run --enrich --complete`,
		RunE: runRunCmd,
	}

	addScrapeFlags(cmd)
	addServiceFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().Bool("enrich", false,
		"Search realtor websites for missing emails")
	cmd.Flags().Bool("complete", false,
		"Search the web by name for emails still missing (implies confidence scores)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .leadscan in current or home directory)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildScrapeConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	if cfg.Model, err = cmd.Flags().GetString("model"); err != nil {
		return err
	}
	if cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries"); err != nil {
		return err
	}
	withEnrich, err := cmd.Flags().GetBool("enrich")
	if err != nil {
		return err
	}
	withComplete, err := cmd.Flags().GetBool("complete")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runPipeline(ctx, cfg, withEnrich, withComplete, logger)
}

// runPipeline scrapes and then threads the output through the enabled
// enrichment stages.
func runPipeline(ctx context.Context, cfg *config.Config, withEnrich, withComplete bool, logger *slog.Logger) error {
	summary := newSummary("run")

	stop := startSpinner(fmt.Sprintf("Scraping letters %q...", cfg.Letters), cfg.Verbose)
	result, err := collector.New(cfg, collector.WithLogger(logger)).Run(ctx)
	stop()
	if err != nil {
		return err
	}
	fillScrapeSummary(summary, result)

	output := result.OutputPath
	if withEnrich || withComplete {
		client, err := newCompletionClient(cfg, logger)
		if err != nil {
			return err
		}

		p := pipeline.New(pipeline.WithLogger(logger))
		if withEnrich {
			p.AddStage(enrich.NewEnricher(cfg, client, logger))
		}
		if withComplete {
			p.AddStage(enrich.NewCompleter(cfg, client, logger))
		}

		stop = startSpinner("Enriching records...", cfg.Verbose)
		output, err = p.Execute(ctx, output)
		stop()
		if err != nil {
			return err
		}
	}

	records, err := csvio.ReadRecords(output)
	if err != nil && !errors.Is(err, csvio.ErrEmptyFile) {
		return err
	}

	summary.Finished = time.Now()
	summary.OutputPath = output
	summary.CountFields(records)

	if err := saveRun(ctx, cfg, summary, records, logger); err != nil {
		logger.Error("failed to save run to database", "error", err)
	}
	return outputSummary(cfg, summary)
}
