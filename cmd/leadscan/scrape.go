package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/croneb/leadscan/internal/collector"
	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/report"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the realtor directory into a CSV file",
		Long: `Scrape opens the realtor directory one starting letter at a time in a
headless browser, intercepts the search API responses while scrolling, and
extracts name, phone, email, and website into a CSV file.

Raw intercepted payloads are saved alongside the output so extraction
problems can be diagnosed after the run.

Examples:
  # Scrape all letters with defaults
  leadscan scrape

  # Scrape a subset of letters with a visible browser
  leadscan scrape --letters abc --headless=false

  # Write a JSON report of the run
  leadscan scrape --json -o report.json`,
		RunE: runScrapeCmd,
	}

	addScrapeFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .leadscan in current or home directory)")

	return cmd
}

// addScrapeFlags registers the collection flags shared by scrape and run.
func addScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("letters", "l", config.Letters,
		"Starting letters to scrape")
	cmd.Flags().Bool("headless", true,
		"Run the browser headless")
	cmd.Flags().Int("max-scrolls", config.DefaultMaxScrolls,
		"Maximum scroll attempts per page")
	cmd.Flags().String("out", config.DefaultCollectorOutput,
		"Output CSV file path")
	cmd.Flags().Bool("save-db", true,
		"Persist collected leads to the SQLite database")
}

// buildScrapeConfig creates a Config from scrape command flags.
func buildScrapeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()
	cfg.Verbose = getVerboseFlag(cmd)

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	if cfg.Letters, err = cmd.Flags().GetString("letters"); err != nil {
		return nil, err
	}
	if cfg.Headless, err = cmd.Flags().GetBool("headless"); err != nil {
		return nil, err
	}
	if cfg.MaxScrolls, err = cmd.Flags().GetInt("max-scrolls"); err != nil {
		return nil, err
	}
	if cfg.CollectorOutput, err = cmd.Flags().GetString("out"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = cmd.Flags().GetBool("save-db"); err != nil {
		return nil, err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildScrapeConfig(cmd)
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

	return runScrape(ctx, cfg, logger)
}

// runScrape executes the collection and reports on it.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	summary := newSummary("scrape")

	stop := startSpinner(fmt.Sprintf("Scraping letters %q...", cfg.Letters), cfg.Verbose)
	result, err := collector.New(cfg, collector.WithLogger(logger)).Run(ctx)
	stop()
	if err != nil {
		return err
	}

	fillScrapeSummary(summary, result)

	if err := saveRun(ctx, cfg, summary, result.Records, logger); err != nil {
		logger.Error("failed to save run to database", "error", err)
	}
	return outputSummary(cfg, summary)
}

// fillScrapeSummary copies the collection result into the summary.
func fillScrapeSummary(summary *report.Summary, result *collector.Result) {
	summary.Finished = result.Finished
	summary.OutputPath = result.OutputPath
	summary.Captures = result.TotalCaptures()
	summary.CountFields(result.Records)
	for _, l := range result.Letters {
		summary.Letters = append(summary.Letters, report.LetterSummary{
			Letter:   l.Letter,
			Records:  l.Records,
			Captures: l.Captures,
			Err:      l.Err,
		})
	}
}
