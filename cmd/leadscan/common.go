package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/croneb/leadscan/internal/anthropic"
	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/database"
	"github.com/croneb/leadscan/internal/log"
	"github.com/croneb/leadscan/internal/model"
	"github.com/croneb/leadscan/internal/report"
)

// setupLogger creates a structured logger based on verbosity setting.
// All log output passes through the sanitizing handler so API keys never
// reach the terminal.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(log.NewSecureHandler(handler))
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// startSpinner starts a terminal spinner unless verbose logging is on,
// where it would interleave with log lines. The returned stop function is
// safe to call when no spinner was started.
func startSpinner(message string, verbose bool) func() {
	if verbose {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()
	return s.Stop
}

// applyConfigFile merges a YAML config file into cfg. An explicitly given
// path must exist; the default locations are optional.
func applyConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	found := config.FindConfigFile(configPath)
	if found == "" {
		if configPath != "" {
			return fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil
	}

	file, err := config.LoadFile(found)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	return file.Apply(cfg)
}

// applyReportFlags reads the shared report flags into cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

// addReportFlags registers the shared report flags on a command.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// newCompletionClient builds the completion service client from cfg.
// The API key comes from the environment or a .env file.
func newCompletionClient(cfg *config.Config, logger *slog.Logger) (*anthropic.Client, error) {
	cfg.APIKey = config.LoadAPIKey()
	if cfg.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}

	return anthropic.NewClient(cfg.APIKey,
		anthropic.WithLogger(logger),
		anthropic.WithThrottle(cfg.MinRequestInterval),
		anthropic.WithRetry(cfg.MaxRetries, cfg.BackoffBase),
	)
}

// newSummary creates a run summary skeleton with a fresh run id.
func newSummary(stage string) *report.Summary {
	return &report.Summary{
		RunID:   uuid.NewString(),
		Stage:   stage,
		Started: time.Now(),
	}
}

// outputSummary renders the summary in the requested format, to stdout or
// the report file.
func outputSummary(cfg *config.Config, summary *report.Summary) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output)
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(summary)
	return err
}

// saveRun persists the records to SQLite if enabled. A storage failure is
// reported to the caller but should not discard the CSV output already
// written.
func saveRun(ctx context.Context, cfg *config.Config, summary *report.Summary, records []model.Record, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	run := &database.RunRecord{
		ID:       summary.RunID,
		Stage:    summary.Stage,
		Letters:  cfg.Letters,
		Started:  summary.Started,
		Finished: summary.Finished,
	}
	inserted, err := db.SaveRun(ctx, run, records)
	if err != nil {
		return err
	}

	summary.DBPath = db.Path()
	logger.Info("run saved to database",
		"path", db.Path(),
		"new_leads", inserted,
	)
	return nil
}
