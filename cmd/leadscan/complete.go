package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/enrich"
)

// NewCompleteCmd creates the complete command.
func NewCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete [input-csv]",
		Short: "Find remaining emails by searching the web by name",
		Long: `Complete reads an enriched CSV and, for every record still missing an
email address, asks the completion service to search the open web by the
realtor's name. Found emails are merged back together with a confidence
score between 0 and 1; records that already had an email keep it and get
a confidence of 1.0.

Requires an Anthropic API key in the ANTHROPIC_API_KEY environment variable
or a .env file.

Examples:
  # Complete the default enricher output
  leadscan complete

  # Complete a specific file
  leadscan complete personal-output.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompleteCmd,
	}

	addServiceFlags(cmd)
	cmd.Flags().String("out", config.DefaultCompleterOutput,
		"Output CSV file path")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .leadscan in current or home directory)")

	return cmd
}

// runCompleteCmd executes the complete command.
func runCompleteCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildServiceConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.CompleterOutput, err = cmd.Flags().GetString("out"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	input := cfg.EnricherOutput
	if len(args) == 1 {
		input = args[0]
	}

	client, err := newCompletionClient(cfg, logger)
	if err != nil {
		return err
	}

	stage := enrich.NewCompleter(cfg, client, logger)
	return runStage(ctx, cfg, stage, input)
}
