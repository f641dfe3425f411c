// Package main provides the entry point for the leadscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for leadscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadscan",
		Short: "Build a realtor contact list from a public directory",
		Long: `Leadscan scrapes a public realtor directory letter by letter, extracts
contact records from the intercepted search responses, and writes them to CSV.

Records missing an email address can be enriched in two passes: the enricher
searches each realtor's own website, and the completer falls back to searching
the open web by name. Both passes need an Anthropic API key in the
ANTHROPIC_API_KEY environment variable or a .env file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewEnrichCmd())
	cmd.AddCommand(NewCompleteCmd())
	cmd.AddCommand(NewChunkCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewLeadsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
