package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/croneb/leadscan/internal/chunk"
	"github.com/croneb/leadscan/internal/config"
)

// NewChunkCmd creates the chunk command.
func NewChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <input-csv>",
		Short: "Split a CSV file into fixed-size chunks",
		Long: `Chunk splits a CSV file into smaller files of at most a fixed number of
data rows each, repeating the header in every chunk. Record order is
preserved, so concatenating the chunks reproduces the original file.

Examples:
  # Split into chunks of 30 rows (the default)
  leadscan chunk final-output.csv

  # Split into chunks of 100 rows in a custom directory
  leadscan chunk final-output.csv --size 100 --dir exports`,
		Args: cobra.ExactArgs(1),
		RunE: runChunkCmd,
	}

	cmd.Flags().IntP("size", "s", chunk.DefaultChunkSize,
		"Maximum data rows per chunk")
	cmd.Flags().StringP("dir", "d", config.DefaultChunkDir,
		"Directory to write chunks into")

	return cmd
}

// runChunkCmd executes the chunk command.
func runChunkCmd(cmd *cobra.Command, args []string) error {
	size, err := cmd.Flags().GetInt("size")
	if err != nil {
		return err
	}
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	chunker, err := chunk.New(size, dir)
	if err != nil {
		return err
	}

	paths, err := chunker.Split(args[0])
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No data rows in %s, nothing to split\n", args[0])
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks to %s:\n", len(paths), dir)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
	}
	return nil
}
