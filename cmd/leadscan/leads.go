package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/database"
	"github.com/croneb/leadscan/internal/model"
	"github.com/spf13/cobra"
)

// shortRunIDLen truncates run IDs in listings; the full UUID is noise.
const shortRunIDLen = 8

// NewLeadsCmd creates the leads command.
// This command reads back the lead database written by --save-db runs.
func NewLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List leads stored in the database",
		Long: `Leads displays the contact records accumulated in the local database.

Scrape and pipeline runs started with --save-db append their records here,
deduplicated by realtor name, so the listing is the union of every saved run.

Examples:
  # List every stored lead
  leadscan leads

  # List the run history instead
  leadscan leads --runs

  # List the last three runs as JSON
  leadscan leads --runs --limit 3 --json

  # Read a database in a non-default location
  leadscan leads --db-dir ./data`,
		Args: cobra.NoArgs,
		RunE: runLeadsCmd,
	}

	cmd.Flags().BoolP("runs", "r", false,
		"List run history instead of leads")
	cmd.Flags().IntP("limit", "n", 10,
		"Maximum number of runs to list (with --runs)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the lead database")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runLeadsCmd executes the leads command.
func runLeadsCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	listRuns, err := cmd.Flags().GetBool("runs")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Listing never creates the database; a missing file means no run has
	// been saved yet and the open error says where one would go.
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open lead database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if listRuns {
		return listRunHistory(ctx, cmd.OutOrStdout(), db, limit, jsonOutput)
	}
	return listStoredLeads(ctx, cmd.OutOrStdout(), db, jsonOutput)
}

// listStoredLeads lists every stored lead, ordered by name.
func listStoredLeads(ctx context.Context, w io.Writer, db *database.LeadsDB, jsonOutput bool) error {
	count, err := db.LeadCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count leads: %w", err)
	}
	if count == 0 {
		fmt.Fprintln(w, "No leads stored in the database.")
		fmt.Fprintln(w, "\nUse 'leadscan scrape --save-db' to collect and save records.")
		return nil
	}

	records, err := db.ListLeads(ctx)
	if err != nil {
		return fmt.Errorf("failed to list leads: %w", err)
	}

	if jsonOutput {
		return writeLeadsJSON(w, records)
	}

	fmt.Fprintf(w, "Stored leads (%d):\n\n", count)
	fmt.Fprintf(w, "  %-28s  %-16s  %s\n", "Name", "Phone", "Email")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 60))
	for _, rec := range records {
		fmt.Fprintf(w, "  %-28s  %-16s  %s\n", rec.Name, rec.Phone, rec.Email)
	}

	return nil
}

// listRunHistory lists the most recent saved runs, newest first.
func listRunHistory(ctx context.Context, w io.Writer, db *database.LeadsDB, limit int, jsonOutput bool) error {
	runs, err := db.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored in the database.")
		fmt.Fprintln(w, "\nUse 'leadscan scrape --save-db' to collect and save records.")
		return nil
	}

	if jsonOutput {
		return writeRunsJSON(w, runs)
	}

	fmt.Fprintf(w, "Run history (%d runs):\n\n", len(runs))
	fmt.Fprintf(w, "  %-10s  %-10s  %-8s  %-20s  %s\n", "ID", "Stage", "Records", "Started", "Letters")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 70))
	for _, run := range runs {
		fmt.Fprintf(w, "  %-10s  %-10s  %-8d  %-20s  %s\n",
			shortRunID(run.ID),
			run.Stage,
			run.Records,
			run.Started.Format("2006-01-02 15:04:05"),
			run.Letters,
		)
	}

	return nil
}

// shortRunID truncates a run ID for display.
func shortRunID(id string) string {
	if len(id) > shortRunIDLen {
		return id[:shortRunIDLen]
	}
	return id
}

// leadJSON is the JSON shape of one stored lead.
type leadJSON struct {
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Website     string `json:"website,omitempty"`
	ExtraEmails string `json:"extra_emails,omitempty"`
	Confidence  string `json:"confidence,omitempty"`
}

func writeLeadsJSON(w io.Writer, records []model.Record) error {
	leads := make([]leadJSON, 0, len(records))
	for _, rec := range records {
		leads = append(leads, leadJSON{
			Name:        rec.Name,
			Phone:       rec.Phone,
			Email:       rec.Email,
			Website:     rec.Website,
			ExtraEmails: rec.ExtraEmails,
			Confidence:  rec.Confidence,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(leads)
}

// runJSON is the JSON shape of one stored run.
type runJSON struct {
	ID       string `json:"id"`
	Stage    string `json:"stage"`
	Letters  string `json:"letters"`
	Records  int    `json:"records"`
	Started  string `json:"started"`
	Finished string `json:"finished"`
}

func writeRunsJSON(w io.Writer, runs []database.RunRecord) error {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON{
			ID:       run.ID,
			Stage:    run.Stage,
			Letters:  run.Letters,
			Records:  run.Records,
			Started:  run.Started.Format("2006-01-02 15:04:05"),
			Finished: run.Finished.Format("2006-01-02 15:04:05"),
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
