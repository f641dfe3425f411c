package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/croneb/leadscan/internal/model"
)

// LeadsDB provides SQLite-based storage for lead records and run history.
//
// Design decision: one database file accumulates leads across runs and the
// leads table deduplicates on the folded name, so re-running the collector
// grows the set instead of duplicating it.
type LeadsDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures LeadsDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a LeadsDB at the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error
// is returned.
func Open(dbDir string, opts Options) (*LeadsDB, error) {
	dbPath := filepath.Join(dbDir, "leadscan.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ldb := &LeadsDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ldb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ldb, nil
}

// Close closes the database connection.
func (ldb *LeadsDB) Close() error {
	return ldb.db.Close()
}

// Path returns the path to the SQLite database file.
func (ldb *LeadsDB) Path() string {
	return ldb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (ldb *LeadsDB) createTables() error {
	schema := `
	-- Runs store one row per pipeline invocation
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		letters TEXT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		started DATETIME NOT NULL,
		finished DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	-- Leads accumulate across runs, deduplicated on the folded name
	CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		dedup_key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		website TEXT,
		extra_emails TEXT,
		confidence TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_leads_run ON leads(run_id);
	CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
	`

	_, err := ldb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord represents one stored pipeline run.
type RunRecord struct {
	ID       string
	Stage    string
	Letters  string
	Records  int
	Started  time.Time
	Finished time.Time
}

// SaveRun stores a run and its records in one transaction. Records whose
// folded name is already stored are skipped, keeping the first occurrence.
// It returns the number of newly inserted leads.
func (ldb *LeadsDB) SaveRun(ctx context.Context, run *RunRecord, records []model.Record) (int, error) {
	tx, err := ldb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, stage, letters, records, started, finished) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Stage, run.Letters, len(records), run.Started, run.Finished,
	); err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO leads (run_id, dedup_key, name, phone, email, website, extra_emails, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare lead insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, rec := range records {
		result, err := stmt.ExecContext(ctx,
			run.ID, model.DedupKey(rec.Name),
			rec.Name, rec.Phone, rec.Email, rec.Website, rec.ExtraEmails, rec.Confidence,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert lead %q: %w", rec.Name, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count inserted leads: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return inserted, nil
}

// LeadCount returns the total number of stored leads.
func (ldb *LeadsDB) LeadCount(ctx context.Context) (int, error) {
	var n int
	if err := ldb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// ListLeads returns all stored leads ordered by name.
func (ldb *LeadsDB) ListLeads(ctx context.Context) ([]model.Record, error) {
	rows, err := ldb.db.QueryContext(ctx,
		`SELECT name, phone, email, website, extra_emails, confidence FROM leads ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		var phone, email, website, extra, confidence sql.NullString
		if err := rows.Scan(&rec.Name, &phone, &email, &website, &extra, &confidence); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		rec.Phone = phone.String
		rec.Email = email.String
		rec.Website = website.String
		rec.ExtraEmails = extra.String
		rec.Confidence = confidence.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return records, nil
}

// RecentRuns returns the most recent runs, newest first.
func (ldb *LeadsDB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := ldb.db.QueryContext(ctx,
		`SELECT id, stage, letters, records, started, finished FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.ID, &run.Stage, &run.Letters, &run.Records, &run.Started, &run.Finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
