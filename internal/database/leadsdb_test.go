package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/croneb/leadscan/internal/model"
)

func openTestDB(t *testing.T) *LeadsDB {
	t.Helper()
	ldb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ldb.Close() })
	return ldb
}

func testRun() *RunRecord {
	return &RunRecord{
		ID:       uuid.NewString(),
		Stage:    "scrape",
		Letters:  "ab",
		Started:  time.Now().Add(-time.Minute),
		Finished: time.Now(),
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file when allowed", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested")
		ldb, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = ldb.Close() }()

		if got, want := ldb.Path(), filepath.Join(dir, "leadscan.db"); got != want {
			t.Errorf("Path() = %s, want %s", got, want)
		}
	})

	t.Run("fails when database missing and creation disabled", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})
}

func TestLeadsDBSaveRun(t *testing.T) {
	t.Parallel()

	t.Run("stores run and leads", func(t *testing.T) {
		t.Parallel()

		ldb := openTestDB(t)
		ctx := context.Background()

		inserted, err := ldb.SaveRun(ctx, testRun(), []model.Record{
			{Name: "Jane Doe", Phone: "(306) 555-1234", Email: "jane@janedoe.ca"},
			{Name: "John Roe"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if inserted != 2 {
			t.Errorf("inserted = %d, want 2", inserted)
		}

		leads, err := ldb.ListLeads(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(leads) != 2 {
			t.Fatalf("leads = %d, want 2", len(leads))
		}
		if leads[0].Name != "Jane Doe" || leads[0].Email != "jane@janedoe.ca" {
			t.Errorf("lead = %+v", leads[0])
		}
	})

	t.Run("keeps the first occurrence across runs", func(t *testing.T) {
		t.Parallel()

		ldb := openTestDB(t)
		ctx := context.Background()

		if _, err := ldb.SaveRun(ctx, testRun(), []model.Record{
			{Name: "Jane Doe", Email: "first@janedoe.ca"},
		}); err != nil {
			t.Fatal(err)
		}

		// Same name, different case: the stored row wins.
		inserted, err := ldb.SaveRun(ctx, testRun(), []model.Record{
			{Name: "JANE DOE", Email: "second@janedoe.ca"},
			{Name: "John Roe"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if inserted != 1 {
			t.Errorf("inserted = %d, want 1", inserted)
		}

		leads, err := ldb.ListLeads(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(leads) != 2 {
			t.Fatalf("leads = %d, want 2", len(leads))
		}
		if leads[0].Email != "first@janedoe.ca" {
			t.Errorf("email = %q, want first occurrence kept", leads[0].Email)
		}

		count, err := ldb.LeadCount(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})

	t.Run("records run history newest first", func(t *testing.T) {
		t.Parallel()

		ldb := openTestDB(t)
		ctx := context.Background()

		old := testRun()
		old.Started = time.Now().Add(-time.Hour)
		if _, err := ldb.SaveRun(ctx, old, nil); err != nil {
			t.Fatal(err)
		}

		recent := testRun()
		recent.Stage = "run"
		if _, err := ldb.SaveRun(ctx, recent, []model.Record{{Name: "Jane Doe"}}); err != nil {
			t.Fatal(err)
		}

		runs, err := ldb.RecentRuns(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 2 {
			t.Fatalf("runs = %d, want 2", len(runs))
		}
		if runs[0].ID != recent.ID || runs[0].Stage != "run" || runs[0].Records != 1 {
			t.Errorf("latest run = %+v", runs[0])
		}
	})
}
