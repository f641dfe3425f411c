package csvio

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/croneb/leadscan/internal/model"
)

// TestReadWriteRecords tests the file round trip used at stage boundaries.
func TestReadWriteRecords(t *testing.T) {
	t.Parallel()

	t.Run("writes header and rows then reads them back", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.csv")
		in := []model.Record{
			{Name: "Jane Doe", Phone: "555-1234", Website: "https://jane.ca"},
			{Name: "John Roe", Email: "john@roe.ca"},
		}

		if err := WriteRecords(path, model.BaseColumns, in); err != nil {
			t.Fatalf("WriteRecords() error: %v", err)
		}

		got, err := ReadRecords(path)
		if err != nil {
			t.Fatalf("ReadRecords() error: %v", err)
		}

		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
		if got[0].Name != "Jane Doe" || got[0].Phone != "555-1234" {
			t.Errorf("first record = %+v", got[0])
		}
		if got[1].Email != "john@roe.ca" {
			t.Errorf("second record = %+v", got[1])
		}
	})

	t.Run("zero records still produces a header row", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := EncodeRecords(&buf, model.BaseColumns, nil); err != nil {
			t.Fatalf("EncodeRecords() error: %v", err)
		}

		if got := strings.TrimSpace(buf.String()); got != "name,phone,email,website" {
			t.Errorf("header-only output = %q", got)
		}
	})

	t.Run("header-only file decodes to zero records", func(t *testing.T) {
		t.Parallel()

		got, err := DecodeRecords(strings.NewReader("name,phone,email,website\n"))
		if err != nil {
			t.Fatalf("DecodeRecords() error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected 0 records, got %d", len(got))
		}
	})

	t.Run("completely empty file returns ErrEmptyFile", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeRecords(strings.NewReader(""))
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("expected ErrEmptyFile, got %v", err)
		}
	})
}

// TestDecodeRecordsColumnHandling tests header-driven decoding.
func TestDecodeRecordsColumnHandling(t *testing.T) {
	t.Parallel()

	t.Run("reordered and unknown columns", func(t *testing.T) {
		t.Parallel()

		csv := "email,name,listing_id\njane@doe.ca,Jane Doe,42\n"
		got, err := DecodeRecords(strings.NewReader(csv))
		if err != nil {
			t.Fatalf("DecodeRecords() error: %v", err)
		}

		if len(got) != 1 {
			t.Fatalf("expected 1 record, got %d", len(got))
		}
		if got[0].Name != "Jane Doe" || got[0].Email != "jane@doe.ca" {
			t.Errorf("record = %+v", got[0])
		}
	})

	t.Run("short rows are tolerated", func(t *testing.T) {
		t.Parallel()

		csv := "name,phone,email,website\nJane Doe,555-1234\n"
		got, err := DecodeRecords(strings.NewReader(csv))
		if err != nil {
			t.Fatalf("DecodeRecords() error: %v", err)
		}

		if len(got) != 1 || got[0].Phone != "555-1234" || got[0].Email != "" {
			t.Errorf("record = %+v", got)
		}
	})

	t.Run("enriched columns survive the round trip", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		in := []model.Record{{Name: "Jane Doe", ExtraEmails: "a@b.ca,c@d.ca", Confidence: "0.8"}}
		if err := EncodeRecords(&buf, model.FinalColumns, in); err != nil {
			t.Fatalf("EncodeRecords() error: %v", err)
		}

		got, err := DecodeRecords(&buf)
		if err != nil {
			t.Fatalf("DecodeRecords() error: %v", err)
		}
		if got[0].ExtraEmails != "a@b.ca,c@d.ca" || got[0].Confidence != "0.8" {
			t.Errorf("record = %+v", got[0])
		}
	})
}
