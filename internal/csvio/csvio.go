package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/croneb/leadscan/internal/model"
)

// ErrEmptyFile is returned when a CSV file has no header row at all.
// A header-only file is not an error: it decodes to zero records, and
// downstream stages are required to tolerate empty inputs.
var ErrEmptyFile = errors.New("csv file has no header row")

// ReadRecords loads records from a CSV file. The first row is the header;
// columns are matched by name so files with extra or reordered columns
// still load. Short rows are tolerated because the enrichment services
// occasionally return ragged output that ends up re-ingested.
func ReadRecords(path string) ([]model.Record, error) {
	f, err := os.Open(path) //nolint:gosec // Stage hand-off path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	return DecodeRecords(f)
}

// DecodeRecords decodes records from CSV content.
func DecodeRecords(r io.Reader) ([]model.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	records := make([]model.Record, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		var rec model.Record
		for i, col := range header {
			if i >= len(row) {
				break
			}
			rec.SetField(col, row[i])
		}
		records = append(records, rec)
	}

	return records, nil
}

// WriteRecords writes records to a CSV file with the given column set.
// The header row is always written, even for zero records, so a failed or
// empty run still produces a well-formed file for downstream stages.
func WriteRecords(path string, columns []string, records []model.Record) error {
	f, err := os.Create(path) //nolint:gosec // Stage hand-off path is intentional
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}

	if err := EncodeRecords(f, columns, records); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close csv: %w", err)
	}
	return nil
}

// EncodeRecords encodes records as CSV with the given column set.
func EncodeRecords(w io.Writer, columns []string, records []model.Record) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = rec.Field(col)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
