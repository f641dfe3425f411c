package chunk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultChunkSize is the default number of rows per chunk file.
// Matches the batch size the enrichment services are comfortable with.
const DefaultChunkSize = 30

// ErrInvalidChunkSize is returned when the chunk size is not positive.
var ErrInvalidChunkSize = errors.New("invalid chunk size: must be positive")

// Chunker splits a CSV into fixed-size chunk files, preserving the header
// and row order. Chunk files are named chunk-<n>.csv with n starting at 1.
type Chunker struct {
	// size is the maximum number of data rows per chunk file.
	size int

	// outputDir is the directory chunk files are written to.
	outputDir string
}

// New creates a Chunker writing chunks of the given size to outputDir.
func New(size int, outputDir string) (*Chunker, error) {
	if size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	return &Chunker{size: size, outputDir: outputDir}, nil
}

// Split reads the input CSV and writes ceil(rows/size) chunk files.
// Returns the paths of the chunk files in order. An input with only a
// header produces no chunk files.
func (c *Chunker) Split(inputPath string) ([]string, error) {
	f, err := os.Open(inputPath) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open input csv: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("input csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	if err := os.MkdirAll(c.outputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	var (
		paths   []string
		rows    [][]string
		chunkNo int
	)

	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		chunkNo++
		path := filepath.Join(c.outputDir, fmt.Sprintf("chunk-%d.csv", chunkNo))
		if err := writeChunk(path, header, rows); err != nil {
			return err
		}
		paths = append(paths, path)
		rows = rows[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		rows = append(rows, row)
		if len(rows) == c.size {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	return paths, nil
}

// writeChunk writes a single chunk file with the shared header.
func writeChunk(path string, header []string, rows [][]string) error {
	f, err := os.Create(path) //nolint:gosec // Chunk output path is derived from config
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write chunk header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write chunk rows: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close chunk file: %w", err)
	}
	return nil
}
