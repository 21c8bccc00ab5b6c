package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"fotocasa-scraper/models"
)

// ListingCSVWriter appends listing records to anuncios.csv. The header row is
// written only when the physical file is empty, so repeated runs keep a single
// header. It is safe for concurrent use.
type ListingCSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewListingCSVWriter opens (or creates) the CSV file at path in append mode.
// Intermediate directories are created automatically.
func NewListingCSVWriter(path string) (*ListingCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if info.Size() == 0 {
		if err := w.Write(models.ListingHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
	}

	return &ListingCSVWriter{file: f, writer: w}, nil
}

// Write appends one record and flushes it to disk.
func (c *ListingCSVWriter) Write(r *models.ListingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(r.Row()); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("csv: flush row: %w", err)
	}
	c.rows++
	return nil
}

// Rows returns how many records this writer appended.
func (c *ListingCSVWriter) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close flushes and closes the underlying file.
func (c *ListingCSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

// ReadListings loads every record from a listings CSV, skipping the header.
// A missing file yields no records.
func ReadListings(path string) ([]*models.ListingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []*models.ListingRecord
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read %q: %w", path, err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == models.ListingHeader[0] {
				continue
			}
		}
		out = append(out, models.RecordFromRow(row))
	}
	return out, nil
}
