package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claude/daysync/internal/models"
)

// CSVSink stores rows in a local CSV file with the schema header as the first
// row. Writes rewrite the whole file through a temp file and rename, so a
// failed run never leaves a half-written store behind.
type CSVSink struct {
	path string
}

// NewCSVSink creates a sink backed by the CSV file at path. The file does not
// need to exist yet; the first write creates it with the header row.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) ListRows(_ context.Context) ([]KeyedRow, error) {
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var rows []KeyedRow
	for i, rec := range records {
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		rows = append(rows, KeyedRow{Date: rec[0], Position: i + 1})
	}
	return rows, nil
}

func (s *CSVSink) WriteRows(_ context.Context, updates []RowUpdate, appends [][]string) error {
	records, err := s.readAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		records = [][]string{models.Headers()}
	}

	for _, u := range updates {
		idx := u.Position - 1
		if idx < 0 || idx >= len(records) {
			return fmt.Errorf("update position %d out of range (%d rows)", u.Position, len(records))
		}
		records[idx] = u.Cells
	}
	records = append(records, appends...)

	return s.writeAll(records)
}

func (s *CSVSink) readAll() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Rows written by older schema versions may be shorter.
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return records, nil
}

func (s *CSVSink) writeAll(records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
