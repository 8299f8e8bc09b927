package mcp

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/daysync/internal/models"
)

// DataSource abstracts where the synced records are read from. The bundled
// implementation reads the CSV destination store back through the schema.
type DataSource interface {
	Records(ctx context.Context) ([]models.DailyMetrics, error)
}

// CSVDataSource reads daily records from a CSV destination file.
type CSVDataSource struct {
	path string
	log  *slog.Logger
}

func NewCSVDataSource(path string, log *slog.Logger) *CSVDataSource {
	return &CSVDataSource{path: path, log: log}
}

func (d *CSVDataSource) Records(_ context.Context) ([]models.DailyMetrics, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}

	var records []models.DailyMetrics
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == models.Headers()[0] {
			continue
		}
		m, err := models.ParseRow(row)
		if err != nil {
			d.log.Warn("skipping unparseable row", "line", i+1, "error", err)
			continue
		}
		records = append(records, *m)
	}
	return records, nil
}
