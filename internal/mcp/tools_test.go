package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/daysync/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDataSource struct {
	records []models.DailyMetrics
	err     error
}

func (f *fakeDataSource) Records(context.Context) ([]models.DailyMetrics, error) {
	return f.records, f.err
}

func fptr(v float64) *float64 { return &v }

func record(date string, score *float64) models.DailyMetrics {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return models.DailyMetrics{Date: d, SleepScore: score}
}

func callRequest(args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool returned error result: %+v", res.Content)
	}
	if len(res.Content) == 0 {
		t.Fatal("tool returned no content")
	}
	text, ok := res.Content[0].(mcpgo.TextContent)
	if !ok {
		t.Fatalf("content type %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestGetDailyMetricsFiltersRange(t *testing.T) {
	ds := &fakeDataSource{records: []models.DailyMetrics{
		record("2024-01-01", fptr(70)),
		record("2024-01-05", fptr(80)),
		record("2024-02-01", fptr(90)),
	}}
	h := &handlers{ds: ds, log: testLogger()}

	res, err := h.getDailyMetrics(context.Background(), callRequest(map[string]any{
		"start": "2024-01-01",
		"end":   "2024-01-31",
	}))
	if err != nil {
		t.Fatalf("getDailyMetrics: %v", err)
	}

	var out []map[string]string
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("records = %d, want 2", len(out))
	}
	if out[0]["Date"] != "2024-01-01" || out[1]["Date"] != "2024-01-05" {
		t.Errorf("dates = %s, %s", out[0]["Date"], out[1]["Date"])
	}
	if out[1]["Sleep Score"] != "80" {
		t.Errorf("sleep score cell = %q, want 80", out[1]["Sleep Score"])
	}
	if out[0]["Weight (kg)"] != "" {
		t.Errorf("absent weight = %q, want empty", out[0]["Weight (kg)"])
	}
}

func TestGetMetricSummary(t *testing.T) {
	ds := &fakeDataSource{records: []models.DailyMetrics{
		record("2024-01-01", fptr(70)),
		record("2024-01-02", nil), // skipped: no value that day
		record("2024-01-03", fptr(90)),
	}}
	h := &handlers{ds: ds, log: testLogger()}

	res, err := h.getMetricSummary(context.Background(), callRequest(map[string]any{
		"column": "Sleep Score",
		"start":  "2024-01-01",
		"end":    "2024-01-31",
	}))
	if err != nil {
		t.Fatalf("getMetricSummary: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if out["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", out["count"])
	}
	if out["avg"].(float64) != 80 {
		t.Errorf("avg = %v, want 80", out["avg"])
	}
	if out["min"].(float64) != 70 || out["max"].(float64) != 90 {
		t.Errorf("min/max = %v/%v, want 70/90", out["min"], out["max"])
	}
}

func TestGetMetricSummaryUnknownColumn(t *testing.T) {
	h := &handlers{ds: &fakeDataSource{}, log: testLogger()}

	res, err := h.getMetricSummary(context.Background(), callRequest(map[string]any{
		"column": "Mood",
	}))
	if err != nil {
		t.Fatalf("getMetricSummary: %v", err)
	}
	if !res.IsError {
		t.Error("unknown column did not produce an error result")
	}
}

func TestListColumns(t *testing.T) {
	h := &handlers{ds: &fakeDataSource{}, log: testLogger()}

	res, err := h.listColumns(context.Background(), mcpgo.CallToolRequest{})
	if err != nil {
		t.Fatalf("listColumns: %v", err)
	}

	var cols []string
	if err := json.Unmarshal([]byte(resultText(t, res)), &cols); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(cols) != len(models.Headers()) || cols[0] != "Date" {
		t.Errorf("columns = %v", cols)
	}
}
