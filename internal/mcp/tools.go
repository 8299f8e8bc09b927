package mcp

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/daysync/internal/models"
)

// defaultDateRange returns start/end defaulting to the last 30 days.
func defaultDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = time.Parse(models.DateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = time.Parse(models.DateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

// --- Tool definitions ---

var toolGetDailyMetrics = mcp.NewTool("get_daily_metrics",
	mcp.WithDescription("Retrieve synced daily records in a date range. Each record maps column names to values; empty string means not recorded."),
	mcp.WithString("start", mcp.Description("Start date (YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (YYYY-MM-DD). Defaults to today.")),
)

var toolGetMetricSummary = mcp.NewTool("get_metric_summary",
	mcp.WithDescription("Aggregate statistics (count, avg, min, max) for one numeric column over a date range. Days without a value are skipped."),
	mcp.WithString("column", mcp.Required(), mcp.Description("Column name exactly as synced (e.g. 'Sleep Score', 'Steps', 'Running Distance (km)')")),
	mcp.WithString("start", mcp.Description("Start date (YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (YYYY-MM-DD). Defaults to today.")),
)

var toolListColumns = mcp.NewTool("list_columns",
	mcp.WithDescription("List all column names in the daily record schema, in sheet order."),
)

// --- Tool handlers ---

func (h *handlers) getDailyMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultDateRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	records, err := h.ds.Records(ctx)
	if err != nil {
		h.log.Error("mcp get_daily_metrics", "error", err)
		return mcp.NewToolResultError("reading records failed: " + err.Error()), nil
	}

	var out []map[string]string
	for i := range records {
		if records[i].Date.Before(start) || records[i].Date.After(end) {
			continue
		}
		out = append(out, recordMap(&records[i]))
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getMetricSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	column, err := req.RequireString("column")
	if err != nil {
		return mcp.NewToolResultError("column parameter is required"), nil
	}

	idx := -1
	for i, name := range models.Headers() {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("unknown column %q; use list_columns", column)), nil
	}

	start, end, err := defaultDateRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	records, err := h.ds.Records(ctx)
	if err != nil {
		h.log.Error("mcp get_metric_summary", "error", err)
		return mcp.NewToolResultError("reading records failed: " + err.Error()), nil
	}

	var count int
	var sum float64
	min, max := math.Inf(1), math.Inf(-1)
	for i := range records {
		if records[i].Date.Before(start) || records[i].Date.After(end) {
			continue
		}
		cell := records[i].Row()[idx]
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			continue
		}
		count++
		sum += v
		min = math.Min(min, v)
		max = math.Max(max, v)
	}

	summary := map[string]any{
		"column": column,
		"start":  start.Format(models.DateLayout),
		"end":    end.Format(models.DateLayout),
		"count":  count,
	}
	if count > 0 {
		summary["avg"] = sum / float64(count)
		summary["min"] = min
		summary["max"] = max
	}

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listColumns(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(models.Headers())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
