// Package mcp exposes the synced daily records to MCP clients: tools to fetch
// raw records and summarize a single column, plus a latest-day resource.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/daysync/internal/models"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("DaySync", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("DaySync daily health metrics. Query the synced per-day records (sleep, HRV, weight, activity totals and more). Empty values mean the metric was not recorded that day."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetDailyMetrics, Handler: h.getDailyMetrics},
		server.ServerTool{Tool: toolGetMetricSummary, Handler: h.getMetricSummary},
		server.ServerTool{Tool: toolListColumns, Handler: h.listColumns},
	)

	s.AddResources(
		server.ServerResource{Resource: resLatestDay, Handler: h.latestDay},
	)

	return s
}

type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resLatestDay = mcp.NewResource(
	"daysync://latest_day",
	"Latest Day",
	mcp.WithResourceDescription("The most recent synced daily record, as column name to value pairs"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) latestDay(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := h.ds.Records(ctx)
	if err != nil {
		return nil, err
	}

	var latest *models.DailyMetrics
	for i := range records {
		if latest == nil || records[i].Date.After(latest.Date) {
			latest = &records[i]
		}
	}

	var payload any
	if latest != nil {
		payload = recordMap(latest)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// recordMap renders one record as column name to serialized cell, the same
// values a spreadsheet row holds.
func recordMap(m *models.DailyMetrics) map[string]string {
	headers := models.Headers()
	cells := m.Row()
	out := make(map[string]string, len(headers))
	for i, h := range headers {
		out[h] = cells[i]
	}
	return out
}
