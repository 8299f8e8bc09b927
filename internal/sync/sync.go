// Package sync drives one run: authenticate, walk the date range day by day,
// fetch raw payloads, normalize, and collect the batch for the sink.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/daysync/internal/garmin"
	"github.com/claude/daysync/internal/models"
	"github.com/claude/daysync/internal/normalize"
)

// Source supplies raw per-day payloads. *garmin.Client implements it.
type Source interface {
	Authenticate(ctx context.Context) error
	FetchDay(ctx context.Context, day time.Time) (*garmin.DayPayloads, error)
}

// Result holds the outcome of one sync run.
type Result struct {
	Days         int `json:"days"`
	DaysDegraded int `json:"days_degraded"`
}

// Run produces one DailyMetrics record per date in [start, end], ascending.
// Callers must ensure start <= end. Authentication failure is fatal and
// produces no batch; a failed fetch for one day is logged and that day
// degrades to whatever could be normalized (at minimum the date itself).
func Run(ctx context.Context, src Source, start, end time.Time, log *slog.Logger) ([]models.DailyMetrics, *Result, error) {
	if err := src.Authenticate(ctx); err != nil {
		return nil, nil, fmt.Errorf("authenticating: %w", err)
	}

	log.Info("fetching metrics",
		"start", start.Format(models.DateLayout),
		"end", end.Format(models.DateLayout))

	res := &Result{}
	var batch []models.DailyMetrics

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}

		log.Info("fetching day", "date", day.Format(models.DateLayout))
		payloads, err := src.FetchDay(ctx, day)
		if err != nil {
			if ctx.Err() != nil {
				return nil, res, err
			}
			log.Warn("day fetch failed, record degrades to date only",
				"date", day.Format(models.DateLayout), "error", err)
			payloads = nil
			res.DaysDegraded++
		}

		batch = append(batch, normalize.Day(log, day, payloads))
		res.Days++
	}

	return batch, res, nil
}
