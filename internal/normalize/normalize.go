// Package normalize turns the heterogeneous per-day payloads from Garmin into
// the fixed-schema DailyMetrics record. Every extraction is guarded field by
// field: a missing payload or sub-object leaves the dependent fields nil
// (unknown) while everything else is computed normally. Activity totals are
// the exception: they are always computable, so they default to real zeros.
package normalize

import (
	"log/slog"
	"sort"
	"time"

	"github.com/claude/daysync/internal/garmin"
	"github.com/claude/daysync/internal/models"
)

// Day builds the daily record for one date. It never returns an error: an
// unexpected failure inside extraction degrades the whole record to date-only
// and is logged, so one bad day never aborts a range.
func Day(log *slog.Logger, date time.Time, p *garmin.DayPayloads) (m models.DailyMetrics) {
	m = models.DailyMetrics{Date: date}

	defer func() {
		if r := recover(); r != nil {
			log.Error("normalization failed, keeping date only",
				"date", date.Format(models.DateLayout), "cause", r)
			m = models.DailyMetrics{Date: date}
		}
	}()

	if p == nil {
		return m
	}

	extractSleep(log, date, p.Sleep, &m)
	extractHRV(log, date, p.HRV, &m)
	extractStats(log, date, p.Stats, &m)
	extractSummary(log, date, p.Summary, &m)
	extractTrainingStatus(log, date, p.TrainingStatus, &m)
	applyActivities(p.Activities, &m)

	return m
}

func extractSleep(log *slog.Logger, date time.Time, sleep *garmin.SleepData, m *models.DailyMetrics) {
	if sleep == nil {
		log.Warn("sleep payload absent", "date", date.Format(models.DateLayout))
		return
	}
	dto := sleep.DailySleepDTO
	if dto == nil {
		log.Warn("daily sleep DTO absent", "date", date.Format(models.DateLayout))
		return
	}

	if dto.SleepScores != nil && dto.SleepScores.Overall != nil {
		m.SleepScore = cloneFloat(dto.SleepScores.Overall.Value)
	}
	// Zero recorded seconds means the watch logged nothing, not a
	// zero-hour night. Treat it as unknown.
	if dto.SleepTimeSeconds != nil && *dto.SleepTimeSeconds > 0 {
		hours := float64(*dto.SleepTimeSeconds) / 3600.0
		m.SleepLength = &hours
	}
}

func extractHRV(log *slog.Logger, date time.Time, hrv *garmin.HRVData, m *models.DailyMetrics) {
	if hrv == nil {
		log.Warn("hrv payload absent", "date", date.Format(models.DateLayout))
		return
	}
	if hrv.HRVSummary == nil {
		log.Warn("hrv summary absent", "date", date.Format(models.DateLayout))
		return
	}
	m.OvernightHRV = cloneInt(hrv.HRVSummary.LastNightAvg)
	// Status stays an opaque label; Garmin's vocabulary ("BALANCED",
	// "UNBALANCED", ...) is not ours to interpret.
	m.HRVStatus = cloneString(hrv.HRVSummary.Status)
}

func extractStats(log *slog.Logger, date time.Time, stats *garmin.Stats, m *models.DailyMetrics) {
	if stats == nil {
		log.Warn("stats payload absent", "date", date.Format(models.DateLayout))
		return
	}
	// Upstream reports weight in grams and uses 0 for "no weigh-in".
	if stats.Weight != nil && *stats.Weight != 0 {
		kg := *stats.Weight / 1000.0
		m.Weight = &kg
	}
	m.BodyFat = cloneFloat(stats.BodyFat)
	m.BloodPressureSystolic = cloneInt(stats.Systolic)
	m.BloodPressureDiastolic = cloneInt(stats.Diastolic)
}

func extractSummary(log *slog.Logger, date time.Time, summary *garmin.DailySummary, m *models.DailyMetrics) {
	if summary == nil {
		log.Warn("daily summary payload absent", "date", date.Format(models.DateLayout))
		return
	}
	m.ActiveCalories = cloneInt(summary.ActiveKilocalories)
	m.RestingCalories = cloneInt(summary.BMRKilocalories)
	m.Steps = cloneInt(summary.TotalSteps)
	m.RestingHeartRate = cloneInt(summary.RestingHeartRate)
	m.AverageStress = cloneInt(summary.AverageStressLevel)

	// Vigorous minutes count double. Unlike the other fields, missing
	// components default to 0: total intensity is always computable once
	// the summary itself is present.
	intensity := intOrZero(summary.ModerateIntensityMinutes) + 2*intOrZero(summary.VigorousIntensityMinutes)
	m.IntensityMinutes = &intensity
}

func extractTrainingStatus(log *slog.Logger, date time.Time, ts *garmin.TrainingStatus, m *models.DailyMetrics) {
	if ts == nil {
		log.Warn("training status payload absent", "date", date.Format(models.DateLayout))
		return
	}

	if vo2 := ts.MostRecentVO2Max; vo2 != nil {
		if vo2.Generic != nil {
			m.VO2MaxRunning = cloneFloat(vo2.Generic.VO2MaxValue)
		}
		if vo2.Cycling != nil {
			m.VO2MaxCycling = cloneFloat(vo2.Cycling.VO2MaxValue)
		}
	}

	recent := ts.MostRecentTrainingStatus
	if recent == nil || len(recent.LatestTrainingStatusData) == 0 {
		return
	}
	// The per-device map normally holds exactly one entry. With several
	// devices we take the lowest device ID so repeated runs agree; which
	// device *should* win is undecided upstream.
	keys := make([]string, 0, len(recent.LatestTrainingStatusData))
	for k := range recent.LatestTrainingStatusData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	device := recent.LatestTrainingStatusData[keys[0]]
	m.TrainingStatus = cloneString(device.TrainingStatusFeedbackPhrase)
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
