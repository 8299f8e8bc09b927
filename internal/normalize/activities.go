package normalize

import (
	"strings"

	"github.com/claude/daysync/internal/garmin"
	"github.com/claude/daysync/internal/models"
)

// applyActivities classifies each activity into at most one bucket and
// accumulates count plus a class-appropriate scalar: distance in km for
// running and cycling, duration in minutes for strength, cardio and tennis.
// Classification is a case-insensitive substring match on the type key with
// fixed first-match-wins precedence; entries matching nothing still count
// toward the overall total.
func applyActivities(acts []garmin.Activity, m *models.DailyMetrics) {
	m.AllActivityCount = len(acts)

	for _, a := range acts {
		var typeKey string
		if a.ActivityType != nil {
			typeKey = strings.ToLower(a.ActivityType.TypeKey)
		}

		switch {
		case strings.Contains(typeKey, "run"):
			m.RunningActivityCount++
			m.RunningDistance += floatOrZero(a.Distance) / 1000.0
		case strings.Contains(typeKey, "virtual_ride") || strings.Contains(typeKey, "cycling"):
			m.CyclingActivityCount++
			m.CyclingDistance += floatOrZero(a.Distance) / 1000.0
		case strings.Contains(typeKey, "strength"):
			m.StrengthActivityCount++
			m.StrengthDuration += floatOrZero(a.Duration) / 60.0
		case strings.Contains(typeKey, "cardio"):
			m.CardioActivityCount++
			m.CardioDuration += floatOrZero(a.Duration) / 60.0
		case strings.Contains(typeKey, "tennis"):
			m.TennisActivityCount++
			m.TennisActivityDuration += floatOrZero(a.Duration) / 60.0
		}
	}
}

func floatOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
