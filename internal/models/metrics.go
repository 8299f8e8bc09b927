package models

import "time"

// DateLayout is the ISO 8601 date form used for the row key.
const DateLayout = "2006-01-02"

// DailyMetrics is the normalized set of health metrics for one calendar date.
// Every field except Date is optional: nil means the upstream payload (or a
// required sub-object inside it) was missing for that day. Activity counts and
// accumulators are plain values because they are always computable: a day
// with no activities is a real zero, not an unknown.
type DailyMetrics struct {
	Date time.Time

	SleepScore  *float64
	SleepLength *float64 // hours

	OvernightHRV *int
	HRVStatus    *string

	Weight  *float64 // kg
	BodyFat *float64 // percent

	BloodPressureSystolic  *int
	BloodPressureDiastolic *int

	ActiveCalories   *int
	RestingCalories  *int
	RestingHeartRate *int
	AverageStress    *int

	TrainingStatus *string
	VO2MaxRunning  *float64
	VO2MaxCycling  *float64

	IntensityMinutes *int
	Steps            *int
	ActivityCalories *int

	AllActivityCount int

	RunningActivityCount int
	RunningDistance      float64 // km

	CyclingActivityCount int
	CyclingDistance      float64 // km

	StrengthActivityCount int
	StrengthDuration      float64 // minutes

	CardioActivityCount int
	CardioDuration      float64 // minutes

	TennisActivityCount    int
	TennisActivityDuration float64 // minutes
}

// DateString returns the row key in YYYY-MM-DD form.
func (m *DailyMetrics) DateString() string {
	return m.Date.Format(DateLayout)
}
