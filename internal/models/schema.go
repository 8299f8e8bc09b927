package models

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// column binds a destination header to a typed getter and setter for the
// corresponding DailyMetrics field. The table replaces any attribute-by-name
// lookup: serialization order and typing are fixed at compile time.
type column struct {
	header string
	get    func(*DailyMetrics) any
	set    func(*DailyMetrics, string) error
}

// columns fixes the destination column order. The order is significant: rows
// written under one version of this table must stay readable by the next, so
// new columns go at the end only.
var columns = []column{
	{"Date",
		func(m *DailyMetrics) any { return m.Date },
		func(m *DailyMetrics, s string) error {
			d, err := time.Parse(DateLayout, s)
			if err != nil {
				return fmt.Errorf("parsing date cell %q: %w", s, err)
			}
			m.Date = d
			return nil
		}},
	{"Sleep Score", getFloat(func(m *DailyMetrics) **float64 { return &m.SleepScore }), setFloat(func(m *DailyMetrics) **float64 { return &m.SleepScore })},
	{"Sleep Length", getFloat(func(m *DailyMetrics) **float64 { return &m.SleepLength }), setFloat(func(m *DailyMetrics) **float64 { return &m.SleepLength })},
	{"HRV (ms)", getInt(func(m *DailyMetrics) **int { return &m.OvernightHRV }), setInt(func(m *DailyMetrics) **int { return &m.OvernightHRV })},
	{"HRV Status", getString(func(m *DailyMetrics) **string { return &m.HRVStatus }), setString(func(m *DailyMetrics) **string { return &m.HRVStatus })},
	{"Weight (kg)", getFloat(func(m *DailyMetrics) **float64 { return &m.Weight }), setFloat(func(m *DailyMetrics) **float64 { return &m.Weight })},
	{"Body Fat %", getFloat(func(m *DailyMetrics) **float64 { return &m.BodyFat }), setFloat(func(m *DailyMetrics) **float64 { return &m.BodyFat })},
	{"Blood Pressure Systolic", getInt(func(m *DailyMetrics) **int { return &m.BloodPressureSystolic }), setInt(func(m *DailyMetrics) **int { return &m.BloodPressureSystolic })},
	{"Blood Pressure Diastolic", getInt(func(m *DailyMetrics) **int { return &m.BloodPressureDiastolic }), setInt(func(m *DailyMetrics) **int { return &m.BloodPressureDiastolic })},
	{"Active Calories", getInt(func(m *DailyMetrics) **int { return &m.ActiveCalories }), setInt(func(m *DailyMetrics) **int { return &m.ActiveCalories })},
	{"Resting Calories", getInt(func(m *DailyMetrics) **int { return &m.RestingCalories }), setInt(func(m *DailyMetrics) **int { return &m.RestingCalories })},
	{"Resting Heart Rate", getInt(func(m *DailyMetrics) **int { return &m.RestingHeartRate }), setInt(func(m *DailyMetrics) **int { return &m.RestingHeartRate })},
	{"Average Stress", getInt(func(m *DailyMetrics) **int { return &m.AverageStress }), setInt(func(m *DailyMetrics) **int { return &m.AverageStress })},
	{"Training Status", getString(func(m *DailyMetrics) **string { return &m.TrainingStatus }), setString(func(m *DailyMetrics) **string { return &m.TrainingStatus })},
	{"VO2 Max Running", getFloat(func(m *DailyMetrics) **float64 { return &m.VO2MaxRunning }), setFloat(func(m *DailyMetrics) **float64 { return &m.VO2MaxRunning })},
	{"VO2 Max Cycling", getFloat(func(m *DailyMetrics) **float64 { return &m.VO2MaxCycling }), setFloat(func(m *DailyMetrics) **float64 { return &m.VO2MaxCycling })},
	{"Intensity Minutes", getInt(func(m *DailyMetrics) **int { return &m.IntensityMinutes }), setInt(func(m *DailyMetrics) **int { return &m.IntensityMinutes })},
	{"All Activity Count", getCount(func(m *DailyMetrics) *int { return &m.AllActivityCount }), setCount(func(m *DailyMetrics) *int { return &m.AllActivityCount })},
	{"Running Activity Count", getCount(func(m *DailyMetrics) *int { return &m.RunningActivityCount }), setCount(func(m *DailyMetrics) *int { return &m.RunningActivityCount })},
	{"Running Distance (km)", getAccum(func(m *DailyMetrics) *float64 { return &m.RunningDistance }), setAccum(func(m *DailyMetrics) *float64 { return &m.RunningDistance })},
	{"Cycling Activity Count", getCount(func(m *DailyMetrics) *int { return &m.CyclingActivityCount }), setCount(func(m *DailyMetrics) *int { return &m.CyclingActivityCount })},
	{"Cycling Distance (km)", getAccum(func(m *DailyMetrics) *float64 { return &m.CyclingDistance }), setAccum(func(m *DailyMetrics) *float64 { return &m.CyclingDistance })},
	{"Strength Activity Count", getCount(func(m *DailyMetrics) *int { return &m.StrengthActivityCount }), setCount(func(m *DailyMetrics) *int { return &m.StrengthActivityCount })},
	{"Strength Duration", getAccum(func(m *DailyMetrics) *float64 { return &m.StrengthDuration }), setAccum(func(m *DailyMetrics) *float64 { return &m.StrengthDuration })},
	{"Cardio Activity Count", getCount(func(m *DailyMetrics) *int { return &m.CardioActivityCount }), setCount(func(m *DailyMetrics) *int { return &m.CardioActivityCount })},
	{"Cardio Duration", getAccum(func(m *DailyMetrics) *float64 { return &m.CardioDuration }), setAccum(func(m *DailyMetrics) *float64 { return &m.CardioDuration })},
	{"Tennis Activity Count", getCount(func(m *DailyMetrics) *int { return &m.TennisActivityCount }), setCount(func(m *DailyMetrics) *int { return &m.TennisActivityCount })},
	{"Tennis Activity Duration", getAccum(func(m *DailyMetrics) *float64 { return &m.TennisActivityDuration }), setAccum(func(m *DailyMetrics) *float64 { return &m.TennisActivityDuration })},
	{"Steps", getInt(func(m *DailyMetrics) **int { return &m.Steps }), setInt(func(m *DailyMetrics) **int { return &m.Steps })},
	{"Activity Calories", getInt(func(m *DailyMetrics) **int { return &m.ActivityCalories }), setInt(func(m *DailyMetrics) **int { return &m.ActivityCalories })},
}

// Headers returns the destination column headers in write order.
func Headers() []string {
	hs := make([]string, len(columns))
	for i, c := range columns {
		hs[i] = c.header
	}
	return hs
}

// Row serializes the record into destination cells, one per header. Absent
// fields become empty cells and floats are rounded to 2 decimals here, at the
// boundary only; in-memory values keep full precision.
func (m *DailyMetrics) Row() []string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = formatCell(c.get(m))
	}
	return cells
}

// ParseRow reads destination cells back into a record through the same column
// table. Empty cells map back to absent fields. The date cell is required.
func ParseRow(cells []string) (*DailyMetrics, error) {
	if len(cells) == 0 || cells[0] == "" {
		return nil, fmt.Errorf("row has no date cell")
	}
	m := &DailyMetrics{}
	for i, c := range columns {
		if i >= len(cells) || cells[i] == "" {
			continue
		}
		if err := c.set(m, cells[i]); err != nil {
			return nil, fmt.Errorf("column %q: %w", c.header, err)
		}
	}
	return m, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(DateLayout)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(math.Round(x*100)/100, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Getter/setter constructors for the three optional cell types plus the
// always-present activity counters.

func getFloat(f func(*DailyMetrics) **float64) func(*DailyMetrics) any {
	return func(m *DailyMetrics) any {
		if p := *f(m); p != nil {
			return *p
		}
		return nil
	}
}

func setFloat(f func(*DailyMetrics) **float64) func(*DailyMetrics, string) error {
	return func(m *DailyMetrics, s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f(m) = &v
		return nil
	}
}

func getInt(f func(*DailyMetrics) **int) func(*DailyMetrics) any {
	return func(m *DailyMetrics) any {
		if p := *f(m); p != nil {
			return *p
		}
		return nil
	}
}

func setInt(f func(*DailyMetrics) **int) func(*DailyMetrics, string) error {
	return func(m *DailyMetrics, s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f(m) = &v
		return nil
	}
}

func getString(f func(*DailyMetrics) **string) func(*DailyMetrics) any {
	return func(m *DailyMetrics) any {
		if p := *f(m); p != nil {
			return *p
		}
		return nil
	}
}

func setString(f func(*DailyMetrics) **string) func(*DailyMetrics, string) error {
	return func(m *DailyMetrics, s string) error {
		*f(m) = &s
		return nil
	}
}

func getCount(f func(*DailyMetrics) *int) func(*DailyMetrics) any {
	return func(m *DailyMetrics) any { return *f(m) }
}

func setCount(f func(*DailyMetrics) *int) func(*DailyMetrics, string) error {
	return func(m *DailyMetrics, s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f(m) = v
		return nil
	}
}

func getAccum(f func(*DailyMetrics) *float64) func(*DailyMetrics) any {
	return func(m *DailyMetrics) any { return *f(m) }
}

func setAccum(f func(*DailyMetrics) *float64) func(*DailyMetrics, string) error {
	return func(m *DailyMetrics, s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f(m) = v
		return nil
	}
}
