package normalize

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/daysync/internal/garmin"
)

var testDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func sptr(v string) *string   { return &v }

func TestDayAllPayloadsAbsent(t *testing.T) {
	m := Day(testLogger(), testDate, nil)

	if !m.Date.Equal(testDate) {
		t.Errorf("date = %v, want %v", m.Date, testDate)
	}
	if m.SleepScore != nil || m.SleepLength != nil || m.OvernightHRV != nil ||
		m.Weight != nil || m.IntensityMinutes != nil || m.Steps != nil {
		t.Errorf("absent payloads produced values: %+v", m)
	}
	if m.AllActivityCount != 0 || m.RunningDistance != 0 {
		t.Errorf("activity totals = %d/%v, want zeros", m.AllActivityCount, m.RunningDistance)
	}
}

func TestExtractSleep(t *testing.T) {
	tests := []struct {
		name       string
		sleep      *garmin.SleepData
		wantScore  *float64
		wantLength *float64
	}{
		{
			name: "normal night",
			sleep: &garmin.SleepData{DailySleepDTO: &garmin.DailySleepDTO{
				SleepTimeSeconds: iptr(27000),
				SleepScores:      &garmin.SleepScores{Overall: &garmin.ScoreValue{Value: fptr(82)}},
			}},
			wantScore:  fptr(82),
			wantLength: fptr(7.5),
		},
		{
			name: "zero seconds means not recorded",
			sleep: &garmin.SleepData{DailySleepDTO: &garmin.DailySleepDTO{
				SleepTimeSeconds: iptr(0),
				SleepScores:      &garmin.SleepScores{Overall: &garmin.ScoreValue{Value: fptr(40)}},
			}},
			wantScore:  fptr(40),
			wantLength: nil,
		},
		{
			name:       "missing DTO",
			sleep:      &garmin.SleepData{},
			wantScore:  nil,
			wantLength: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Day(testLogger(), testDate, &garmin.DayPayloads{Sleep: tt.sleep})

			if !floatPtrEq(m.SleepScore, tt.wantScore) {
				t.Errorf("SleepScore = %v, want %v", deref(m.SleepScore), deref(tt.wantScore))
			}
			if !floatPtrEq(m.SleepLength, tt.wantLength) {
				t.Errorf("SleepLength = %v, want %v", deref(m.SleepLength), deref(tt.wantLength))
			}
		})
	}
}

func TestExtractStatsWeight(t *testing.T) {
	tests := []struct {
		name   string
		weight *float64 // grams
		want   *float64 // kg
	}{
		{"normal weigh-in", fptr(74250), fptr(74.25)},
		{"zero means no weigh-in", fptr(0), nil},
		{"missing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Day(testLogger(), testDate, &garmin.DayPayloads{
				Stats: &garmin.Stats{Weight: tt.weight, BodyFat: fptr(20.5)},
			})
			if !floatPtrEq(m.Weight, tt.want) {
				t.Errorf("Weight = %v, want %v", deref(m.Weight), deref(tt.want))
			}
			if m.BodyFat == nil || *m.BodyFat != 20.5 {
				t.Errorf("BodyFat = %v, want 20.5", deref(m.BodyFat))
			}
		})
	}
}

func TestIntensityMinutes(t *testing.T) {
	tests := []struct {
		name     string
		moderate *int
		vigorous *int
		want     int
	}{
		{"both missing", nil, nil, 0},
		{"moderate only", iptr(10), nil, 10},
		{"vigorous only counts double", nil, iptr(5), 10},
		{"both", iptr(10), iptr(5), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Day(testLogger(), testDate, &garmin.DayPayloads{
				Summary: &garmin.DailySummary{
					ModerateIntensityMinutes: tt.moderate,
					VigorousIntensityMinutes: tt.vigorous,
				},
			})
			if m.IntensityMinutes == nil {
				t.Fatal("IntensityMinutes = nil, want value")
			}
			if *m.IntensityMinutes != tt.want {
				t.Errorf("IntensityMinutes = %d, want %d", *m.IntensityMinutes, tt.want)
			}
		})
	}

	// No summary at all: intensity is unknown, not zero.
	m := Day(testLogger(), testDate, &garmin.DayPayloads{})
	if m.IntensityMinutes != nil {
		t.Errorf("IntensityMinutes without summary = %v, want nil", *m.IntensityMinutes)
	}
}

func TestExtractTrainingStatus(t *testing.T) {
	ts := &garmin.TrainingStatus{
		MostRecentVO2Max: &garmin.MostRecentVO2Max{
			Generic: &garmin.VO2MaxEntry{VO2MaxValue: fptr(52.3)},
		},
		MostRecentTrainingStatus: &garmin.MostRecentTrainingStatus{
			LatestTrainingStatusData: map[string]garmin.DeviceTrainingStatus{
				"200": {TrainingStatusFeedbackPhrase: sptr("Productive")},
				"100": {TrainingStatusFeedbackPhrase: sptr("Recovery")},
			},
		},
	}
	m := Day(testLogger(), testDate, &garmin.DayPayloads{TrainingStatus: ts})

	if m.VO2MaxRunning == nil || *m.VO2MaxRunning != 52.3 {
		t.Errorf("VO2MaxRunning = %v, want 52.3", deref(m.VO2MaxRunning))
	}
	if m.VO2MaxCycling != nil {
		t.Errorf("VO2MaxCycling = %v, want nil", *m.VO2MaxCycling)
	}
	// Lowest device ID wins so repeated runs agree.
	if m.TrainingStatus == nil || *m.TrainingStatus != "Recovery" {
		t.Errorf("TrainingStatus = %v, want Recovery", m.TrainingStatus)
	}
}

func TestExtractHRV(t *testing.T) {
	m := Day(testLogger(), testDate, &garmin.DayPayloads{
		HRV: &garmin.HRVData{HRVSummary: &garmin.HRVSummary{
			LastNightAvg: iptr(55),
			Status:       sptr("BALANCED"),
		}},
	})
	if m.OvernightHRV == nil || *m.OvernightHRV != 55 {
		t.Errorf("OvernightHRV = %v, want 55", m.OvernightHRV)
	}
	if m.HRVStatus == nil || *m.HRVStatus != "BALANCED" {
		t.Errorf("HRVStatus = %v, want BALANCED", m.HRVStatus)
	}
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
