package garmin

// Raw per-domain payloads as Garmin Connect returns them. Every optional
// field and sub-object is a pointer: the normalizer distinguishes "endpoint
// answered with nulls" from "endpoint absent" at each level.

// Stats carries the body-measurement fields for one day.
type Stats struct {
	Weight    *float64 `json:"weight"` // grams
	BodyFat   *float64 `json:"bodyFat"`
	Systolic  *int     `json:"systolic"`
	Diastolic *int     `json:"diastolic"`
}

// SleepData is the daily sleep payload.
type SleepData struct {
	DailySleepDTO *DailySleepDTO `json:"dailySleepDTO"`
}

type DailySleepDTO struct {
	SleepTimeSeconds *int         `json:"sleepTimeSeconds"`
	SleepScores      *SleepScores `json:"sleepScores"`
}

type SleepScores struct {
	Overall *ScoreValue `json:"overall"`
}

type ScoreValue struct {
	Value *float64 `json:"value"`
}

// Activity is one entry from the per-day activity list.
type Activity struct {
	ActivityType *ActivityType `json:"activityType"`
	Distance     *float64      `json:"distance"` // meters
	Duration     *float64      `json:"duration"` // seconds
}

type ActivityType struct {
	TypeKey string `json:"typeKey"`
}

// DailySummary is the wellness summary payload.
type DailySummary struct {
	ActiveKilocalories       *int `json:"activeKilocalories"`
	BMRKilocalories          *int `json:"bmrKilocalories"`
	TotalSteps               *int `json:"totalSteps"`
	ModerateIntensityMinutes *int `json:"moderateIntensityMinutes"`
	VigorousIntensityMinutes *int `json:"vigorousIntensityMinutes"`
	RestingHeartRate         *int `json:"restingHeartRate"`
	AverageStressLevel       *int `json:"averageStressLevel"`
}

// TrainingStatus is the aggregated training status payload.
type TrainingStatus struct {
	MostRecentVO2Max         *MostRecentVO2Max         `json:"mostRecentVO2Max"`
	MostRecentTrainingStatus *MostRecentTrainingStatus `json:"mostRecentTrainingStatus"`
}

type MostRecentVO2Max struct {
	Generic *VO2MaxEntry `json:"generic"`
	Cycling *VO2MaxEntry `json:"cycling"`
}

type VO2MaxEntry struct {
	VO2MaxValue *float64 `json:"vo2MaxValue"`
}

// MostRecentTrainingStatus maps device IDs to that device's latest status.
// Accounts normally have exactly one device.
type MostRecentTrainingStatus struct {
	LatestTrainingStatusData map[string]DeviceTrainingStatus `json:"latestTrainingStatusData"`
}

type DeviceTrainingStatus struct {
	TrainingStatusFeedbackPhrase *string `json:"trainingStatusFeedbackPhrase"`
}

// HRVData is the heart-rate-variability payload.
type HRVData struct {
	HRVSummary *HRVSummary `json:"hrvSummary"`
}

type HRVSummary struct {
	LastNightAvg *int    `json:"lastNightAvg"`
	Status       *string `json:"status"`
}

// DayPayloads bundles the six raw payloads for one date. A nil member means
// that endpoint returned nothing for the day (or failed); the normalizer
// degrades only the fields that payload would have populated.
type DayPayloads struct {
	Stats          *Stats
	Sleep          *SleepData
	Activities     []Activity
	Summary        *DailySummary
	TrainingStatus *TrainingStatus
	HRV            *HRVData
}
