package models

import (
	"encoding/json"
	"strings"
)

type CareType string

const (
	CareTypeFood       CareType = "food"
	CareTypeWater      CareType = "water"
	CareTypePlay       CareType = "play"
	CareTypeMedication CareType = "medication"
	CareTypeVetVisit   CareType = "vet_visit"
	CareTypeGrooming   CareType = "grooming"
)

func (c CareType) Valid() bool {
	switch c {
	case CareTypeFood, CareTypeWater, CareTypePlay, CareTypeMedication, CareTypeVetVisit, CareTypeGrooming:
		return true
	default:
		return false
	}
}

func (c CareType) Display() string {
	switch c {
	case CareTypeFood:
		return "Feeding"
	case CareTypeWater:
		return "Water change"
	case CareTypePlay:
		return "Play time"
	case CareTypeMedication:
		return "Medication"
	case CareTypeVetVisit:
		return "Vet visit"
	case CareTypeGrooming:
		return "Grooming"
	default:
		return "Unknown"
	}
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	default:
		return false
	}
}

type ActivityStatus string

const (
	ActivityStatusPending   ActivityStatus = "pending"
	ActivityStatusCompleted ActivityStatus = "completed"
	ActivityStatusSkipped   ActivityStatus = "skipped"
	ActivityStatusExpired   ActivityStatus = "expired"
	ActivityStatusCancelled ActivityStatus = "cancelled"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityStatusPending, ActivityStatusCompleted, ActivityStatusSkipped, ActivityStatusExpired, ActivityStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal statuses may not be mutated again.
func (s ActivityStatus) Terminal() bool {
	return s == ActivityStatusCancelled || s == ActivityStatusExpired
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendImproving  Trend = "improving"
	TrendDeclining  Trend = "declining"

	// TrendInsufficientData marks series too short to classify, so callers
	// can tell "genuinely flat" from "not enough records to know".
	TrendInsufficientData Trend = "insufficient_data"
)

// Alarming reports whether the trend should be treated as a warning sign.
// Insufficient data counts as benign, same as stable.
func (t Trend) Alarming() bool {
	return t == TrendDecreasing || t == TrendDeclining
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

type Intent string

const (
	IntentSimpleQuery        Intent = "simple_query"
	IntentComplexAnalysis    Intent = "complex_analysis"
	IntentReminderManagement Intent = "reminder_management"
	IntentHealthConsultation Intent = "health_consultation"
	IntentGeneral            Intent = "general"
)

// IntentFromLabel maps a classifier label onto the closed intent set.
// Anything unrecognized degrades to IntentGeneral.
func IntentFromLabel(label string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(label))) {
	case IntentSimpleQuery:
		return IntentSimpleQuery
	case IntentComplexAnalysis:
		return IntentComplexAnalysis
	case IntentReminderManagement:
		return IntentReminderManagement
	case IntentHealthConsultation:
		return IntentHealthConsultation
	case IntentGeneral:
		return IntentGeneral
	default:
		return IntentGeneral
	}
}

func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(i))
}

func (i *Intent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = IntentFromLabel(s)
	return nil
}
