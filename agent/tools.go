package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"catalert/apperrors"
	"catalert/db"
	"catalert/models"

	"github.com/google/uuid"
)

// CareStore is the persistence surface the agent tools operate on.
// *db.CatAlertDB satisfies it.
type CareStore interface {
	GetCat(ctx context.Context, id uuid.UUID) (*models.Cat, error)
	ListActivities(ctx context.Context, catID uuid.UUID, filter db.ActivityFilter) ([]models.ActivityRecord, error)
	ListHealthRecords(ctx context.Context, catID uuid.UUID, filter db.HealthFilter) ([]models.HealthRecord, error)
	CreateReminder(ctx context.Context, reminder *models.Reminder) error
	UpdateActivity(ctx context.Context, id uuid.UUID, update db.ActivityUpdate) (*models.ActivityRecord, error)
	CreateHealthRecord(ctx context.Context, record *models.HealthRecord) error
	CreateInteraction(ctx context.Context, interaction *models.AIInteraction) error
	ReplaceDailyInsights(ctx context.Context, catID uuid.UUID, insights []models.AIInsight) error
}

// CareTools exposes the data-access operations the agent can invoke.
type CareTools struct {
	store CareStore
}

func NewCareTools(store CareStore) *CareTools {
	return &CareTools{store: store}
}

type ActivitySummary struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	ScheduledTime string  `json:"scheduled_time"`
	CompleteTime  *string `json:"complete_time"`
	Status        string  `json:"status"`
	Duration      *int    `json:"duration"`
	Notes         string  `json:"notes,omitempty"`
	QualityRating *int    `json:"quality_rating,omitempty"`
	Anomaly       bool    `json:"anomaly_detected,omitempty"`
}

type HealthSummary struct {
	Type       string   `json:"type"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit"`
	RecordedAt string   `json:"recorded_at"`
}

type CatStatistics struct {
	TotalActivities7d   int     `json:"total_activities_7d"`
	CompletionRate      float64 `json:"completion_rate"`
	AvgActivityDuration float64 `json:"avg_activity_duration"`
	HealthRecords30d    int     `json:"health_records_30d"`
}

// CatSnapshot is the agent's working view of a cat: profile, a week of
// activities, a month of health records, and derived statistics.
type CatSnapshot struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Age              *int              `json:"age"`
	Breed            string            `json:"breed"`
	Weight           *float64          `json:"weight"`
	HealthCondition  string            `json:"health_condition"`
	RecentActivities []ActivitySummary `json:"recent_activities"`
	HealthRecords    []HealthSummary   `json:"health_records"`
	Statistics       CatStatistics     `json:"statistics"`
}

// PromptData flattens the snapshot into the fields the analysis prompts
// interpolate.
func (s *CatSnapshot) PromptData() map[string]any {
	anomalies := 0
	feedings := 0
	for _, a := range s.RecentActivities {
		if a.Type == string(models.CareTypeFood) && a.Status == string(models.ActivityStatusCompleted) {
			feedings++
		}
		if a.Anomaly {
			anomalies++
		}
	}
	return map[string]any{
		"name":                  s.Name,
		"age":                   s.Age,
		"breed":                 s.Breed,
		"weight":                s.Weight,
		"health_condition":      s.HealthCondition,
		"avg_feeding_frequency": float64(feedings) / 7,
		"avg_activity_duration": s.Statistics.AvgActivityDuration,
		"completion_rate":       s.Statistics.CompletionRate,
		"anomaly_count":         anomalies,
	}
}

// GetCatData assembles a CatSnapshot. The completion rate is zero when
// the week holds no activities at all.
func (t *CareTools) GetCatData(ctx context.Context, catID uuid.UUID) (*CatSnapshot, error) {
	cat, err := t.store.GetCat(ctx, catID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.NewAgent("failed to get cat data", err)
	}

	weekAgo := time.Now().Add(-7 * 24 * time.Hour)
	activities, err := t.store.ListActivities(ctx, catID, db.ActivityFilter{CreatedSince: &weekAgo})
	if err != nil {
		return nil, apperrors.NewAgent("failed to get cat activities", err)
	}

	monthAgo := time.Now().Add(-30 * 24 * time.Hour)
	healthRecords, err := t.store.ListHealthRecords(ctx, catID, db.HealthFilter{Since: &monthAgo})
	if err != nil {
		return nil, apperrors.NewAgent("failed to get cat health records", err)
	}

	completed := 0
	var durationSum float64
	var durationCount int
	activitySummaries := make([]ActivitySummary, 0, len(activities))
	for _, a := range activities {
		if a.Status == models.ActivityStatusCompleted {
			completed++
		}
		if a.ActualDuration != nil {
			durationSum += float64(*a.ActualDuration)
			durationCount++
		}
		activitySummaries = append(activitySummaries, summarizeActivity(a))
	}

	completionRate := 0.0
	if len(activities) > 0 {
		completionRate = float64(completed) / float64(len(activities))
	}
	avgDuration := 0.0
	if durationCount > 0 {
		avgDuration = durationSum / float64(durationCount)
	}

	healthSummaries := make([]HealthSummary, 0, len(healthRecords))
	for _, h := range healthRecords {
		healthSummaries = append(healthSummaries, HealthSummary{
			Type:       h.RecordType,
			Value:      h.Value,
			Unit:       h.Unit,
			RecordedAt: h.RecordedAt.Format(time.RFC3339),
		})
	}

	return &CatSnapshot{
		ID:               cat.ID.String(),
		Name:             cat.Name,
		Age:              cat.AgeInYears(),
		Breed:            cat.Breed,
		Weight:           cat.Weight,
		HealthCondition:  cat.HealthCondition,
		RecentActivities: activitySummaries,
		HealthRecords:    healthSummaries,
		Statistics: CatStatistics{
			TotalActivities7d:   len(activities),
			CompletionRate:      completionRate,
			AvgActivityDuration: avgDuration,
			HealthRecords30d:    len(healthRecords),
		},
	}, nil
}

// GetRecentActivities returns the cat's activities over the window,
// newest scheduled time first.
func (t *CareTools) GetRecentActivities(ctx context.Context, catID uuid.UUID, days int) ([]ActivitySummary, error) {
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	activities, err := t.store.ListActivities(ctx, catID, db.ActivityFilter{CreatedSince: &since})
	if err != nil {
		return nil, apperrors.NewAgent("failed to get recent activities", err)
	}
	summaries := make([]ActivitySummary, 0, len(activities))
	for _, a := range activities {
		summaries = append(summaries, summarizeActivity(a))
	}
	return summaries, nil
}

// TrendAnalysis is the result of AnalyzeHealthTrend.
type TrendAnalysis struct {
	CatID                string      `json:"cat_id"`
	AnalysisPeriodDays   int         `json:"analysis_period_days"`
	HealthRecordsCount   int         `json:"health_records_count"`
	ActivityRecordsCount int         `json:"activity_records_count"`
	Trends               TrendReport `json:"trends"`
	GeneratedAt          string      `json:"generated_at"`
}

// AnalyzeHealthTrend derives weight, activity and completion trends
// from the cat's records over the given number of days.
func (t *CareTools) AnalyzeHealthTrend(ctx context.Context, catID uuid.UUID, days int) (*TrendAnalysis, error) {
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	healthRecords, err := t.store.ListHealthRecords(ctx, catID, db.HealthFilter{Since: &since})
	if err != nil {
		return nil, apperrors.NewAgent("failed to analyze health trend", err)
	}
	activities, err := t.store.ListActivities(ctx, catID, db.ActivityFilter{CreatedSince: &since})
	if err != nil {
		return nil, apperrors.NewAgent("failed to analyze health trend", err)
	}

	// Store queries return newest first; the trend math wants
	// chronological order.
	var weights []float64
	for i := len(healthRecords) - 1; i >= 0; i-- {
		h := healthRecords[i]
		if h.RecordType == "weight" && h.Value != nil {
			weights = append(weights, *h.Value)
		}
	}

	durations := make([]float64, 0, len(activities))
	completions := make([]bool, 0, len(activities))
	for i := len(activities) - 1; i >= 0; i-- {
		a := activities[i]
		d := 0.0
		if a.ActualDuration != nil {
			d = float64(*a.ActualDuration)
		}
		durations = append(durations, d)
		completions = append(completions, a.Status == models.ActivityStatusCompleted)
	}

	return &TrendAnalysis{
		CatID:                catID.String(),
		AnalysisPeriodDays:   days,
		HealthRecordsCount:   len(healthRecords),
		ActivityRecordsCount: len(activities),
		Trends: TrendReport{
			WeightTrend:         WeightTrend(weights),
			ActivityTrend:       ActivityDurationTrend(durations),
			CompletionRateTrend: CompletionRateTrend(completions),
		},
		GeneratedAt: time.Now().Format(time.RFC3339),
	}, nil
}

// CreateReminder creates a reminder with its schedule in one shot.
// Times are "HH:MM" strings; malformed entries are skipped with a
// warning rather than failing the whole call.
func (t *CareTools) CreateReminder(ctx context.Context, catID uuid.UUID, title string, careType models.CareType, times []string, frequency models.Frequency, description string) (*models.Reminder, error) {
	if title == "" {
		return nil, apperrors.NewValidation("reminder title is required", nil)
	}
	if !careType.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid care type %q", careType), nil)
	}
	if frequency == "" {
		frequency = models.FrequencyDaily
	}
	if !frequency.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid frequency %q", frequency), nil)
	}

	var scheduled []models.ReminderTime
	for _, raw := range times {
		hour, minute, ok := parseClock(raw)
		if !ok {
			slog.Warn("skipping invalid reminder time", "time", raw)
			continue
		}
		scheduled = append(scheduled, models.ReminderTime{Hour: hour, Minute: minute, IsEnabled: true})
	}

	reminder := &models.Reminder{
		CatID:          catID,
		Title:          title,
		Type:           careType,
		Frequency:      frequency,
		Description:    description,
		IsEnabled:      true,
		ScheduledTimes: scheduled,
	}
	if err := t.store.CreateReminder(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

// UpdateActivityStatus transitions an activity on the agent's behalf.
func (t *CareTools) UpdateActivityStatus(ctx context.Context, activityID uuid.UUID, status models.ActivityStatus, notes string) (*models.ActivityRecord, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid activity status %q", status), nil)
	}
	return t.store.UpdateActivity(ctx, activityID, db.ActivityUpdate{Status: status, Notes: notes})
}

// CreateHealthRecord records a measurement taken now.
func (t *CareTools) CreateHealthRecord(ctx context.Context, catID uuid.UUID, recordType string, value *float64, unit, notes string) (*models.HealthRecord, error) {
	if recordType == "" {
		return nil, apperrors.NewValidation("record type is required", nil)
	}
	record := &models.HealthRecord{
		CatID:      catID,
		RecordType: recordType,
		Value:      value,
		Unit:       unit,
		Notes:      notes,
		RecordedAt: time.Now(),
	}
	if recordType == "weight" {
		record.Weight = value
	}
	if err := t.store.CreateHealthRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func summarizeActivity(a models.ActivityRecord) ActivitySummary {
	summary := ActivitySummary{
		ID:            a.ID.String(),
		Type:          string(a.Type),
		ScheduledTime: a.ScheduledTime.Format(time.RFC3339),
		Status:        string(a.Status),
		Duration:      a.ActualDuration,
		Notes:         a.Notes,
		QualityRating: a.QualityRating,
		Anomaly:       a.AnomalyDetected,
	}
	if a.CompleteTime != nil {
		ts := a.CompleteTime.Format(time.RFC3339)
		summary.CompleteTime = &ts
	}
	return summary
}

func parseClock(raw string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
