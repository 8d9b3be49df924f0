package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"catalert/db"
	"catalert/llm"
	"catalert/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
)

// scriptedLLM answers classification with a fixed label and everything
// else with canned content.
type scriptedLLM struct {
	classifyAs string
	reply      string
	analysis   *llm.BehaviorAnalysis
	calls      []string
}

func (s *scriptedLLM) ChatCompletion(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	last := messages[len(messages)-1].Content
	if strings.Contains(last, "Classify the following user request") {
		s.calls = append(s.calls, "classify")
		return &llm.Completion{Content: s.classifyAs}, nil
	}
	s.calls = append(s.calls, "chat")
	return &llm.Completion{Content: s.reply}, nil
}

func (s *scriptedLLM) AnalyzeBehavior(ctx context.Context, catData map[string]any) (*llm.BehaviorAnalysis, error) {
	s.calls = append(s.calls, "analyze")
	if s.analysis != nil {
		return s.analysis, nil
	}
	return &llm.BehaviorAnalysis{HealthScore: 0.8, RiskFactors: []string{}, Recommendations: []string{}}, nil
}

func (s *scriptedLLM) SuggestReminders(ctx context.Context, catData, preferences map[string]any) ([]llm.ReminderSuggestion, error) {
	s.calls = append(s.calls, "suggest")
	return []llm.ReminderSuggestion{{Title: "Morning feeding", Type: "food", SuggestedTimes: []string{"08:00"}, Frequency: "daily", Reason: "steady routine"}}, nil
}

func (s *scriptedLLM) GenerateHealthInsights(ctx context.Context, healthData map[string]any, period string) (*llm.HealthInsights, error) {
	s.calls = append(s.calls, "insights")
	return &llm.HealthInsights{
		Recommendations: []llm.InsightRecommendation{
			{Title: "More water stations", Description: "Add a second water bowl.", Confidence: 0.9, Priority: "medium"},
		},
	}, nil
}

func (s *scriptedLLM) Model() string { return "test-model" }

func newTestStore(t *testing.T) *db.CatAlertDB {
	t.Helper()
	database, err := db.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return database
}

func seedUserAndCat(t *testing.T, store *db.CatAlertDB) (*models.User, *models.Cat) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Username: "owner" + uuid.NewString()[:8], Email: uuid.NewString() + "@example.com", HashedPassword: "x"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	cat := &models.Cat{OwnerID: user.ID, Name: "Huhu", IsActive: true}
	if err := store.CreateCat(ctx, cat); err != nil {
		t.Fatalf("failed to create cat: %v", err)
	}
	return user, cat
}

func TestProcessRequestRoutesSimpleQuery(t *testing.T) {
	store := newTestStore(t)
	user, cat := seedUserAndCat(t, store)

	model := &scriptedLLM{classifyAs: "simple_query", reply: "Fed three times today."}
	a := New(store, model)

	resp := a.ProcessRequest(context.Background(), user.ID, cat.ID, "今天喂了几次？", "")
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Type != "simple_query" {
		t.Errorf("expected simple_query type, got %s", resp.Type)
	}
	if resp.Message != "Fed three times today." {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.SessionID == "" {
		t.Error("expected a generated session id")
	}

	// The exchange is persisted.
	interactions, err := store.ListInteractions(context.Background(), user.ID, resp.SessionID, 0)
	if err != nil {
		t.Fatalf("failed to list interactions: %v", err)
	}
	if len(interactions) != 1 {
		t.Fatalf("expected 1 stored interaction, got %d", len(interactions))
	}
	if interactions[0].Intent != "simple_query" || interactions[0].ModelUsed != "test-model" {
		t.Errorf("unexpected interaction %+v", interactions[0])
	}
}

func TestProcessRequestUnknownLabelFallsBackToGeneral(t *testing.T) {
	store := newTestStore(t)
	user, cat := seedUserAndCat(t, store)

	model := &scriptedLLM{classifyAs: "Something Weird", reply: "Happy to help!"}
	a := New(store, model)

	resp := a.ProcessRequest(context.Background(), user.ID, cat.ID, "tell me a cat fact", "session-1")
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Type != "general" {
		t.Errorf("unrecognized label should route to general, got %s", resp.Type)
	}
	if resp.SessionID != "session-1" {
		t.Errorf("caller session id should be kept, got %s", resp.SessionID)
	}
}

func TestProcessRequestComplexAnalysisDerivesInsights(t *testing.T) {
	store := newTestStore(t)
	user, cat := seedUserAndCat(t, store)

	model := &scriptedLLM{
		classifyAs: "complex_analysis",
		analysis: &llm.BehaviorAnalysis{
			HealthScore:     0.5,
			KeyFindings:     []string{"eating less"},
			RiskFactors:     []string{"dehydration"},
			Recommendations: []string{"offer wet food"},
		},
	}
	a := New(store, model)

	resp := a.ProcessRequest(context.Background(), user.ID, cat.ID, "analyze Huhu's health", "")
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if len(resp.Insights) != 2 {
		t.Fatalf("expected low-score + risk insights, got %d", len(resp.Insights))
	}
	if resp.Insights[0].Priority != models.PriorityHigh {
		t.Errorf("low health score should be high priority, got %s", resp.Insights[0].Priority)
	}
	if resp.Insights[1].Priority != models.PriorityMedium {
		t.Errorf("risk factor should be medium priority, got %s", resp.Insights[1].Priority)
	}
	if !strings.Contains(resp.Message, "offer wet food") {
		t.Errorf("recommendations missing from message: %q", resp.Message)
	}
}

func TestHealthConsultationTriage(t *testing.T) {
	lowCompletion := map[string]any{
		"cat_data": &CatSnapshot{
			Name:       "Huhu",
			Statistics: CatStatistics{TotalActivities7d: 10, CompletionRate: 0.4},
		},
		"health_trends": &TrendAnalysis{
			Trends: TrendReport{WeightTrend: models.TrendDecreasing},
		},
	}

	a := New(nil, &scriptedLLM{})
	result, err := a.handleHealthConsultation(lowCompletion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.urgentIssues) != 2 {
		t.Fatalf("expected 2 urgent issues, got %d", len(result.urgentIssues))
	}
	if !strings.Contains(result.message, "⚠️") {
		t.Errorf("expected urgent template, got %q", result.message)
	}

	healthy := map[string]any{
		"cat_data": &CatSnapshot{
			Name:       "Huhu",
			Statistics: CatStatistics{TotalActivities7d: 10, CompletionRate: 0.9},
		},
		"health_trends": &TrendAnalysis{
			Trends: TrendReport{WeightTrend: models.TrendStable},
		},
	}
	result, err = a.handleHealthConsultation(healthy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.urgentIssues) != 0 {
		t.Fatalf("expected no urgent issues, got %v", result.urgentIssues)
	}
	if !strings.Contains(result.message, "good health") {
		t.Errorf("expected healthy template, got %q", result.message)
	}
}

func TestGetCatDataCompletionRateWithNoActivities(t *testing.T) {
	store := newTestStore(t)
	_, cat := seedUserAndCat(t, store)

	tools := NewCareTools(store)
	snapshot, err := tools.GetCatData(context.Background(), cat.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Statistics.CompletionRate != 0 {
		t.Errorf("empty week should give completion rate 0, got %v", snapshot.Statistics.CompletionRate)
	}
	if snapshot.Statistics.TotalActivities7d != 0 {
		t.Errorf("expected 0 activities, got %d", snapshot.Statistics.TotalActivities7d)
	}
}

func TestCreateReminderSkipsMalformedTimes(t *testing.T) {
	store := newTestStore(t)
	_, cat := seedUserAndCat(t, store)

	tools := NewCareTools(store)
	reminder, err := tools.CreateReminder(context.Background(), cat.ID, "Feeding", models.CareTypeFood,
		[]string{"08:00", "nonsense", "25:99", "19:30"}, models.FrequencyDaily, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reminder.ScheduledTimes) != 2 {
		t.Fatalf("expected malformed times skipped, got %d times", len(reminder.ScheduledTimes))
	}
	if reminder.ScheduledTimes[0].Hour != 8 || reminder.ScheduledTimes[1].Hour != 19 {
		t.Errorf("unexpected times %+v", reminder.ScheduledTimes)
	}
}

func TestGenerateDailyInsights(t *testing.T) {
	store := newTestStore(t)
	_, cat := seedUserAndCat(t, store)

	a := New(store, &scriptedLLM{})
	insights := a.GenerateDailyInsights(context.Background(), cat.ID)
	if len(insights) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(insights))
	}
	if insights[0].Title != "More water stations" {
		t.Errorf("unexpected title %q", insights[0].Title)
	}
	if insights[0].ExpiresAt == nil || time.Until(*insights[0].ExpiresAt) > 25*time.Hour {
		t.Errorf("expected roughly one-day expiry, got %v", insights[0].ExpiresAt)
	}

	stored, err := store.ListInsights(context.Background(), cat.ID, false)
	if err != nil {
		t.Fatalf("failed to list insights: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("expected insight persisted, got %d", len(stored))
	}
}

func TestGenerateDailyInsightsMissingCat(t *testing.T) {
	store := newTestStore(t)
	a := New(store, &scriptedLLM{})

	insights := a.GenerateDailyInsights(context.Background(), uuid.New())
	if len(insights) != 0 {
		t.Errorf("missing cat should yield an empty batch, got %d", len(insights))
	}
}
