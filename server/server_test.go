package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalert/agent"
	"catalert/db"
	"catalert/llm"
	"catalert/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
)

// stubLLM keeps the HTTP tests offline: classification returns a fixed
// label and every other call a canned payload.
type stubLLM struct {
	classifyAs string
	reply      string
}

func (s *stubLLM) ChatCompletion(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	if len(messages) == 1 && s.classifyAs != "" {
		return &llm.Completion{Content: s.classifyAs}, nil
	}
	return &llm.Completion{Content: s.reply}, nil
}

func (s *stubLLM) AnalyzeBehavior(ctx context.Context, catData map[string]any) (*llm.BehaviorAnalysis, error) {
	return &llm.BehaviorAnalysis{HealthScore: 0.9, RiskFactors: []string{}, Recommendations: []string{"keep going"}}, nil
}

func (s *stubLLM) SuggestReminders(ctx context.Context, catData, preferences map[string]any) ([]llm.ReminderSuggestion, error) {
	return []llm.ReminderSuggestion{{Title: "Evening play", Type: "play", SuggestedTimes: []string{"19:00"}, Frequency: "daily", Reason: "energy outlet"}}, nil
}

func (s *stubLLM) GenerateHealthInsights(ctx context.Context, healthData map[string]any, period string) (*llm.HealthInsights, error) {
	return &llm.HealthInsights{}, nil
}

func (s *stubLLM) Model() string { return "stub-model" }

func newTestServer(t *testing.T) (*httptest.Server, *db.CatAlertDB) {
	t.Helper()
	store, err := db.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	careAgent := agent.New(store, &stubLLM{classifyAs: "simple_query", reply: "All good."})
	ts := httptest.NewServer(New(store, careAgent).Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createUser(t *testing.T, base string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/api/v1/users", map[string]any{
		"username": "owner" + uuid.NewString()[:8],
		"email":    uuid.NewString() + "@example.com",
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("failed to create user: %d %v", resp.StatusCode, body)
	}
	return body["id"].(string)
}

func createCat(t *testing.T, base, ownerID string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/api/v1/cats", map[string]any{
		"owner_id": ownerID,
		"name":     "Mochi",
		"breed":    "British Shorthair",
		"gender":   "female",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("failed to create cat: %d %v", resp.StatusCode, body)
	}
	return body["id"].(string)
}

func TestCatRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/cats/"+catID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed to get cat: %d", resp.StatusCode)
	}
	if body["name"] != "Mochi" || body["breed"] != "British Shorthair" || body["gender"] != "female" {
		t.Errorf("round-trip mismatch: %v", body)
	}
	if body["is_active"] != true {
		t.Errorf("expected active cat, got %v", body["is_active"])
	}
}

func TestCatSoftDeleteHidesFromAPI(t *testing.T) {
	ts, store := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/cats/"+catID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/cats/"+catID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	if body["error_code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND error code, got %v", body["error_code"])
	}

	// The row survives for audit access.
	id := uuid.MustParse(catID)
	kept, err := store.GetCatAnyStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("expected row to survive: %v", err)
	}
	if kept.IsActive {
		t.Error("expected is_active false")
	}
}

func TestCreateUserValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users", map[string]any{"username": "incomplete"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["error_code"] != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", body["error_code"])
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	payload := map[string]any{"username": "samecat", "email": "a@example.com", "password": "pw123456"}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create failed: %d", resp.StatusCode)
	}

	payload["email"] = "b@example.com"
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users", payload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate username, got %d", resp.StatusCode)
	}
	if body["error_code"] != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", body["error_code"])
	}
}

func TestReminderTimesReplacedWholesale(t *testing.T) {
	ts, _ := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reminders", map[string]any{
		"cat_id": catID,
		"title":  "Feed Mochi",
		"type":   "food",
		"scheduled_times": []map[string]any{
			{"hour": 8, "minute": 0},
			{"hour": 18, "minute": 0},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("failed to create reminder: %d %v", resp.StatusCode, body)
	}
	reminderID := body["id"].(string)

	resp, body = doJSON(t, http.MethodPut, ts.URL+"/api/v1/reminders/"+reminderID, map[string]any{
		"scheduled_times": []map[string]any{{"hour": 12, "minute": 30}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed to update reminder: %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/reminders/"+reminderID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed to get reminder: %d", resp.StatusCode)
	}
	times := body["scheduled_times"].([]any)
	if len(times) != 1 {
		t.Fatalf("expected schedule replaced wholesale, got %d times", len(times))
	}
	slot := times[0].(map[string]any)
	if slot["hour"] != float64(12) || slot["minute"] != float64(30) {
		t.Errorf("unexpected slot %v", slot)
	}
}

func TestCompleteActivityStampsTime(t *testing.T) {
	ts, store := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	ctx := context.Background()
	reminder := &models.Reminder{CatID: uuid.MustParse(catID), Title: "Play", Type: models.CareTypePlay}
	if err := store.CreateReminder(ctx, reminder); err != nil {
		t.Fatalf("failed to create reminder: %v", err)
	}
	activity := &models.ActivityRecord{
		ReminderID:    reminder.ID,
		CatID:         uuid.MustParse(catID),
		Type:          models.CareTypePlay,
		ScheduledTime: time.Now(),
		Status:        models.ActivityStatusPending,
	}
	if err := store.CreateActivity(ctx, activity); err != nil {
		t.Fatalf("failed to create activity: %v", err)
	}

	url := fmt.Sprintf("%s/api/v1/activities/%s/complete", ts.URL, activity.ID)
	resp, body := doJSON(t, http.MethodPost, url, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete failed: %d %v", resp.StatusCode, body)
	}
	if body["status"] != "completed" {
		t.Errorf("expected completed status, got %v", body["status"])
	}
	if body["complete_time"] == nil {
		t.Error("expected complete_time to be stamped")
	}
}

func TestCreateActivityRejectsUnknownCat(t *testing.T) {
	ts, store := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	ctx := context.Background()
	reminder := &models.Reminder{CatID: uuid.MustParse(catID), Title: "Feed", Type: models.CareTypeFood}
	if err := store.CreateReminder(ctx, reminder); err != nil {
		t.Fatalf("failed to create reminder: %v", err)
	}

	ghostID := uuid.New()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/activities", map[string]any{
		"reminder_id": reminder.ID.String(),
		"cat_id":      ghostID.String(),
		"type":        "food",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown cat, got %d %v", resp.StatusCode, body)
	}

	activities, err := store.ListActivities(ctx, ghostID, db.ActivityFilter{})
	if err != nil {
		t.Fatalf("failed to list activities: %v", err)
	}
	if len(activities) != 0 {
		t.Errorf("expected no activity persisted, got %d", len(activities))
	}
}

func TestUpdateActivityPersistsOutcomeFields(t *testing.T) {
	ts, store := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	ctx := context.Background()
	reminder := &models.Reminder{CatID: uuid.MustParse(catID), Title: "Play", Type: models.CareTypePlay}
	if err := store.CreateReminder(ctx, reminder); err != nil {
		t.Fatalf("failed to create reminder: %v", err)
	}
	activity := &models.ActivityRecord{
		ReminderID:    reminder.ID,
		CatID:         uuid.MustParse(catID),
		Type:          models.CareTypePlay,
		ScheduledTime: time.Now(),
		Status:        models.ActivityStatusPending,
	}
	if err := store.CreateActivity(ctx, activity); err != nil {
		t.Fatalf("failed to create activity: %v", err)
	}

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/v1/activities/"+activity.ID.String(), map[string]any{
		"status":          "completed",
		"actual_duration": 20,
		"quality_rating":  5,
		"cat_behavior":    "playful",
		"notes":           "good session",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update failed: %d %v", resp.StatusCode, body)
	}
	if body["actual_duration"] != float64(20) {
		t.Errorf("actual_duration not persisted: %v", body["actual_duration"])
	}
	if body["quality_rating"] != float64(5) {
		t.Errorf("quality_rating not persisted: %v", body["quality_rating"])
	}
	if body["cat_behavior"] != "playful" {
		t.Errorf("cat_behavior not persisted: %v", body["cat_behavior"])
	}
	if body["complete_time"] == nil {
		t.Error("expected complete_time to be stamped")
	}
}

func TestChatEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/ai/chat", map[string]any{
		"user_id": ownerID,
		"cat_id":  catID,
		"message": "How is Mochi doing today?",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat failed: %d %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Errorf("expected success, got %v", body)
	}
	if body["type"] != "simple_query" {
		t.Errorf("expected simple_query routing, got %v", body["type"])
	}
	if body["session_id"] == "" || body["session_id"] == nil {
		t.Error("expected session id in response")
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body)
	}
}

func TestHealthTrendsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health/cats/"+catID+"/trends?days=30", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trends failed: %d %v", resp.StatusCode, body)
	}
	trends := body["trends"].(map[string]any)
	if trends["weight_trend"] != "insufficient_data" {
		t.Errorf("no records should report insufficient data, got %v", trends["weight_trend"])
	}
}

func TestHealthRecordFreeTextEditAndDelete(t *testing.T) {
	ts, _ := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	catID := createCat(t, ts.URL, ownerID)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/health", map[string]any{
		"cat_id":      catID,
		"record_type": "weight",
		"value":       4.2,
		"unit":        "kg",
		"notes":       "after breakfast",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("failed to create health record: %d %v", resp.StatusCode, body)
	}
	recordID := body["id"].(string)
	if body["weight"].(float64) != 4.2 {
		t.Errorf("weight-typed record should copy value into weight, got %v", body["weight"])
	}

	resp, body = doJSON(t, http.MethodPut, ts.URL+"/api/v1/health/"+recordID, map[string]any{
		"notes": "after breakfast, calm",
		"value": 9.9,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed to update health record: %d %v", resp.StatusCode, body)
	}
	if body["notes"] != "after breakfast, calm" {
		t.Errorf("notes not updated: %v", body["notes"])
	}
	if body["value"].(float64) != 4.2 {
		t.Errorf("measured value must not change on edit, got %v", body["value"])
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/health/"+recordID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed to delete health record: %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/health/"+recordID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d %v", resp.StatusCode, body)
	}
}

func TestCatListPagination(t *testing.T) {
	ts, _ := newTestServer(t)
	ownerID := createUser(t, ts.URL)
	for i := 0; i < 3; i++ {
		createCat(t, ts.URL, ownerID)
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/cats?skip=1&limit=1", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var cats []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&cats); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(cats) != 1 {
		t.Errorf("expected 1 cat with skip=1&limit=1, got %d", len(cats))
	}
}
