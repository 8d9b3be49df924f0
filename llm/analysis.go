package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// analysisSchemaVersion is stamped on parsed analysis blobs before they
// are persisted, so older rows stay readable after a schema change.
const analysisSchemaVersion = 1

type BehaviorAnalysis struct {
	SchemaVersion           int      `json:"schema_version"`
	HealthScore             float64  `json:"health_score"`
	KeyFindings             []string `json:"key_findings,omitempty"`
	RiskFactors             []string `json:"risk_factors"`
	Recommendations         []string `json:"recommendations"`
	RequiresVetConsultation bool     `json:"requires_vet_consultation"`
}

type ReminderSuggestion struct {
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	SuggestedTimes []string `json:"suggested_times"`
	Frequency      string   `json:"frequency"`
	Reason         string   `json:"reason"`
}

type Anomaly struct {
	Type            string `json:"type"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
	SuggestedAction string `json:"suggested_action"`
}

type HealthInsights struct {
	SchemaVersion   int                     `json:"schema_version"`
	Trends          []string                `json:"trends"`
	KeyMetrics      map[string]any          `json:"key_metrics"`
	RiskFactors     []string                `json:"risk_factors"`
	Recommendations []InsightRecommendation `json:"recommendations"`
	NextActions     []string                `json:"next_actions"`
}

type InsightRecommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Priority    string   `json:"priority"`
	Actions     []string `json:"actions"`
}

// UnmarshalJSON accepts both the object form and the bare-string form
// models alternate between, filling defaults for whatever is missing.
func (r *InsightRecommendation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = InsightRecommendation{Title: "Daily insight", Description: s, Confidence: 0.8, Priority: "medium"}
		return nil
	}
	type plain InsightRecommendation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = InsightRecommendation(p)
	if r.Title == "" {
		r.Title = "Daily insight"
	}
	if r.Confidence == 0 {
		r.Confidence = 0.8
	}
	if r.Priority == "" {
		r.Priority = "medium"
	}
	return nil
}

// AnalyzeBehavior asks the model for a health assessment of the cat's
// recent care data. A response that fails to parse degrades to a neutral
// analysis carrying the raw text as its single recommendation.
func (c *Client) AnalyzeBehavior(ctx context.Context, catData map[string]any) (*BehaviorAnalysis, error) {
	prompt := fmt.Sprintf(`As a professional cat health advisor, analyze the following cat data and give expert advice.

Cat profile:
- Name: %v
- Age: %v years
- Breed: %v
- Weight: %v kg

Last 7 days of care data:
- Average feedings per day: %v
- Average activity minutes per day: %v
- Task completion rate: %v
- Anomalous behaviors observed: %v

Cover overall health, behavior patterns, potential risks, concrete improvements, and whether a vet visit is needed.

Respond with valid JSON only (no markdown) containing health_score (0-1), key_findings, risk_factors, recommendations and requires_vet_consultation.`,
		catData["name"], catData["age"], catData["breed"], catData["weight"],
		catData["avg_feeding_frequency"], catData["avg_activity_duration"],
		catData["completion_rate"], catData["anomaly_count"])

	completion, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: "You are a professional cat health advisor with ten years of veterinary experience."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var analysis BehaviorAnalysis
	if err := json.Unmarshal([]byte(trimFences(completion.Content)), &analysis); err != nil {
		slog.Warn("behavior analysis did not parse, using fallback", "error", err)
		analysis = BehaviorAnalysis{
			HealthScore:     0.7,
			RiskFactors:     []string{},
			Recommendations: []string{completion.Content},
		}
	}
	analysis.SchemaVersion = analysisSchemaVersion
	return &analysis, nil
}

// SuggestReminders generates personalized care reminder suggestions.
// Malformed model output yields an empty list, not an error.
func (c *Client) SuggestReminders(ctx context.Context, catData, preferences map[string]any) ([]ReminderSuggestion, error) {
	prompt := fmt.Sprintf(`Generate personalized care reminder suggestions for this cat.

Cat:
- Age: %v years
- Breed: %v
- Health condition: %v

Owner preferences:
- Available times: %v
- Frequency preference: %v
- Special needs: %v

Produce 3-5 concrete suggestions covering the reminder type (feeding, water, play, ...), suggested times, frequency and reasoning.

Respond with a JSON array only, each entry containing title, type, suggested_times, frequency and reason.`,
		catData["age"], catData["breed"], catData["health_condition"],
		preferences["available_times"], preferences["frequency_preference"], preferences["special_needs"])

	completion, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: "You are a cat care expert who designs personalized care plans."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	content := trimFences(completion.Content)
	var suggestions []ReminderSuggestion
	if err := json.Unmarshal([]byte(content), &suggestions); err == nil {
		return suggestions, nil
	}
	// Some models wrap the array in an object.
	var wrapped struct {
		Suggestions []ReminderSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Suggestions != nil {
		return wrapped.Suggestions, nil
	}
	slog.Warn("reminder suggestions did not parse, returning none")
	return []ReminderSuggestion{}, nil
}

// DetectAnomalies scans recent activity data for unusual patterns.
func (c *Client) DetectAnomalies(ctx context.Context, activityData []map[string]any) ([]Anomaly, error) {
	encoded, err := json.MarshalIndent(activityData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity data: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze the following cat activity data and identify anomalous patterns.

Activity data:
%s

Look for timing anomalies (sudden feeding-time shifts), frequency anomalies (activity dropping off), behavior anomalies (completion rate falling) and health-related anomalies (poor appetite, reduced activity).

Respond with JSON only containing an anomalies array; each anomaly has type, severity, description and suggested_action.`, encoded)

	completion, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: "You are a data analyst who spots anomalous patterns in pet behavior."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Anomalies []Anomaly `json:"anomalies"`
	}
	if err := json.Unmarshal([]byte(trimFences(completion.Content)), &result); err != nil {
		slog.Warn("anomaly detection did not parse, returning none", "error", err)
		return []Anomaly{}, nil
	}
	if result.Anomalies == nil {
		return []Anomaly{}, nil
	}
	return result.Anomalies, nil
}

// GenerateHealthInsights builds a health report over the given period.
func (c *Client) GenerateHealthInsights(ctx context.Context, healthData map[string]any, period string) (*HealthInsights, error) {
	encoded, err := json.MarshalIndent(healthData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode health data: %w", err)
	}

	prompt := fmt.Sprintf(`Based on %s of health data, produce a health insight report for this cat.

Health data:
%s

Cover trend analysis, key metric changes, risk factors, improvement suggestions and next actions.

Respond with JSON only containing trends, key_metrics, risk_factors, recommendations and next_actions.`, period, encoded)

	completion, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: "You are a professional pet health analyst who interprets health data."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var insights HealthInsights
	if err := json.Unmarshal([]byte(trimFences(completion.Content)), &insights); err != nil {
		slog.Warn("health insights did not parse, using empty report", "error", err)
		insights = HealthInsights{
			Trends:          []string{},
			KeyMetrics:      map[string]any{},
			RiskFactors:     []string{},
			Recommendations: []InsightRecommendation{},
			NextActions:     []string{},
		}
	}
	insights.SchemaVersion = analysisSchemaVersion
	return &insights, nil
}

// trimFences strips the ```json fences models add despite being told
// not to.
func trimFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
