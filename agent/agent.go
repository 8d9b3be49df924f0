package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catalert/llm"
	"catalert/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const systemPrompt = `You are CatAlert's intelligent cat-care assistant. Your capabilities:

1. Health monitoring: analyze a cat's daily data for anomalies and trends
2. Behavior analysis: understand behavior patterns and personalize advice
3. Reminder optimization: tune reminder times to cat and owner habits
4. Anomaly detection: flag unusual behavior patterns early
5. Personalized recommendations: tailor care advice to the individual cat

Working principles:
- Reason from recorded data, never speculation
- Give concrete, actionable advice
- Keep a professional, friendly tone
- Recommend a veterinarian when uncertain
- Put the cat's health and wellbeing first`

// LLMService is the slice of the llm client the agent needs. It exists
// so tests can substitute a scripted model.
type LLMService interface {
	ChatCompletion(ctx context.Context, messages []llm.Message) (*llm.Completion, error)
	AnalyzeBehavior(ctx context.Context, catData map[string]any) (*llm.BehaviorAnalysis, error)
	SuggestReminders(ctx context.Context, catData, preferences map[string]any) ([]llm.ReminderSuggestion, error)
	GenerateHealthInsights(ctx context.Context, healthData map[string]any, period string) (*llm.HealthInsights, error)
	Model() string
}

// Agent classifies user requests, routes them to the right handler and
// records every exchange.
type Agent struct {
	store CareStore
	llm   LLMService
	tools *CareTools
}

func New(store CareStore, llmService LLMService) *Agent {
	return &Agent{
		store: store,
		llm:   llmService,
		tools: NewCareTools(store),
	}
}

// Tools exposes the agent's data-access toolset for direct use by the
// HTTP layer.
func (a *Agent) Tools() *CareTools {
	return a.tools
}

type Insight struct {
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	Actionable  bool            `json:"actionable"`
}

type Response struct {
	Success          bool                     `json:"success"`
	Message          string                   `json:"message"`
	Type             string                   `json:"type"`
	SessionID        string                   `json:"session_id,omitempty"`
	ProcessingTimeMS int                      `json:"processing_time_ms"`
	Suggestions      []llm.ReminderSuggestion `json:"suggestions,omitempty"`
	Insights         []Insight                `json:"insights,omitempty"`
	UrgentIssues     []string                 `json:"urgent_issues,omitempty"`
}

type handlerResult struct {
	message      string
	suggestions  []llm.ReminderSuggestion
	insights     []Insight
	urgentIssues []string
}

// ProcessRequest runs the full pipeline: classify, build context,
// dispatch, persist. Failures never escape as panics or errors; the
// caller always gets a Response, unsuccessful ones included.
func (a *Agent) ProcessRequest(ctx context.Context, userID, catID uuid.UUID, userInput, sessionID string) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("agent panicked while processing request", "panic", r)
			resp = &Response{
				Success: false,
				Message: fmt.Sprintf("An error occurred while processing your request: %v", r),
				Type:    "error",
			}
		}
	}()

	start := time.Now()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	intent, err := a.classify(ctx, userInput)
	if err != nil {
		slog.Error("failed to classify request", "error", err)
		return &Response{
			Success: false,
			Message: fmt.Sprintf("An error occurred while processing your request: %v", err),
			Type:    "error",
		}
	}

	reqContext := a.buildContext(ctx, catID)

	var result handlerResult
	switch intent {
	case models.IntentSimpleQuery:
		result, err = a.handleSimpleQuery(ctx, userInput, reqContext)
	case models.IntentComplexAnalysis:
		result, err = a.handleComplexAnalysis(ctx, reqContext)
	case models.IntentReminderManagement:
		result, err = a.handleReminderManagement(ctx, reqContext)
	case models.IntentHealthConsultation:
		result, err = a.handleHealthConsultation(reqContext)
	case models.IntentGeneral:
		result, err = a.handleGeneral(ctx, userInput)
	default:
		// Closed enum; anything else still gets an answer.
		result, err = a.handleGeneral(ctx, userInput)
	}
	if err != nil {
		slog.Error("agent handler failed", "intent", intent, "error", err)
		return &Response{
			Success: false,
			Message: fmt.Sprintf("An error occurred while processing your request: %v", err),
			Type:    "error",
		}
	}

	processingMS := int(time.Since(start).Milliseconds())
	a.storeInteraction(ctx, userID, catID, sessionID, intent, userInput, result.message, reqContext, processingMS)

	return &Response{
		Success:          true,
		Message:          result.message,
		Type:             string(intent),
		SessionID:        sessionID,
		ProcessingTimeMS: processingMS,
		Suggestions:      result.suggestions,
		Insights:         result.insights,
		UrgentIssues:     result.urgentIssues,
	}
}

func (a *Agent) classify(ctx context.Context, userInput string) (models.Intent, error) {
	prompt := fmt.Sprintf(`Classify the following user request as exactly one of these types:
1. simple_query - simple lookups ("How many feedings today?", "What does Mochi weigh?")
2. complex_analysis - deep analysis ("Analyze Mochi's health", "Anything unusual lately?")
3. reminder_management - reminder setup ("Set a feeding reminder", "Adjust reminder times")
4. health_consultation - health concerns ("Mochi is off her food, what should I do?", "Do we need a vet?")
5. general - everything else

User request: %s

Return the type name only, nothing else.`, userInput)

	completion, err := a.llm.ChatCompletion(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return models.IntentGeneral, err
	}
	return models.IntentFromLabel(completion.Content), nil
}

// buildContext gathers the cat's snapshot, a week of activities and a
// month of trends. Lookup failure degrades the context to an error
// entry instead of aborting the request.
func (a *Agent) buildContext(ctx context.Context, catID uuid.UUID) map[string]any {
	snapshot, err := a.tools.GetCatData(ctx, catID)
	if err != nil {
		slog.Warn("failed to build request context", "cat_id", catID, "error", err)
		return map[string]any{"error": err.Error()}
	}
	activities, err := a.tools.GetRecentActivities(ctx, catID, 7)
	if err != nil {
		slog.Warn("failed to build request context", "cat_id", catID, "error", err)
		return map[string]any{"error": err.Error()}
	}
	trends, err := a.tools.AnalyzeHealthTrend(ctx, catID, 30)
	if err != nil {
		slog.Warn("failed to build request context", "cat_id", catID, "error", err)
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{
		"cat_data":          snapshot,
		"recent_activities": activities,
		"health_trends":     trends,
		"timestamp":         time.Now().Format(time.RFC3339),
	}
}

func (a *Agent) handleSimpleQuery(ctx context.Context, userInput string, reqContext map[string]any) (handlerResult, error) {
	catData, _ := json.MarshalIndent(reqContext["cat_data"], "", "  ")
	completion, err := a.llm.ChatCompletion(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(`User question: %s

Cat data:
%s

Answer the question from the data, accurately and concisely.`, userInput, catData)},
	})
	if err != nil {
		return handlerResult{}, err
	}
	return handlerResult{message: completion.Content}, nil
}

func (a *Agent) handleComplexAnalysis(ctx context.Context, reqContext map[string]any) (handlerResult, error) {
	promptData := map[string]any{}
	if snapshot, ok := reqContext["cat_data"].(*CatSnapshot); ok {
		promptData = snapshot.PromptData()
	}

	analysis, err := a.llm.AnalyzeBehavior(ctx, promptData)
	if err != nil {
		return handlerResult{}, err
	}

	insights := deriveInsights(analysis)

	var b strings.Builder
	b.WriteString("Here is what the data shows:\n\n")
	fmt.Fprintf(&b, "📊 Health score: %.0f%%\n\n", analysis.HealthScore*100)
	b.WriteString("🔍 Key findings:\n")
	for _, finding := range analysis.KeyFindings {
		fmt.Fprintf(&b, "• %s\n", finding)
	}
	b.WriteString("\n⚠️ Risk factors:\n")
	for _, risk := range analysis.RiskFactors {
		fmt.Fprintf(&b, "• %s\n", risk)
	}
	b.WriteString("\n💡 Recommendations:\n")
	for _, rec := range analysis.Recommendations {
		fmt.Fprintf(&b, "• %s\n", rec)
	}

	return handlerResult{message: b.String(), insights: insights}, nil
}

func (a *Agent) handleReminderManagement(ctx context.Context, reqContext map[string]any) (handlerResult, error) {
	catName := "your cat"
	catData := map[string]any{}
	if snapshot, ok := reqContext["cat_data"].(*CatSnapshot); ok {
		catData = snapshot.PromptData()
		if snapshot.Name != "" {
			catName = snapshot.Name
		}
	}

	suggestions, err := a.llm.SuggestReminders(ctx, catData, map[string]any{
		"available_times":      "all day",
		"frequency_preference": "moderate",
		"special_needs":        "none",
	})
	if err != nil {
		return handlerResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on %s's situation, I suggest these reminders:\n\n", catName)
	for _, s := range suggestions {
		fmt.Fprintf(&b, "• %s - %s\n", s.Title, s.Reason)
	}
	b.WriteString("\nWould you like me to create these reminders for you?")

	return handlerResult{message: b.String(), suggestions: suggestions}, nil
}

// handleHealthConsultation is rule-based: it triages from the already
// computed statistics and trends without another model call.
func (a *Agent) handleHealthConsultation(reqContext map[string]any) (handlerResult, error) {
	var urgentIssues []string

	if snapshot, ok := reqContext["cat_data"].(*CatSnapshot); ok {
		if snapshot.Statistics.TotalActivities7d > 0 && snapshot.Statistics.CompletionRate < 0.5 {
			urgentIssues = append(urgentIssues, "Task completion rate has dropped sharply, which can signal a health problem")
		}
	}
	if trends, ok := reqContext["health_trends"].(*TrendAnalysis); ok {
		if trends.Trends.WeightTrend == models.TrendDecreasing {
			urgentIssues = append(urgentIssues, "Weight is steadily decreasing; consult a veterinarian soon")
		}
	}

	var message string
	if len(urgentIssues) > 0 {
		var b strings.Builder
		b.WriteString("⚠️ The following issues need your attention:\n\n")
		for _, issue := range urgentIssues {
			fmt.Fprintf(&b, "• %s\n", issue)
		}
		b.WriteString(`
What to do:
1. Watch your cat's behavior closely
2. Keep a detailed record of symptoms and anything unusual
3. Contact a veterinarian as soon as you can

If the situation is urgent, go to a 24-hour animal hospital immediately.`)
		message = b.String()
	} else {
		message = `Based on the current data, your cat is in good health.

Keep up the existing care routine and continue watching for behavior changes. If anything unusual comes up, check with a veterinarian.`
	}

	return handlerResult{message: message, urgentIssues: urgentIssues}, nil
}

func (a *Agent) handleGeneral(ctx context.Context, userInput string) (handlerResult, error) {
	completion, err := a.llm.ChatCompletion(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userInput},
	})
	if err != nil {
		return handlerResult{}, err
	}
	return handlerResult{message: completion.Content}, nil
}

// deriveInsights turns a behavior analysis into insight entries: a low
// health score becomes a high-priority insight, each risk factor a
// medium one.
func deriveInsights(analysis *llm.BehaviorAnalysis) []Insight {
	var insights []Insight
	if analysis.HealthScore < 0.6 {
		insights = append(insights, Insight{
			Type:        "health",
			Title:       "Low health score",
			Description: fmt.Sprintf("The current health score is %.0f%%; keep a close eye on your cat's condition", analysis.HealthScore*100),
			Priority:    models.PriorityHigh,
			Actionable:  true,
		})
	}
	for _, risk := range analysis.RiskFactors {
		insights = append(insights, Insight{
			Type:        "risk",
			Title:       "Risk factor: " + risk,
			Description: fmt.Sprintf("Detected risk factor %q; consider taking action", risk),
			Priority:    models.PriorityMedium,
			Actionable:  true,
		})
	}
	return insights
}

// storeInteraction persists the exchange; a failure here is logged and
// never surfaces to the user.
func (a *Agent) storeInteraction(ctx context.Context, userID, catID uuid.UUID, sessionID string, intent models.Intent, userInput, aiResponse string, reqContext map[string]any, processingMS int) {
	contextJSON, err := json.Marshal(reqContext)
	if err != nil {
		slog.Error("failed to encode interaction context", "error", err)
		contextJSON = []byte("{}")
	}

	interaction := &models.AIInteraction{
		UserID:           userID,
		CatID:            &catID,
		SessionID:        sessionID,
		InteractionType:  string(intent),
		UserInput:        userInput,
		AIResponse:       aiResponse,
		Context:          datatypes.JSON(contextJSON),
		Intent:           string(intent),
		ProcessingTimeMS: processingMS,
		ModelUsed:        a.llm.Model(),
	}
	if err := a.store.CreateInteraction(ctx, interaction); err != nil {
		slog.Error("failed to store interaction", "error", err)
	}
}

// AnalyzeCat runs a behavior analysis over the cat's current snapshot.
func (a *Agent) AnalyzeCat(ctx context.Context, catID uuid.UUID) (*llm.BehaviorAnalysis, error) {
	snapshot, err := a.tools.GetCatData(ctx, catID)
	if err != nil {
		return nil, err
	}
	return a.llm.AnalyzeBehavior(ctx, snapshot.PromptData())
}

// SuggestReminders produces reminder suggestions for a cat, honoring
// the owner's stated preferences.
func (a *Agent) SuggestReminders(ctx context.Context, catID uuid.UUID, preferences map[string]any) ([]llm.ReminderSuggestion, error) {
	snapshot, err := a.tools.GetCatData(ctx, catID)
	if err != nil {
		return nil, err
	}
	if preferences == nil {
		preferences = map[string]any{
			"available_times":      "all day",
			"frequency_preference": "moderate",
			"special_needs":        "none",
		}
	}
	return a.llm.SuggestReminders(ctx, snapshot.PromptData(), preferences)
}

// ModelName reports which model backs the agent.
func (a *Agent) ModelName() string {
	return a.llm.Model()
}

// GenerateDailyInsights refreshes the cat's daily insight batch from a
// one-day health report. Any failure is logged and yields an empty
// batch; the previous batch survives a failed replacement.
func (a *Agent) GenerateDailyInsights(ctx context.Context, catID uuid.UUID) []models.AIInsight {
	snapshot, err := a.tools.GetCatData(ctx, catID)
	if err != nil {
		slog.Error("failed to generate daily insights", "cat_id", catID, "error", err)
		return []models.AIInsight{}
	}
	activities, err := a.tools.GetRecentActivities(ctx, catID, 1)
	if err != nil {
		slog.Error("failed to generate daily insights", "cat_id", catID, "error", err)
		return []models.AIInsight{}
	}
	trends, err := a.tools.AnalyzeHealthTrend(ctx, catID, 7)
	if err != nil {
		slog.Error("failed to generate daily insights", "cat_id", catID, "error", err)
		return []models.AIInsight{}
	}

	report, err := a.llm.GenerateHealthInsights(ctx, map[string]any{
		"cat_data":          snapshot,
		"recent_activities": activities,
		"health_trends":     trends,
	}, "1d")
	if err != nil {
		slog.Error("failed to generate daily insights", "cat_id", catID, "error", err)
		return []models.AIInsight{}
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	insights := make([]models.AIInsight, 0, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		priority := models.Priority(rec.Priority)
		if !priority.Valid() {
			priority = models.PriorityMedium
		}
		confidence := rec.Confidence
		actionsJSON, err := json.Marshal(rec.Actions)
		if err != nil {
			actionsJSON = []byte("[]")
		}
		insights = append(insights, models.AIInsight{
			CatID:           catID,
			InsightType:     "daily",
			Title:           rec.Title,
			Description:     rec.Description,
			ConfidenceScore: &confidence,
			AnalysisPeriod:  "1d",
			Recommendations: datatypes.JSON(actionsJSON),
			Priority:        priority,
			GeneratedAt:     time.Now(),
			ExpiresAt:       &expiresAt,
		})
	}

	if err := a.store.ReplaceDailyInsights(ctx, catID, insights); err != nil {
		slog.Error("failed to persist daily insights", "cat_id", catID, "error", err)
		return []models.AIInsight{}
	}
	return insights
}
