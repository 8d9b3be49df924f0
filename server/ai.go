package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalert/apperrors"
	"catalert/models"

	"github.com/google/uuid"
)

type chatRequest struct {
	UserID    uuid.UUID `json:"user_id"`
	CatID     uuid.UUID `json:"cat_id"`
	Message   string    `json:"message"`
	SessionID string    `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Message == "" {
		respondError(w, apperrors.NewValidation("message is required", nil))
		return
	}
	if _, err := s.store.GetUser(r.Context(), req.UserID); err != nil {
		respondError(w, err)
		return
	}

	resp := s.agent.ProcessRequest(r.Context(), req.UserID, req.CatID, req.Message, req.SessionID)
	respondJSON(w, http.StatusOK, resp)
}

type insightsRequest struct {
	CatID  uuid.UUID `json:"cat_id"`
	Period string    `json:"period"`
}

// handleGenerateInsights triggers insight generation on demand. A
// one-day period refreshes the daily batch; longer periods produce a
// single trend-summary insight.
func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if _, err := s.store.GetCat(r.Context(), req.CatID); err != nil {
		respondError(w, err)
		return
	}
	if req.Period == "" {
		req.Period = "1d"
	}

	if req.Period == "1d" {
		insights := s.agent.GenerateDailyInsights(r.Context(), req.CatID)
		respondJSON(w, http.StatusOK, map[string]any{"insights": insights})
		return
	}

	days, err := strconv.Atoi(strings.TrimSuffix(req.Period, "d"))
	if err != nil || days < 1 {
		respondError(w, apperrors.NewValidation("period must look like 7d", map[string]any{"period": req.Period}))
		return
	}

	analysis, err := s.agent.Tools().AnalyzeHealthTrend(r.Context(), req.CatID, days)
	if err != nil {
		respondError(w, err)
		return
	}

	insight := models.AIInsight{
		CatID:       req.CatID,
		InsightType: "trend_summary",
		Title:       fmt.Sprintf("Trend summary over %d days", days),
		Description: fmt.Sprintf("Weight: %s. Activity: %s. Completion rate: %s.",
			analysis.Trends.WeightTrend, analysis.Trends.ActivityTrend, analysis.Trends.CompletionRateTrend),
		AnalysisPeriod:     req.Period,
		DataPointsAnalyzed: analysis.HealthRecordsCount + analysis.ActivityRecordsCount,
		Priority:           models.PriorityLow,
		Actionable:         false,
		GeneratedAt:        time.Now(),
	}
	if analysis.Trends.WeightTrend.Alarming() || analysis.Trends.CompletionRateTrend.Alarming() {
		insight.Priority = models.PriorityHigh
		insight.Actionable = true
	}
	if err := s.store.CreateInsight(r.Context(), &insight); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"insights": []models.AIInsight{insight}})
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	includeExpired := r.URL.Query().Get("include_expired") == "true"
	insights, err := s.store.ListInsights(r.Context(), id, includeExpired)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) handleCatAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	analysis, err := s.agent.AnalyzeCat(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

type suggestRequest struct {
	AvailableTimes      string `json:"available_times"`
	FrequencyPreference string `json:"frequency_preference"`
	SpecialNeeds        string `json:"special_needs"`
}

func (s *Server) handleSuggestReminders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req suggestRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	var preferences map[string]any
	if req.AvailableTimes != "" || req.FrequencyPreference != "" || req.SpecialNeeds != "" {
		preferences = map[string]any{
			"available_times":      req.AvailableTimes,
			"frequency_preference": req.FrequencyPreference,
			"special_needs":        req.SpecialNeeds,
		}
	}

	suggestions, err := s.agent.SuggestReminders(r.Context(), id, preferences)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleAIHealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "available",
		"model":  s.agent.ModelName(),
	})
}
