package server

import (
	"net/http"
	"strconv"
	"time"

	"catalert/apperrors"
	"catalert/db"
	"catalert/models"

	"github.com/google/uuid"
)

type healthRecordRequest struct {
	CatID              uuid.UUID  `json:"cat_id"`
	RecordType         string     `json:"record_type"`
	Value              *float64   `json:"value"`
	Unit               string     `json:"unit"`
	Notes              string     `json:"notes"`
	AppetiteLevel      *int       `json:"appetite_level"`
	ActivityLevel      *int       `json:"activity_level"`
	Mood               string     `json:"mood"`
	EnergyLevel        *int       `json:"energy_level"`
	Weight             *float64   `json:"weight"`
	BodyConditionScore *int       `json:"body_condition_score"`
	BehaviorNotes      string     `json:"behavior_notes"`
	RecordedAt         *time.Time `json:"recorded_at"`
	RecordedBy         string     `json:"recorded_by"`
}

func (s *Server) handleCreateHealthRecord(w http.ResponseWriter, r *http.Request) {
	var req healthRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.RecordType == "" {
		respondError(w, apperrors.NewValidation("record_type is required", nil))
		return
	}
	if _, err := s.store.GetCat(r.Context(), req.CatID); err != nil {
		respondError(w, err)
		return
	}

	recordedAt := time.Now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}
	record := &models.HealthRecord{
		CatID:              req.CatID,
		RecordType:         req.RecordType,
		Value:              req.Value,
		Unit:               req.Unit,
		Notes:              req.Notes,
		AppetiteLevel:      req.AppetiteLevel,
		ActivityLevel:      req.ActivityLevel,
		Mood:               req.Mood,
		EnergyLevel:        req.EnergyLevel,
		Weight:             req.Weight,
		BodyConditionScore: req.BodyConditionScore,
		BehaviorNotes:      req.BehaviorNotes,
		RecordedAt:         recordedAt,
		RecordedBy:         req.RecordedBy,
	}
	if record.RecordType == "weight" && record.Weight == nil {
		record.Weight = req.Value
	}
	if err := s.store.CreateHealthRecord(r.Context(), record); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

func (s *Server) handleListHealthRecords(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("cat_id")
	if raw == "" {
		respondError(w, apperrors.NewValidation("cat_id query parameter is required", nil))
		return
	}
	catID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, apperrors.NewValidation("invalid cat_id", map[string]any{"cat_id": raw}))
		return
	}

	filter := db.HealthFilter{RecordType: r.URL.Query().Get("record_type")}
	if rawDays := r.URL.Query().Get("days"); rawDays != "" {
		days, err := strconv.Atoi(rawDays)
		if err != nil || days < 1 {
			respondError(w, apperrors.NewValidation("days must be a positive integer", map[string]any{"days": rawDays}))
			return
		}
		since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
		filter.Since = &since
	}

	records, err := s.store.ListHealthRecords(r.Context(), catID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetHealthRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	record, err := s.store.GetHealthRecord(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type healthRecordUpdateRequest struct {
	Notes         *string `json:"notes"`
	BehaviorNotes *string `json:"behavior_notes"`
	Mood          *string `json:"mood"`
}

// handleUpdateHealthRecord only touches the free-text fields; measured
// values are append-only.
func (s *Server) handleUpdateHealthRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req healthRecordUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	record, err := s.store.GetHealthRecord(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	if req.Notes != nil {
		record.Notes = *req.Notes
	}
	if req.BehaviorNotes != nil {
		record.BehaviorNotes = *req.BehaviorNotes
	}
	if req.Mood != nil {
		record.Mood = *req.Mood
	}
	if err := s.store.UpdateHealthRecord(r.Context(), record); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteHealthRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.DeleteHealthRecord(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "health record deleted"})
}

func (s *Server) handleHealthTrends(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := s.store.GetCat(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, apperrors.NewValidation("days must be a positive integer", map[string]any{"days": raw}))
			return
		}
		days = parsed
	}

	analysis, err := s.agent.Tools().AnalyzeHealthTrend(r.Context(), id, days)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}
