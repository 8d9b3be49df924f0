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

type activityRequest struct {
	ReminderID     uuid.UUID             `json:"reminder_id"`
	CatID          uuid.UUID             `json:"cat_id"`
	Type           models.CareType       `json:"type"`
	ScheduledTime  *time.Time            `json:"scheduled_time"`
	Status         models.ActivityStatus `json:"status"`
	ActualDuration *int                  `json:"actual_duration"`
	Notes          string                `json:"notes"`
	QualityRating  *int                  `json:"quality_rating"`
	CatBehavior    string                `json:"cat_behavior"`
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !req.Type.Valid() {
		respondError(w, apperrors.NewValidation("invalid activity type", map[string]any{"type": req.Type}))
		return
	}
	if req.ScheduledTime == nil {
		respondError(w, apperrors.NewValidation("scheduled_time is required", nil))
		return
	}
	if _, err := s.store.GetReminder(r.Context(), req.ReminderID); err != nil {
		respondError(w, err)
		return
	}
	if _, err := s.store.GetCat(r.Context(), req.CatID); err != nil {
		respondError(w, err)
		return
	}
	status := req.Status
	if status == "" {
		status = models.ActivityStatusPending
	}
	if !status.Valid() {
		respondError(w, apperrors.NewValidation("invalid activity status", map[string]any{"status": status}))
		return
	}

	activity := &models.ActivityRecord{
		ReminderID:     req.ReminderID,
		CatID:          req.CatID,
		Type:           req.Type,
		ScheduledTime:  *req.ScheduledTime,
		Status:         status,
		ActualDuration: req.ActualDuration,
		Notes:          req.Notes,
		QualityRating:  req.QualityRating,
		CatBehavior:    req.CatBehavior,
	}
	if status == models.ActivityStatusCompleted {
		now := time.Now()
		activity.CompleteTime = &now
	}
	if err := s.store.CreateActivity(r.Context(), activity); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, activity)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
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

	filter := db.ActivityFilter{}
	if rawStatus := r.URL.Query().Get("status"); rawStatus != "" {
		status := models.ActivityStatus(rawStatus)
		if !status.Valid() {
			respondError(w, apperrors.NewValidation("invalid status", map[string]any{"status": rawStatus}))
			return
		}
		filter.Status = &status
	}
	if rawDays := r.URL.Query().Get("days"); rawDays != "" {
		days, err := strconv.Atoi(rawDays)
		if err != nil || days < 1 {
			respondError(w, apperrors.NewValidation("days must be a positive integer", map[string]any{"days": rawDays}))
			return
		}
		since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
		filter.CreatedSince = &since
	}

	activities, err := s.store.ListActivities(r.Context(), catID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	activity, err := s.store.GetActivity(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req activityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		respondError(w, apperrors.NewValidation("invalid activity status", map[string]any{"status": req.Status}))
		return
	}

	activity, err := s.store.UpdateActivity(r.Context(), id, db.ActivityUpdate{
		Status:         req.Status,
		Notes:          req.Notes,
		ActualDuration: req.ActualDuration,
		QualityRating:  req.QualityRating,
		CatBehavior:    req.CatBehavior,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

func (s *Server) handleCompleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	activity, err := s.store.UpdateActivity(r.Context(), id, db.ActivityUpdate{Status: models.ActivityStatusCompleted})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// handleTodayActivities returns the cat's activities scheduled between
// local midnight and the next one.
func (s *Server) handleTodayActivities(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := s.store.GetCat(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)
	activities, err := s.store.ListActivities(r.Context(), id, db.ActivityFilter{Since: &start, Until: &end})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}
