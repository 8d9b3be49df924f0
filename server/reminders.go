package server

import (
	"net/http"

	"catalert/apperrors"
	"catalert/models"

	"github.com/google/uuid"
)

type reminderTimeRequest struct {
	Hour      int   `json:"hour"`
	Minute    int   `json:"minute"`
	DayOfWeek *int  `json:"day_of_week"`
	IsEnabled *bool `json:"is_enabled"`
}

type reminderRequest struct {
	CatID             uuid.UUID             `json:"cat_id"`
	Title             string                `json:"title"`
	Type              models.CareType       `json:"type"`
	Frequency         models.Frequency      `json:"frequency"`
	IsEnabled         *bool                 `json:"is_enabled"`
	Description       string                `json:"description"`
	Priority          *int                  `json:"priority"`
	EstimatedDuration *int                  `json:"estimated_duration"`
	ScheduledTimes    []reminderTimeRequest `json:"scheduled_times"`
}

func validateTimes(times []reminderTimeRequest) ([]models.ReminderTime, error) {
	out := make([]models.ReminderTime, 0, len(times))
	for _, t := range times {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return nil, apperrors.NewValidation("scheduled time out of range",
				map[string]any{"hour": t.Hour, "minute": t.Minute})
		}
		if t.DayOfWeek != nil && (*t.DayOfWeek < 0 || *t.DayOfWeek > 6) {
			return nil, apperrors.NewValidation("day_of_week must be 0-6",
				map[string]any{"day_of_week": *t.DayOfWeek})
		}
		enabled := true
		if t.IsEnabled != nil {
			enabled = *t.IsEnabled
		}
		out = append(out, models.ReminderTime{
			Hour:      t.Hour,
			Minute:    t.Minute,
			DayOfWeek: t.DayOfWeek,
			IsEnabled: enabled,
		})
	}
	return out, nil
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Title == "" {
		respondError(w, apperrors.NewValidation("reminder title is required", nil))
		return
	}
	if !req.Type.Valid() {
		respondError(w, apperrors.NewValidation("invalid reminder type", map[string]any{"type": req.Type}))
		return
	}
	if req.Frequency == "" {
		req.Frequency = models.FrequencyDaily
	}
	if !req.Frequency.Valid() {
		respondError(w, apperrors.NewValidation("invalid frequency", map[string]any{"frequency": req.Frequency}))
		return
	}
	times, err := validateTimes(req.ScheduledTimes)
	if err != nil {
		respondError(w, err)
		return
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	priority := 1
	if req.Priority != nil {
		priority = *req.Priority
	}
	duration := 0
	if req.EstimatedDuration != nil {
		duration = *req.EstimatedDuration
	}

	reminder := &models.Reminder{
		CatID:             req.CatID,
		Title:             req.Title,
		Type:              req.Type,
		Frequency:         req.Frequency,
		IsEnabled:         enabled,
		Description:       req.Description,
		Priority:          priority,
		EstimatedDuration: duration,
		ScheduledTimes:    times,
	}
	if err := s.store.CreateReminder(r.Context(), reminder); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reminder)
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
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

	reminders, err := s.store.ListReminders(r.Context(), catID)
	if err != nil {
		respondError(w, err)
		return
	}

	if r.URL.Query().Get("enabled") == "true" {
		filtered := reminders[:0]
		for _, rem := range reminders {
			if rem.IsEnabled {
				filtered = append(filtered, rem)
			}
		}
		reminders = filtered
	}
	respondJSON(w, http.StatusOK, reminders)
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reminder, err := s.store.GetReminder(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reminder)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reminder, err := s.store.GetReminder(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	var req reminderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Title != "" {
		reminder.Title = req.Title
	}
	if req.Type != "" {
		if !req.Type.Valid() {
			respondError(w, apperrors.NewValidation("invalid reminder type", map[string]any{"type": req.Type}))
			return
		}
		reminder.Type = req.Type
	}
	if req.Frequency != "" {
		if !req.Frequency.Valid() {
			respondError(w, apperrors.NewValidation("invalid frequency", map[string]any{"frequency": req.Frequency}))
			return
		}
		reminder.Frequency = req.Frequency
	}
	if req.IsEnabled != nil {
		reminder.IsEnabled = *req.IsEnabled
	}
	if req.Description != "" {
		reminder.Description = req.Description
	}
	if req.Priority != nil {
		reminder.Priority = *req.Priority
	}
	if req.EstimatedDuration != nil {
		reminder.EstimatedDuration = *req.EstimatedDuration
	}

	// A scheduled_times field in the request replaces the schedule
	// wholesale; omitting it keeps the current one.
	var times []models.ReminderTime
	if req.ScheduledTimes != nil {
		times, err = validateTimes(req.ScheduledTimes)
		if err != nil {
			respondError(w, err)
			return
		}
	}

	if err := s.store.UpdateReminder(r.Context(), reminder, times); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reminder)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.DeleteReminder(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "reminder deleted"})
}
