package server

import (
	"net/http"
	"strconv"
	"time"

	"catalert/apperrors"
	"catalert/models"

	"github.com/google/uuid"
)

type catRequest struct {
	OwnerID         uuid.UUID  `json:"owner_id"`
	Name            string     `json:"name"`
	Gender          string     `json:"gender"`
	Breed           string     `json:"breed"`
	Description     string     `json:"description"`
	BirthDate       *time.Time `json:"birth_date"`
	Weight          *float64   `json:"weight"`
	Color           string     `json:"color"`
	MicrochipID     string     `json:"microchip_id"`
	HealthCondition string     `json:"health_condition"`
	MedicalNotes    string     `json:"medical_notes"`
	AvatarURL       string     `json:"avatar_url"`
}

func (s *Server) handleCreateCat(w http.ResponseWriter, r *http.Request) {
	var req catRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Name == "" {
		respondError(w, apperrors.NewValidation("cat name is required", nil))
		return
	}
	if _, err := s.store.GetUser(r.Context(), req.OwnerID); err != nil {
		respondError(w, err)
		return
	}
	if req.HealthCondition == "" {
		req.HealthCondition = "good"
	}

	cat := &models.Cat{
		OwnerID:         req.OwnerID,
		Name:            req.Name,
		Gender:          req.Gender,
		Breed:           req.Breed,
		Description:     req.Description,
		BirthDate:       req.BirthDate,
		Weight:          req.Weight,
		Color:           req.Color,
		MicrochipID:     req.MicrochipID,
		HealthCondition: req.HealthCondition,
		MedicalNotes:    req.MedicalNotes,
		AvatarURL:       req.AvatarURL,
		IsActive:        true,
	}
	if err := s.store.CreateCat(r.Context(), cat); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleListCats(w http.ResponseWriter, r *http.Request) {
	var ownerID *uuid.UUID
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, apperrors.NewValidation("invalid owner_id", map[string]any{"owner_id": raw}))
			return
		}
		ownerID = &id
	}
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)
	cats, err := s.store.ListCats(r.Context(), ownerID, skip, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

func (s *Server) handleGetCat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	cat, err := s.store.GetCat(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

func (s *Server) handleUpdateCat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	cat, err := s.store.GetCat(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	var req catRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Name != "" {
		cat.Name = req.Name
	}
	if req.Gender != "" {
		cat.Gender = req.Gender
	}
	if req.Breed != "" {
		cat.Breed = req.Breed
	}
	if req.Description != "" {
		cat.Description = req.Description
	}
	if req.BirthDate != nil {
		cat.BirthDate = req.BirthDate
	}
	if req.Weight != nil {
		cat.Weight = req.Weight
	}
	if req.Color != "" {
		cat.Color = req.Color
	}
	if req.MicrochipID != "" {
		cat.MicrochipID = req.MicrochipID
	}
	if req.HealthCondition != "" {
		cat.HealthCondition = req.HealthCondition
	}
	if req.MedicalNotes != "" {
		cat.MedicalNotes = req.MedicalNotes
	}
	if req.AvatarURL != "" {
		cat.AvatarURL = req.AvatarURL
	}

	if err := s.store.UpdateCat(r.Context(), cat); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.SoftDeleteCat(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "cat deleted"})
}

func (s *Server) handleCatStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := s.store.GetCat(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, apperrors.NewValidation("days must be a positive integer", map[string]any{"days": raw}))
			return
		}
		days = parsed
	}

	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	completed, total, err := s.store.CompletionStats(r.Context(), id, since)
	if err != nil {
		respondError(w, err)
		return
	}

	completionRate := 0.0
	if total > 0 {
		completionRate = float64(completed) / float64(total)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cat_id":               id,
		"period_days":          days,
		"total_activities":     total,
		"completed_activities": completed,
		"completion_rate":      completionRate,
	})
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	return value
}
