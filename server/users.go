package server

import (
	"net/http"

	"catalert/apperrors"
	"catalert/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Timezone string `json:"timezone"`
	Language string `json:"language"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, apperrors.NewValidation("username, email and password are required", nil))
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		respondError(w, apperrors.NewValidation("username is already taken", map[string]any{"username": req.Username}))
		return
	} else if !apperrors.IsNotFound(err) {
		respondError(w, err)
		return
	}
	if _, err := s.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		respondError(w, apperrors.NewValidation("email is already registered", map[string]any{"email": req.Email}))
		return
	} else if !apperrors.IsNotFound(err) {
		respondError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, apperrors.NewInternal(err))
		return
	}

	user := &models.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		IsActive:       true,
		Timezone:       req.Timezone,
		Language:       req.Language,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	FullName            *string `json:"full_name"`
	Timezone            *string `json:"timezone"`
	Language            *string `json:"language"`
	NotificationEnabled *bool   `json:"notification_enabled"`
	AIAgentEnabled      *bool   `json:"ai_agent_enabled"`
	TelegramChatID      *int64  `json:"telegram_chat_id"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Timezone != nil {
		user.Timezone = *req.Timezone
	}
	if req.Language != nil {
		user.Language = *req.Language
	}
	if req.NotificationEnabled != nil {
		user.NotificationEnabled = *req.NotificationEnabled
	}
	if req.AIAgentEnabled != nil {
		user.AIAgentEnabled = *req.AIAgentEnabled
	}
	if req.TelegramChatID != nil {
		user.TelegramChatID = *req.TelegramChatID
	}
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUserCats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := s.store.GetUser(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	cats, err := s.store.ListCats(r.Context(), &id, 0, 0)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidation("invalid id", map[string]any{"id": raw})
	}
	return id, nil
}
