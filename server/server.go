package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"catalert/agent"
	"catalert/apperrors"
	"catalert/db"

	"github.com/gorilla/mux"
)

// Server wires the HTTP surface to the store and the agent.
type Server struct {
	store *db.CatAlertDB
	agent *agent.Agent
}

func New(store *db.CatAlertDB, careAgent *agent.Agent) *Server {
	return &Server{store: store, agent: careAgent}
}

// Router builds the full route table under /api/v1.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{id}", s.handleUpdateUser).Methods("PUT")
	api.HandleFunc("/users/{id}/cats", s.handleListUserCats).Methods("GET")

	api.HandleFunc("/cats", s.handleListCats).Methods("GET")
	api.HandleFunc("/cats", s.handleCreateCat).Methods("POST")
	api.HandleFunc("/cats/{id}", s.handleGetCat).Methods("GET")
	api.HandleFunc("/cats/{id}", s.handleUpdateCat).Methods("PUT")
	api.HandleFunc("/cats/{id}", s.handleDeleteCat).Methods("DELETE")
	api.HandleFunc("/cats/{id}/stats", s.handleCatStats).Methods("GET")

	api.HandleFunc("/reminders", s.handleListReminders).Methods("GET")
	api.HandleFunc("/reminders", s.handleCreateReminder).Methods("POST")
	api.HandleFunc("/reminders/{id}", s.handleGetReminder).Methods("GET")
	api.HandleFunc("/reminders/{id}", s.handleUpdateReminder).Methods("PUT")
	api.HandleFunc("/reminders/{id}", s.handleDeleteReminder).Methods("DELETE")

	api.HandleFunc("/activities", s.handleListActivities).Methods("GET")
	api.HandleFunc("/activities", s.handleCreateActivity).Methods("POST")
	api.HandleFunc("/activities/{id}", s.handleGetActivity).Methods("GET")
	api.HandleFunc("/activities/{id}", s.handleUpdateActivity).Methods("PUT")
	api.HandleFunc("/activities/{id}/complete", s.handleCompleteActivity).Methods("POST")
	api.HandleFunc("/activities/cats/{id}/today", s.handleTodayActivities).Methods("GET")

	api.HandleFunc("/health", s.handleListHealthRecords).Methods("GET")
	api.HandleFunc("/health", s.handleCreateHealthRecord).Methods("POST")
	api.HandleFunc("/health/{id}", s.handleGetHealthRecord).Methods("GET")
	api.HandleFunc("/health/{id}", s.handleUpdateHealthRecord).Methods("PUT")
	api.HandleFunc("/health/{id}", s.handleDeleteHealthRecord).Methods("DELETE")
	api.HandleFunc("/health/cats/{id}/trends", s.handleHealthTrends).Methods("GET")

	api.HandleFunc("/ai/chat", s.handleChat).Methods("POST")
	api.HandleFunc("/ai/insights", s.handleGenerateInsights).Methods("POST")
	api.HandleFunc("/ai/cats/{id}/insights", s.handleListInsights).Methods("GET")
	api.HandleFunc("/ai/cats/{id}/analysis", s.handleCatAnalysis).Methods("GET")
	api.HandleFunc("/ai/cats/{id}/reminders/suggest", s.handleSuggestReminders).Methods("POST")
	api.HandleFunc("/ai/health-check", s.handleAIHealthCheck).Methods("GET")

	return corsMiddleware(loggingMiddleware(router))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}
	respondJSON(w, httpStatus, map[string]string{"status": status})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError maps any error onto the wire error shape.
func respondError(w http.ResponseWriter, err error) {
	appErr := apperrors.FromError(err)
	if appErr.Code == "INTERNAL_ERROR" {
		slog.Error("internal server error", "error", err)
	}
	respondJSON(w, appErr.Status, map[string]any{
		"error_code": appErr.Code,
		"message":    appErr.Message,
		"details":    appErr.Details,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidation("invalid request body", map[string]any{"decode_error": err.Error()})
	}
	return nil
}
