package server

import (
	"encoding/json"
	"net/http"

	"github.com/jaladseva/eseva-portal/notify"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": "error", "error": message})
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"app":    s.config.GetAppName(),
		})
	}
}

// NoticesHandler drains queued notices for the next page render.
func (s *Server) NoticesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		notices := s.notifier.Drain()
		if notices == nil {
			notices = []notify.Notice{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "notices": notices})
	}
}

// DashboardHandler is a guarded probe for the admin UI shell: reaching it
// proves an authenticated admin session.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := s.sessions.CurrentUser(r.Context())
		if current == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "success",
			"username": current.Username,
			"email":    current.Email,
			"groups":   current.Groups,
		})
	}
}
