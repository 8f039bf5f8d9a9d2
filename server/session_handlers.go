package server

import (
	"encoding/json"
	"net/http"

	"github.com/jaladseva/eseva-portal/identity"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"groups,omitempty"`
	IsAdmin  bool     `json:"isAdmin"`
	State    string   `json:"state"`
}

// LoginHandler signs an administrator in with user pool credentials.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		result := s.sessions.SignIn(r.Context(), req.Username, req.Password)
		if !result.Success {
			status := http.StatusUnauthorized
			if result.ErrorCode == identity.ErrCodeNetwork {
				status = http.StatusBadGateway
			}
			writeJSON(w, status, map[string]any{
				"status":    "error",
				"error":     result.Error,
				"errorCode": result.ErrorCode,
			})
			return
		}

		s.notifier.Success("Signed in successfully")
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"user": sessionResponse{
				Username: result.Session.Username,
				Email:    result.Session.Email,
				Groups:   result.Session.Groups,
				IsAdmin:  s.sessions.IsAdmin(),
				State:    string(s.sessions.State()),
			},
		})
	}
}

// LogoutHandler clears the session. Local state is always cleared, so the
// response is success even when the identity provider call fails.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.SignOut(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("provider sign-out failed, local session cleared")
		}
		s.notifier.Info("Signed out")
		writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
	}
}

// SessionHandler reports the current session, if any.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := s.sessions.CurrentUser(r.Context())
		if current == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":        "success",
				"authenticated": false,
				"state":         string(s.sessions.State()),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "success",
			"authenticated": s.sessions.IsAuthenticated(),
			"user": sessionResponse{
				Username: current.Username,
				Email:    current.Email,
				Groups:   current.Groups,
				IsAdmin:  s.sessions.IsAdmin(),
				State:    string(s.sessions.State()),
			},
		})
	}
}

// RefreshHandler forces a refresh attempt, shared with any guard-initiated
// refresh already in flight.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshed, _, _ := s.refreshGroup.Do(refreshGroupKey, func() (any, error) {
			return s.sessions.Refresh(r.Context()), nil
		})

		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "success",
			"refreshed":     refreshed.(bool),
			"authenticated": s.sessions.IsAuthenticated(),
			"state":         string(s.sessions.State()),
		})
	}
}
