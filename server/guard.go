package server

import (
	"net/http"

	"github.com/jaladseva/eseva-portal/session"
)

// Guard notice text, keyed by why access was denied.
const (
	noticeSignInRequired = "Please sign in to continue"
	noticeAdminRequired  = "You need administrator access to view this page"
	noticeSessionExpired = "Your session has expired. Please sign in again"
)

const refreshGroupKey = "session-refresh"

// RequireAdminSession guards admin routes. A request with a live admin
// session passes straight through. Otherwise exactly one refresh attempt is
// made before deciding; concurrent guarded requests share that one attempt
// rather than each hitting the identity provider. Denied requests queue a
// notice explaining why and are redirected to the login page.
func (s *Server) RequireAdminSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions.IsAuthenticated() && s.sessions.IsAdmin() {
			next(w, r)
			return
		}

		// Whether a session existed must be captured before the refresh
		// attempt: a failed refresh leaves the manager unauthenticated, and
		// the denial notice still has to tell an expired session apart from
		// a visitor who never signed in.
		hadSession := s.sessions.CurrentUser(r.Context()) != nil ||
			s.sessions.State() == session.StateExpired

		// The redirect decision waits for the refresh to finish: redirecting
		// while a refresh is still in flight would bounce a recoverable
		// session to the login page.
		refreshed, _, _ := s.refreshGroup.Do(refreshGroupKey, func() (any, error) {
			return s.sessions.Refresh(r.Context()), nil
		})

		if refreshed.(bool) && s.sessions.IsAuthenticated() && s.sessions.IsAdmin() {
			next(w, r)
			return
		}

		s.deny(w, r, hadSession)
	}
}

// deny queues the notice matching the failure mode and redirects to login.
func (s *Server) deny(w http.ResponseWriter, r *http.Request, hadSession bool) {
	switch {
	case s.sessions.IsAuthenticated() && !s.sessions.IsAdmin():
		s.notifier.Error(noticeAdminRequired)
	case hadSession || s.sessions.State() == session.StateExpired:
		s.notifier.Warning(noticeSessionExpired)
	default:
		s.notifier.Error(noticeSignInRequired)
	}

	s.log.Debug().
		Str("path", r.URL.Path).
		Str("state", string(s.sessions.State())).
		Msg("admin route denied, redirecting to login")

	if wantsJSON(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"status":   "error",
			"error":    "authentication required",
			"redirect": RouteAdminLogin,
		})
		return
	}
	http.Redirect(w, r, RouteAdminLogin, http.StatusSeeOther)
}

// wantsJSON distinguishes API clients from browser navigations.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "application/json" || r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
