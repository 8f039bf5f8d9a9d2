package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaladseva/eseva-portal/content/feed/repofakes"
	"github.com/jaladseva/eseva-portal/identity"
	"github.com/jaladseva/eseva-portal/identity/identityfakes"
	"github.com/jaladseva/eseva-portal/internal/config"
	"github.com/jaladseva/eseva-portal/server"
	"github.com/jaladseva/eseva-portal/session"
	sessionrepofakes "github.com/jaladseva/eseva-portal/session/repofakes"
)

// getNoRedirect performs a request without following redirects, so the
// guard's redirect response can be inspected directly.
func getNoRedirect(t *testing.T, rawURL string, headers map[string]string) *http.Response {
	t.Helper()
	client := &http.Client{CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *serverFixture) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	return getNoRedirect(t, f.ts.URL+path, headers)
}

// drainNotices empties the notice queue and returns "level: message" pairs.
func drainNotices(t *testing.T, baseURL string) []string {
	t.Helper()
	resp := getNoRedirect(t, baseURL+"/api/notices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Notices []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"notices"`
	}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &body))

	messages := make([]string, 0, len(body.Notices))
	for _, n := range body.Notices {
		messages = append(messages, n.Level+": "+n.Message)
	}
	return messages
}

func (f *serverFixture) noticeMessages(t *testing.T) []string {
	t.Helper()
	return drainNotices(t, f.ts.URL)
}

func TestGuardPassesLiveAdminSessionWithoutRefreshing(t *testing.T) {
	f := setupServerFixture(t)
	f.sessions.authenticated = true
	f.sessions.admin = true
	f.sessions.state = session.StateAuthenticated
	f.sessions.current = &session.Session{Username: "admin-user", AccessToken: "tok"}

	resp := f.get(t, "/admin/dashboard", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, f.sessions.refreshCount(), "no refresh for a live session")
}

func TestGuardRefreshesOnceThenPasses(t *testing.T) {
	f := setupServerFixture(t)
	f.sessions.state = session.StateExpired
	f.sessions.refreshSucceeds = true
	f.sessions.current = &session.Session{Username: "admin-user", AccessToken: "tok"}

	resp := f.get(t, "/admin/dashboard", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, f.sessions.refreshCount())
}

func TestGuardRedirectsToLoginWhenRefreshFails(t *testing.T) {
	f := setupServerFixture(t)
	f.sessions.state = session.StateUnauthenticated

	resp := f.get(t, "/admin/dashboard", nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))
	require.Equal(t, 1, f.sessions.refreshCount(), "one refresh attempt before redirecting")
	require.Contains(t, f.noticeMessages(t), "error: Please sign in to continue")
}

func TestGuardNoticeForExpiredSession(t *testing.T) {
	f := setupServerFixture(t)
	f.sessions.state = session.StateExpired

	resp := f.get(t, "/admin/dashboard", nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Contains(t, f.noticeMessages(t), "warning: Your session has expired. Please sign in again")
}

// TestGuardExpiredSessionRefreshRejected drives the real session manager
// instead of the fake: an expired persisted session whose refresh token the
// provider rejects must still surface the session-expired warning, even
// though the manager reports unauthenticated once the refresh has failed.
func TestGuardExpiredSessionRefreshRejected(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	sessionRepo := sessionrepofakes.NewFakeSessionRepo()
	sessionRepo.Seed(&session.Session{
		Username:     "admin-user",
		Email:        "admin@example.gov.in",
		Groups:       []string{"admin"},
		AccessToken:  "stale-access-token",
		RefreshToken: "stale-refresh-token",
		ExpiresAt:    now.Add(-time.Minute).UnixMilli(),
	})

	provider := identityfakes.NewFakeProvider()
	provider.RefreshFunc = func(string) (*identity.ProviderSession, error) {
		return nil, &identity.ProviderError{Code: identity.ErrCodeInvalidToken, Message: "refresh token revoked"}
	}

	manager, err := session.NewManager(provider, sessionRepo,
		session.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	srv, err := server.New(config.New(), manager, &fakeContentAPI{}, repofakes.NewFakeFeedRepo())
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	resp := getNoRedirect(t, ts.URL+"/admin/dashboard", nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))
	require.Equal(t, 1, provider.RefreshCalls)
	require.Contains(t, drainNotices(t, ts.URL), "warning: Your session has expired. Please sign in again")
}

func TestGuardNoticeForNonAdminSession(t *testing.T) {
	f := setupServerFixture(t)
	f.sessions.authenticated = true
	f.sessions.admin = false
	f.sessions.state = session.StateAuthenticated

	resp := f.get(t, "/admin/dashboard", nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Contains(t, f.noticeMessages(t), "error: You need administrator access to view this page")
}

func TestGuardReturnsJSONForAPIClients(t *testing.T) {
	f := setupServerFixture(t)

	resp := f.get(t, "/admin/dashboard", map[string]string{"Accept": "application/json"})

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), "/admin/login")
}

func TestGuardSharesOneRefreshAcrossConcurrentRequests(t *testing.T) {
	f := setupServerFixture(t)
	f.sessions.state = session.StateExpired
	f.sessions.refreshSucceeds = true
	f.sessions.refreshDelay = 50 * time.Millisecond
	f.sessions.current = &session.Session{Username: "admin-user", AccessToken: "tok"}

	const requests = 5
	var wg sync.WaitGroup
	statuses := make([]int, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client := &http.Client{}
			resp, err := client.Get(f.ts.URL + "/admin/dashboard")
			if err != nil {
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, f.sessions.refreshCount(), "concurrent guarded requests share one refresh")
	for _, status := range statuses {
		require.Equal(t, http.StatusOK, status)
	}
}
