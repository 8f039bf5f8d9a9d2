package userpool_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jaladseva/eseva-portal/identity"
	"github.com/jaladseva/eseva-portal/identity/userpool"
)

var tokenExpiry = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func accessToken(t *testing.T, groups ...string) string {
	t.Helper()
	claims := jwtlib.MapClaims{
		"sub":      "sub-123",
		"username": "admin-user",
		"exp":      float64(tokenExpiry.Unix()),
	}
	if len(groups) > 0 {
		anyGroups := make([]any, len(groups))
		for i, g := range groups {
			anyGroups[i] = g
		}
		claims["cognito:groups"] = anyGroups
	}
	return signToken(t, claims)
}

func idToken(t *testing.T) string {
	t.Helper()
	return signToken(t, jwtlib.MapClaims{
		"sub":              "sub-123",
		"cognito:username": "admin-user",
		"email":            "admin@example.gov.in",
		"exp":              float64(tokenExpiry.Unix()),
	})
}

type poolFixture struct {
	server  *httptest.Server
	client  *userpool.Client
	lastReq struct {
		target string
		body   map[string]any
	}
	respond func(w http.ResponseWriter, r *http.Request)
}

func setupPoolFixture(t *testing.T) *poolFixture {
	t.Helper()
	f := &poolFixture{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastReq.target = r.Header.Get("X-Amz-Target")
		_ = json.NewDecoder(r.Body).Decode(&f.lastReq.body)
		f.respond(w, r)
	}))
	t.Cleanup(f.server.Close)

	client, err := userpool.New(userpool.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     f.server.URL,
		Domain:       f.server.URL,
	})
	require.NoError(t, err)
	f.client = client
	return f
}

func (f *poolFixture) respondAuth(access, id, refresh string) {
	f.respond = func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"AuthenticationResult": map[string]any{
				"AccessToken":  access,
				"IdToken":      id,
				"RefreshToken": refresh,
				"ExpiresIn":    3600,
				"TokenType":    "Bearer",
			},
		})
	}
}

func TestNewRequiresPoolCoordinates(t *testing.T) {
	_, err := userpool.New(userpool.Config{Endpoint: "https://example.com"})
	require.Error(t, err)

	_, err = userpool.New(userpool.Config{ClientID: "client-id"})
	require.Error(t, err)
}

func TestAuthenticateExtractsSessionFromTokens(t *testing.T) {
	f := setupPoolFixture(t)
	f.respondAuth(accessToken(t, "admin", "editors"), idToken(t), "refresh-tok")

	session, err := f.client.Authenticate(context.Background(), "admin-user", "secret")
	require.NoError(t, err)

	require.Equal(t, "admin-user", session.Username)
	require.Equal(t, "admin@example.gov.in", session.Email)
	require.Equal(t, []string{"admin", "editors"}, session.Groups)
	require.Equal(t, "refresh-tok", session.RefreshToken)
	require.Equal(t, tokenExpiry, session.ExpiresAt.UTC())

	require.Equal(t, "AWSCognitoIdentityProviderService.InitiateAuth", f.lastReq.target)
	params := f.lastReq.body["AuthParameters"].(map[string]any)
	require.Equal(t, "admin-user", params["USERNAME"])
	require.NotEmpty(t, params["SECRET_HASH"], "secret hash sent when the app client has a secret")
}

func TestAuthenticateFallsBackToAccessTokenIdentity(t *testing.T) {
	f := setupPoolFixture(t)
	f.respondAuth(accessToken(t), "", "refresh-tok")

	session, err := f.client.Authenticate(context.Background(), "admin-user", "secret")
	require.NoError(t, err)
	require.Equal(t, "admin-user", session.Username)
	require.Empty(t, session.Email)
}

func TestAuthenticateMapsExceptionName(t *testing.T) {
	f := setupPoolFixture(t)
	f.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"__type":  "com.amazonaws.cognito.identity.idp.model#NotAuthorizedException",
			"message": "Incorrect username or password.",
		})
	}

	_, err := f.client.Authenticate(context.Background(), "admin-user", "wrong")
	require.Equal(t, "NotAuthorizedException", identity.ErrorCode(err))
}

func TestAuthenticateNewPasswordChallenge(t *testing.T) {
	f := setupPoolFixture(t)
	f.respond = func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ChallengeName": "NEW_PASSWORD_REQUIRED"})
	}

	_, err := f.client.Authenticate(context.Background(), "admin-user", "temp")
	require.Equal(t, identity.ErrCodeNewPasswordRequired, identity.ErrorCode(err))
}

func TestAuthenticateNetworkFailure(t *testing.T) {
	client, err := userpool.New(userpool.Config{
		ClientID: "client-id",
		Endpoint: "http://127.0.0.1:1", // nothing listens here
	})
	require.NoError(t, err)

	_, err = client.Authenticate(context.Background(), "admin-user", "secret")
	require.Equal(t, identity.ErrCodeNetwork, identity.ErrorCode(err))
}

func TestRefreshExchangesTokenAtPoolDomain(t *testing.T) {
	access := accessToken(t, "admin")
	id := idToken(t)

	var tokenPath string
	var grantType, refreshToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenPath = r.URL.Path
		_ = r.ParseForm()
		grantType = r.FormValue("grant_type")
		refreshToken = r.FormValue("refresh_token")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": access,
			"id_token":     id,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(server.Close)

	client, err := userpool.New(userpool.Config{
		ClientID: "client-id", Endpoint: server.URL, Domain: server.URL,
	})
	require.NoError(t, err)

	session, err := client.Refresh(context.Background(), "stored-refresh-tok")
	require.NoError(t, err)

	require.Equal(t, "/oauth2/token", tokenPath)
	require.Equal(t, "refresh_token", grantType)
	require.Equal(t, "stored-refresh-tok", refreshToken)

	require.Equal(t, "admin-user", session.Username)
	require.Equal(t, []string{"admin"}, session.Groups)
	require.Equal(t, "stored-refresh-tok", session.RefreshToken,
		"exchanged token kept when the grant does not rotate it")
}

func TestRefreshRejectionMapsOAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid_grant", "error_description": "Refresh token revoked",
		})
	}))
	t.Cleanup(server.Close)

	client, err := userpool.New(userpool.Config{
		ClientID: "client-id", Endpoint: server.URL, Domain: server.URL,
	})
	require.NoError(t, err)

	_, err = client.Refresh(context.Background(), "revoked-tok")
	require.Equal(t, "invalid_grant", identity.ErrorCode(err))
}

func TestRefreshWithoutTokenFailsFast(t *testing.T) {
	f := setupPoolFixture(t)
	_, err := f.client.Refresh(context.Background(), "")
	require.Equal(t, identity.ErrCodeInvalidToken, identity.ErrorCode(err))
}

func TestSignOutSendsGlobalSignOut(t *testing.T) {
	f := setupPoolFixture(t)
	f.respond = func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}

	require.NoError(t, f.client.SignOut(context.Background(), "access-tok"))
	require.Equal(t, "AWSCognitoIdentityProviderService.GlobalSignOut", f.lastReq.target)
	require.Equal(t, "access-tok", f.lastReq.body["AccessToken"])
}

func TestSignOutWithoutTokenIsNoOp(t *testing.T) {
	f := setupPoolFixture(t)
	f.respond = func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	}
	require.NoError(t, f.client.SignOut(context.Background(), ""))
}
