// Package identity defines the boundary to the hosted identity provider.
// Provider implementations flatten the provider's session and token objects
// into plain records at this boundary; nothing outside the identity tree
// holds a provider-native type.
package identity

import (
	"context"
	"errors"
	"time"
)

// ProviderSession is the flattened result of a successful credential or
// refresh exchange with the provider.
type ProviderSession struct {
	Username     string
	Email        string
	Groups       []string
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time // access-token expiry
}

// Provider is the credential-exchange contract consumed by the session
// manager. All methods return a *ProviderError for the documented failure
// paths so callers can branch on the provider's error code.
type Provider interface {
	// Authenticate performs the provider's standard authentication
	// challenge flow with a username and password.
	Authenticate(ctx context.Context, username, password string) (*ProviderSession, error)

	// Refresh exchanges a refresh token for a new session. The provider
	// does not rotate the refresh token; callers keep the one they hold
	// when the returned session leaves it empty.
	Refresh(ctx context.Context, refreshToken string) (*ProviderSession, error)

	// SignOut invalidates the provider-side session for the access token.
	SignOut(ctx context.Context, accessToken string) error
}

// Well-known provider error codes beyond the pool's own exception names.
const (
	ErrCodeNetwork             = "NetworkError"
	ErrCodeNewPasswordRequired = "NEW_PASSWORD_REQUIRED"
	ErrCodeInvalidToken        = "InvalidTokenException"
)

// ProviderError carries the provider's error code alongside its message.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return "identity: " + e.Code + ": " + e.Message
	}
	return "identity: " + e.Code
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrorCode extracts the provider error code from err, or "" when err is
// not a provider error.
func ErrorCode(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
