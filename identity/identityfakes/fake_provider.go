// Package identityfakes provides an in-memory identity.Provider for tests.
package identityfakes

import (
	"context"
	"sync"

	"github.com/jaladseva/eseva-portal/identity"
)

// FakeProvider implements identity.Provider with injectable behavior and
// call counting.
type FakeProvider struct {
	mu sync.Mutex

	AuthenticateFunc func(username, password string) (*identity.ProviderSession, error)
	RefreshFunc      func(refreshToken string) (*identity.ProviderSession, error)
	SignOutErr       error

	AuthenticateCalls int
	RefreshCalls      int
	SignOutCalls      int
	LastRefreshToken  string
}

var _ identity.Provider = (*FakeProvider)(nil)

// NewFakeProvider creates a provider that rejects every call until behavior
// is injected.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (f *FakeProvider) Authenticate(_ context.Context, username, password string) (*identity.ProviderSession, error) {
	f.mu.Lock()
	f.AuthenticateCalls++
	fn := f.AuthenticateFunc
	f.mu.Unlock()

	if fn == nil {
		return nil, &identity.ProviderError{Code: "NotAuthorizedException", Message: "no behavior injected"}
	}
	return fn(username, password)
}

func (f *FakeProvider) Refresh(_ context.Context, refreshToken string) (*identity.ProviderSession, error) {
	f.mu.Lock()
	f.RefreshCalls++
	f.LastRefreshToken = refreshToken
	fn := f.RefreshFunc
	f.mu.Unlock()

	if fn == nil {
		return nil, &identity.ProviderError{Code: identity.ErrCodeInvalidToken, Message: "no behavior injected"}
	}
	return fn(refreshToken)
}

func (f *FakeProvider) SignOut(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignOutCalls++
	return f.SignOutErr
}
