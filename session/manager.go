package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jaladseva/eseva-portal/identity"
	"github.com/jaladseva/eseva-portal/internal/utils"
)

// State is the manager's position in the session lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateRefreshPending  State = "refresh_pending"
	StateExpired         State = "expired"
)

// Error codes the manager produces itself, alongside the provider's own.
const (
	ErrCodeAccessDenied    = "ACCESS_DENIED"
	ErrCodeProcessingError = "PROCESSING_ERROR"
)

// errorMessages maps provider error codes to the messages shown to users.
// Unmapped codes fall back to the provider's own message.
var errorMessages = map[string]string{
	"UserNotFoundException":             "Invalid username or password.",
	"NotAuthorizedException":            "Invalid username or password.",
	"UserNotConfirmedException":         "Please verify your email address.",
	"PasswordResetRequiredException":    "Password reset required.",
	"UserLambdaValidationException":     "User validation failed.",
	"TooManyRequestsException":          "Too many attempts. Please try again later.",
	"InvalidParameterException":         "Invalid request parameters.",
	identity.ErrCodeNetwork:             "Connection failed. Please check your internet connection.",
	identity.ErrCodeNewPasswordRequired: "Password change required. Please contact an administrator.",
}

// SignInResult is the single completion every sign-in attempt resolves to:
// either a full session, or a categorized failure. SignIn never returns a
// Go error for the documented failure paths.
type SignInResult struct {
	Success   bool
	Session   *Session
	Error     string
	ErrorCode string
}

func signInFailure(code, message string) SignInResult {
	return SignInResult{Success: false, Error: message, ErrorCode: code}
}

// Manager owns the authenticated identity: sign-in and sign-out against the
// identity provider, the persisted snapshot, expiry tracking, and the admin
// group check. There is one Manager per application run; all session reads
// and writes go through it.
type Manager struct {
	provider   identity.Provider
	repo       Repo
	adminGroup string
	nowTime    func() time.Time
	log        zerolog.Logger

	mu    sync.Mutex
	state State
	// live is the session derived from the most recent provider exchange
	// this run. The snapshot in the repo is the durable copy.
	live *Session
}

// ManagerOption modifies a Manager.
type ManagerOption func(*Manager)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) { m.nowTime = nowFunc }
}

// WithAdminGroup overrides the group required for admin access.
func WithAdminGroup(group string) ManagerOption {
	return func(m *Manager) { m.adminGroup = group }
}

// WithLogger sets the manager logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// NewManager validates dependencies and returns a Manager in the
// unauthenticated state.
func NewManager(provider identity.Provider, repo Repo, options ...ManagerOption) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("[NewManager] provider is required")
	}
	if repo == nil {
		return nil, errors.New("[NewManager] repo is required")
	}

	m := &Manager{
		provider:   provider,
		repo:       repo,
		adminGroup: "admin",
		nowTime:    time.Now,
		log:        zerolog.Nop(),
		state:      StateUnauthenticated,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// SignIn exchanges credentials with the provider. Valid credentials without
// the admin group are a policy rejection, reported as ACCESS_DENIED with
// nothing persisted.
func (m *Manager) SignIn(ctx context.Context, username, password string) SignInResult {
	m.setState(StateAuthenticating)

	ps, err := m.provider.Authenticate(ctx, username, password)
	if err != nil {
		m.setState(StateUnauthenticated)
		code := utils.FirstNonEmpty(identity.ErrorCode(err), ErrCodeProcessingError)
		message := errorMessages[code]
		if message == "" {
			var perr *identity.ProviderError
			if errors.As(err, &perr) && perr.Message != "" {
				message = perr.Message
			} else {
				message = "Authentication failed."
			}
		}
		m.log.Info().Str("code", code).Str("username", username).Msg("sign-in rejected")
		return signInFailure(code, message)
	}

	sess := fromProvider(ps)
	if !sess.valid() {
		m.setState(StateUnauthenticated)
		return signInFailure(ErrCodeProcessingError, "Failed to process authentication.")
	}

	if !sess.HasGroup(m.adminGroup) {
		m.setState(StateUnauthenticated)
		m.log.Info().Str("username", sess.Username).Msg("sign-in denied: admin group missing")
		return signInFailure(ErrCodeAccessDenied, "You don't have permission to access the admin area.")
	}

	if err := m.repo.Save(sess); err != nil {
		// The in-memory session still works for this run.
		m.log.Warn().Err(err).Msg("failed to persist session snapshot")
	}

	m.mu.Lock()
	m.live = sess
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.log.Info().Str("username", sess.Username).Msg("signed in")
	return SignInResult{Success: true, Session: sess.clone()}
}

// SignOut invalidates the provider-side session when one is held, then
// clears the persisted snapshot unconditionally. A remote failure never
// blocks the local logout.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	live := m.live
	m.live = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()

	if live != nil && live.AccessToken != "" {
		if err := m.provider.SignOut(ctx, live.AccessToken); err != nil {
			m.log.Warn().Err(err).Msg("provider sign-out failed; clearing local session anyway")
		}
	}

	return errors.Wrap(m.repo.Clear(), "[Manager.SignOut] clear snapshot")
}

// CurrentUser returns the current session without network I/O: the live
// session from this run when still valid, else an unexpired persisted
// snapshot, else nil.
func (m *Manager) CurrentUser(ctx context.Context) *Session {
	now := m.nowTime()

	m.mu.Lock()
	live := m.live
	m.mu.Unlock()

	if live != nil && !live.ExpiredAt(now) {
		return live.clone()
	}

	snap := m.readSnapshot()
	if snap == nil {
		if live != nil {
			m.setState(StateExpired)
		}
		return nil
	}
	if snap.ExpiredAt(now) {
		m.setState(StateExpired)
		return nil
	}
	return snap
}

// Refresh makes the session valid again using the stored refresh token.
// When the current session is already valid it succeeds without touching
// anything. Failures resolve to false; persisted state is never mutated on
// a failed refresh.
func (m *Manager) Refresh(ctx context.Context) bool {
	now := m.nowTime()

	m.mu.Lock()
	live := m.live
	m.mu.Unlock()

	if live != nil && !live.ExpiredAt(now) {
		return true
	}

	refreshToken := ""
	if live != nil {
		refreshToken = live.RefreshToken
	}
	if refreshToken == "" {
		if snap := m.readAnySnapshot(); snap != nil {
			refreshToken = snap.RefreshToken
		}
	}
	if refreshToken == "" {
		return false
	}

	m.setState(StateRefreshPending)

	ps, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		m.setState(StateUnauthenticated)
		m.log.Info().Str("code", identity.ErrorCode(err)).Msg("session refresh failed")
		return false
	}

	sess := fromProvider(ps)
	if sess.RefreshToken == "" {
		sess.RefreshToken = refreshToken
	}
	if !sess.valid() {
		m.setState(StateUnauthenticated)
		return false
	}

	if err := m.repo.Save(sess); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refreshed session")
	}

	m.mu.Lock()
	m.live = sess
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.log.Info().Str("username", sess.Username).Msg("session refreshed")
	return true
}

// IsAuthenticated reports whether a persisted snapshot exists with its
// expiry strictly in the future. Purely local.
func (m *Manager) IsAuthenticated() bool {
	snap := m.readSnapshot()
	return snap != nil && !snap.ExpiredAt(m.nowTime())
}

// IsAdmin reports whether the persisted snapshot's groups include the admin
// group. Purely local.
func (m *Manager) IsAdmin() bool {
	return m.readSnapshot().HasGroup(m.adminGroup)
}

// State returns the manager's lifecycle state, accounting for wall-clock
// expiry of the authenticated session.
func (m *Manager) State() State {
	m.mu.Lock()
	state := m.state
	live := m.live
	m.mu.Unlock()

	if state == StateAuthenticated && live != nil && live.ExpiredAt(m.nowTime()) {
		m.setState(StateExpired)
		return StateExpired
	}
	return state
}

// readSnapshot loads and structurally validates the persisted snapshot.
// A snapshot missing required fields is evicted, never partially trusted.
func (m *Manager) readSnapshot() *Session {
	snap := m.readAnySnapshot()
	if snap == nil {
		return nil
	}
	if !snap.valid() {
		m.log.Warn().Msg("evicting structurally invalid session snapshot")
		if err := m.repo.Clear(); err != nil {
			m.log.Warn().Err(err).Msg("failed to evict invalid snapshot")
		}
		return nil
	}
	return snap
}

func (m *Manager) readAnySnapshot() *Session {
	snap, err := m.repo.Load()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn().Err(err).Msg("failed to load session snapshot")
		}
		return nil
	}
	return snap
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// fromProvider flattens a provider session into the portal's Session
// record, converting expiry to epoch milliseconds.
func fromProvider(ps *identity.ProviderSession) *Session {
	return &Session{
		Username:     ps.Username,
		Email:        ps.Email,
		Groups:       ps.Groups,
		AccessToken:  ps.AccessToken,
		IDToken:      ps.IDToken,
		RefreshToken: ps.RefreshToken,
		ExpiresAt:    ps.ExpiresAt.UnixMilli(),
	}
}
