package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"driverapp/credstore"
)

var (
	// ErrNotAuthenticated signals an operation that requires a signed-in
	// session.
	ErrNotAuthenticated = errors.New("session: not authenticated")
)

// AuthGateway is the slice of identity operations the Manager depends on.
type AuthGateway interface {
	Login(ctx context.Context, credentials Credentials) (LoginResult, error)
	Validate(ctx context.Context, token string) (BackendUser, error)
	Refresh(ctx context.Context) (LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// TokenStore is the persistent single-key credential store. The Manager
// is its sole writer.
type TokenStore interface {
	Token() (string, error)
	Save(token string) error
	Clear() error
}

// Compile-time check: *Gateway implements AuthGateway.
var _ AuthGateway = (*Gateway)(nil)

type bootstrapState int

const (
	bootstrapNotStarted bootstrapState = iota
	bootstrapInProgress
	bootstrapDone
)

// Manager owns the in-memory session state and the bootstrap/recovery
// algorithm that restores a session across process restarts.
type Manager struct {
	gateway AuthGateway
	store   TokenStore
	logger  *slog.Logger

	mu            sync.Mutex
	authenticated bool
	user          *User
	token         string
	loading       bool
	lastError     string
	bootstrap     bootstrapState
}

// NewManager creates a Manager. The session starts unauthenticated with
// loading set, so callers rendering before Bootstrap completes do not
// mistake "not yet known" for "signed out". A nil logger defaults to
// slog.Default().
func NewManager(gateway AuthGateway, store TokenStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		gateway: gateway,
		store:   store,
		logger:  logger,
		loading: true,
	}
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Authenticated: m.authenticated,
		Token:         m.token,
		Loading:       m.loading,
		Err:           m.lastError,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// Bootstrap restores the session on process start. It tries the stored
// token, then validation, then a refresh, and gives up to signed out;
// the first success wins. It runs at most once per Manager; re-entrant
// calls before completion are no-ops. Failures along the chain are
// recovered from or logged, never surfaced, since there is nothing
// rendered yet to surface them to.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.bootstrap != bootstrapNotStarted {
		m.mu.Unlock()
		return
	}
	m.bootstrap = bootstrapInProgress
	m.loading = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.bootstrap = bootstrapDone
		m.loading = false
		m.mu.Unlock()
	}()

	stored, err := m.store.Token()
	switch {
	case errors.Is(err, credstore.ErrNoToken):
		m.logger.Info("no stored token, attempting refresh from renewal cookie")
	case err != nil:
		m.logger.Error("reading stored token failed", "error", err)
	case tokenExpired(stored):
		// The bearer is visibly past its expiry; validating it would be a
		// wasted round-trip.
		m.logger.Info("stored token expired, skipping validation")
	default:
		backend, err := m.gateway.Validate(ctx, stored)
		if err == nil {
			user := driverFromBackend(backend)
			loginErr := m.Login(user, stored)
			if loginErr == nil {
				m.logger.Info("session restored from stored token", "user_id", user.UserID)
				return
			}
			// A persist failure does not end the chain; refresh gets its
			// own attempt at establishing the session.
			m.logger.Error("persisting validated session failed, attempting refresh", "error", loginErr)
		} else {
			m.logger.Warn("stored token validation failed, attempting refresh", "error", err)
		}
	}

	result, err := m.gateway.Refresh(ctx)
	if err != nil {
		m.logger.Info("refresh failed, starting signed out", "error", err)
		if err := m.store.Clear(); err != nil {
			m.logger.Error("clearing stored token failed", "error", err)
		}
		m.reset()
		return
	}

	user := driverFromBackend(result.User)
	if err := m.Login(user, result.AccessToken); err != nil {
		m.logger.Error("persisting refreshed session failed", "error", err)
		return
	}
	m.logger.Info("session restored via refresh", "user_id", user.UserID)
}

// SignIn performs the network login and, on success, establishes the
// session. On failure the pre-operation state is preserved and the error
// is surfaced.
func (m *Manager) SignIn(ctx context.Context, credentials Credentials) (User, error) {
	m.setLoading(true)
	defer m.setLoading(false)

	m.logger.Debug("login attempt", "credentials", credentials)
	result, err := m.gateway.Login(ctx, credentials)
	if err != nil {
		m.recordError(err)
		return User{}, err
	}

	user := driverFromBackend(result.User)
	if err := m.Login(user, result.AccessToken); err != nil {
		m.recordError(err)
		return User{}, err
	}
	m.logger.Info("login successful", "user_id", user.UserID, "role", user.Role)
	return user, nil
}

// Login establishes the authenticated state: the token is persisted to
// the credential store and the in-memory session is updated atomically.
func (m *Manager) Login(user User, token string) error {
	if err := m.store.Save(token); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticated = true
	m.user = &user
	m.token = token
	m.lastError = ""
	return nil
}

// Logout invalidates the server-side session first; only when the remote
// call succeeds are the stored credential and the in-memory state
// cleared. A failed remote logout leaves everything untouched: the
// renewal credential lives in a cookie this client cannot clear itself,
// so pretending to be signed out would mask a live server session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	m.loading = true
	m.mu.Unlock()
	defer m.setLoading(false)

	if err := m.gateway.Logout(ctx, token); err != nil {
		m.recordError(err)
		return err
	}

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing stored token after logout failed", "error", err)
	}
	m.reset()
	m.logger.Info("logout successful")
	return nil
}

// UpdateUser shallow-merges the given fields into the current user. It is
// a no-op when unauthenticated.
func (m *Manager) UpdateUser(update Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authenticated || m.user == nil {
		return
	}
	if update.Email != nil {
		m.user.Email = *update.Email
	}
	if update.Name != nil {
		m.user.Name = *update.Name
	}
}

// RefreshToken re-mints the bearer token from the renewal cookie while
// keeping the session signed in. Lower layers call this when a request
// comes back 401 mid-session.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	authenticated := m.authenticated
	m.mu.Unlock()
	if !authenticated {
		return "", ErrNotAuthenticated
	}

	result, err := m.gateway.Refresh(ctx)
	if err != nil {
		return "", err
	}
	user := driverFromBackend(result.User)
	if err := m.Login(user, result.AccessToken); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// Token returns the current bearer token for authenticated requests; ok
// is false when signed out.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.authenticated
}

// ClearError drops the last recorded operation error.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = ""
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticated = false
	m.user = nil
	m.token = ""
	m.lastError = ""
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err.Error()
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; the server stays authoritative. Tokens that do not parse as
// JWTs are not treated as expired.
func tokenExpired(token string) bool {
	parser := jwt.NewParser()
	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
