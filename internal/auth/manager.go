package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/weatherwise/weatherwise/internal/observability"
	"github.com/weatherwise/weatherwise/internal/session"
	"github.com/weatherwise/weatherwise/internal/upstream"
)

// State is the auth lifecycle state of the profile.
type State int

const (
	StateLoggedOut State = iota
	StateLoggedIn
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateLoggedIn:
		return "logged_in"
	case StateRefreshing:
		return "refreshing"
	default:
		return "logged_out"
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	User   session.User `json:"user"`
	Tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int64  `json:"expiresIn"`
	} `json:"tokens"`
}

// refreshCall is one in-flight refresh shared by all concurrent triggers.
type refreshCall struct {
	done chan struct{}
	err  error
}

// Manager owns the session lifecycle: login, registration, logout and silent
// token refresh against the auth API. At most one refresh is in flight at a
// time; concurrent triggers await the same call instead of issuing duplicates,
// which matters against a rotating-refresh-token backend.
type Manager struct {
	api      *upstream.Base
	sessions *session.Store

	mu       sync.Mutex
	inflight *refreshCall
	onLogout []func()
}

func NewManager(api *upstream.Base, sessions *session.Store) *Manager {
	return &Manager{
		api:      api,
		sessions: sessions,
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	refreshing := m.inflight != nil
	m.mu.Unlock()

	if refreshing {
		return StateRefreshing
	}
	if m.sessions.AccessToken() != "" {
		return StateLoggedIn
	}
	return StateLoggedOut
}

// AccessToken exposes the current bearer credential for the HTTP client.
func (m *Manager) AccessToken() string {
	return m.sessions.AccessToken()
}

// OnLogout registers a callback invoked after any forced transition to
// logged-out (refresh failure). Callbacks run synchronously and must not block.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// Login authenticates against the auth API and persists the session.
// Invalid credentials and transport failures are distinguishable via
// errors.Is(err, ErrInvalidCredentials).
func (m *Manager) Login(ctx context.Context, email, password string) (*session.User, error) {
	resp, err := m.api.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   credentialsRequest{Email: email, Password: password},
	})
	if err != nil {
		return nil, fmt.Errorf("auth: login request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusBadRequest:
		resp.Body.Close()
		return nil, ErrInvalidCredentials
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("auth: login failed with status %d", resp.StatusCode)
	}

	return m.saveSession(resp)
}

// Register creates an account and persists the resulting session. A conflict
// reported by the backend maps to ErrUserExists.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*session.User, error) {
	resp, err := m.api.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   registerRequest{Username: username, Email: email, Password: password},
	})
	if err != nil {
		return nil, fmt.Errorf("auth: register request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		resp.Body.Close()
		return nil, ErrUserExists
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("auth: register failed with status %d", resp.StatusCode)
	}

	return m.saveSession(resp)
}

// Logout invalidates the server-side session best-effort, then clears local
// state unconditionally. A failed remote call is logged, never surfaced.
func (m *Manager) Logout(ctx context.Context) error {
	if token := m.sessions.AccessToken(); token != "" {
		resp, err := m.api.Do(ctx, upstream.Request{
			Method:      http.MethodPost,
			Path:        "/auth/logout",
			BearerToken: token,
		})
		if err != nil {
			observability.Warn("auth: server-side logout failed", "error", err)
		} else {
			resp.Body.Close()
		}
	}

	return m.sessions.Clear()
}

// Refresh exchanges the stored refresh token for a new token pair. Concurrent
// callers coalesce onto a single in-flight call and share its outcome. On any
// failure the session is cleared and ErrSessionExpired is returned.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	call.err = m.refresh(ctx)

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(call.done)

	return call.err
}

func (m *Manager) refresh(ctx context.Context) error {
	token := m.sessions.RefreshToken()
	if token == "" {
		m.forceLogout()
		return ErrSessionExpired
	}

	resp, err := m.api.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   refreshRequest{RefreshToken: token},
	})
	if err != nil {
		observability.Warn("auth: refresh request failed", "error", err)
		m.forceLogout()
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		observability.Info("auth: refresh rejected", "status", resp.StatusCode)
		m.forceLogout()
		return ErrSessionExpired
	}

	if _, err := m.saveSession(resp); err != nil {
		m.forceLogout()
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	observability.Debug("auth: session refreshed")
	return nil
}

// saveSession decodes an auth API response and persists the session.
func (m *Manager) saveSession(resp *http.Response) (*session.User, error) {
	var payload authResponse
	if err := upstream.DecodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	if payload.Tokens.AccessToken == "" || payload.Tokens.RefreshToken == "" {
		return nil, fmt.Errorf("auth: incomplete token pair in response")
	}

	sess := session.Session{
		AccessToken:  payload.Tokens.AccessToken,
		RefreshToken: payload.Tokens.RefreshToken,
		User:         payload.User,
	}
	if err := m.sessions.Save(sess); err != nil {
		return nil, err
	}
	return &sess.User, nil
}

// forceLogout clears the session and notifies logout observers. Observers
// are skipped when there was no live session to lose.
func (m *Manager) forceLogout() {
	hadSession := m.sessions.AccessToken() != ""

	if err := m.sessions.Clear(); err != nil {
		observability.Error("auth: clearing session failed", "error", err)
	}

	if !hadSession {
		return
	}

	m.mu.Lock()
	callbacks := make([]func(), len(m.onLogout))
	copy(callbacks, m.onLogout)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
