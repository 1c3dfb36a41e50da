package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherwise/weatherwise/internal/session"
	"github.com/weatherwise/weatherwise/internal/storage"
	"github.com/weatherwise/weatherwise/internal/upstream"
)

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *session.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	kv, err := storage.NewFileStore(filepath.Join(t.TempDir(), "profile.json"))
	require.NoError(t, err)
	sessions := session.NewStore(kv)

	base := upstream.NewBase(&http.Client{Timeout: 2 * time.Second}, srv.URL, "test-client")
	base.Backoff = upstream.BackoffConfig{
		MaxRetries:      0,
		InitialInterval: time.Millisecond,
	}

	return NewManager(base, sessions), sessions
}

func writeAuthResponse(w http.ResponseWriter, access, refresh string) {
	fmt.Fprintf(w, `{
		"user": {"id": "1", "username": "user1", "email": "user1@example.com"},
		"tokens": {"accessToken": %q, "refreshToken": %q, "expiresIn": 900}
	}`, access, refresh)
}

func seedSession(t *testing.T, sessions *session.Store) {
	t.Helper()
	require.NoError(t, sessions.Save(session.Session{
		AccessToken:  "t1",
		RefreshToken: "r1",
		User:         session.User{ID: "1", Username: "user1", Email: "user1@example.com"},
	}))
}

func TestLoginSuccess(t *testing.T) {
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user1@example.com", body["email"])
		assert.Equal(t, "hunter22", body["password"])

		writeAuthResponse(w, "t1", "r1")
	}))

	user, err := m.Login(context.Background(), "user1@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "user1", user.Username)

	assert.Equal(t, "t1", sessions.AccessToken())
	assert.Equal(t, "r1", sessions.RefreshToken())
	assert.Equal(t, StateLoggedIn, m.State())
}

func TestLoginInvalidCredentials(t *testing.T) {
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := m.Login(context.Background(), "user1@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, sessions.AccessToken())
	assert.Equal(t, StateLoggedOut, m.State())
}

func TestLoginServerErrorIsNotCredentialError(t *testing.T) {
	m, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := m.Login(context.Background(), "user1@example.com", "hunter22")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterSuccess(t *testing.T) {
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		writeAuthResponse(w, "t1", "r1")
	}))

	user, err := m.Register(context.Background(), "user1", "user1@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "user1", user.Username)
	assert.Equal(t, "t1", sessions.AccessToken())
}

func TestRegisterConflict(t *testing.T) {
	m, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := m.Register(context.Background(), "user1", "user1@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLogoutSendsBearerAndClears(t *testing.T) {
	var gotAuth string
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	seedSession(t, sessions)

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, "Bearer t1", gotAuth)
	assert.Empty(t, sessions.AccessToken())
	assert.Equal(t, StateLoggedOut, m.State())
}

func TestLogoutIsBestEffort(t *testing.T) {
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	seedSession(t, sessions)

	// A failed server-side logout must not prevent local clearing.
	require.NoError(t, m.Logout(context.Background()))
	assert.Empty(t, sessions.AccessToken())
}

func TestRefreshRotatesTokens(t *testing.T) {
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body["refreshToken"])

		writeAuthResponse(w, "t2", "r2")
	}))
	seedSession(t, sessions)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, "t2", sessions.AccessToken())
	assert.Equal(t, "r2", sessions.RefreshToken())
}

func TestRefreshFailureClearsSessionAndNotifies(t *testing.T) {
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	seedSession(t, sessions)

	var logouts atomic.Int32
	m.OnLogout(func() { logouts.Add(1) })

	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, sessions.AccessToken())
	assert.Empty(t, sessions.RefreshToken())
	assert.Equal(t, int32(1), logouts.Load())
	assert.Equal(t, StateLoggedOut, m.State())
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	var calls atomic.Int32
	m, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), calls.Load(), "refresh must not hit the API without a refresh token")
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	var calls atomic.Int32
	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		writeAuthResponse(w, "t2", "r2")
	}))
	seedSession(t, sessions)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Refresh(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent triggers must share one in-flight refresh")
	assert.Equal(t, "t2", sessions.AccessToken())
}

func TestStateIsRefreshingWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	m, sessions := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeAuthResponse(w, "t2", "r2")
	}))
	seedSession(t, sessions)

	done := make(chan error, 1)
	go func() { done <- m.Refresh(context.Background()) }()

	<-started
	assert.Equal(t, StateRefreshing, m.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateLoggedIn, m.State())
}
