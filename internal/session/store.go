package session

import (
	"github.com/weatherwise/weatherwise/internal/storage"
)

// User is the authenticated account attached to a session.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session bundles the credentials and user identity persisted between runs.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// Store persists session state in the profile key-value store. The three
// underlying keys are written and removed together; readers treat a missing
// access token as "no session" regardless of the other keys.
type Store struct {
	kv *storage.FileStore
}

func NewStore(kv *storage.FileStore) *Store {
	return &Store{kv: kv}
}

// AccessToken returns the stored access token, or "" when logged out.
func (s *Store) AccessToken() string {
	var token string
	if !s.kv.Get(storage.KeyAuthToken, &token) {
		return ""
	}
	return token
}

// RefreshToken returns the stored refresh token. It returns "" when no
// access token is present, so partial state reads as logged out.
func (s *Store) RefreshToken() string {
	if s.AccessToken() == "" {
		return ""
	}
	var token string
	if !s.kv.Get(storage.KeyRefreshToken, &token) {
		return ""
	}
	return token
}

// CurrentUser returns the stored user, or nil when logged out.
func (s *Store) CurrentUser() *User {
	if s.AccessToken() == "" {
		return nil
	}
	var u User
	if !s.kv.Get(storage.KeyUser, &u) {
		return nil
	}
	return &u
}

// Save persists the session as one logical unit. The refresh token and user
// are written before the access token so a crash mid-save can never leave a
// refresh token behind a missing access token reading as a live session.
func (s *Store) Save(sess Session) error {
	if err := s.kv.Set(storage.KeyRefreshToken, sess.RefreshToken); err != nil {
		return err
	}
	if err := s.kv.Set(storage.KeyUser, sess.User); err != nil {
		return err
	}
	return s.kv.Set(storage.KeyAuthToken, sess.AccessToken)
}

// Clear removes all session state. The access token goes first so readers
// see "logged out" as early as possible.
func (s *Store) Clear() error {
	if err := s.kv.Remove(storage.KeyAuthToken); err != nil {
		return err
	}
	if err := s.kv.Remove(storage.KeyRefreshToken); err != nil {
		return err
	}
	return s.kv.Remove(storage.KeyUser)
}
