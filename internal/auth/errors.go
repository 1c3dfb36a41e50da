package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the auth API rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned when registration conflicts with an
	// existing account.
	ErrUserExists = errors.New("user already exists")

	// ErrSessionExpired is returned when the session cannot be refreshed;
	// the local session has been cleared by the time callers see it.
	ErrSessionExpired = errors.New("session expired")
)
