package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/weatherwise/weatherwise/internal/observability"
)

// Profile state keys. These mirror the storage keys the WeatherWise front end
// writes, so a profile file stays readable across clients.
const (
	KeyAuthToken    = "weather_wise_auth_token"
	KeyRefreshToken = "weather_wise_refresh_token"
	KeyUser         = "user"
	KeyFavorites    = "weather_wise_favorite_locations"
	KeyRecents      = "weather_wise_recent_locations"
	KeyClientID     = "weather_wise_client_id"
)

// FileStore is a persistent key-value store backed by a single JSON document
// on disk. Values are JSON-serialized on write and parsed on read; a value
// that fails to parse is reported as absent rather than as an error.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data map[string]json.RawMessage
}

// NewFileStore opens (or creates) the profile state at path. A missing or
// unreadable state file yields an empty store; corruption never blocks startup.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("storage: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create state dir: %w", err)
	}

	s := &FileStore{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			observability.Warn("storage: state file unreadable, starting empty", "path", path, "error", err)
		}
		return s, nil
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		observability.Warn("storage: state file corrupted, starting empty", "path", path, "error", err)
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get reads the value stored under key into out. It returns false when the
// key is absent or the stored value cannot be parsed into out.
func (s *FileStore) Get(key string, out any) bool {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		observability.Debug("storage: malformed value, treating as absent", "key", key, "error", err)
		return false
	}
	return true
}

// Set serializes value and persists it under key.
func (s *FileStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = raw
	return s.flushLocked()
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

// ClientID returns the stable identifier for this profile, generating and
// persisting one on first use.
func (s *FileStore) ClientID() (string, error) {
	var id string
	if s.Get(KeyClientID, &id) && id != "" {
		return id, nil
	}

	id = uuid.New().String()
	if err := s.Set(KeyClientID, id); err != nil {
		return "", err
	}
	return id, nil
}

// flushLocked writes the whole document atomically via a temp file rename.
// Callers must hold s.mu.
func (s *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("storage: write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("storage: replace state: %w", err)
	}
	return nil
}
