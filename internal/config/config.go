package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// AppConfig is the startup configuration, read once from the environment.
type AppConfig struct {
	// Upstream API.
	APIBaseURL    string `validate:"required,url"`
	WeatherAPIKey string `validate:"required"`
	MapAPIKey     string `validate:"required"`

	// FetchInterval controls how often favorites are re-fetched in the
	// background.
	FetchInterval time.Duration

	// CacheMaxAge bounds how stale a served snapshot may be.
	CacheMaxAge time.Duration

	// StatePath is the profile state file (the persistent key-value store).
	StatePath string

	// DefaultLocation is served when no location is requested, covering
	// the geolocation-denied path.
	DefaultLocation string

	HTTPTimeout time.Duration
	Port        string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from the environment with sensible defaults.
// Missing required keys are a fatal startup error.
func Load() (*AppConfig, error) {
	// No .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &AppConfig{
		APIBaseURL:      os.Getenv("API_BASE_URL"),
		WeatherAPIKey:   os.Getenv("WEATHER_API_KEY"),
		MapAPIKey:       os.Getenv("MAP_API_KEY"),
		DefaultLocation: getenvDefault("DEFAULT_LOCATION", "Tehran"),
		Port:            getenvDefault("PORT", "8080"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		LogFormat:       getenvDefault("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.StatePath = os.Getenv("STATE_PATH")
	if cfg.StatePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir for state path: %w", err)
		}
		cfg.StatePath = filepath.Join(home, ".weatherwise", "profile.json")
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Accept plain seconds too.
		if secs, serr := strconv.Atoi(v); serr == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
