package weather

import (
	"errors"
	"sync"
	"time"
)

// ErrNoSnapshot is returned when the cache holds no fresh data for a location.
var ErrNoSnapshot = errors.New("weather: no cached snapshot for location")

type cacheEntry struct {
	data     WeatherData
	storedAt time.Time
}

// SnapshotCache is a concurrency-safe cache of the latest WeatherData per
// location name, with optional age-based expiry.
type SnapshotCache struct {
	mu sync.RWMutex

	// key: location display name
	entries map[string]cacheEntry

	// maxAge <= 0 means entries never expire.
	maxAge time.Duration
}

func NewSnapshotCache(maxAge time.Duration) *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[string]cacheEntry),
		maxAge:  maxAge,
	}
}

// Put stores the latest data for its location.
func (c *SnapshotCache) Put(data WeatherData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[data.Location] = cacheEntry{
		data:     data,
		storedAt: time.Now(),
	}
}

// Get returns the cached data for a location, or ErrNoSnapshot when the cache
// is cold or the entry has aged out.
func (c *SnapshotCache) Get(location string) (WeatherData, error) {
	c.mu.RLock()
	entry, ok := c.entries[location]
	c.mu.RUnlock()

	if !ok {
		return WeatherData{}, ErrNoSnapshot
	}
	if c.maxAge > 0 && time.Since(entry.storedAt) > c.maxAge {
		return WeatherData{}, ErrNoSnapshot
	}
	return entry.data, nil
}

// Remove drops the cached entry for a location, if any.
func (c *SnapshotCache) Remove(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, location)
}
