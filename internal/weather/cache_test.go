package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	cache := NewSnapshotCache(time.Hour)

	cache.Put(WeatherData{Location: "Paris", Temperature: 20})

	data, err := cache.Get("Paris")
	require.NoError(t, err)
	assert.Equal(t, 20.0, data.Temperature)
}

func TestCacheMiss(t *testing.T) {
	cache := NewSnapshotCache(time.Hour)

	_, err := cache.Get("Paris")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewSnapshotCache(10 * time.Millisecond)

	cache.Put(WeatherData{Location: "Paris"})
	time.Sleep(25 * time.Millisecond)

	_, err := cache.Get("Paris")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestCachePutReplacesEntry(t *testing.T) {
	cache := NewSnapshotCache(time.Hour)

	cache.Put(WeatherData{Location: "Paris", Temperature: 20})
	cache.Put(WeatherData{Location: "Paris", Temperature: 25})

	data, err := cache.Get("Paris")
	require.NoError(t, err)
	assert.Equal(t, 25.0, data.Temperature)
}

func TestCacheRemove(t *testing.T) {
	cache := NewSnapshotCache(time.Hour)

	cache.Put(WeatherData{Location: "Paris"})
	cache.Remove("Paris")

	_, err := cache.Get("Paris")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	// Removing an absent entry is a no-op.
	cache.Remove("London")
}
