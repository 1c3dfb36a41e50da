package weather

import (
	"context"

	"github.com/weatherwise/weatherwise/internal/observability"
)

// Service orchestrates the upstream client and the snapshot cache: reads are
// served from cache when fresh, and refreshes repopulate the cache so the UI
// surfaces share one view of a location.
type Service struct {
	client *Client
	cache  *SnapshotCache
}

func NewService(client *Client, cache *SnapshotCache) *Service {
	return &Service{
		client: client,
		cache:  cache,
	}
}

// Current returns conditions for a named location, cache-first.
func (s *Service) Current(ctx context.Context, location string) (WeatherData, error) {
	if data, err := s.cache.Get(location); err == nil {
		return data, nil
	}
	return s.Refresh(ctx, location)
}

// Refresh fetches a location from upstream unconditionally and caches the
// result. A failed fetch leaves any previous cache entry untouched.
func (s *Service) Refresh(ctx context.Context, location string) (WeatherData, error) {
	data, err := s.client.Current(ctx, location)
	if err != nil {
		return WeatherData{}, err
	}
	s.cache.Put(data)
	return data, nil
}

// ByCoordinates resolves a coordinate pair to a named location's weather and
// caches it under the resolved name.
func (s *Service) ByCoordinates(ctx context.Context, lat, lon float64) (WeatherData, error) {
	data, err := s.client.ByCoordinates(ctx, lat, lon)
	if err != nil {
		return WeatherData{}, err
	}
	s.cache.Put(data)
	return data, nil
}

// Search passes the query through to the upstream API.
func (s *Service) Search(ctx context.Context, query string) ([]WeatherData, error) {
	return s.client.Search(ctx, query)
}

// Forget drops the cached snapshot for a location. Called when a location
// leaves both the favorites and recents lists.
func (s *Service) Forget(location string) {
	s.cache.Remove(location)
	observability.Debug("weather: dropped cached snapshot", "location", location)
}
