package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/weatherwise/weatherwise/internal/upstream"
)

var (
	// ErrLocationNotFound is returned when the upstream API has no data
	// for the requested location.
	ErrLocationNotFound = errors.New("weather: location not found")
)

// Doer issues requests against the upstream API. Satisfied by
// *upstream.Client, which handles bearer auth and the 401 refresh protocol.
type Doer interface {
	Do(ctx context.Context, r upstream.Request) (*http.Response, error)
}

// Client fetches weather data from the upstream Weather API.
type Client struct {
	api    Doer
	apiKey string
}

func NewClient(api Doer, apiKey string) *Client {
	return &Client{api: api, apiKey: apiKey}
}

// Current fetches current conditions and forecasts for a named location.
func (c *Client) Current(ctx context.Context, location string) (WeatherData, error) {
	return c.fetch(ctx, "/weather/"+url.PathEscape(location), nil)
}

// ByCoordinates fetches weather for a coordinate pair. The upstream API
// resolves the coordinates to a named location in the response.
func (c *Client) ByCoordinates(ctx context.Context, lat, lon float64) (WeatherData, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	return c.fetch(ctx, "/weather/coordinates", q)
}

// Search looks up locations matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]WeatherData, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("key", c.apiKey)

	resp, err := c.api.Do(ctx, upstream.Request{
		Method: http.MethodGet,
		Path:   "/weather/search",
		Query:  q,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("weather: search failed with status %d", resp.StatusCode)
	}

	var results []WeatherData
	if err := upstream.DecodeJSON(resp, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) fetch(ctx context.Context, path string, q url.Values) (WeatherData, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("key", c.apiKey)

	resp, err := c.api.Do(ctx, upstream.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  q,
	})
	if err != nil {
		return WeatherData{}, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		resp.Body.Close()
		return WeatherData{}, ErrLocationNotFound
	default:
		resp.Body.Close()
		return WeatherData{}, fmt.Errorf("weather: fetch failed with status %d", resp.StatusCode)
	}

	var data WeatherData
	if err := upstream.DecodeJSON(resp, &data); err != nil {
		return WeatherData{}, err
	}
	return data, nil
}
