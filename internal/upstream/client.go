package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnauthorized is returned when a request fails authentication and the
// token refresh path could not recover it.
var ErrUnauthorized = errors.New("upstream: unauthorized")

// Request describes one upstream API call. The request is rebuilt from this
// description on every attempt, so retries always replay the full body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded when non-nil

	// BearerToken is attached as an Authorization header when non-empty.
	// Client.Do fills it from the session; callers normally leave it blank.
	BearerToken string
}

// Base issues requests against the upstream API with retry, backoff and a
// circuit breaker, but without any token handling. The auth manager uses it
// directly so its own calls never recurse into the refresh path.
type Base struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	circuit    *gobreaker.CircuitBreaker

	// Backoff may be tightened by callers before the first request.
	Backoff BackoffConfig
}

// NewBase creates a resilient upstream API client rooted at baseURL.
// clientID identifies this profile on outgoing requests.
func NewBase(client *http.Client, baseURL, clientID string) *Base {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream-api",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Base{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		Backoff:    DefaultBackoff,
		circuit:    cb,
	}
}

// Do executes the request. The response body is the caller's to close.
func (b *Base) Do(ctx context.Context, r Request) (*http.Response, error) {
	buildRequest := func() (*http.Request, error) {
		u := b.baseURL + r.Path
		if len(r.Query) > 0 {
			u = fmt.Sprintf("%s?%s", u, r.Query.Encode())
		}

		var body io.Reader
		if r.Body != nil {
			raw, err := json.Marshal(r.Body)
			if err != nil {
				return nil, fmt.Errorf("upstream: marshal request body: %w", err)
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequest(r.Method, u, body)
		if err != nil {
			return nil, err
		}
		if r.Body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if b.clientID != "" {
			req.Header.Set("X-Client-ID", b.clientID)
		}
		if r.BearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+r.BearerToken)
		}
		return req, nil
	}

	return doWithResilience(ctx, b.httpClient, b.Backoff, b.circuit, buildRequest)
}

// TokenSource supplies the bearer credential for outgoing requests and the
// refresh path invoked on authentication failure.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// Client wraps Base with session credentials: it attaches the bearer token to
// every request and, on a 401 that has not already been retried, runs a single
// token refresh and reissues the request once with the new token. A request is
// never retried more than once regardless of how many 401s it accumulates.
type Client struct {
	base   *Base
	tokens TokenSource
}

func NewClient(base *Base, tokens TokenSource) *Client {
	return &Client{base: base, tokens: tokens}
}

// Do executes the request with bearer authentication and the 401-refresh-retry
// protocol. When the refresh itself fails the original request is surfaced as
// failed with ErrUnauthorized; the token source has already forced a logout.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	r.BearerToken = c.tokens.AccessToken()

	resp, err := c.base.Do(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	resp.Body.Close()

	if err := c.tokens.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: token refresh failed: %v", ErrUnauthorized, err)
	}

	r.BearerToken = c.tokens.AccessToken()
	return c.base.Do(ctx, r)
}

// DecodeJSON drains and closes the response body, decoding it into out.
func DecodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream: decode response: %w", err)
	}
	return nil
}
