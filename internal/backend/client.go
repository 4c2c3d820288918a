// Package backend talks to the hosted PostgREST-style data service that owns
// stores, menus, profiles and orders.
package backend

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/resilience"
)

// ErrNotConfigured is returned when the client has no base URL.
var ErrNotConfigured = errors.New("backend: client not configured")

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("backend: %d: %s", e.Status, msg)
}

// NotFound reports whether err is a 404 from the backend.
func NotFound(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Status == http.StatusNotFound
}

// Client performs authenticated JSON calls against the backend REST API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

// NewHTTPClient returns an instrumented http.Client for backend traffic.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Do sends body as JSON and decodes a successful response into out. The
// caller's access token from ctx is forwarded when present, otherwise the
// API key is used as bearer.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil || strings.TrimSpace(c.BaseURL) == "" {
		return ErrNotConfigured
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	bearer := c.APIKey
	if token, ok := common.AccessToken(ctx); ok {
		bearer = token
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if method == http.MethodPatch || method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}

	httpClient := c.HTTP
	if httpClient.Client == nil {
		httpClient.Client = NewHTTPClient(0)
	}
	resp, err := httpClient.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("backend: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

// Get is a convenience wrapper for GET requests.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Eq builds a PostgREST equality filter value.
func Eq(value string) string {
	return "eq." + value
}
