package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds each verification call so a hung backend cannot
// leave a bootstrap in the loading state indefinitely
const DefaultTimeout = 10 * time.Second

// revokedCode is the structured error code the backend emits on forced
// session termination
const revokedCode = "session_revoked"

// revokedMarker is the legacy substring contract kept as a fallback for
// backends that predate the structured code
const revokedMarker = "revoked"

// Client verifies tokens via GET /auth/me on the platform backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the per-call verification timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a verifier against the given backend base URL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// meResponse is the body of GET /auth/me
type meResponse struct {
	Admin *Identity `json:"admin"`
	Error string    `json:"error,omitempty"`
	Code  string    `json:"code,omitempty"`
}

// Verify calls GET /auth/me with the bearer token.
//
// A (nil, nil) return means the token is valid but the account is not an
// authorized admin. Failures are classified as ErrUnauthorized, ErrRevoked,
// or ErrUnavailable.
func (c *Client) Verify(ctx context.Context, token string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var payload meResponse
	// A malformed body on a 2xx is a backend fault, not a bad token
	if jsonErr := json.Unmarshal(body, &payload); jsonErr != nil && resp.StatusCode < 400 {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, jsonErr)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: backend returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, classify(payload)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: backend returned %d", ErrUnauthorized, resp.StatusCode)
	}

	// 2xx: admin may still be null for a valid non-admin account
	return payload.Admin, nil
}

// classify maps a rejection body to ErrRevoked or ErrUnauthorized. The
// structured code field wins; the message substring match is the legacy
// contract kept for older backends.
func classify(payload meResponse) error {
	if payload.Code == revokedCode {
		return fmt.Errorf("%w: %s", ErrRevoked, payload.Error)
	}
	if strings.Contains(strings.ToLower(payload.Error), revokedMarker) {
		return fmt.Errorf("%w: %s", ErrRevoked, payload.Error)
	}
	if payload.Error != "" {
		return fmt.Errorf("%w: %s", ErrUnauthorized, payload.Error)
	}
	return ErrUnauthorized
}
