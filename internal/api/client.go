package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when an endpoint that must return a payload returns nothing.
var ErrEmptyResponse = errors.New("empty response from backend")

// Error is a failure reported by the backend, either through an HTTP status
// or through an "error"/"mensaje" field embedded in a 200 body.
type Error struct {
	Status   int
	Endpoint string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, e.Message, e.Status)
}

// Client is the single HTTP client for the portal's REST backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit caps the request rate shared by all clients derived from this one.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient swaps the underlying transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a client that authenticates as the bearer of token. The
// transport and rate limiter are shared with the parent.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// do issues one request and decodes the response into out (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	LogRequest(method, path, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		LogError(method+" "+path, err)
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	LogResponse(method, path, resp.StatusCode, time.Since(start))

	if apiErr := embeddedError(raw); apiErr != "" || resp.StatusCode >= http.StatusBadRequest {
		if apiErr == "" {
			apiErr = http.StatusText(resp.StatusCode)
		}
		err := &Error{Status: resp.StatusCode, Endpoint: method + " " + path, Message: apiErr}
		LogError(method+" "+path, err)
		return err
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(raw, out); err != nil {
		LogError("decode "+path, err)
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// envelope is the shape of backend error payloads. "error" is a string on some
// endpoints and a boolean next to "mensaje" on others.
type envelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"mensaje"`
}

// embeddedError returns the backend's error message if raw is an error
// envelope, or "" otherwise.
func embeddedError(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || len(env.Error) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(env.Error, &asString); err == nil {
		if asString == "" {
			return ""
		}
		if env.Message != "" {
			return asString + ": " + env.Message
		}
		return asString
	}

	var asBool bool
	if err := json.Unmarshal(env.Error, &asBool); err == nil {
		if !asBool {
			return ""
		}
		if env.Message != "" {
			return env.Message
		}
		return "error"
	}

	// Objects or other shapes still signal failure.
	if string(env.Error) == "null" {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return string(env.Error)
}

// IsStatus reports whether err is a backend error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
