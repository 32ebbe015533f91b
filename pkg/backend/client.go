// Package backend is the typed client for the remote form API.
//
// Everything authoritative lives behind this API: authentication, draft
// persistence, submission rules and media storage. This package only
// forwards requests, attaches the bearer credential and maps status codes to
// typed errors; it implements no business rules of its own.
package backend

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

	"github.com/stepform/stepform/pkg/logging"
)

// Common backend errors.
var (
	ErrUnauthorized     = errors.New("backend: unauthorized")
	ErrLocked           = errors.New("backend: form is locked")
	ErrAlreadySubmitted = errors.New("backend: form already submitted")
)

// ValidationError carries the backend's per-field rejection map from a 400
// submit response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("backend: validation failed for %d fields", len(e.Fields))
}

// StatusError reports an unexpected backend status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d: %s", e.Status, e.Body)
}

// Session is the opaque credential carrier for one authenticated caller. The
// token contents are never inspected here; it is attached verbatim as a
// bearer credential. Constructing a Session is the caller's job — there is no
// ambient credential lookup.
type Session struct {
	Token string
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Client talks to the remote form API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a request against the backend with the session credential
// attached. A JSON body is marshaled when body is non-nil.
func (c *Client) do(ctx context.Context, sess Session, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req, sess)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			logging.String("method", method),
			logging.String("path", path),
			logging.Err(err))
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	c.logger.Debug("backend request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", res.StatusCode),
		logging.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (c *Client) authorize(req *http.Request, sess Session) {
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}
}

// decodeJSON reads and closes the body into v.
func decodeJSON(res *http.Response, v any) error {
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

// drainText reads and closes the body as best-effort text for error messages.
func drainText(res *http.Response) string {
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
