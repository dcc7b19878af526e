package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"loopctl/internal/logging"
	"loopctl/internal/services"
)

// RequestIDHeader carries the per-request correlation identifier.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response is read for its reason.
const maxErrorBody = 64 << 10

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends requests to the streaming service.
type Client struct {
	base       string
	origin     string
	httpClient HTTPDoer
	logger     *slog.Logger
	newID      func() string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithOrigin sets the scheme and host joined onto relative paths when the
// resolved base is empty.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestIDs overrides request identifier generation (useful for tests).
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New constructs a client that appends request paths to base.
func New(base string, opts ...Option) *Client {
	client := &Client{
		base:       strings.TrimRight(strings.TrimSpace(base), "/"),
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "transport")
	return client
}

// Base returns the resolved base URL, which may be empty.
func (c *Client) Base() string {
	return c.base
}

// URL returns the absolute URL a request path is sent to.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if c.base != "" {
		return c.base + path
	}
	return c.origin + path
}

// Do sends one request and returns the decoded-as-raw JSON body.
// Every failure is a *Error.
func (c *Client) Do(ctx context.Context, method, path string, body Body) (json.RawMessage, error) {
	fail := func(kind Kind, err error) *Error {
		return &Error{Kind: kind, Method: method, Path: path, Err: err}
	}

	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		var err error
		reader, contentType, err = body.open()
		if err != nil {
			return nil, fail(KindRequest, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		closeReader(reader)
		return nil, fail(KindRequest, err)
	}
	if req.URL.Scheme == "" || req.URL.Host == "" {
		closeReader(reader)
		return nil, fail(KindRequest, fmt.Errorf("no service origin configured for relative path %q", path))
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = c.newID()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	logger := logging.WithContext(services.WithRequestID(ctx, requestID), c.logger)
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		closeReader(reader)
		logger.Debug("request failed",
			logging.String("method", method),
			logging.String("path", path),
			logging.Error(err),
		)
		return nil, fail(KindNetwork, err)
	}
	defer resp.Body.Close()

	logger.Debug("request completed",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Kind:       KindStatus,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    failureReason(payload),
			Err:        fmt.Errorf("http %d", resp.StatusCode),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(KindNetwork, fmt.Errorf("read response: %w", err))
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(payload) {
		return nil, fail(KindDecode, errors.New("body is not JSON"))
	}
	return json.RawMessage(payload), nil
}

// failureReason pulls a human-readable reason out of an error body.
func failureReason(payload []byte) string {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return ""
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		if len(payload) > 200 || bytes.HasPrefix(payload, []byte("<")) {
			return ""
		}
		return string(payload)
	}
	for _, key := range []string{"detail", "error", "message"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
			continue
		}
		return string(raw)
	}
	return ""
}

func closeReader(r io.Reader) {
	if closer, ok := r.(io.Closer); ok {
		_ = closer.Close()
	}
}
