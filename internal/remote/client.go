package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"loopctl/internal/transport"
)

// Requester sends one request and returns the raw JSON answer.
// *transport.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body transport.Body) (json.RawMessage, error)
}

// Client exposes one method per service endpoint.
type Client struct {
	requester Requester
}

// NewClient wraps a requester.
func NewClient(requester Requester) *Client {
	return &Client{requester: requester}
}

type messageEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (RunStatus, error) {
	var status RunStatus
	err := c.call(ctx, "status", http.MethodGet, "/status", nil, &status)
	return status, err
}

// Config fetches GET /config. The returned value is exactly what the service
// sent; callers apply WithDefaults.
func (c *Client) Config(ctx context.Context) (StreamConfig, error) {
	var cfg StreamConfig
	err := c.call(ctx, "config", http.MethodGet, "/config", nil, &cfg)
	return cfg, err
}

// Videos fetches GET /videos.
func (c *Client) Videos(ctx context.Context) ([]VideoFile, error) {
	var videos []VideoFile
	if err := c.call(ctx, "videos", http.MethodGet, "/videos", nil, &videos); err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []VideoFile{}
	}
	return videos, nil
}

// Start issues POST /start and returns the service message.
func (c *Client) Start(ctx context.Context) (string, error) {
	return c.message(ctx, "start", http.MethodPost, "/start", nil)
}

// Stop issues POST /stop and returns the service message.
func (c *Client) Stop(ctx context.Context) (string, error) {
	return c.message(ctx, "stop", http.MethodPost, "/stop", nil)
}

// SaveConfig issues POST /config with the full configuration.
func (c *Client) SaveConfig(ctx context.Context, cfg StreamConfig) (string, error) {
	return c.message(ctx, "save config", http.MethodPost, "/config", transport.JSON(cfg))
}

// Upload streams content to POST /upload as the multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (UploadResult, error) {
	var result UploadResult
	err := c.call(ctx, "upload", http.MethodPost, "/upload", transport.Multipart("file", filename, content), &result)
	return result, err
}

// DeleteVideo issues DELETE /videos/{filename}. Any 2xx answer is success.
func (c *Client) DeleteVideo(ctx context.Context, filename string) error {
	if err := ValidateVideoName(filename); err != nil {
		return err
	}
	return c.call(ctx, "delete video", http.MethodDelete, "/videos/"+url.PathEscape(filename), nil, nil)
}

func (c *Client) message(ctx context.Context, op, method, path string, body transport.Body) (string, error) {
	var envelope messageEnvelope
	if err := c.call(ctx, op, method, path, body, &envelope); err != nil {
		return "", err
	}
	return envelope.Message, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body transport.Body, out any) error {
	raw, err := c.requester.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if msg := domainFailure(raw); msg != "" {
		return &DomainError{Op: op, Message: msg}
	}
	if out == nil || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &transport.Error{
			Kind:   transport.KindDecode,
			Method: method,
			Path:   path,
			Err:    fmt.Errorf("decode %s: %w", op, err),
		}
	}
	return nil
}

// domainFailure returns the error text of a {"error": "..."} envelope.
func domainFailure(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var envelope messageEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Error)
}
