// Package api is the typed HTTP client for the dashboard backend. Every
// request except login and token refresh carries a bearer access token
// obtained from the configured TokenSource.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwhitton/agentdash/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies a valid access token for authenticated requests.
// Implementations are expected to refresh expired tokens transparently.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds the settings needed to construct a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  logger.Logger

	// Tokens is optional at construction time so the client can be used
	// for login and refresh before a session exists.
	Tokens TokenSource
}

// Client talks to the dashboard backend REST API.
type Client struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
	tokens  TokenSource
}

// NewClient creates a Client for the backend at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     cfg.Logger,
		tokens:  cfg.Tokens,
	}, nil
}

// SetTokenSource attaches the token source used for authenticated requests.
// Called once the session manager exists; see the composition root.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// errorBody is the backend's standard error envelope.
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorBody) text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

// doJSON performs a request against path, encoding body (if non-nil) as
// JSON and decoding the response into out (if non-nil). When skipAuth is
// false a bearer token is attached from the token source.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, skipAuth bool) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !skipAuth {
		if c.tokens == nil {
			return fmt.Errorf("no token source configured for authenticated request")
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("API request",
		logger.StringField("method", method),
		logger.StringField("path", path))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var envelope errorBody
		_ = json.Unmarshal(data, &envelope)
		message := envelope.text()
		if message == "" {
			message = strings.TrimSpace(string(data))
		}
		c.log.Debug("API request failed",
			logger.StringField("method", method),
			logger.StringField("path", path),
			logger.IntField("status", resp.StatusCode))
		return statusError(resp.StatusCode, message)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out, false)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out, false)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out, false)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, false)
}
