// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout bounds chat CRUD requests.
	DefaultTimeout = 30 * time.Second

	// DefaultGenerationTimeout bounds requests that run a model turn
	// server-side before answering.
	DefaultGenerationTimeout = 180 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// Error variables for common backend errors.
var (
	// ErrUnauthorized indicates the session token was missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the chat or message does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents an error answer from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d)", e.Status)
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	// Token returns the current session token, or "".
	Token() string
}

// envelope is the uniform response wrapper used by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config holds API client configuration.
type Config struct {
	// BaseURL is the backend base URL.
	BaseURL string

	// Timeout bounds chat CRUD requests.
	// Default: 30 seconds
	Timeout time.Duration

	// GenerationTimeout bounds generation requests.
	// Default: 180 seconds
	GenerationTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://localhost:8080",
		Timeout:           DefaultTimeout,
		GenerationTimeout: DefaultGenerationTimeout,
	}
}

// fill populates zero values with defaults.
func (c *Config) fill() {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.GenerationTimeout == 0 {
		c.GenerationTimeout = d.GenerationTimeout
	}
}

// =============================================================================
// CLIENT TYPE
// =============================================================================

// Client is an HTTP client for the chatsync backend.
type Client struct {
	baseURL string
	auth    TokenSource

	// httpClient serves chat CRUD; generationClient serves the slow
	// model-turn endpoints. Guarded by mu so SetTimeouts can swap them
	// while requests are running.
	mu               sync.Mutex
	httpClient       *http.Client
	generationClient *http.Client
}

// NewClient creates a backend API client. The token source may be nil
// for unauthenticated endpoints.
func NewClient(config *Config, auth TokenSource) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	config.fill()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		generationClient: &http.Client{
			Transport: transport,
			Timeout:   config.GenerationTimeout,
		},
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// crud returns the client used for chat CRUD requests.
func (c *Client) crud() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpClient
}

// generation returns the client used for model-turn requests.
func (c *Client) generation() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationClient
}

// SetTimeouts re-applies the request timeouts, typically after a
// configuration reload. In-flight requests keep the timeout they started
// with; the underlying transport and its connection pool are reused.
// Non-positive values leave the corresponding timeout unchanged.
func (c *Client) SetTimeouts(crud, generation time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if crud > 0 && crud != c.httpClient.Timeout {
		c.httpClient = &http.Client{
			Transport: c.httpClient.Transport,
			Timeout:   crud,
		}
	}
	if generation > 0 && generation != c.generationClient.Timeout {
		c.generationClient = &http.Client{
			Transport: c.generationClient.Transport,
			Timeout:   generation,
		}
	}
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do performs one request, decodes the envelope and returns the data
// payload. A nil body sends no request body; a non-nil out receives the
// decoded data.
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("api: %s %s -> %d (%v)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	raw, err := readResponse(resp)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return c.handleErrorStatus(resp.StatusCode, string(raw))
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !env.Success {
		return c.handleErrorStatus(resp.StatusCode, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}

// setHeaders sets the required headers for backend requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatsync/0.1.0")
	if c.auth != nil {
		if token := c.auth.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorStatus converts HTTP error answers to Go errors.
func (c *Client) handleErrorStatus(statusCode int, message string) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, message)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	case http.StatusTooManyRequests:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrRateLimited, message)
		}
		return ErrRateLimited
	default:
		return &APIError{Status: statusCode, Message: message}
	}
}
