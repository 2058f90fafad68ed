// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent implements the HTTP client for the bond agent service:
// opening turn streams, uploading attachments, and fetching thread
// history. The package only moves payload text; the wire format inside
// the stream is internal/wire's concern.
package agent

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/bondchat-tui/internal/diag"
)

// Configuration constants for the agent service API.
const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// requestsPerSecond and requestBurst bound outbound request rate.
	requestsPerSecond = 5
	requestBurst      = 10
)

var (
	// sharedHTTPClient serves bounded requests (upload, history).
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient serves turn streams: no client timeout,
	// lifetime is controlled through the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common agent service errors.
var (
	// ErrNotConfigured indicates the base URL or API key is not set.
	ErrNotConfigured = errors.New("agent service not configured")

	// ErrAuthFailed indicates an invalid or expired API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrThreadNotFound indicates the requested thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")
)

// APIError is a non-2xx response from the agent service.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent service error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("agent service error (HTTP %d)", e.Status)
}

// Is allows APIError to match the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrThreadNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// RateLimitError carries the server's Retry-After hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
	}
	return "rate limited"
}

// Is allows RateLimitError to be compared with ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// =============================================================================
// CLIENT
// =============================================================================

// Config holds agent service connection settings.
type Config struct {
	// BaseURL is the service root, e.g. https://agents.example.com/api/v1
	BaseURL string

	// APIKey authenticates requests. Token acquisition is external;
	// the client only attaches what it is given.
	APIKey string

	// AgentID is the default agent for turns.
	AgentID string
}

// Client talks to the agent service. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	agentID string
	limiter *rate.Limiter
	sink    diag.Sink
}

// NewClient creates an agent service client.
func NewClient(cfg Config, sink diag.Sink) *Client {
	if sink == nil {
		sink = diag.Nop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		agentID: cfg.AgentID,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		sink:    sink,
	}
}

// IsConfigured reports whether the client can make requests.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// AgentID returns the default agent id.
func (c *Client) AgentID() string {
	return c.agentID
}

// setHeaders attaches authentication and content headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "bondchat-tui")
}

// handleErrorResponse maps a non-2xx response to a typed error.
func (c *Client) handleErrorResponse(status int, body []byte) error {
	if status == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &APIError{Status: status, Message: msg}
}

// handleRateLimit parses Retry-After from a 429 response.
func handleRateLimit(resp *http.Response) error {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return ErrRateLimited
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Duration(seconds) * time.Second}
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Until(t)}
	}
	return ErrRateLimited
}
