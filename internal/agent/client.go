// Package agent invokes a hosted, browser-capable agent runtime.
package agent

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
)

// SessionHeader carries the session identifier on every invocation.
const SessionHeader = "X-Amzn-Bedrock-AgentCore-Runtime-Session-Id"

// MinSessionIDLength is the shortest session id the runtime accepts.
const MinSessionIDLength = 33

var (
	ErrSessionIDTooShort = fmt.Errorf("agent: session id must be at least %d characters", MinSessionIDLength)
	ErrEmptyResponse     = errors.New("agent: empty response")
)

// RuntimeError is an error reported by the agent itself in the response
// envelope.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return "agent: " + e.Message
}

// HTTPError is a non-2xx response from the runtime endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("agent: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to one agent runtime.
type Client struct {
	endpoint   string
	runtime    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets a bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides the 15 minute per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a Client for runtime at endpoint.
func New(endpoint, runtime string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		runtime:    runtime,
		httpClient: &http.Client{Timeout: 15 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Response *string `json:"response"`
	Error    string  `json:"error"`
}

// Invoke sends payload as JSON within sessionID and returns the agent's text
// result.
func (c *Client) Invoke(ctx context.Context, sessionID string, payload any) (string, error) {
	if len(sessionID) < MinSessionIDLength {
		return "", ErrSessionIDTooShort
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("agent: marshal payload: %w", err)
	}

	u := fmt.Sprintf("%s/runtimes/%s/invocations", c.endpoint, url.PathEscape(c.runtime))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(SessionHeader, sessionID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: invoke: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("agent: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return decode(respBody)
}

func decode(body []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Some runtimes return a bare JSON string.
		var s string
		if json.Unmarshal(body, &s) == nil {
			return nonEmpty(s)
		}
		return "", fmt.Errorf("agent: decode response: %w", err)
	}
	if env.Error != "" {
		return "", &RuntimeError{Message: env.Error}
	}
	if env.Response == nil {
		return "", ErrEmptyResponse
	}
	return nonEmpty(*env.Response)
}

func nonEmpty(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}
