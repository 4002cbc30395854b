package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sessionHeader  = "X-Session-ID"
	basePath       = "/api/v1"
	defaultTimeout = 30 * time.Second
)

// Client is a superbrain API client bound to one session.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	obs        *observer

	mu        sync.Mutex
	sessionID string
}

// New creates a superbrain API client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" {
		return nil, errors.New("superbrain: server address required (use WithBaseURL)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	hc := cfg.httpClient
	if hc == nil {
		timeout := cfg.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		apiKey:     cfg.apiKey,
		httpClient: hc,
		obs:        obs,
		sessionID:  cfg.sessionID,
	}, nil
}

// SessionID returns the session the client is bound to. Empty until the
// server has assigned one on the first call.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// Complete runs one admission-gated completion outside the chat history.
// systemInstruction may be empty.
func (c *Client) Complete(ctx context.Context, systemInstruction, userInstruction string) (result Completion, err error) {
	start := time.Now()
	defer func() { c.obs.observe("complete", start, err) }()

	err = c.do(ctx, http.MethodPost, basePath+"/completions", completionRequest{
		SystemInstruction: systemInstruction,
		UserInstruction:   userInstruction,
	}, &result)
	return result, err
}

// Send runs one chat exchange against the session's stored history.
func (c *Client) Send(ctx context.Context, message string) (reply Reply, err error) {
	start := time.Now()
	defer func() { c.obs.observe("send", start, err) }()

	err = c.do(ctx, http.MethodPost, basePath+"/chat/messages", chatRequest{
		Message: message,
	}, &reply)
	return reply, err
}

// History returns the stored conversation, oldest first.
func (c *Client) History(ctx context.Context) (turns []Turn, err error) {
	start := time.Now()
	defer func() { c.obs.observe("history", start, err) }()

	var resp historyListResponse
	if err = c.do(ctx, http.MethodGet, basePath+"/chat/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ClearHistory drops the conversation, keeping usage and entitlement intact.
func (c *Client) ClearHistory(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("clear_history", start, err) }()

	return c.do(ctx, http.MethodDelete, basePath+"/chat/history", nil, nil)
}

// Unlock upgrades the session to premium when code matches the server's
// unlock code. A wrong code yields Unlocked false, not an error.
func (c *Client) Unlock(ctx context.Context, code string) (result UnlockResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("unlock", start, err) }()

	err = c.do(ctx, http.MethodPost, basePath+"/unlock", unlockRequest{Code: code}, &result)
	return result, err
}

// Usage reports the session's standing against the usage policy.
func (c *Client) Usage(ctx context.Context) (usage Usage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	err = c.do(ctx, http.MethodGet, basePath+"/usage", nil, &usage)
	return usage, err
}

// DestroySession forgets the server-side session. The next call starts a
// fresh one.
func (c *Client) DestroySession(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("destroy_session", start, err) }()

	if err = c.do(ctx, http.MethodDelete, basePath+"/session", nil, nil); err != nil {
		return err
	}
	c.setSessionID("")
	return nil
}

// Health checks the service. A degraded or unhealthy report is returned as
// data, not as an error.
func (c *Client) Health(ctx context.Context) (status HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("GET /health: %w", err)
	}
	defer resp.Body.Close()

	// The server answers 503 for an unhealthy report; the body is the same.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, c.decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return HealthStatus{}, fmt.Errorf("decode response: %w", err)
	}
	return status, nil
}

// do sends one API request, propagating the session ID both ways.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if id := c.SessionID(); id != "" {
		req.Header.Set(sessionHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if id := resp.Header.Get(sessionHeader); id != "" {
		c.setSessionID(id)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return c.decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var wire struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Limit   int    `json:"limit"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&wire); err == nil {
		apiErr.Code = wire.Code
		apiErr.Message = wire.Message
		apiErr.Limit = wire.Limit
	}
	return apiErr
}
