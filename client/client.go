// Package client provides a Go client for a remote steward server over
// its HTTP API.
//
// Usage:
//
//	c := client.New("https://steward.example.com",
//	    client.WithToken("sk_..."),
//	)
//
//	run, err := c.StartDailyAudit(ctx, "2026-08-27", true)
//	if run.Status == workflow.StatusPaused {
//	    run, err = c.Approve(ctx, run.ThreadID, true)
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meridianhq/steward"
	"github.com/meridianhq/steward/workflow"
)

// Run is the client-side view of a settled workflow run. State is left
// raw; decode it into the concrete workflow state when needed.
type Run struct {
	ThreadID string          `json:"thread_id"`
	Status   workflow.Status `json:"status"`
	Error    string          `json:"error,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
}

// Checkpoint is the client-side view of a checkpoint row.
type Checkpoint struct {
	ID           string          `json:"id"`
	ThreadID     string          `json:"thread_id"`
	State        json.RawMessage `json:"state"`
	NodeID       string          `json:"node_id"`
	WorkflowType string          `json:"workflow_type"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Client talks to a steward server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets a bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 6 * time.Minute},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StartDailyAudit kicks off a daily-audit run for the given date and
// blocks until it settles (completed, failed, or paused for approval).
func (c *Client) StartDailyAudit(ctx context.Context, date string, requiresHumanApproval bool) (*Run, error) {
	body := map[string]any{
		"date":                    date,
		"requires_human_approval": requiresHumanApproval,
	}
	return c.postRun(ctx, "/v1/workflows/daily-audit", body)
}

// StartRoutine kicks off a routine-generation run for the given date.
func (c *Client) StartRoutine(ctx context.Context, date string) (*Run, error) {
	return c.postRun(ctx, "/v1/workflows/routine", map[string]any{"date": date})
}

// Approve applies a human decision to a paused thread.
func (c *Client) Approve(ctx context.Context, threadID string, approved bool) (*Run, error) {
	return c.postRun(ctx, "/v1/workflows/approve/"+threadID, map[string]any{"approved": approved})
}

// Status reads a thread's current state.
func (c *Client) Status(ctx context.Context, threadID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/v1/workflows/status/"+threadID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Checkpoints lists a thread's checkpoint history, oldest first.
func (c *Client) Checkpoints(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	var cps []*Checkpoint
	if err := c.do(ctx, http.MethodGet, "/v1/workflows/checkpoints/"+threadID, nil, &cps); err != nil {
		return nil, err
	}
	return cps, nil
}

// Cancel marks a thread failed with a cancellation message.
func (c *Client) Cancel(ctx context.Context, threadID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodDelete, "/v1/workflows/"+threadID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) postRun(ctx context.Context, path string, body any) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, path, body, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// do sends one request and decodes the response. Server-side sentinel
// mappings are reversed so callers can use errors.Is on the client too.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("steward/client: encode request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("steward/client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("steward/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("steward/client: decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", steward.ErrThreadNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", steward.ErrInvalidState, msg)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", steward.ErrStorageUnavailable, msg)
	default:
		return fmt.Errorf("steward/client: server returned %d: %s", resp.StatusCode, msg)
	}
}
