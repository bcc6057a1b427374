// Package session is a thin HTTP client for a remote browser session
// provider. The pipeline only needs two things from a session: the CDP
// connect endpoint to attach an automation client, and the session id to
// report a replay reference.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
)

// Session is one provisioned remote browser.
type Session struct {
	ID         string `json:"id"`
	ConnectURL string `json:"connectUrl"`
}

// Client talks to the session provider API.
type Client struct {
	httpClient *http.Client
	cfg        config.SessionConfig
}

// NewClient creates a session provider client. Pass nil to use a default
// http.Client with a 30s timeout.
func NewClient(httpClient *http.Client, cfg config.SessionConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

// createRequest is the session creation request body.
type createRequest struct {
	ProjectID string `json:"projectId"`
}

// Create provisions a new remote browser session. Failure here is fatal to
// the whole run: without a browser nothing can be processed.
func (c *Client) Create(ctx context.Context) (*Session, error) {
	body, err := json.Marshal(createRequest{ProjectID: c.cfg.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BB-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeSession, "session request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeSession, "failed to read session response", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, models.NewResearchError(
			models.ErrCodeSession,
			fmt.Sprintf("session API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
			nil,
		)
	}

	var s Session
	if err := json.Unmarshal(respBody, &s); err != nil {
		return nil, models.NewResearchError(models.ErrCodeSession, "failed to parse session response", err)
	}
	if s.ID == "" || s.ConnectURL == "" {
		return nil, models.NewResearchError(models.ErrCodeSession, "session response missing id or connect endpoint", nil)
	}

	slog.Info("session created", "sessionID", s.ID)
	return &s, nil
}

// releaseRequest asks the provider to wind the session down.
type releaseRequest struct {
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

// Release asks the provider to end the session so its resources free up and
// the replay artifact finalizes. Best-effort: a failed release is logged,
// never surfaced, because the report is already complete by then.
func (c *Client) Release(ctx context.Context, id string) {
	body, err := json.Marshal(releaseRequest{ProjectID: c.cfg.ProjectID, Status: "REQUEST_RELEASE"})
	if err != nil {
		return
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/sessions/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BB-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("session release failed", "sessionID", id, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		slog.Warn("session release rejected", "sessionID", id, "status", resp.StatusCode)
	}
}

// ReplayURL is where a human can watch the session's replay.
func (c *Client) ReplayURL(id string) string {
	return strings.TrimRight(c.cfg.ReplayBaseURL, "/") + "/" + id
}
