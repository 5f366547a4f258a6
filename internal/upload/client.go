package upload

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
)

// ErrRejected marks a session the server refused as invalid. Retrying it
// will not help.
var ErrRejected = errors.New("session rejected by server")

// Client sends session backups to the ForgeMetrics server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the ForgeMetrics server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendSession POSTs a session record. Completed sessions go to the sessions
// endpoint (metrics and records are computed server side); anything else is
// saved as a draft. Retries up to 3 times with exponential backoff, except
// when the server rejects the record.
func (c *Client) SendSession(ctx context.Context, raw []byte, completed bool) (string, error) {
	path := "/api/v1/sessions/drafts"
	if completed {
		path = "/api/v1/sessions"
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}

		id, err := c.post(ctx, path, raw)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, ErrRejected) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) post(ctx context.Context, path string, raw []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// Drafts reply with the row (id), completed saves with session_id.
		var saved struct {
			ID        string `json:"id"`
			SessionID string `json:"session_id"`
		}
		_ = json.Unmarshal(body, &saved)
		if saved.SessionID != "" {
			return saved.SessionID, nil
		}
		return saved.ID, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w (status %d): %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(body))
	}
	return "", fmt.Errorf("save failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
}
