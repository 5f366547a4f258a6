package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the ForgeMetrics REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, userID int, params url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-User-ID", strconv.Itoa(userID))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode == http.StatusUnprocessableEntity &&
		bytes.Contains(respBody, []byte(progression.ErrRepsProgression.Error())):
		return nil, fmt.Errorf("httpclient: %s: %w", path, progression.ErrRepsProgression)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("httpclient: %s: %w", path, progression.ErrNoLoad)
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return respBody, nil
}

func (c *HTTPClient) GetMetrics(ctx context.Context, userID int, id uuid.UUID) (*metrics.SessionMetrics, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+id.String()+"/metrics", userID, nil, nil)
	if err != nil {
		return nil, err
	}
	var m metrics.SessionMetrics
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("httpclient: decode metrics: %w", err)
	}
	return &m, nil
}

func (c *HTTPClient) QuerySessions(ctx context.Context, userID int, f storage.SessionFilter) ([]models.SessionRow, error) {
	params := url.Values{}
	if !f.Start.IsZero() {
		params.Set("start", f.Start.Format(time.RFC3339))
	}
	if !f.End.IsZero() {
		params.Set("end", f.End.Format(time.RFC3339))
	}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if f.Discipline != "" {
		params.Set("discipline", f.Discipline)
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	body, err := c.do(ctx, http.MethodGet, "/api/v1/sessions", userID, params, nil)
	if err != nil {
		return nil, err
	}
	var rows []models.SessionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) GetProgression(ctx context.Context, userID int, period progression.Period) (*progression.Dashboard, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/progression", userID, url.Values{"period": {string(period)}}, nil)
	if err != nil {
		return nil, err
	}
	var d progression.Dashboard
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("httpclient: decode progression: %w", err)
	}
	return &d, nil
}

func (c *HTTPClient) PersonalRecords(ctx context.Context, userID int, discipline string, limit int) ([]models.PersonalRecordRow, error) {
	params := url.Values{}
	if discipline != "" {
		params.Set("discipline", discipline)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.do(ctx, http.MethodGet, "/api/v1/records", userID, params, nil)
	if err != nil {
		return nil, err
	}
	var records []models.PersonalRecordRow
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("httpclient: decode records: %w", err)
	}
	return records, nil
}

func (c *HTTPClient) Adjust(ctx context.Context, userID int, ex progression.Exercise, t progression.AdjustmentType, adjContext json.RawMessage) (progression.Exercise, progression.Adjustment, error) {
	reqBody := map[string]any{"exercise": ex, "adjustment": t}
	if len(adjContext) > 0 {
		reqBody["context"] = adjContext
	}
	body, err := c.do(ctx, http.MethodPost, "/api/v1/exercises/adjust", userID, nil, reqBody)
	if err != nil {
		return ex, progression.Adjustment{}, err
	}
	var resp struct {
		Exercise   progression.Exercise   `json:"exercise"`
		Adjustment progression.Adjustment `json:"adjustment"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ex, progression.Adjustment{}, fmt.Errorf("httpclient: decode adjustment: %w", err)
	}
	return resp.Exercise, resp.Adjustment, nil
}

func (c *HTTPClient) Stats(ctx context.Context, userID int) (*storage.SessionStats, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/stats", userID, nil, nil)
	if err != nil {
		return nil, err
	}
	var st storage.SessionStats
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("httpclient: decode stats: %w", err)
	}
	return &st, nil
}
