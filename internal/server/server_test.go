package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/session"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

type fakeSessions struct {
	lastUserID int
	lastFilter storage.SessionFilter
	metrics    map[uuid.UUID]metrics.SessionMetrics
	adjusted   []progression.AdjustmentType
}

func (f *fakeSessions) SaveCompleted(_ context.Context, userID int, raw json.RawMessage) (*session.SaveResult, error) {
	f.lastUserID = userID
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		return nil, session.ErrInvalidSession
	}
	return &session.SaveResult{SessionID: uuid.New(), Metrics: metrics.Extract(raw), NewRecords: []models.PersonalRecordRow{}}, nil
}

func (f *fakeSessions) SaveDraft(_ context.Context, userID int, raw json.RawMessage) (*models.SessionRow, error) {
	f.lastUserID = userID
	return &models.SessionRow{ID: uuid.New(), UserID: userID, Status: models.StatusDraft, RawJSON: raw}, nil
}

func (f *fakeSessions) UpdateStatus(_ context.Context, userID int, id uuid.UUID, status string) (*models.SessionRow, *session.SaveResult, error) {
	if !models.ValidStatus(status) {
		return nil, nil, session.ErrInvalidStatus
	}
	return &models.SessionRow{ID: id, UserID: userID, Status: status}, nil, nil
}

func (f *fakeSessions) GetSession(_ context.Context, _ int, _ uuid.UUID) (*models.SessionRow, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeSessions) GetMetrics(_ context.Context, _ int, id uuid.UUID) (*metrics.SessionMetrics, error) {
	m, ok := f.metrics[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &m, nil
}

func (f *fakeSessions) QuerySessions(_ context.Context, userID int, filter storage.SessionFilter) ([]models.SessionRow, error) {
	f.lastUserID = userID
	f.lastFilter = filter
	return nil, nil
}

func (f *fakeSessions) PersonalRecords(_ context.Context, _ int, _ string, _ int) ([]models.PersonalRecordRow, error) {
	return nil, nil
}

func (f *fakeSessions) Adjust(_ context.Context, _ int, ex progression.Exercise, t progression.AdjustmentType, _ json.RawMessage) (progression.Exercise, progression.Adjustment, error) {
	f.adjusted = append(f.adjusted, t)
	adj, err := progression.ApplyAdjustment(&ex, t)
	return ex, adj, err
}

func (f *fakeSessions) AverageAdjustment(_ context.Context, _ int, _ string, _ progression.AdjustmentType) (float64, error) {
	return 2.5, nil
}

func (f *fakeSessions) AdjustmentHistory(_ context.Context, _ int, exercise string, _ int) ([]models.AdjustmentRow, error) {
	if exercise != "Squat" {
		return nil, nil
	}
	return []models.AdjustmentRow{{ExerciseName: "Squat", AdjustmentType: "load_increase", Amount: 5}}, nil
}

func (f *fakeSessions) Stats(_ context.Context, userID int) (*storage.SessionStats, error) {
	f.lastUserID = userID
	return &storage.SessionStats{TotalSessions: 4, CompletedSessions: 3, DraftSessions: 1, ByDiscipline: []storage.DisciplineStat{}}, nil
}

type fakeDashboards struct{}

func (fakeDashboards) Get(_ context.Context, _ int, period progression.Period) (*progression.Dashboard, error) {
	return &progression.Dashboard{Period: period, UserLevel: progression.ComputeLevel(0)}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeSessions) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := &fakeSessions{metrics: make(map[uuid.UUID]metrics.SessionMetrics)}
	return New(sessions, fakeDashboards{}, progression.NewConverter(log), testAPIKey, log), sessions
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// TestHealthzNoAuth verifies the health check needs no API key.
func TestHealthzNoAuth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestAPIRequiresKey verifies that API routes reject unauthenticated calls.
func TestAPIRequiresKey(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestSaveSession verifies the created response and user attribution.
func TestSaveSession(t *testing.T) {
	s, sessions := newTestServer(t)
	body := `{"discipline":"strength","prescription":{"exercises":[{"sets":3,"reps":10,"load":100}]}}`

	rec := do(t, s, http.MethodPost, "/api/v1/sessions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var res session.SaveResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Metrics.VolumeKg == nil || *res.Metrics.VolumeKg != 3000 {
		t.Errorf("volume = %v, want 3000", res.Metrics.VolumeKg)
	}
	if sessions.lastUserID != 1 {
		t.Errorf("userID = %d, want 1", sessions.lastUserID)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/sessions", `[1,2]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("array body status = %d, want 400", rec.Code)
	}
}

// TestSessionRoutesErrors verifies id validation and not-found mapping.
func TestSessionRoutesErrors(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/not-a-uuid/metrics", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/"+uuid.NewString()+"/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing metrics status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", rec.Code)
	}
	rec := do(t, s, http.MethodPatch, "/api/v1/sessions/"+uuid.NewString()+"/status", `{"status":"paused"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", rec.Code)
	}
	rec = do(t, s, http.MethodPatch, "/api/v1/sessions/"+uuid.NewString()+"/status", `{"status":"abandoned"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("abandon status = %d, want 200", rec.Code)
	}
}

// TestQuerySessionsFilter verifies query parameters reach the filter.
func TestQuerySessionsFilter(t *testing.T) {
	s, sessions := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/sessions?start=2026-01-01&end=2026-01-31&discipline=running&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rec.Body)
	}
	f := sessions.lastFilter
	if f.Discipline != "running" || f.Limit != 5 {
		t.Errorf("filter = %+v", f)
	}
	if got := f.End.Format("2006-01-02"); got != "2026-02-01" {
		t.Errorf("end = %s, want end of day 2026-01-31", got)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/sessions?start=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad start status = %d, want 400", rec.Code)
	}
}

// TestConvertEndpoint verifies conversion with confidence.
func TestConvertEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/exercises/convert", `{"from":"Squat","to":"Goblet Squat","load":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{"value": 50.0, "ratio": 0.5, "confidence": "matched"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("conversion mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/exercises/convert", `{"from":"Squat","to":"Goblet Squat"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing load status = %d, want 400", rec.Code)
	}
}

// TestAdjustEndpoint verifies adjustment responses and error codes.
func TestAdjustEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/exercises/adjust",
		`{"exercise":{"name":"Squat","sets":4,"reps":8,"load":[60,80]},"adjustment":"load_increase"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Exercise   progression.Exercise   `json:"exercise"`
		Adjustment progression.Adjustment `json:"adjustment"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Exercise.Load.Equal(progression.PerSet(70, 90)) {
		t.Errorf("load = %s, want [70 90]", resp.Exercise.Load)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/exercises/adjust",
		`{"exercise":{"name":"Pompes","sets":3,"reps":15},"adjustment":"load_increase"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("no load status = %d, want 422", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/exercises/adjust",
		`{"exercise":{"name":"Bench Press","sets":3,"repsProgression":[8,6,4],"load":[80,85,90]},"adjustment":"reps_increase"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("reps progression status = %d, want 422", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/exercises/adjust",
		`{"exercise":{"name":"Squat","sets":4},"adjustment":"tempo_increase"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", rec.Code)
	}
}

// TestRampEndpoint verifies the ramp response.
func TestRampEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/exercises/ramp", `{"base_load":100,"sets":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Loads []float64 `json:"loads"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Loads) != 5 || resp.Loads[4] != 100 {
		t.Errorf("loads = %v", resp.Loads)
	}
}

// TestProgressionEndpoint verifies period validation.
func TestProgressionEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/api/v1/progression?period=6months", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/progression?period=2weeks", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad period status = %d, want 400", rec.Code)
	}
}

// TestAdjustmentHistoryEndpoint verifies the history listing and its
// required exercise parameter.
func TestAdjustmentHistoryEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/exercises/adjustments?exercise=Squat&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var rows []models.AdjustmentRow
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != 5 {
		t.Errorf("rows = %+v", rows)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/exercises/adjustments?exercise=Bench", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty history body = %q, want []", rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/exercises/adjustments", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing exercise status = %d, want 400", rec.Code)
	}
}

// TestStatsEndpoint verifies the stats are returned for the calling user.
func TestStatsEndpoint(t *testing.T) {
	s, sessions := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st storage.SessionStats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TotalSessions != 4 || st.CompletedSessions != 3 {
		t.Errorf("stats = %+v", st)
	}
	if sessions.lastUserID != 1 {
		t.Errorf("user = %d, want 1", sessions.lastUserID)
	}
}

// TestAverageAdjustmentEndpoint verifies parameter validation.
func TestAverageAdjustmentEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/api/v1/exercises/adjustments/average?exercise=Squat&type=load_increase", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/exercises/adjustments/average?type=load_increase", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing exercise status = %d, want 400", rec.Code)
	}
}

// TestExtractEndpoint verifies pure extraction over HTTP.
func TestExtractEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/metrics/extract",
		`{"discipline":"running","prescription":{"mainWorkout":[{"duration":30,"targetZone":"Z2"},{"duration":10,"targetZone":"Z4"}]}}`)
	var m metrics.SessionMetrics
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ZonesDistribution["Z2"] != 75 || m.ZonesDistribution["Z4"] != 25 {
		t.Errorf("zones = %v", m.ZonesDistribution)
	}
}

// TestMountMCP verifies the MCP endpoint sits behind the API key and sees
// the caller's user id.
func TestMountMCP(t *testing.T) {
	s, _ := newTestServer(t)
	var gotUser int
	s.MountMCP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = RequestUserID(r)
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`))
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-User-ID", "7")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if gotUser != 7 {
		t.Errorf("user = %d, want 7", gotUser)
	}
}

// TestImportAlpha verifies an Alpha Progression export is saved through
// the session service as completed sessions.
func TestImportAlpha(t *testing.T) {
	s, sessions := newTestServer(t)
	csv := "\"Push\";\"2026-02-17 5:04 h\";\"1:12 hr\"\n" +
		"\"1. Bench Press · Barbell · 6 reps\"\n" +
		"#;KG;REPS;RIR\n" +
		"1;100;6;1\n"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/alpha", strings.NewReader(csv))
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-User-ID", "4")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var res struct {
		WorkoutsReceived int `json:"workouts_received"`
		SessionsSaved    int `json:"sessions_saved"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.WorkoutsReceived != 1 || res.SessionsSaved != 1 {
		t.Errorf("result = %+v", res)
	}
	if sessions.lastUserID != 4 {
		t.Errorf("userID = %d, want 4", sessions.lastUserID)
	}

	bad := "1;100;6;1\n\"1. Bench Press · Barbell · 6 reps\"\n"
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import/alpha", strings.NewReader(bad))
	req.Header.Set("X-API-Key", testAPIKey)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad export status = %d, want 400", rec.Code)
	}
}
