package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and headers.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	writeTestJSONStatus(t, w, http.StatusOK, v)
}

func writeTestJSONStatus(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestQuerySessions verifies the filter is sent as query params, the user
// as X-User-ID, and the JSON array is decoded.
func TestQuerySessions(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if got := q.Get("discipline"); got != "running" {
				t.Errorf("discipline=%q, want running", got)
			}
			if got := q.Get("limit"); got != "5" {
				t.Errorf("limit=%q, want 5", got)
			}
			if got := q.Get("start"); got != "2026-01-01T00:00:00Z" {
				t.Errorf("start=%q", got)
			}
			if got := r.Header.Get("X-User-ID"); got != "3" {
				t.Errorf("X-User-ID=%q, want 3", got)
			}
			writeTestJSON(t, w, []models.SessionRow{{ID: id, Discipline: "running", Status: models.StatusCompleted}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL+"/", "secret")
	rows, err := client.QuerySessions(context.Background(), 3, storage.SessionFilter{
		Discipline: "running",
		Start:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Limit:      5,
	})
	if err != nil {
		t.Fatalf("QuerySessions: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != id {
		t.Errorf("rows = %+v", rows)
	}
}

// TestGetMetricsNotFound verifies a 404 maps to storage.ErrNotFound.
func TestGetMetricsNotFound(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String() + "/metrics": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "secret").GetMetrics(context.Background(), 1, id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestGetMetrics verifies the metrics document is decoded.
func TestGetMetrics(t *testing.T) {
	id := uuid.New()
	volume := 3000.0
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String() + "/metrics": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, metrics.SessionMetrics{Discipline: "strength", VolumeKg: &volume})
		},
	})
	defer ts.Close()

	m, err := NewHTTPClient(ts.URL, "secret").GetMetrics(context.Background(), 1, id)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if m.VolumeKg == nil || *m.VolumeKg != 3000 {
		t.Errorf("volume = %v, want 3000", m.VolumeKg)
	}
}

// TestAdjust verifies the request body and the 422 mapping to ErrNoLoad
// and ErrRepsProgression.
func TestAdjust(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/adjust": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			var req struct {
				Exercise   progression.Exercise       `json:"exercise"`
				Adjustment progression.AdjustmentType `json:"adjustment"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			ex := req.Exercise
			adj, err := progression.ApplyAdjustment(&ex, req.Adjustment)
			if err != nil {
				writeTestJSONStatus(t, w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			writeTestJSON(t, w, map[string]any{"exercise": ex, "adjustment": adj})
		},
	})
	defer ts.Close()
	client := NewHTTPClient(ts.URL, "secret")

	ex := progression.Exercise{Name: "Squat", Sets: 3, Reps: 5, Load: progression.Scalar(100)}
	got, adj, err := client.Adjust(context.Background(), 1, ex, progression.LoadIncrease, nil)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if got.Load.First() != 110 || adj.Amount != 10 {
		t.Errorf("load = %v, amount = %v, want 110 and 10", got.Load.First(), adj.Amount)
	}

	_, _, err = client.Adjust(context.Background(), 1, progression.Exercise{Name: "Pompes", Sets: 3, Reps: 15}, progression.LoadIncrease, nil)
	if !errors.Is(err, progression.ErrNoLoad) {
		t.Errorf("err = %v, want ErrNoLoad", err)
	}

	ladder := progression.Exercise{Name: "Bench Press", Sets: 3, RepsProgression: []int{8, 6, 4}, Load: progression.PerSet(80, 85, 90)}
	_, _, err = client.Adjust(context.Background(), 1, ladder, progression.RepsIncrease, nil)
	if !errors.Is(err, progression.ErrRepsProgression) {
		t.Errorf("err = %v, want ErrRepsProgression", err)
	}
}

// TestGetProgression verifies the period param and server error reporting.
func TestGetProgression(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/progression": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("period") == "6months" {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			writeTestJSON(t, w, progression.Dashboard{Period: progression.PeriodOneMonth, UserLevel: progression.ComputeLevel(25)})
		},
	})
	defer ts.Close()
	client := NewHTTPClient(ts.URL, "secret")

	d, err := client.GetProgression(context.Background(), 1, progression.PeriodOneMonth)
	if err != nil {
		t.Fatalf("GetProgression: %v", err)
	}
	if d.UserLevel.CurrentLevel != 2 {
		t.Errorf("level = %d, want 2", d.UserLevel.CurrentLevel)
	}

	if _, err := client.GetProgression(context.Background(), 1, progression.PeriodSixMonths); err == nil {
		t.Error("expected error for 500 response")
	}
}

// TestStats verifies the stats document is decoded for the given user.
func TestStats(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-User-ID"); got != "9" {
				t.Errorf("X-User-ID=%q, want 9", got)
			}
			writeTestJSON(t, w, storage.SessionStats{TotalSessions: 12, CompletedSessions: 10, ByDiscipline: []storage.DisciplineStat{{Discipline: "running", Count: 10}}})
		},
	})
	defer ts.Close()

	st, err := NewHTTPClient(ts.URL, "secret").Stats(context.Background(), 9)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalSessions != 12 || len(st.ByDiscipline) != 1 || st.ByDiscipline[0].Discipline != "running" {
		t.Errorf("stats = %+v", st)
	}
}
