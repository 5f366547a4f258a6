package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/session"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	res, err := s.sessions.SaveCompleted(r.Context(), userIDFromContext(r), body)
	if err != nil {
		s.writeServiceError(w, "saving session", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	row, err := s.sessions.SaveDraft(r.Context(), userIDFromContext(r), body)
	if err != nil {
		s.writeServiceError(w, "saving draft", err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	row, err := s.sessions.GetSession(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeServiceError(w, "getting session", err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	row, res, err := s.sessions.UpdateStatus(r.Context(), userIDFromContext(r), id, req.Status)
	if err != nil {
		s.writeServiceError(w, "updating status", err)
		return
	}
	resp := map[string]any{"session": row}
	if res != nil {
		resp["metrics"] = res.Metrics
		resp["new_records"] = res.NewRecords
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuerySessions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, 30)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	rows, err := s.sessions.QuerySessions(r.Context(), userIDFromContext(r), storage.SessionFilter{
		Status:     q.Get("status"),
		Discipline: q.Get("discipline"),
		Start:      start,
		End:        end,
		Limit:      limit,
	})
	if err != nil {
		s.writeServiceError(w, "querying sessions", err)
		return
	}
	if rows == nil {
		rows = []models.SessionRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	m, err := s.sessions.GetMetrics(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeServiceError(w, "getting metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleExtractMetrics(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, metrics.Extract(body))
}

// writeServiceError maps workflow errors onto status codes. Unexpected
// errors are logged and reported as 500.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, session.ErrInvalidSession), errors.Is(err, session.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "reading body: "+err.Error())
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseLimit(r *http.Request, def int) (int, error) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return def, nil
	}
	n, err := strconv.Atoi(l)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", l)
	}
	return n, nil
}

// parseTimeRange reads start and end as RFC 3339 or dates. Without start
// the range is the last defaultDays days. A date-only end covers that day.
func parseTimeRange(r *http.Request, defaultDays int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		end = time.Now()
		start = end.AddDate(0, 0, -defaultDays)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse(time.DateOnly, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start %q", startStr)
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse(time.DateOnly, endStr)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid end %q", endStr)
			}
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
