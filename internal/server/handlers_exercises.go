package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
)

type convertRequest struct {
	From string           `json:"from"`
	To   string           `json:"to"`
	Load progression.Load `json:"load"`
}

func (s *Server) handleRatios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.converter.Ratios())
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if req.Load.IsZero() {
		writeError(w, http.StatusBadRequest, "load is required")
		return
	}
	writeJSON(w, http.StatusOK, s.converter.ConvertWithConfidence(req.From, req.To, req.Load))
}

type adjustRequest struct {
	Exercise   progression.Exercise `json:"exercise"`
	Adjustment string               `json:"adjustment"`
	Context    json.RawMessage      `json:"context,omitempty"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Exercise.Name == "" {
		writeError(w, http.StatusBadRequest, "exercise.name is required")
		return
	}
	t, err := progression.ParseAdjustmentType(req.Adjustment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ex, adj, err := s.sessions.Adjust(r.Context(), userIDFromContext(r), req.Exercise, t, req.Context)
	if errors.Is(err, progression.ErrNoLoad) || errors.Is(err, progression.ErrRepsProgression) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.writeServiceError(w, "adjusting exercise", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exercise":   ex,
		"adjustment": adj,
	})
}

type rampRequest struct {
	BaseLoad float64 `json:"base_load"`
	Sets     int     `json:"sets"`
}

func (s *Server) handleRamp(w http.ResponseWriter, r *http.Request) {
	var req rampRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BaseLoad < 0 {
		writeError(w, http.StatusBadRequest, "base_load must not be negative")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loads": progression.RampLoad(req.BaseLoad, req.Sets),
	})
}

func (s *Server) handleAverageAdjustment(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		writeError(w, http.StatusBadRequest, "exercise parameter required")
		return
	}
	t, err := progression.ParseAdjustmentType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	avg, err := s.sessions.AverageAdjustment(r.Context(), userIDFromContext(r), exercise, t)
	if err != nil {
		s.writeServiceError(w, "averaging adjustments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exercise":        exercise,
		"adjustment_type": t,
		"average":         avg,
	})
}

func (s *Server) handleAdjustmentHistory(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		writeError(w, http.StatusBadRequest, "exercise parameter required")
		return
	}
	limit, err := parseLimit(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.sessions.AdjustmentHistory(r.Context(), userIDFromContext(r), exercise, limit)
	if err != nil {
		s.writeServiceError(w, "querying adjustments", err)
		return
	}
	if rows == nil {
		rows = []models.AdjustmentRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
