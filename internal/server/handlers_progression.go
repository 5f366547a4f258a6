package server

import (
	"net/http"

	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
)

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	period, err := progression.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.dashboards.Get(r.Context(), userIDFromContext(r), period)
	if err != nil {
		s.writeServiceError(w, "computing progression", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.sessions.PersonalRecords(r.Context(), userIDFromContext(r), r.URL.Query().Get("discipline"), limit)
	if err != nil {
		s.writeServiceError(w, "querying records", err)
		return
	}
	if records == nil {
		records = []models.PersonalRecordRow{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Stats(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeServiceError(w, "querying stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
