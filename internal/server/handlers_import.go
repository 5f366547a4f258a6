package server

import "net/http"

const maxImportBytes = 10 << 20

func (s *Server) handleImportAlpha(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	result, err := s.importer.Import(r.Context(), body, userIDFromContext(r))
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
