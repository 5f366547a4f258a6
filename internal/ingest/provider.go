package ingest

import "github.com/google/uuid"

// Result holds the outcome of importing a workout log.
type Result struct {
	WorkoutsReceived int         `json:"workouts_received"`
	SetsReceived     int         `json:"sets_received"`
	SessionsSaved    int         `json:"sessions_saved"`
	RecordsSet       int         `json:"records_set"`
	Failed           int         `json:"failed"`
	SessionIDs       []uuid.UUID `json:"session_ids,omitempty"`

	Message string `json:"message,omitempty"`
}
