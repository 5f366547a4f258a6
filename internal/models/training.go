package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// ValidStatus reports whether s is a known session status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// SessionRow is a row of the training_sessions table. RawJSON holds the
// session record exactly as the client sent it.
type SessionRow struct {
	ID                uuid.UUID       `json:"id"`
	UserID            int             `json:"user_id"`
	Discipline        string          `json:"discipline"`
	Status            string          `json:"status"`
	RPEAvg            *float64        `json:"rpe_avg,omitempty"`
	DurationActualMin *float64        `json:"duration_actual_min,omitempty"`
	RawJSON           json.RawMessage `json:"session"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AdjustmentRow is an audit row of training_exercise_load_adjustments.
// Old and new values keep the shape of the adjusted field (number or array).
type AdjustmentRow struct {
	ID             int64           `json:"id"`
	UserID         int             `json:"user_id"`
	ExerciseName   string          `json:"exercise_name"`
	AdjustmentType string          `json:"adjustment_type"`
	OldValue       json.RawMessage `json:"old_value"`
	NewValue       json.RawMessage `json:"new_value"`
	Amount         float64         `json:"adjustment"`
	Context        json.RawMessage `json:"context,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Personal record types.
const (
	RecordMaxWeight   = "max_weight"
	RecordMaxVolume   = "max_volume"
	RecordMaxDistance = "max_distance"
	RecordMaxDuration = "max_duration"
)

// SessionRecordName is the exercise name used for session-level records.
const SessionRecordName = "session"

// PersonalRecordRow is a row of training_personal_records.
type PersonalRecordRow struct {
	UserID       int     `json:"user_id"`
	Discipline   string  `json:"discipline"`
	ExerciseName string  `json:"exercise_name"`
	RecordType   string  `json:"record_type"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
	// PreviousValue and Improvement (rounded percent) are nil for a first record.
	PreviousValue *float64   `json:"previous_value,omitempty"`
	Improvement   *int       `json:"improvement,omitempty"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	AchievedAt    time.Time  `json:"achieved_at"`
}

// VolumeEntry is one completed session's contribution to weekly volume:
// tonnage for force sessions, distance for endurance ones.
type VolumeEntry struct {
	CompletedAt time.Time
	Volume      float64
}
