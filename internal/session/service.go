// Package session persists training sessions and runs the work that follows
// a completed session: metrics extraction, personal record detection and
// progression cache invalidation.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/claude/forgemetrics/internal/storage"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidSession is returned for a session record that is not a JSON object.
	ErrInvalidSession = errors.New("session must be a JSON object")
	// ErrInvalidStatus is returned for an unknown session status.
	ErrInvalidStatus = errors.New("invalid session status")
)

// Store is the persistence the service needs.
type Store interface {
	UpsertSession(ctx context.Context, row models.SessionRow) (*models.SessionRow, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, userID int, status string) (*models.SessionRow, error)
	GetSession(ctx context.Context, id uuid.UUID, userID int) (*models.SessionRow, error)
	QuerySessions(ctx context.Context, userID int, f storage.SessionFilter) ([]models.SessionRow, error)

	SaveMetrics(ctx context.Context, sessionID uuid.UUID, userID int, m metrics.SessionMetrics) error
	GetMetrics(ctx context.Context, sessionID uuid.UUID, userID int) (*metrics.SessionMetrics, error)

	GetPersonalRecord(ctx context.Context, userID int, discipline, exerciseName, recordType string) (*models.PersonalRecordRow, error)
	UpsertPersonalRecord(ctx context.Context, r models.PersonalRecordRow) error
	QueryPersonalRecords(ctx context.Context, userID int, discipline string, limit int) ([]models.PersonalRecordRow, error)

	InsertAdjustment(ctx context.Context, row models.AdjustmentRow) error
	AverageAdjustment(ctx context.Context, userID int, exerciseName, adjustmentType string, limit int) (float64, error)
	QueryAdjustments(ctx context.Context, userID int, exerciseName string, limit int) ([]models.AdjustmentRow, error)

	GetSessionStats(ctx context.Context, userID int) (*storage.SessionStats, error)
}

// Compile-time check that *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Service implements the session workflows.
type Service struct {
	store Store
	cache *progression.Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewService returns a Service. cache may be nil.
func NewService(store Store, cache *progression.Cache, log *slog.Logger) *Service {
	return &Service{store: store, cache: cache, log: log, now: time.Now}
}

// SaveResult is what SaveCompleted reports back.
type SaveResult struct {
	SessionID  uuid.UUID                  `json:"session_id"`
	Metrics    metrics.SessionMetrics     `json:"metrics"`
	NewRecords []models.PersonalRecordRow `json:"new_records"`
}

// SaveCompleted stores a finished session, extracts and stores its
// metrics, updates personal records and invalidates the user's cached
// progression. A record carrying a uuid "id" replaces the earlier upload;
// an RFC 3339 "completed_at" not in the future is kept as completion time.
func (s *Service) SaveCompleted(ctx context.Context, userID int, raw json.RawMessage) (*SaveResult, error) {
	row, err := s.buildRow(userID, raw, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	completedAt := s.now().UTC()
	if v := gjson.GetBytes(row.RawJSON, "completed_at"); v.Type == gjson.String {
		// Imported and synced sessions keep the time they were performed.
		if t, err := time.Parse(time.RFC3339, v.Str); err == nil && !t.After(completedAt) {
			completedAt = t.UTC()
		}
	}
	row.CompletedAt = &completedAt

	stored, err := s.store.UpsertSession(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return s.finalize(ctx, stored)
}

// SaveDraft stores a session that has not been performed yet. No metrics
// are extracted.
func (s *Service) SaveDraft(ctx context.Context, userID int, raw json.RawMessage) (*models.SessionRow, error) {
	row, err := s.buildRow(userID, raw, models.StatusDraft)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.UpsertSession(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("saving draft: %w", err)
	}
	return stored, nil
}

// UpdateStatus moves a session to another status. Completing a session
// runs the same follow-up as SaveCompleted.
func (s *Service) UpdateStatus(ctx context.Context, userID int, id uuid.UUID, status string) (*models.SessionRow, *SaveResult, error) {
	if !models.ValidStatus(status) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	row, err := s.store.UpdateSessionStatus(ctx, id, userID, status)
	if err != nil {
		return nil, nil, fmt.Errorf("updating status of %s: %w", id, err)
	}
	if status != models.StatusCompleted {
		return row, nil, nil
	}
	res, err := s.finalize(ctx, row)
	if err != nil {
		return nil, nil, err
	}
	return row, res, nil
}

// GetSession returns one stored session.
func (s *Service) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.SessionRow, error) {
	return s.store.GetSession(ctx, id, userID)
}

// GetMetrics returns the stored metrics of a session.
func (s *Service) GetMetrics(ctx context.Context, userID int, id uuid.UUID) (*metrics.SessionMetrics, error) {
	return s.store.GetMetrics(ctx, id, userID)
}

// QuerySessions lists a user's sessions.
func (s *Service) QuerySessions(ctx context.Context, userID int, f storage.SessionFilter) ([]models.SessionRow, error) {
	return s.store.QuerySessions(ctx, userID, f)
}

// PersonalRecords lists a user's most recent records.
func (s *Service) PersonalRecords(ctx context.Context, userID int, discipline string, limit int) ([]models.PersonalRecordRow, error) {
	return s.store.QueryPersonalRecords(ctx, userID, discipline, limit)
}

// Stats returns the user's session counts and per-discipline totals.
func (s *Service) Stats(ctx context.Context, userID int) (*storage.SessionStats, error) {
	return s.store.GetSessionStats(ctx, userID)
}

func (s *Service) finalize(ctx context.Context, row *models.SessionRow) (*SaveResult, error) {
	m := metrics.Extract(row.RawJSON)
	if err := s.store.SaveMetrics(ctx, row.ID, row.UserID, m); err != nil {
		return nil, fmt.Errorf("saving metrics of %s: %w", row.ID, err)
	}

	records := s.detectRecords(ctx, row)
	s.cache.Invalidate(row.UserID)

	s.log.Info("session completed",
		"session_id", row.ID,
		"user_id", row.UserID,
		"discipline", m.Discipline,
		"new_records", len(records))

	return &SaveResult{SessionID: row.ID, Metrics: m, NewRecords: records}, nil
}

func (s *Service) buildRow(userID int, raw json.RawMessage, status string) (models.SessionRow, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return models.SessionRow{}, ErrInvalidSession
	}

	id := uuid.New()
	if v := gjson.GetBytes(trimmed, "id"); v.Type == gjson.String {
		if parsed, err := uuid.Parse(v.Str); err == nil {
			id = parsed
		}
	}

	row := models.SessionRow{
		ID:         id,
		UserID:     userID,
		Discipline: metrics.Discipline(trimmed),
		Status:     status,
		RawJSON:    json.RawMessage(trimmed),
	}
	if v := gjson.GetBytes(trimmed, "rpe_avg"); v.Type == gjson.Number {
		row.RPEAvg = &v.Num
	}
	if v := gjson.GetBytes(trimmed, "duration_actual_min"); v.Type == gjson.Number {
		row.DurationActualMin = &v.Num
	}
	return row, nil
}
