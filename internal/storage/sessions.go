package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/forgemetrics/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a row addressed by id does not exist for the
// requesting user.
var ErrNotFound = errors.New("not found")

const sessionColumns = `id, user_id, discipline, status, rpe_avg, duration_actual_min,
	raw_json, completed_at, created_at, updated_at`

// UpsertSession inserts a session row, or replaces the stored record when
// the id already exists for the same user. Returns the stored row.
func (db *DB) UpsertSession(ctx context.Context, row models.SessionRow) (*models.SessionRow, error) {
	r := db.Pool.QueryRow(ctx,
		`INSERT INTO training_sessions (id, user_id, discipline, status, rpe_avg, duration_actual_min, raw_json, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
			discipline = EXCLUDED.discipline,
			status = EXCLUDED.status,
			rpe_avg = EXCLUDED.rpe_avg,
			duration_actual_min = EXCLUDED.duration_actual_min,
			raw_json = EXCLUDED.raw_json,
			completed_at = COALESCE(EXCLUDED.completed_at, training_sessions.completed_at),
			updated_at = NOW()
		 WHERE training_sessions.user_id = EXCLUDED.user_id
		 RETURNING `+sessionColumns,
		row.ID, row.UserID, row.Discipline, row.Status, row.RPEAvg, row.DurationActualMin,
		row.RawJSON, row.CompletedAt)

	s, err := scanSession(r)
	if errors.Is(err, pgx.ErrNoRows) {
		// The id belongs to another user.
		return nil, fmt.Errorf("upserting session %s: %w", row.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("upserting session: %w", err)
	}
	return s, nil
}

// UpdateSessionStatus changes a session's status. Moving to completed
// stamps completed_at if it was not set.
func (db *DB) UpdateSessionStatus(ctx context.Context, id uuid.UUID, userID int, status string) (*models.SessionRow, error) {
	r := db.Pool.QueryRow(ctx,
		`UPDATE training_sessions
		 SET status = $3,
			completed_at = CASE WHEN $3 = 'completed' THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
			updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+sessionColumns,
		id, userID, status)

	s, err := scanSession(r)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating session status: %w", err)
	}
	return s, nil
}

// GetSession retrieves one session.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID, userID int) (*models.SessionRow, error) {
	r := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions WHERE id = $1 AND user_id = $2`,
		id, userID)

	s, err := scanSession(r)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// SessionFilter narrows QuerySessions. Zero fields do not filter.
type SessionFilter struct {
	Status     string
	Discipline string
	Start      time.Time
	End        time.Time
	Limit      int
}

// QuerySessions lists a user's sessions, newest first.
func (db *DB) QuerySessions(ctx context.Context, userID int, f SessionFilter) ([]models.SessionRow, error) {
	query, args := buildSessionQuery(userID, f)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func buildSessionQuery(userID int, f SessionFilter) (string, []any) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Discipline != "" {
		add("discipline = $%d", f.Discipline)
	}
	if !f.Start.IsZero() {
		add("created_at >= $%d", f.Start)
	}
	if !f.End.IsZero() {
		add("created_at < $%d", f.End)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	args = append(args, limit)

	query := `SELECT ` + sessionColumns + ` FROM training_sessions WHERE ` +
		strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	return query, args
}

// CountCompletedSessions returns how many sessions a user has completed.
func (db *DB) CountCompletedSessions(ctx context.Context, userID int) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM training_sessions WHERE user_id = $1 AND status = 'completed'`,
		userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting completed sessions: %w", err)
	}
	return n, nil
}

// QueryVolumeEntries returns the volume of each session completed in
// [from, to): tonnage when set, else distance, else zero.
func (db *DB) QueryVolumeEntries(ctx context.Context, userID int, from, to time.Time) ([]models.VolumeEntry, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT s.completed_at, COALESCE(NULLIF(m.volume_kg, 0), NULLIF(m.distance_km, 0), 0)
		 FROM training_sessions s
		 LEFT JOIN training_metrics m ON m.session_id = s.id
		 WHERE s.user_id = $1 AND s.status = 'completed'
		   AND s.completed_at >= $2 AND s.completed_at < $3
		 ORDER BY s.completed_at`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying volume entries: %w", err)
	}
	defer rows.Close()

	var result []models.VolumeEntry
	for rows.Next() {
		var e models.VolumeEntry
		if err := rows.Scan(&e.CompletedAt, &e.Volume); err != nil {
			return nil, fmt.Errorf("scanning volume entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanSession(row pgx.Row) (*models.SessionRow, error) {
	var s models.SessionRow
	if err := row.Scan(&s.ID, &s.UserID, &s.Discipline, &s.Status, &s.RPEAvg, &s.DurationActualMin,
		&s.RawJSON, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
