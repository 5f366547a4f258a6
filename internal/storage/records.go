package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/forgemetrics/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetPersonalRecord returns the stored record for one exercise and type.
func (db *DB) GetPersonalRecord(ctx context.Context, userID int, discipline, exerciseName, recordType string) (*models.PersonalRecordRow, error) {
	var r models.PersonalRecordRow
	err := db.Pool.QueryRow(ctx,
		`SELECT user_id, discipline, exercise_name, record_type, value, unit, previous_value, improvement, session_id, achieved_at
		 FROM training_personal_records
		 WHERE user_id = $1 AND discipline = $2 AND exercise_name = $3 AND record_type = $4`,
		userID, discipline, exerciseName, recordType).Scan(&r.UserID, &r.Discipline, &r.ExerciseName,
		&r.RecordType, &r.Value, &r.Unit, &r.PreviousValue, &r.Improvement, &r.SessionID, &r.AchievedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying personal record: %w", err)
	}
	return &r, nil
}

// UpsertPersonalRecord stores a record, replacing the previous one for the
// same user, discipline, exercise and type.
func (db *DB) UpsertPersonalRecord(ctx context.Context, r models.PersonalRecordRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO training_personal_records
		 (user_id, discipline, exercise_name, record_type, value, unit, previous_value, improvement, session_id, achieved_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (user_id, discipline, exercise_name, record_type) DO UPDATE SET
			value = EXCLUDED.value,
			unit = EXCLUDED.unit,
			previous_value = EXCLUDED.previous_value,
			improvement = EXCLUDED.improvement,
			session_id = EXCLUDED.session_id,
			achieved_at = EXCLUDED.achieved_at`,
		r.UserID, r.Discipline, r.ExerciseName, r.RecordType, r.Value, r.Unit,
		r.PreviousValue, r.Improvement, r.SessionID, r.AchievedAt)
	if err != nil {
		return fmt.Errorf("upserting personal record: %w", err)
	}
	return nil
}

// QueryPersonalRecords lists a user's records, most recent first.
// An empty discipline lists every discipline.
func (db *DB) QueryPersonalRecords(ctx context.Context, userID int, discipline string, limit int) ([]models.PersonalRecordRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, discipline, exercise_name, record_type, value, unit, previous_value, improvement, session_id, achieved_at
		 FROM training_personal_records
		 WHERE user_id = $1 AND ($2 = '' OR discipline = $2)
		 ORDER BY achieved_at DESC
		 LIMIT $3`,
		userID, discipline, limit)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	var result []models.PersonalRecordRow
	for rows.Next() {
		var r models.PersonalRecordRow
		if err := rows.Scan(&r.UserID, &r.Discipline, &r.ExerciseName, &r.RecordType, &r.Value,
			&r.Unit, &r.PreviousValue, &r.Improvement, &r.SessionID, &r.AchievedAt); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
