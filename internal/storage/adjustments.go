package storage

import (
	"context"
	"fmt"

	"github.com/claude/forgemetrics/internal/models"
)

// InsertAdjustment records one applied exercise adjustment.
func (db *DB) InsertAdjustment(ctx context.Context, row models.AdjustmentRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO training_exercise_load_adjustments
		 (user_id, exercise_name, adjustment_type, old_value, new_value, amount, context)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		row.UserID, row.ExerciseName, row.AdjustmentType, row.OldValue, row.NewValue, row.Amount, row.Context)
	if err != nil {
		return fmt.Errorf("inserting adjustment: %w", err)
	}
	return nil
}

// AverageAdjustment returns the mean amount of a user's last limit
// adjustments of one type on one exercise, or 0 when there are none.
func (db *DB) AverageAdjustment(ctx context.Context, userID int, exerciseName, adjustmentType string, limit int) (float64, error) {
	if limit <= 0 {
		limit = 10
	}
	var avg float64
	err := db.Pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(amount), 0) FROM (
			SELECT amount FROM training_exercise_load_adjustments
			WHERE user_id = $1 AND exercise_name = $2 AND adjustment_type = $3
			ORDER BY created_at DESC
			LIMIT $4
		) recent`,
		userID, exerciseName, adjustmentType, limit).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("averaging adjustments: %w", err)
	}
	return avg, nil
}

// QueryAdjustments lists a user's recent adjustments on one exercise.
func (db *DB) QueryAdjustments(ctx context.Context, userID int, exerciseName string, limit int) ([]models.AdjustmentRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, exercise_name, adjustment_type, old_value, new_value, amount, context, created_at
		 FROM training_exercise_load_adjustments
		 WHERE user_id = $1 AND exercise_name = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, exerciseName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying adjustments: %w", err)
	}
	defer rows.Close()

	var result []models.AdjustmentRow
	for rows.Next() {
		var a models.AdjustmentRow
		if err := rows.Scan(&a.ID, &a.UserID, &a.ExerciseName, &a.AdjustmentType,
			&a.OldValue, &a.NewValue, &a.Amount, &a.Context, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning adjustment: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
