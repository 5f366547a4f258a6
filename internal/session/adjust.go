package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
)

const averageAdjustmentWindow = 10

// Adjust applies one adjustment step to an exercise and records it. The
// audit insert is best effort: a failure is logged and the adjusted
// exercise is still returned.
func (s *Service) Adjust(ctx context.Context, userID int, ex progression.Exercise, t progression.AdjustmentType, adjContext json.RawMessage) (progression.Exercise, progression.Adjustment, error) {
	adj, err := progression.ApplyAdjustment(&ex, t)
	if err != nil {
		return ex, progression.Adjustment{}, err
	}

	oldValue, err := json.Marshal(adj.OldValue)
	if err != nil {
		return ex, adj, fmt.Errorf("encoding old value: %w", err)
	}
	newValue, err := json.Marshal(adj.NewValue)
	if err != nil {
		return ex, adj, fmt.Errorf("encoding new value: %w", err)
	}
	if len(adjContext) == 0 || !json.Valid(adjContext) {
		adjContext = nil
	}

	row := models.AdjustmentRow{
		UserID:         userID,
		ExerciseName:   ex.Name,
		AdjustmentType: string(adj.Type),
		OldValue:       oldValue,
		NewValue:       newValue,
		Amount:         adj.Amount,
		Context:        adjContext,
	}
	if err := s.store.InsertAdjustment(ctx, row); err != nil {
		s.log.Error("recording adjustment", "exercise", ex.Name, "type", adj.Type, "error", err)
	}
	return ex, adj, nil
}

// AdjustmentHistory lists a user's recent adjustments on one exercise,
// newest first.
func (s *Service) AdjustmentHistory(ctx context.Context, userID int, exerciseName string, limit int) ([]models.AdjustmentRow, error) {
	return s.store.QueryAdjustments(ctx, userID, exerciseName, limit)
}

// AverageAdjustment returns the mean step of a user's recent adjustments
// of one type on one exercise.
func (s *Service) AverageAdjustment(ctx context.Context, userID int, exerciseName string, t progression.AdjustmentType) (float64, error) {
	return s.store.AverageAdjustment(ctx, userID, exerciseName, string(t), averageAdjustmentWindow)
}
