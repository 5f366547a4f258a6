package alpha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/claude/forgemetrics/internal/ingest"
	"github.com/claude/forgemetrics/internal/session"
)

// Saver stores a completed session record. *session.Service satisfies it.
type Saver interface {
	SaveCompleted(ctx context.Context, userID int, raw json.RawMessage) (*session.SaveResult, error)
}

// Importer turns Alpha Progression CSV exports into completed sessions.
type Importer struct {
	sessions Saver
	log      *slog.Logger
}

// NewImporter creates a new Alpha Progression importer.
func NewImporter(sessions Saver, log *slog.Logger) *Importer {
	return &Importer{sessions: sessions, log: log}
}

// Import parses an export and saves every workout as a completed session,
// oldest first so records improve in the order they were set. A workout
// that fails to save is logged and counted; the rest are still imported.
func (imp *Importer) Import(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	workouts, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	slices.SortStableFunc(workouts, func(a, b Workout) int { return a.Date.Compare(b.Date) })

	result := &ingest.Result{WorkoutsReceived: len(workouts)}
	for _, w := range workouts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		for _, ex := range w.Exercises {
			result.SetsReceived += len(ex.WorkingSets())
		}

		raw, err := Record(w)
		if err != nil {
			imp.log.Warn("alpha import: encode failed", "workout", w.Name, "error", err)
			result.Failed++
			continue
		}
		res, err := imp.sessions.SaveCompleted(ctx, userID, raw)
		if err != nil {
			imp.log.Warn("alpha import: save failed", "workout", w.Name, "date", w.Date, "error", err)
			result.Failed++
			continue
		}
		result.SessionsSaved++
		result.RecordsSet += len(res.NewRecords)
		result.SessionIDs = append(result.SessionIDs, res.SessionID)
	}

	imp.log.Info("alpha import finished",
		"user_id", userID,
		"workouts", result.WorkoutsReceived,
		"saved", result.SessionsSaved,
		"failed", result.Failed)

	if result.Failed > 0 {
		result.Message = fmt.Sprintf("%d of %d workouts could not be saved", result.Failed, result.WorkoutsReceived)
	}
	return result, nil
}
