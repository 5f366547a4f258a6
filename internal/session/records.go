package session

import (
	"context"
	"errors"
	"math"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/storage"
)

// detectRecords compares the session's bests with stored records and
// saves the ones it beats. Lookup and save failures are logged and the
// candidate is skipped; they never fail the session.
func (s *Service) detectRecords(ctx context.Context, row *models.SessionRow) []models.PersonalRecordRow {
	achievedAt := s.now().UTC()
	if row.CompletedAt != nil {
		achievedAt = *row.CompletedAt
	}

	records := []models.PersonalRecordRow{}
	for _, b := range metrics.Bests(row.RawJSON) {
		prev, err := s.store.GetPersonalRecord(ctx, row.UserID, row.Discipline, b.ExerciseName, b.RecordType)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("looking up personal record",
				"exercise", b.ExerciseName, "record_type", b.RecordType, "error", err)
			continue
		}

		rec, ok := compareRecord(b, prev)
		if !ok {
			continue
		}
		rec.UserID = row.UserID
		rec.Discipline = row.Discipline
		rec.SessionID = &row.ID
		rec.AchievedAt = achievedAt

		if err := s.store.UpsertPersonalRecord(ctx, rec); err != nil {
			s.log.Error("saving personal record",
				"exercise", b.ExerciseName, "record_type", b.RecordType, "error", err)
			continue
		}
		s.log.Info("new personal record",
			"exercise", rec.ExerciseName,
			"record_type", rec.RecordType,
			"value", rec.Value,
			"previous", rec.PreviousValue)
		records = append(records, rec)
	}
	return records
}

// compareRecord reports whether b beats prev (nil when there is no record
// yet) and returns the record to store.
func compareRecord(b metrics.Best, prev *models.PersonalRecordRow) (models.PersonalRecordRow, bool) {
	rec := models.PersonalRecordRow{
		ExerciseName: b.ExerciseName,
		RecordType:   b.RecordType,
		Value:        b.Value,
		Unit:         b.Unit,
	}
	if prev == nil || prev.Value <= 0 {
		return rec, true
	}
	if b.Value <= prev.Value {
		return models.PersonalRecordRow{}, false
	}
	previous := prev.Value
	improvement := int(math.Floor((b.Value-previous)/previous*100 + 0.5))
	rec.PreviousValue = &previous
	rec.Improvement = &improvement
	return rec, true
}
