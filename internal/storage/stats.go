package storage

import (
	"context"
	"fmt"
	"time"
)

// SessionStats holds aggregate statistics about a user's stored sessions.
type SessionStats struct {
	TotalSessions      int64            `json:"total_sessions"`
	CompletedSessions  int64            `json:"completed_sessions"`
	DraftSessions      int64            `json:"draft_sessions"`
	InProgressSessions int64            `json:"in_progress_sessions"`
	AbandonedSessions  int64            `json:"abandoned_sessions"`
	TotalRecords       int64            `json:"total_records"`
	FirstCompleted     *time.Time       `json:"first_completed"`
	LastCompleted      *time.Time       `json:"last_completed"`
	ByDiscipline       []DisciplineStat `json:"by_discipline"`
}

// DisciplineStat totals the completed sessions of one discipline.
type DisciplineStat struct {
	Discipline       string   `json:"discipline"`
	Count            int64    `json:"count"`
	TotalDurationMin float64  `json:"total_duration_min"`
	TotalVolumeKg    *float64 `json:"total_volume_kg,omitempty"`
	TotalDistanceKm  *float64 `json:"total_distance_km,omitempty"`
}

// GetSessionStats returns aggregate statistics for a user's sessions.
func (db *DB) GetSessionStats(ctx context.Context, userID int) (*SessionStats, error) {
	stats := &SessionStats{ByDiscipline: []DisciplineStat{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'abandoned'),
			MIN(completed_at) FILTER (WHERE status = 'completed'),
			MAX(completed_at) FILTER (WHERE status = 'completed')
		 FROM training_sessions WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSessions, &stats.CompletedSessions, &stats.DraftSessions,
		&stats.InProgressSessions, &stats.AbandonedSessions,
		&stats.FirstCompleted, &stats.LastCompleted)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM training_personal_records WHERE user_id = $1`, userID,
	).Scan(&stats.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT s.discipline, COUNT(*), COALESCE(SUM(s.duration_actual_min), 0),
			SUM(m.volume_kg), SUM(m.distance_km)
		 FROM training_sessions s
		 LEFT JOIN training_metrics m ON m.session_id = s.id
		 WHERE s.user_id = $1 AND s.status = 'completed'
		 GROUP BY s.discipline
		 ORDER BY COUNT(*) DESC, s.discipline`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions by discipline: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s DisciplineStat
		if err := rows.Scan(&s.Discipline, &s.Count, &s.TotalDurationMin, &s.TotalVolumeKg, &s.TotalDistanceKm); err != nil {
			return nil, fmt.Errorf("scanning discipline stat: %w", err)
		}
		stats.ByDiscipline = append(stats.ByDiscipline, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
