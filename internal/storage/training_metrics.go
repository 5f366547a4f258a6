package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/forgemetrics/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveMetrics upserts the metrics row of a session.
func (db *DB) SaveMetrics(ctx context.Context, sessionID uuid.UUID, userID int, m metrics.SessionMetrics) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO training_metrics (session_id, user_id, discipline,
		 volume_kg, max_weight, sets_total, reps_total, tonnage,
		 distance_km, pace_avg, pace_min, pace_max, tss, zones_distribution,
		 heart_rate_avg, heart_rate_max, cadence_avg, power_avg, elevation_gain,
		 calories_estimated, intensity_score)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		 ON CONFLICT (session_id) DO UPDATE SET
			discipline = EXCLUDED.discipline,
			volume_kg = EXCLUDED.volume_kg,
			max_weight = EXCLUDED.max_weight,
			sets_total = EXCLUDED.sets_total,
			reps_total = EXCLUDED.reps_total,
			tonnage = EXCLUDED.tonnage,
			distance_km = EXCLUDED.distance_km,
			pace_avg = EXCLUDED.pace_avg,
			pace_min = EXCLUDED.pace_min,
			pace_max = EXCLUDED.pace_max,
			tss = EXCLUDED.tss,
			zones_distribution = EXCLUDED.zones_distribution,
			heart_rate_avg = EXCLUDED.heart_rate_avg,
			heart_rate_max = EXCLUDED.heart_rate_max,
			cadence_avg = EXCLUDED.cadence_avg,
			power_avg = EXCLUDED.power_avg,
			elevation_gain = EXCLUDED.elevation_gain,
			calories_estimated = EXCLUDED.calories_estimated,
			intensity_score = EXCLUDED.intensity_score`,
		sessionID, userID, m.Discipline,
		m.VolumeKg, m.MaxWeight, m.SetsTotal, m.RepsTotal, m.Tonnage,
		m.DistanceKm, m.PaceAvg, m.PaceMin, m.PaceMax, m.TSS, m.ZonesDistribution,
		m.HeartRateAvg, m.HeartRateMax, m.CadenceAvg, m.PowerAvg, m.ElevationGain,
		m.CaloriesEstimated, m.IntensityScore)
	if err != nil {
		return fmt.Errorf("saving metrics: %w", err)
	}
	return nil
}

// GetMetrics retrieves the metrics of a session.
func (db *DB) GetMetrics(ctx context.Context, sessionID uuid.UUID, userID int) (*metrics.SessionMetrics, error) {
	var m metrics.SessionMetrics
	err := db.Pool.QueryRow(ctx,
		`SELECT discipline, volume_kg, max_weight, sets_total, reps_total, tonnage,
		 distance_km, pace_avg, pace_min, pace_max, tss, zones_distribution,
		 heart_rate_avg, heart_rate_max, cadence_avg, power_avg, elevation_gain,
		 calories_estimated, intensity_score
		 FROM training_metrics
		 WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID).Scan(&m.Discipline,
		&m.VolumeKg, &m.MaxWeight, &m.SetsTotal, &m.RepsTotal, &m.Tonnage,
		&m.DistanceKm, &m.PaceAvg, &m.PaceMin, &m.PaceMax, &m.TSS, &m.ZonesDistribution,
		&m.HeartRateAvg, &m.HeartRateMax, &m.CadenceAvg, &m.PowerAvg, &m.ElevationGain,
		&m.CaloriesEstimated, &m.IntensityScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	return &m, nil
}
