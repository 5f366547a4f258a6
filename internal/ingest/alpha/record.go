package alpha

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/claude/forgemetrics/internal/models"
	"github.com/claude/forgemetrics/internal/progression"
	"github.com/google/uuid"
)

const sourceName = "alpha_progression"

// importNamespace seeds SessionID.
var importNamespace = uuid.MustParse("5b0e6f2a-3c41-4d7e-9a58-2f1c7d9e4b60")

// SessionID derives a stable id from the workout's date and name, so
// importing the same export twice replaces the earlier sessions.
func SessionID(w Workout) uuid.UUID {
	return uuid.NewSHA1(importNamespace, []byte(w.Date.Format(time.RFC3339)+"|"+w.Name))
}

type sessionRecord struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Discipline        string       `json:"discipline"`
	Status            string       `json:"status"`
	Source            string       `json:"source"`
	CompletedAt       string       `json:"completed_at"`
	DurationActualMin *float64     `json:"duration_actual_min,omitempty"`
	RPEAvg            *float64     `json:"rpe_avg,omitempty"`
	Prescription      prescription `json:"prescription"`
}

type prescription struct {
	Exercises []progression.Exercise `json:"exercises"`
}

// Record turns a workout into a completed strength session record. Only
// working sets count: per-set loads go to load, performed reps to
// repsProgression. Bodyweight exercises without added load carry no load.
// rpe_avg is 10 minus the mean reps in reserve, within 1..10.
func Record(w Workout) (json.RawMessage, error) {
	rec := sessionRecord{
		ID:          SessionID(w).String(),
		Title:       w.Name,
		Discipline:  "strength",
		Status:      models.StatusCompleted,
		Source:      sourceName,
		CompletedAt: w.Date.Add(time.Duration(w.DurationMin * float64(time.Minute))).Format(time.RFC3339),
		Prescription: prescription{
			Exercises: []progression.Exercise{},
		},
	}
	if w.DurationMin > 0 {
		rec.DurationActualMin = &w.DurationMin
	}

	var rirSum float64
	var rirCount int
	for _, ex := range w.Exercises {
		sets := ex.WorkingSets()
		if len(sets) == 0 {
			continue
		}

		out := progression.Exercise{
			Name:            ex.Name,
			Sets:            len(sets),
			Reps:            ex.TargetReps,
			RepsProgression: make([]int, len(sets)),
		}
		loads := make([]float64, len(sets))
		var loaded bool
		for i, s := range sets {
			out.RepsProgression[i] = s.Reps
			loads[i] = s.WeightKg
			loaded = loaded || s.WeightKg > 0
			rirSum += s.RIR
			rirCount++
		}
		if loaded {
			out.Load = progression.PerSet(loads...)
		}
		rec.Prescription.Exercises = append(rec.Prescription.Exercises, out)
	}

	if rirCount > 0 {
		rpe := 10 - rirSum/float64(rirCount)
		rpe = math.Round(min(max(rpe, 1), 10)*10) / 10
		rec.RPEAvg = &rpe
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding workout %q: %w", w.Name, err)
	}
	return raw, nil
}
