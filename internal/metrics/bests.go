package metrics

import (
	"github.com/claude/forgemetrics/internal/models"
	"github.com/tidwall/gjson"
)

// Best is a record candidate found in one session.
type Best struct {
	ExerciseName string  `json:"exercise_name"`
	RecordType   string  `json:"record_type"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
}

// Bests returns the record candidates of a session record. Force sessions
// yield max_weight and max_volume (load x reps of a single set) per named
// exercise. Endurance sessions yield session-level max_distance and
// max_duration. Only positive values are returned.
func Bests(raw []byte) []Best {
	session := parse(raw)
	switch FamilyOf(resolveDiscipline(session)) {
	case FamilyForce:
		return forceBests(session)
	case FamilyEndurance:
		return enduranceBests(session)
	}
	return nil
}

func forceBests(session gjson.Result) []Best {
	var out []Best
	seen := make(map[string]int)

	for _, ex := range arrayOf(session.Get("prescription.exercises")) {
		name := ex.Get("name")
		if name.Type != gjson.String || name.Str == "" {
			continue
		}
		reps, _ := number(ex.Get("reps"))
		progression := ex.Get("repsProgression")

		var weight, volume float64
		load := ex.Get("load")
		switch {
		case load.IsArray():
			for i, l := range load.Array() {
				v, _ := number(l)
				weight = max(weight, v)
				volume = max(volume, v*repsForSet(progression, i, reps))
			}
		case load.Type == gjson.Number && load.Num > 0:
			weight = load.Num
			volume = load.Num * repsForSet(progression, 0, reps)
		}

		for _, b := range []Best{
			{ExerciseName: name.Str, RecordType: models.RecordMaxWeight, Value: weight, Unit: "kg"},
			{ExerciseName: name.Str, RecordType: models.RecordMaxVolume, Value: volume, Unit: "kg×reps"},
		} {
			if finite(b.Value) <= 0 {
				continue
			}
			key := b.ExerciseName + "\x00" + b.RecordType
			if i, ok := seen[key]; ok {
				out[i].Value = max(out[i].Value, b.Value)
				continue
			}
			seen[key] = len(out)
			out = append(out, b)
		}
	}
	return out
}

func enduranceBests(session gjson.Result) []Best {
	var out []Best
	if d, ok := number(session.Get("prescription.distanceTarget")); ok && d > 0 {
		out = append(out, Best{ExerciseName: models.SessionRecordName, RecordType: models.RecordMaxDistance, Value: d, Unit: "km"})
	}
	if d, ok := number(session.Get("duration_actual_min")); ok && d > 0 {
		out = append(out, Best{ExerciseName: models.SessionRecordName, RecordType: models.RecordMaxDuration, Value: d, Unit: "min"})
	}
	return out
}
