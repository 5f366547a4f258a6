package metrics

import (
	"math"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"
)

const (
	defaultDiscipline  = "strength"
	defaultDurationMin = 60.0
	defaultRPE         = 7.0
	defaultZone        = "Z2"
	recoveryZone       = "Z1"

	forceCaloriesPerMin = 8.0
)

// Extract computes the metrics summary of a session record. The record is
// loosely typed JSON; missing, mistyped or malformed fields fall back to
// defaults, so Extract never fails and never panics. Invalid JSON is
// treated as an empty record.
func Extract(raw []byte) SessionMetrics {
	session := parse(raw)
	discipline := resolveDiscipline(session)

	switch FamilyOf(discipline) {
	case FamilyForce:
		return extractForce(session, discipline)
	case FamilyEndurance:
		return extractEndurance(session, discipline)
	}
	return SessionMetrics{Discipline: discipline}
}

// Discipline returns the discipline a session record resolves to:
// discipline, then session_type, then "strength".
func Discipline(raw []byte) string {
	return resolveDiscipline(parse(raw))
}

func parse(raw []byte) gjson.Result {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

func resolveDiscipline(session gjson.Result) string {
	for _, key := range []string{"discipline", "session_type"} {
		if v := session.Get(key); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return defaultDiscipline
}

func extractForce(session gjson.Result, discipline string) SessionMetrics {
	var (
		volumeKg  float64
		maxWeight float64
		setsTotal float64
		repsTotal float64
	)

	for _, ex := range arrayOf(session.Get("prescription.exercises")) {
		if !ex.IsObject() {
			continue
		}
		sets, _ := number(ex.Get("sets"))
		setsTotal += sets

		reps, hasReps := number(ex.Get("reps"))
		progression := ex.Get("repsProgression")

		var exerciseReps float64
		if progression.IsArray() {
			for _, r := range progression.Array() {
				v, _ := number(r)
				exerciseReps += v
			}
			repsTotal += exerciseReps
		} else {
			exerciseReps = sets * reps
			if hasReps {
				repsTotal += exerciseReps
			}
		}

		load := ex.Get("load")
		switch {
		case load.IsArray():
			for i, l := range load.Array() {
				v, _ := number(l)
				volumeKg += v * repsForSet(progression, i, reps)
				maxWeight = math.Max(maxWeight, v)
			}
		case truthy(load) && load.Type == gjson.Number:
			volumeKg += load.Num * exerciseReps
			maxWeight = math.Max(maxWeight, load.Num)
		}
	}

	duration := sessionDuration(session)
	rpe := sessionRPE(session)

	return SessionMetrics{
		Discipline:        discipline,
		VolumeKg:          ptr(roundHalfUp(volumeKg)),
		MaxWeight:         ptr(roundHalfUp(maxWeight)),
		SetsTotal:         ptr(int(finite(setsTotal))),
		RepsTotal:         ptr(int(finite(repsTotal))),
		Tonnage:           ptr(roundHalfUp(volumeKg)),
		CaloriesEstimated: ptr(forceCalories(duration, setsTotal, rpe)),
		IntensityScore:    ptr(intensityScore(rpe, duration)),
	}
}

// repsForSet pairs set i of a per-set load with its rep count: the matching
// repsProgression entry, else the first entry, else the scalar reps.
func repsForSet(progression gjson.Result, i int, reps float64) float64 {
	if !progression.IsArray() {
		return reps
	}
	values := progression.Array()
	if i < len(values) {
		if v, ok := number(values[i]); ok {
			return v
		}
	}
	if len(values) > 0 {
		v, _ := number(values[0])
		return v
	}
	return 0
}

func extractEndurance(session gjson.Result, discipline string) SessionMetrics {
	prescription := session.Get("prescription")
	estimates := prescription.Get("metrics")

	distance, _ := number(prescription.Get("distanceTarget"))
	tss, _ := number(estimates.Get("estimatedTSS"))
	calories, _ := number(estimates.Get("estimatedCalories"))

	var first gjson.Result
	if blocks := arrayOf(prescription.Get("mainWorkout")); len(blocks) > 0 {
		first = blocks[0]
	}

	m := SessionMetrics{
		Discipline:        discipline,
		DistanceKm:        ptr(distance),
		TSS:               ptr(tss),
		ZonesDistribution: zonesDistribution(prescription.Get("mainWorkout")),
		CaloriesEstimated: ptr(calories),
		IntensityScore:    ptr(intensityScore(sessionRPE(session), sessionDuration(session))),
	}

	if pace := first.Get("targetPace"); truthy(pace) {
		m.PaceAvg = ptr(pace.String())
	} else if pace := estimates.Get("estimatedAvgPace"); truthy(pace) {
		m.PaceAvg = ptr(pace.String())
	}

	if hr := first.Get("targetHR"); truthy(hr) {
		m.HeartRateAvg = parseRange(hr.String())
	} else if hr, ok := number(estimates.Get("estimatedAvgHR")); ok {
		m.HeartRateAvg = ptr(hr)
	}

	if power := first.Get("targetPower"); truthy(power) {
		m.PowerAvg = parseRange(power.String())
	} else if power := estimates.Get("estimatedAvgPower"); truthy(power) {
		m.PowerAvg = parseRange(power.String())
	}

	if cadence := first.Get("targetCadence"); truthy(cadence) {
		m.CadenceAvg = parseRange(cadence.String())
	}

	return m
}

var zoneRe = regexp.MustCompile(`Z[1-5]`)

// zonesDistribution buckets block durations into Z1..Z5 percentages.
// Interval work goes to the work intensity's zone and interval rest always
// counts as recovery (Z1). An empty workout is assumed to be steady Z2.
func zonesDistribution(mainWorkout gjson.Result) map[string]int {
	dist := make(map[string]int, len(Zones))
	for _, z := range Zones {
		dist[z] = 0
	}

	blocks := arrayOf(mainWorkout)
	if len(blocks) == 0 {
		dist[defaultZone] = 100
		return dist
	}

	var total float64
	durations := make(map[string]float64, len(Zones))

	for _, block := range blocks {
		duration, _ := number(block.Get("duration"))
		total += duration

		intervals := block.Get("intervals")
		work := intervals.Get("work")
		rest := intervals.Get("rest")
		if truthy(intervals) && truthy(work) && truthy(rest) {
			repeats, ok := number(intervals.Get("repeats"))
			if !ok {
				repeats = 1
			}
			workDuration, _ := number(work.Get("duration"))
			restDuration, _ := number(rest.Get("duration"))

			durations[zoneOf(work.Get("intensity"))] += workDuration * repeats
			durations[recoveryZone] += restDuration * repeats
			continue
		}
		durations[zoneOf(block.Get("targetZone"))] += duration
	}

	if total > 0 {
		for _, z := range Zones {
			dist[z] = int(roundHalfUp(durations[z] / total * 100))
		}
	}
	return dist
}

func zoneOf(v gjson.Result) string {
	if !truthy(v) {
		return defaultZone
	}
	if z := zoneRe.FindString(v.String()); z != "" {
		return z
	}
	return defaultZone
}

var (
	rangeRe  = regexp.MustCompile(`(\d+)-(\d+)`)
	singleRe = regexp.MustCompile(`\d+`)
)

// parseRange reads a target such as "135-150 bpm" (midpoint, rounded) or
// "210W" (first integer). Text without digits yields nil.
func parseRange(s string) *float64 {
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, errLo := strconv.ParseFloat(m[1], 64)
		hi, errHi := strconv.ParseFloat(m[2], 64)
		if errLo == nil && errHi == nil {
			return ptr(roundHalfUp((lo + hi) / 2))
		}
	}
	if m := singleRe.FindString(s); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return &v
		}
	}
	return nil
}

func sessionDuration(session gjson.Result) float64 {
	if d, ok := number(session.Get("duration_actual_min")); ok {
		return d
	}
	if d, ok := number(session.Get("durationTarget")); ok {
		return d
	}
	return defaultDurationMin
}

func sessionRPE(session gjson.Result) float64 {
	if rpe, ok := number(session.Get("rpe_avg")); ok {
		return rpe
	}
	return defaultRPE
}

func forceCalories(durationMin, setsTotal, rpe float64) float64 {
	rpeMultiplier := 0.5 + (rpe/10)*0.5
	setsMultiplier := 1 + setsTotal/50
	return roundHalfUp(durationMin * forceCaloriesPerMin * rpeMultiplier * setsMultiplier)
}

// intensityScore scales RPE by session length (capped at two hours) onto
// 0-200, rounded to one decimal.
func intensityScore(rpe, durationMin float64) float64 {
	score := (rpe / 10) * math.Min(durationMin/60, 2) * 100
	return roundHalfUp(score*10) / 10
}
