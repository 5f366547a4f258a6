package metrics

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }
func s(v string) *string   { return &v }

// TestExtractStrengthScalarLoad checks the basic force branch: one
// exercise with a scalar load.
func TestExtractStrengthScalarLoad(t *testing.T) {
	raw := `{"discipline":"strength","prescription":{"exercises":[{"sets":3,"reps":10,"load":100}]},"rpe_avg":8,"duration_actual_min":60}`

	got := Extract([]byte(raw))
	want := SessionMetrics{
		Discipline:        "strength",
		VolumeKg:          f(3000),
		MaxWeight:         f(100),
		SetsTotal:         n(3),
		RepsTotal:         n(30),
		Tonnage:           f(3000),
		CaloriesEstimated: f(458),
		IntensityScore:    f(80),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

// TestExtractPerSetLoad checks that a per-set load pairs each set with its
// repsProgression entry.
func TestExtractPerSetLoad(t *testing.T) {
	raw := `{"discipline":"powerlifting","prescription":{"exercises":[
		{"name":"Squat","sets":3,"repsProgression":[8,6,4],"load":[80,90,100]},
		{"name":"Pompes","sets":3,"reps":15}
	]}}`

	got := Extract([]byte(raw))
	// 80*8 + 90*6 + 100*4 = 1580
	if *got.VolumeKg != 1580 {
		t.Errorf("VolumeKg = %v, want 1580", *got.VolumeKg)
	}
	if *got.MaxWeight != 100 {
		t.Errorf("MaxWeight = %v, want 100", *got.MaxWeight)
	}
	if *got.SetsTotal != 6 {
		t.Errorf("SetsTotal = %d, want 6", *got.SetsTotal)
	}
	// 18 from the progression + 45 from the bodyweight exercise
	if *got.RepsTotal != 63 {
		t.Errorf("RepsTotal = %d, want 63", *got.RepsTotal)
	}
}

// TestExtractPerSetLoadShortProgression checks the fallback to the first
// progression entry when the load array is longer.
func TestExtractPerSetLoadShortProgression(t *testing.T) {
	raw := `{"prescription":{"exercises":[{"sets":3,"repsProgression":[5],"load":[10,20,30]}]}}`
	got := Extract([]byte(raw))
	if *got.VolumeKg != 300 {
		t.Errorf("VolumeKg = %v, want 300", *got.VolumeKg)
	}
	if got.Discipline != "strength" {
		t.Errorf("Discipline = %q, want strength", got.Discipline)
	}
}

// TestExtractRunningZones checks zone bucketing of steady blocks.
func TestExtractRunningZones(t *testing.T) {
	raw := `{"discipline":"running","prescription":{"mainWorkout":[{"duration":30,"targetZone":"Z2"},{"duration":10,"targetZone":"Z4"}]}}`

	got := Extract([]byte(raw))
	want := map[string]int{"Z1": 0, "Z2": 75, "Z3": 0, "Z4": 25, "Z5": 0}
	if diff := cmp.Diff(want, got.ZonesDistribution); diff != "" {
		t.Errorf("zones mismatch (-want +got):\n%s", diff)
	}
	if got.DistanceKm == nil || *got.DistanceKm != 0 {
		t.Errorf("DistanceKm = %v, want 0", got.DistanceKm)
	}
	if got.TSS == nil || *got.TSS != 0 {
		t.Errorf("TSS = %v, want 0", got.TSS)
	}
	if got.PaceAvg != nil || got.HeartRateAvg != nil || got.PowerAvg != nil {
		t.Errorf("unexpected targets: %+v", got)
	}
}

// TestExtractIntervalZones checks that interval rest counts as Z1.
func TestExtractIntervalZones(t *testing.T) {
	raw := `{"discipline":"cycling","prescription":{"mainWorkout":[
		{"duration":20,"targetZone":"Z2"},
		{"duration":20,"intervals":{"repeats":4,"work":{"duration":3,"intensity":"Z5 VO2max"},"rest":{"duration":2}}}
	]}}`

	got := Extract([]byte(raw)).ZonesDistribution
	want := map[string]int{"Z1": 20, "Z2": 50, "Z3": 0, "Z4": 0, "Z5": 30}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("zones mismatch (-want +got):\n%s", diff)
	}
}

// TestExtractEmptyWorkoutIsZ2 checks the steady-state default.
func TestExtractEmptyWorkoutIsZ2(t *testing.T) {
	for _, raw := range []string{
		`{"discipline":"swimming"}`,
		`{"discipline":"swimming","prescription":{"mainWorkout":[]}}`,
		`{"discipline":"swimming","prescription":{"mainWorkout":"none"}}`,
	} {
		got := Extract([]byte(raw)).ZonesDistribution
		if got["Z2"] != 100 {
			t.Errorf("%s: Z2 = %d, want 100", raw, got["Z2"])
		}
	}
}

// TestExtractEnduranceTargets checks pace, heart rate, power and cadence
// parsing from the first block and the estimate fallbacks.
func TestExtractEnduranceTargets(t *testing.T) {
	raw := `{"discipline":"cycling","rpe_avg":6,"duration_actual_min":90,"prescription":{
		"distanceTarget":42.5,
		"metrics":{"estimatedTSS":85,"estimatedCalories":900,"estimatedAvgPace":"5:30","estimatedAvgHR":140},
		"mainWorkout":[{"duration":90,"targetZone":"Z3","targetHR":"135-150 bpm","targetPower":"210W","targetCadence":"85-95 rpm"}]
	}}`

	got := Extract([]byte(raw))
	want := SessionMetrics{
		Discipline:        "cycling",
		DistanceKm:        f(42.5),
		PaceAvg:           s("5:30"),
		TSS:               f(85),
		ZonesDistribution: map[string]int{"Z1": 0, "Z2": 0, "Z3": 100, "Z4": 0, "Z5": 0},
		HeartRateAvg:      f(143),
		CadenceAvg:        f(90),
		PowerAvg:          f(210),
		CaloriesEstimated: f(900),
		IntensityScore:    f(90),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

// TestExtractHeartRateEstimateFallback checks that the estimated HR is used
// when the first block has no target.
func TestExtractHeartRateEstimateFallback(t *testing.T) {
	raw := `{"discipline":"running","prescription":{"metrics":{"estimatedAvgHR":152,"estimatedAvgPower":"250"},"mainWorkout":[{"duration":30}]}}`
	got := Extract([]byte(raw))
	if got.HeartRateAvg == nil || *got.HeartRateAvg != 152 {
		t.Errorf("HeartRateAvg = %v, want 152", got.HeartRateAvg)
	}
	if got.PowerAvg == nil || *got.PowerAvg != 250 {
		t.Errorf("PowerAvg = %v, want 250", got.PowerAvg)
	}
}

// TestExtractUnknownDiscipline checks that other disciplines carry only
// the discipline name.
func TestExtractUnknownDiscipline(t *testing.T) {
	got := Extract([]byte(`{"discipline":"yoga","rpe_avg":5}`))
	if diff := cmp.Diff(SessionMetrics{Discipline: "yoga"}, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"discipline":"yoga"}` {
		t.Errorf("marshal = %s", data)
	}
}

// TestExtractSessionTypeFallback checks discipline resolution order.
func TestExtractSessionTypeFallback(t *testing.T) {
	if got := Discipline([]byte(`{"session_type":"running"}`)); got != "running" {
		t.Errorf("Discipline = %q, want running", got)
	}
	if got := Discipline([]byte(`{"discipline":"","session_type":"hiit"}`)); got != "hiit" {
		t.Errorf("Discipline = %q, want hiit", got)
	}
	if got := Discipline([]byte(`not json`)); got != "strength" {
		t.Errorf("Discipline = %q, want strength", got)
	}
}

// TestExtractMalformedInput checks that no malformed record panics and
// every force result stays non-negative.
func TestExtractMalformedInput(t *testing.T) {
	inputs := []string{
		``,
		`null`,
		`[]`,
		`42`,
		`{"prescription":null}`,
		`{"prescription":{"exercises":{"a":1}}}`,
		`{"prescription":{"exercises":[null,1,"x",{}]}}`,
		`{"prescription":{"exercises":[{"sets":"3","reps":"10","load":"100"}]}}`,
		`{"prescription":{"exercises":[{"sets":3,"load":[null,"x",{}]}]}}`,
		`{"prescription":{"exercises":[{"sets":3,"repsProgression":"8,6","load":[60]}]}}`,
		`{"discipline":"running","prescription":{"mainWorkout":[null,{"duration":"x"},{"intervals":{"work":1,"rest":1}}]}}`,
		`{"discipline":"running","prescription":{"mainWorkout":[{"duration":10,"targetHR":150,"targetPower":true}]}}`,
		`{"discipline":"running","prescription":{"metrics":"oops","mainWorkout":[{"targetPace":5}]}}`,
		`{"discipline":42}`,
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Extract(%q) panicked: %v", in, r)
				}
			}()
			m := Extract([]byte(in))
			if m.VolumeKg != nil && *m.VolumeKg < 0 {
				t.Errorf("Extract(%q) VolumeKg = %v", in, *m.VolumeKg)
			}
			Bests([]byte(in))
		}()
	}
}

// TestExtractOverflowEncodes checks that totals overflowing float64 read
// as 0, so the metrics and bests still encode to JSON.
func TestExtractOverflowEncodes(t *testing.T) {
	inputs := []string{
		`{"prescription":{"exercises":[{"name":"Squat","sets":1e300,"reps":1e300,"load":[1e308,1e308]}]}}`,
		`{"prescription":{"exercises":[{"name":"Squat","sets":1e308,"reps":1e308,"load":1e308}]}}`,
		`{"rpe_avg":1e308,"duration_actual_min":1e308,"prescription":{"exercises":[{"sets":1e308}]}}`,
		`{"discipline":"running","rpe_avg":1e308,"prescription":{"mainWorkout":[{"duration":1e308,"targetZone":"Z3"},{"duration":1e308,"targetZone":"Z4"}]}}`,
	}
	for _, in := range inputs {
		m := Extract([]byte(in))
		if _, err := json.Marshal(m); err != nil {
			t.Errorf("Marshal(Extract(%s)): %v", in, err)
		}
		if _, err := json.Marshal(Bests([]byte(in))); err != nil {
			t.Errorf("Marshal(Bests(%s)): %v", in, err)
		}
	}

	m := Extract([]byte(inputs[0]))
	if m.VolumeKg == nil || *m.VolumeKg != 0 {
		t.Errorf("VolumeKg = %v, want 0", m.VolumeKg)
	}
	if m.MaxWeight == nil || *m.MaxWeight != 1e308 {
		t.Errorf("MaxWeight = %v, want 1e308", m.MaxWeight)
	}
}

// TestExtractZonesSumTo100 checks that rounded zone percentages sum to
// about 100 whenever durations add up.
func TestExtractZonesSumTo100(t *testing.T) {
	raw := `{"discipline":"running","prescription":{"mainWorkout":[
		{"duration":7,"targetZone":"Z1"},
		{"duration":11,"targetZone":"Z2"},
		{"duration":13,"targetZone":"Z3"}
	]}}`
	var sum int
	for _, v := range Extract([]byte(raw)).ZonesDistribution {
		sum += v
	}
	if sum < 98 || sum > 102 {
		t.Errorf("zone sum = %d, want 100±2", sum)
	}
}

// TestExtractIdempotent checks that extraction is a pure function.
func TestExtractIdempotent(t *testing.T) {
	raw := []byte(`{"discipline":"triathlon","prescription":{"distanceTarget":10,"mainWorkout":[{"duration":40,"targetZone":"Z3"}]}}`)
	if diff := cmp.Diff(Extract(raw), Extract(raw)); diff != "" {
		t.Errorf("second extraction differs:\n%s", diff)
	}
}

// TestParseRange checks target string parsing.
func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"135-150 bpm", f(143)},
		{"85-95", f(90)},
		{"210W", f(210)},
		{"~ 180 spm", f(180)},
		{"easy", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := parseRange(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parseRange(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

// TestBests checks record candidates for both families.
func TestBests(t *testing.T) {
	force := `{"discipline":"strength","prescription":{"exercises":[
		{"name":"Squat","sets":3,"reps":5,"load":[100,110,120]},
		{"name":"Développé Couché","sets":3,"reps":8,"load":80},
		{"name":"Pompes","sets":3,"reps":15}
	]}}`
	want := []Best{
		{ExerciseName: "Squat", RecordType: "max_weight", Value: 120, Unit: "kg"},
		{ExerciseName: "Squat", RecordType: "max_volume", Value: 600, Unit: "kg×reps"},
		{ExerciseName: "Développé Couché", RecordType: "max_weight", Value: 80, Unit: "kg"},
		{ExerciseName: "Développé Couché", RecordType: "max_volume", Value: 640, Unit: "kg×reps"},
	}
	if diff := cmp.Diff(want, Bests([]byte(force))); diff != "" {
		t.Errorf("force bests mismatch (-want +got):\n%s", diff)
	}

	run := `{"discipline":"running","duration_actual_min":55,"prescription":{"distanceTarget":12}}`
	want = []Best{
		{ExerciseName: "session", RecordType: "max_distance", Value: 12, Unit: "km"},
		{ExerciseName: "session", RecordType: "max_duration", Value: 55, Unit: "min"},
	}
	if diff := cmp.Diff(want, Bests([]byte(run))); diff != "" {
		t.Errorf("endurance bests mismatch (-want +got):\n%s", diff)
	}

	if got := Bests([]byte(`{"discipline":"yoga"}`)); got != nil {
		t.Errorf("Bests(yoga) = %v, want nil", got)
	}
}
