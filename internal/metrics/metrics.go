package metrics

import (
	"maps"
	"slices"
)

// SessionMetrics is the normalized summary of one completed session. Which
// fields are set depends on the discipline family; an unknown discipline
// sets Discipline only.
type SessionMetrics struct {
	Discipline string `json:"discipline"`

	// Force
	VolumeKg  *float64 `json:"volume_kg,omitempty"`
	MaxWeight *float64 `json:"max_weight,omitempty"`
	SetsTotal *int     `json:"sets_total,omitempty"`
	RepsTotal *int     `json:"reps_total,omitempty"`
	Tonnage   *float64 `json:"tonnage,omitempty"`

	// Endurance
	DistanceKm        *float64       `json:"distance_km,omitempty"`
	PaceAvg           *string        `json:"pace_avg,omitempty"`
	PaceMin           *string        `json:"pace_min,omitempty"`
	PaceMax           *string        `json:"pace_max,omitempty"`
	TSS               *float64       `json:"tss,omitempty"`
	ZonesDistribution map[string]int `json:"zones_distribution,omitempty"`
	HeartRateAvg      *float64       `json:"heart_rate_avg,omitempty"`
	HeartRateMax      *float64       `json:"heart_rate_max,omitempty"`
	CadenceAvg        *float64       `json:"cadence_avg,omitempty"`
	PowerAvg          *float64       `json:"power_avg,omitempty"`
	ElevationGain     *float64       `json:"elevation_gain,omitempty"`

	// Both
	CaloriesEstimated *float64 `json:"calories_estimated,omitempty"`
	IntensityScore    *float64 `json:"intensity_score,omitempty"`
}

// HasForceMetrics reports whether any force field is non-zero.
func (m SessionMetrics) HasForceMetrics() bool {
	return (m.VolumeKg != nil && *m.VolumeKg != 0) || (m.SetsTotal != nil && *m.SetsTotal != 0)
}

// HasEnduranceMetrics reports whether distance or TSS is non-zero.
func (m SessionMetrics) HasEnduranceMetrics() bool {
	return (m.DistanceKm != nil && *m.DistanceKm != 0) || (m.TSS != nil && *m.TSS != 0)
}

// Family groups disciplines that share a metrics model.
type Family string

const (
	FamilyForce     Family = "force"
	FamilyEndurance Family = "endurance"
	FamilyOther     Family = "other"
)

var forceDisciplines = map[string]bool{
	"strength":     true,
	"powerlifting": true,
	"bodybuilding": true,
	"strongman":    true,
	"functional":   true,
	"crossfit":     true,
	"hiit":         true,
}

var enduranceDisciplines = map[string]bool{
	"running":   true,
	"cycling":   true,
	"swimming":  true,
	"triathlon": true,
	"cardio":    true,
}

// FamilyOf returns the family of a discipline. Matching is exact.
func FamilyOf(discipline string) Family {
	switch {
	case forceDisciplines[discipline]:
		return FamilyForce
	case enduranceDisciplines[discipline]:
		return FamilyEndurance
	}
	return FamilyOther
}

// Zones lists the intensity zones in order.
var Zones = []string{"Z1", "Z2", "Z3", "Z4", "Z5"}

// Disciplines lists the disciplines of a family in sorted order.
func Disciplines(f Family) []string {
	var set map[string]bool
	switch f {
	case FamilyForce:
		set = forceDisciplines
	case FamilyEndurance:
		set = enduranceDisciplines
	default:
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}
