package progression

import (
	"errors"
	"fmt"
)

// Prescription bounds.
const (
	MinSets = 1
	MaxSets = 8
	MinReps = 1
	MaxReps = 20

	repsStep = 2
)

// ErrNoLoad is returned when a load adjustment is requested for an exercise
// without a load (bodyweight work).
var ErrNoLoad = errors.New("exercise has no load")

// ErrRepsProgression is returned when a reps adjustment is requested for
// an exercise prescribed set by set with repsProgression. Its metrics
// follow the progression, which a single reps step cannot change.
var ErrRepsProgression = errors.New("exercise prescribes reps per set")

// AdjustmentType names a single-step change to a prescription.
type AdjustmentType string

const (
	LoadIncrease AdjustmentType = "load_increase"
	LoadDecrease AdjustmentType = "load_decrease"
	SetsIncrease AdjustmentType = "sets_increase"
	SetsDecrease AdjustmentType = "sets_decrease"
	RepsIncrease AdjustmentType = "reps_increase"
	RepsDecrease AdjustmentType = "reps_decrease"
)

// ParseAdjustmentType validates an adjustment type name.
func ParseAdjustmentType(s string) (AdjustmentType, error) {
	switch t := AdjustmentType(s); t {
	case LoadIncrease, LoadDecrease, SetsIncrease, SetsDecrease, RepsIncrease, RepsDecrease:
		return t, nil
	}
	return "", fmt.Errorf("unknown adjustment type %q", s)
}

// Adjustment describes one applied step. Amount is never negative.
type Adjustment struct {
	OldValue Load           `json:"old_value"`
	NewValue Load           `json:"new_value"`
	Amount   float64        `json:"adjustment"`
	Type     AdjustmentType `json:"adjustment_type"`
}

// Exercise is one prescribed exercise as it appears in a session
// prescription.
type Exercise struct {
	Name            string `json:"name"`
	Sets            int    `json:"sets"`
	Reps            int    `json:"reps,omitempty"`
	RepsProgression []int  `json:"repsProgression,omitempty"`
	Load            Load   `json:"load,omitzero"`
}

func IncreaseSets(current int) Adjustment {
	next := min(current+1, MaxSets)
	return intAdjustment(current, next, SetsIncrease)
}

func DecreaseSets(current int) Adjustment {
	next := max(current-1, MinSets)
	return intAdjustment(current, next, SetsDecrease)
}

func IncreaseReps(current int) Adjustment {
	next := min(current+repsStep, MaxReps)
	return intAdjustment(current, next, RepsIncrease)
}

func DecreaseReps(current int) Adjustment {
	next := max(current-repsStep, MinReps)
	return intAdjustment(current, next, RepsDecrease)
}

func intAdjustment(old, next int, t AdjustmentType) Adjustment {
	amount := next - old
	if amount < 0 {
		amount = -amount
	}
	return Adjustment{
		OldValue: Scalar(float64(old)),
		NewValue: Scalar(float64(next)),
		Amount:   float64(amount),
		Type:     t,
	}
}

// IncreaseLoad adds one tiered step to the load. For a per-set sequence the
// step is chosen from the first set and applied to every set, so the shape
// of the ramp is preserved.
func IncreaseLoad(current Load) (Adjustment, error) {
	if current.IsZero() {
		return Adjustment{}, ErrNoLoad
	}
	step := loadStep(current.First())
	return Adjustment{
		OldValue: current,
		NewValue: current.Map(func(v float64) float64 { return v + step }),
		Amount:   step,
		Type:     LoadIncrease,
	}, nil
}

// DecreaseLoad removes one tiered step, never going below zero.
func DecreaseLoad(current Load) (Adjustment, error) {
	if current.IsZero() {
		return Adjustment{}, ErrNoLoad
	}
	step := loadStep(current.First())
	return Adjustment{
		OldValue: current,
		NewValue: current.Map(func(v float64) float64 { return max(v-step, 0) }),
		Amount:   step,
		Type:     LoadDecrease,
	}, nil
}

// ApplyAdjustment applies one step of the given type to ex in place.
func ApplyAdjustment(ex *Exercise, t AdjustmentType) (Adjustment, error) {
	var (
		adj Adjustment
		err error
	)
	switch t {
	case SetsIncrease:
		adj = IncreaseSets(ex.Sets)
		ex.Sets = int(adj.NewValue.First())
	case SetsDecrease:
		adj = DecreaseSets(ex.Sets)
		ex.Sets = int(adj.NewValue.First())
	case RepsIncrease, RepsDecrease:
		if len(ex.RepsProgression) > 0 {
			err = ErrRepsProgression
			break
		}
		if t == RepsIncrease {
			adj = IncreaseReps(ex.Reps)
		} else {
			adj = DecreaseReps(ex.Reps)
		}
		ex.Reps = int(adj.NewValue.First())
	case LoadIncrease:
		adj, err = IncreaseLoad(ex.Load)
	case LoadDecrease:
		adj, err = DecreaseLoad(ex.Load)
	default:
		return Adjustment{}, fmt.Errorf("unknown adjustment type %q", t)
	}
	if err != nil {
		return Adjustment{}, fmt.Errorf("%s on %q: %w", t, ex.Name, err)
	}
	if t == LoadIncrease || t == LoadDecrease {
		ex.Load = adj.NewValue
	}
	return adj, nil
}
