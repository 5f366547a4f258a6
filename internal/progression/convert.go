package progression

import (
	"log/slog"
	"math"
	"strings"
)

// DefaultRatio is used when no table entry relates the two exercises:
// roughly 70% of the comparable exercise's load.
const DefaultRatio = 0.7

// Ratio relates the loads of two exercises: load(B) = Ratio * load(A).
type Ratio struct {
	ExerciseA string  `json:"exercise_a"`
	ExerciseB string  `json:"exercise_b"`
	Ratio     float64 `json:"ratio"`
}

// ratioTable is scanned in order; the first matching entry wins.
var ratioTable = []Ratio{
	{ExerciseA: "Squat", ExerciseB: "Fentes Bulgares", Ratio: 0.6},
	{ExerciseA: "Squat", ExerciseB: "Goblet Squat", Ratio: 0.5},
	{ExerciseA: "Squat", ExerciseB: "Front Squat", Ratio: 0.85},
	{ExerciseA: "Développé Couché", ExerciseB: "Développé Incliné", Ratio: 0.85},
	{ExerciseA: "Développé Couché", ExerciseB: "Pompes", Ratio: 0},
	{ExerciseA: "Soulevé de Terre", ExerciseB: "Romanian Deadlift", Ratio: 0.8},
	{ExerciseA: "Traction", ExerciseB: "Tirage Vertical", Ratio: 0.7},
	{ExerciseA: "Développé Militaire", ExerciseB: "Élévations Latérales", Ratio: 0.4},
}

// Confidence tells whether a conversion came from the ratio table.
type Confidence string

const (
	ConfidenceMatched  Confidence = "matched"
	ConfidenceFallback Confidence = "fallback"
)

// Conversion is the result of converting a load between two exercises.
type Conversion struct {
	Value      Load       `json:"value"`
	Ratio      float64    `json:"ratio"`
	Confidence Confidence `json:"confidence"`
}

// Converter estimates equivalent loads between related exercises.
type Converter struct {
	ratios []Ratio
	log    *slog.Logger
}

// NewConverter creates a Converter backed by the built-in ratio table.
func NewConverter(log *slog.Logger) *Converter {
	return &Converter{ratios: ratioTable, log: log}
}

// Ratios returns a copy of the ratio table in match order.
func (c *Converter) Ratios() []Ratio {
	return append([]Ratio(nil), c.ratios...)
}

// Convert maps a load for fromExercise to an equivalent load for
// toExercise. The result cannot tell a table match from the default ratio;
// use ConvertWithConfidence when that matters.
func (c *Converter) Convert(fromExercise, toExercise string, load Load) Load {
	return c.ConvertWithConfidence(fromExercise, toExercise, load).Value
}

// ConvertWithConfidence is Convert with the applied ratio and whether it
// came from the table.
func (c *Converter) ConvertWithConfidence(fromExercise, toExercise string, load Load) Conversion {
	ratio, ok := c.findRatio(normalizeExerciseName(fromExercise), normalizeExerciseName(toExercise))
	if !ok {
		c.log.Warn("no conversion ratio found, using default",
			"from", fromExercise, "to", toExercise, "ratio", DefaultRatio)
		return Conversion{Value: applyRatio(load, DefaultRatio), Ratio: DefaultRatio, Confidence: ConfidenceFallback}
	}

	result := applyRatio(load, ratio)
	c.log.Debug("converting load between exercises",
		"from", fromExercise, "to", toExercise, "load", load.String(), "ratio", ratio, "result", result.String())
	return Conversion{Value: result, Ratio: ratio, Confidence: ConfidenceMatched}
}

// findRatio expects normalized names. A reverse match on a zero ratio has no
// inverse and is reported as not found.
func (c *Converter) findRatio(from, to string) (float64, bool) {
	for _, r := range c.ratios {
		a := normalizeExerciseName(r.ExerciseA)
		b := normalizeExerciseName(r.ExerciseB)

		forward := strings.Contains(a, from) && strings.Contains(b, to)
		reverse := strings.Contains(b, from) && strings.Contains(a, to)
		if !forward && !reverse {
			continue
		}

		if strings.Contains(a, from) {
			return r.Ratio, true
		}
		if r.Ratio == 0 {
			return 0, false
		}
		return 1 / r.Ratio, true
	}
	return 0, false
}

// Only the French accents é, è, ê, à and â are folded. Widening this set
// would change which table entries match.
var accentReplacer = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e",
	"à", "a", "â", "a",
)

func normalizeExerciseName(name string) string {
	s := accentReplacer.Replace(strings.ToLower(name))
	return strings.Join(strings.Fields(s), " ")
}

func applyRatio(load Load, ratio float64) Load {
	return load.Map(func(v float64) float64 {
		return math.Floor(v*ratio*2+0.5) / 2
	})
}
