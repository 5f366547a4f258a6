package metrics

import (
	"math"

	"github.com/tidwall/gjson"
)

// number returns a JSON number and whether it is present and non-zero.
// Anything that is not a finite number reads as (0, false).
func number(v gjson.Result) (float64, bool) {
	if v.Type != gjson.Number || math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
		return 0, false
	}
	return v.Num, v.Num != 0
}

// truthy follows the record producer's notion of a set field: present, not
// null or false, not zero, not an empty string.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	}
	return false
}

func arrayOf(v gjson.Result) []gjson.Result {
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

// roundHalfUp rounds to the nearest integer, halves toward +Inf. Totals
// that overflowed to Inf or NaN read as 0.
func roundHalfUp(v float64) float64 {
	return math.Floor(finite(v) + 0.5)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func ptr[T any](v T) *T { return &v }
