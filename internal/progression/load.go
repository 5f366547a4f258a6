package progression

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

type loadKind uint8

const (
	loadAbsent loadKind = iota
	loadScalar
	loadPerSet
)

// Load is a prescribed working load. It is either a single value used for
// every set, a per-set sequence (ramping or pyramid schemes), or absent for
// bodyweight work. The zero value is absent.
//
// On the wire a Load is a JSON number, an array of numbers, or null.
type Load struct {
	kind   loadKind
	scalar float64
	perSet []float64
}

// Scalar returns a uniform load.
func Scalar(v float64) Load {
	return Load{kind: loadScalar, scalar: v}
}

// PerSet returns a per-set load sequence. The slice is copied.
func PerSet(v ...float64) Load {
	return Load{kind: loadPerSet, perSet: append([]float64(nil), v...)}
}

// IsZero reports whether the load is absent. It makes `omitzero` drop
// bodyweight loads from JSON output.
func (l Load) IsZero() bool { return l.kind == loadAbsent }

// IsPerSet reports whether the load is a per-set sequence.
func (l Load) IsPerSet() bool { return l.kind == loadPerSet }

// First returns the scalar value, or the first element of a sequence.
// Absent and empty loads return 0.
func (l Load) First() float64 {
	switch l.kind {
	case loadScalar:
		return l.scalar
	case loadPerSet:
		if len(l.perSet) > 0 {
			return l.perSet[0]
		}
	}
	return 0
}

// Values returns the load as a slice: one element for a scalar, a copy of
// the sequence otherwise, nil when absent.
func (l Load) Values() []float64 {
	switch l.kind {
	case loadScalar:
		return []float64{l.scalar}
	case loadPerSet:
		return append([]float64(nil), l.perSet...)
	}
	return nil
}

// Map applies fn to the scalar or to each element, keeping the shape.
func (l Load) Map(fn func(float64) float64) Load {
	switch l.kind {
	case loadScalar:
		return Scalar(fn(l.scalar))
	case loadPerSet:
		out := make([]float64, len(l.perSet))
		for i, v := range l.perSet {
			out[i] = fn(v)
		}
		return Load{kind: loadPerSet, perSet: out}
	}
	return l
}

// Equal reports whether two loads have the same shape and values.
func (l Load) Equal(o Load) bool {
	if l.kind != o.kind {
		return false
	}
	switch l.kind {
	case loadScalar:
		return l.scalar == o.scalar
	case loadPerSet:
		if len(l.perSet) != len(o.perSet) {
			return false
		}
		for i := range l.perSet {
			if l.perSet[i] != o.perSet[i] {
				return false
			}
		}
	}
	return true
}

func (l Load) String() string {
	switch l.kind {
	case loadScalar:
		return fmt.Sprintf("%g", l.scalar)
	case loadPerSet:
		return fmt.Sprintf("%g", l.perSet)
	}
	return "bodyweight"
}

// MarshalJSON implements json.Marshaler.
func (l Load) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case loadScalar:
		return json.Marshal(l.scalar)
	case loadPerSet:
		if l.perSet == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(l.perSet)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Load) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = Load{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var v []float64
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decoding per-set load: %w", err)
		}
		*l = PerSet(v...)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding load: %w", err)
	}
	*l = Scalar(v)
	return nil
}

// roundHalf rounds to the nearest 0.5, halves rounding up.
func roundHalf(v float64) float64 {
	return math.Floor(v*2+0.5) / 2
}

// loadStep is the plate-aware increment for a load of the given magnitude.
func loadStep(v float64) float64 {
	switch {
	case v < 20:
		return 2.5
	case v < 60:
		return 5
	default:
		return 10
	}
}
