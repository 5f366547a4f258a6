package progression

// warmupShare is the fraction of sets used to ramp up to the working load.
const warmupShare = 0.4

// RampLoad builds a per-set load sequence that climbs to baseLoad. Three or
// fewer sets stay flat. Otherwise the first max(1, floor(sets*0.4)) sets are
// warm-ups stepping down from baseLoad by the tiered increment, never below
// half of baseLoad. Values are rounded to the nearest 0.5.
func RampLoad(baseLoad float64, sets int) []float64 {
	if sets <= 0 {
		return []float64{}
	}

	loads := make([]float64, 0, sets)
	if sets <= 3 {
		for range sets {
			loads = append(loads, roundHalf(baseLoad))
		}
		return loads
	}

	step := loadStep(baseLoad)
	warmups := max(1, int(float64(sets)*warmupShare))
	floor := baseLoad * 0.5

	for i := range warmups {
		load := baseLoad - float64(warmups-i)*step
		loads = append(loads, roundHalf(max(load, floor)))
	}
	for range sets - warmups {
		loads = append(loads, roundHalf(baseLoad))
	}
	return loads
}
