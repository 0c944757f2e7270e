package simulation

// emissionFactor returns speed-banded emission factor in
// grams per kilometer: a deliberately simplified model (no physically calibrated emission curves), not a physical
// combustion estimate.
func emissionFactor(speedKmh float64) float64 {
	const base = 120.0
	switch {
	case speedKmh < 20:
		return base * 1.6
	case speedKmh < 40:
		return base * 1.2
	case speedKmh > 80:
		return base * 1.3
	default:
		return base
	}
}
