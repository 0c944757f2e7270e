package domain

// PopulationSource records which upstream tier produced a PopulationData
// reading.
type PopulationSource string

const (
	PopulationPrimary PopulationSource = "primary"
	PopulationRegionalFallback PopulationSource = "regional_fallback"
	PopulationEstimate PopulationSource = "estimate"
)

// AgeDistribution buckets the working-age breakdown of the population
// estimate. Percentages, not counts.
type AgeDistribution struct {
	Under18 float64 `json:"under_18"`
	Age18To64 float64 `json:"age_18_64"`
	Over64 float64 `json:"over_64"`
}

// PopulationData is the read-only external population input.
type PopulationData struct {
	Total int `json:"total"`
	DensityPerKm2 float64 `json:"density_per_km2"`
	EstimatedVehicles int `json:"estimated_vehicles"`
	PeakHourFactor float64 `json:"peak_hour_factor"`
	AgeDistribution AgeDistribution `json:"age_distribution"`
	WorkingPopulation int `json:"working_population"`
	Source PopulationSource `json:"source"`
}
