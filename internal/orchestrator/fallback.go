package orchestrator

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/smartcity/trafficsim/internal/domain"
)

// Closed-form fallback baseline and per-marker contributions
//. Used whenever the
// upstream graph/provider pipeline cannot produce a real simulation.
const (
	baselineDistanceKm = 385.0
	baselineCongestionKm = 0.8
	baselineCO2Kg = 72.0

	constructionDistanceKm = 15.0
	constructionCongestionKm = 0.8
	constructionCO2Kg = 12.0

	facilityDistanceKm = 8.0
	facilityCongestionKm = 0.3
	facilityCO2Kg = 6.0
)

// closedFormFallback estimates totals directly from marker counts,
// skipping the graph/demand/simulation pipeline entirely. It still
// applies the same ±5% variance so a fallback response is shaped the
// same way as a simulated one (is_fallback_estimate
// true, empty construction_impacts and vehicle_sample).
func (o *Orchestrator) closedFormFallback(markers []domain.Marker, durationMinutes int, radiusKm float64) domain.SimulationResult {
	var constructionCount, facilityCount int
	for _, m := range markers {
		if !m.Valid() {
			continue
		}
		switch m.Type {
		case domain.MarkerConstruction:
			constructionCount++
		case domain.MarkerFacility:
			facilityCount++
		}
	}

	distanceKm := baselineDistanceKm + float64(constructionCount)*constructionDistanceKm + float64(facilityCount)*facilityDistanceKm
	congestionKm := baselineCongestionKm + float64(constructionCount)*constructionCongestionKm + float64(facilityCount)*facilityCongestionKm
	co2Kg := baselineCO2Kg + float64(constructionCount)*constructionCO2Kg + float64(facilityCount)*facilityCO2Kg

	distanceKm = withNoise(distanceKm, o.RNG)
	congestionKm = withNoise(congestionKm, o.RNG)
	co2Kg = withNoise(co2Kg, o.RNG)

	metrics := domain.FinalMetrics{
		DrivingDistanceKm: distanceKm,
		CongestionLengthKm: congestionKm,
		CO2EmissionsKg: co2Kg,
		DrivingDistanceLabel: fmt.Sprintf("%d km", int(math.Round(distanceKm))),
		CongestionLengthLabel: fmt.Sprintf("%.1f km", congestionKm),
		CO2EmissionsLabel: fmt.Sprintf("%d kg", int(math.Round(co2Kg))),
		PopulationSummary: domain.PopulationSummary{Source: domain.PopulationEstimate},
		IsFallbackEstimate: true,
	}

	return domain.SimulationResult{
		ID: uuid.New().String(),
		Metrics: metrics,
		Markers: markers,
		Duration: durationMinutes,
		Radius: radiusKm,
	}
}
