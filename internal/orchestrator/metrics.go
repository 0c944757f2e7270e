package orchestrator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/graph"
	"github.com/smartcity/trafficsim/internal/markerimpact"
)

const vehicleSampleSize = 5

// noiseFraction is the ±5% stochastic variance step 8
// applies to every reported total, on both the simulated and the
// closed-form fallback path.
const noiseFraction = 0.05

func withNoise(value float64, rng *rand.Rand) float64 {
	return value * (1 + (rng.Float64()*2-1)*noiseFraction)
}

// assembleMetrics builds the final report from a completed simulation
// run.
func assembleMetrics(g *graph.Graph, vehicles []domain.Vehicle, congestionKm float64, traffic domain.TrafficSnapshot, population domain.PopulationData, impact markerimpact.Result, rng *rand.Rand) domain.FinalMetrics {
	var distanceM, emissionsG float64
	for _, v := range vehicles {
		distanceM += v.DistanceTraveledM
		emissionsG += v.EmissionsG
	}

	drivingDistanceKm := withNoise(distanceM/1000, rng)
	congestionLengthKm := withNoise(congestionKm, rng)
	co2Kg := withNoise(emissionsG/1000, rng)

	return domain.FinalMetrics{
		DrivingDistanceKm: drivingDistanceKm,
		CongestionLengthKm: congestionLengthKm,
		CO2EmissionsKg: co2Kg,
		DrivingDistanceLabel: fmt.Sprintf("%d km", int(math.Round(drivingDistanceKm))),
		CongestionLengthLabel: fmt.Sprintf("%.1f km", congestionLengthKm),
		CO2EmissionsLabel: fmt.Sprintf("%d kg", int(math.Round(co2Kg))),
		RoadsCount: g.EdgeCount(),
		NodesCount: g.NodeCount(),
		IncidentsCount: len(traffic.Incidents),
		AffectedEdges: impact.AffectedEdges,
		VehicleSample: vehicleSample(vehicles),
		ConstructionImpacts: impact.ConstructionLog,
		PopulationSummary: domain.PopulationSummary{
			Total: population.Total,
			DensityPerKm2: population.DensityPerKm2,
			EstimatedVehicles: population.EstimatedVehicles,
			Source: population.Source,
		},
		IsFallbackEstimate: false,
	}
}

// vehicleSample takes up to vehicleSampleSize vehicles, in ascending ID
// order. Vehicle IDs are random UUIDs not drawn from the run's RNG, so
// which vehicles are sampled is not reproducible from the seed alone.
func vehicleSample(vehicles []domain.Vehicle) []domain.VehicleSummary {
	sorted := make([]domain.Vehicle, len(vehicles))
	copy(sorted, vehicles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	n := vehicleSampleSize
	if len(sorted) < n {
		n = len(sorted)
	}
	sample := make([]domain.VehicleSummary, 0, n)
	for _, v := range sorted[:n] {
		sample = append(sample, domain.VehicleSummary{
			ID: v.ID,
			DistanceKm: v.DistanceTraveledM / 1000,
			EmissionsKg: v.EmissionsG / 1000,
			Arrived: v.ArrivalTimeS != nil,
		})
	}
	return sample
}
