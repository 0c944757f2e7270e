// Package demand converts population and congestion inputs into a
// concrete vehicle population for one simulation run.
//
// Grounded on jwmdev-brt08/backend/sim/simulator.go's passenger-arrival
// generation idiom (a seeded *rand.Rand driving a fixed-size generation
// loop that discards degenerate draws) adapted from Poisson passenger
// arrivals to the uniform depart-time/route-length model.
package demand

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/graph"
	"github.com/smartcity/trafficsim/internal/route"
)

const (
	maxDemand = 500
	minRouteLengthM = 200
	densifyStepM = 5
	distantMinMeters = 2000
	departWindowS = 2400
)

// Generate produces the vehicle population for a run:
// raw = round(estimated_vehicles * peak_hour_factor * traffic_multiplier),
// capped at 500, each assigned a random origin/destination pair, a
// random-walk route, a densified polyline and an initial speed.
func Generate(g *graph.Graph, builder *route.Builder, population domain.PopulationData, traffic domain.TrafficSnapshot, rng *rand.Rand) []domain.Vehicle {
	edges := g.Edges()
	if len(edges) == 0 {
		return nil
	}

	raw := math.Round(float64(population.EstimatedVehicles) * population.PeakHourFactor * traffic.CongestionLevel.TrafficMultiplier())
	count := int(math.Min(raw, maxDemand))
	if count <= 0 {
		return nil
	}

	vehicles := make([]domain.Vehicle, 0, count)
	for i := 0; i < count; i++ {
		origin := edges[rng.Intn(len(edges))]
		dest := builder.DistantEdge(origin, distantMinMeters)
		if dest == nil {
			continue
		}
		v, ok := SpawnFromOrigin(g, builder, origin, dest, rng, departWindowS, 15, 0.6, 0.4)
		if !ok {
			continue
		}
		vehicles = append(vehicles, v)
	}
	return vehicles
}

// SpawnFromOrigin builds one vehicle's route from origin toward dest,
// densifies its polyline and assigns an initial speed of
// max(minSpeedKmh, origin.free_flow_speed * (speedBase + U(0,speedSpread))).
// Returns false if the resulting route is too short to keep (// route_length_m < 200 is discarded). Shared by the demand generator and
// the facility marker-impact trip injector, which differ
// only in origin pool, distant-edge threshold and depart-time window.
func SpawnFromOrigin(g *graph.Graph, builder *route.Builder, origin, dest *domain.Edge, rng *rand.Rand, departWindowS int, minSpeedKmh, speedBase, speedSpread float64) (domain.Vehicle, bool) {
	var edgeIDs []domain.EdgeID
	if origin.ID == dest.ID {
		edgeIDs = []domain.EdgeID{origin.ID}
	} else {
		edgeIDs = builder.BuildRoute(origin, dest)
	}

	routeLength := route.Length(g, edgeIDs)
	if routeLength < minRouteLengthM {
		return domain.Vehicle{}, false
	}

	polyline := route.Polyline(g, edgeIDs, densifyStepM)
	speed := math.Max(minSpeedKmh, origin.FreeFlowSpeed*(speedBase+rng.Float64()*speedSpread))

	return domain.Vehicle{
		ID: uuid.New().String(),
		Route: edgeIDs,
		RouteCoordinates: polyline,
		RouteLengthM: routeLength,
		DepartTimeS: rng.Intn(departWindowS + 1),
		SpeedKmh: speed,
		CurrentEdgeProgress: 0,
	}, true
}
