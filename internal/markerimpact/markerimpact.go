// Package markerimpact applies user-placed markers onto the built road
// graph: construction zones reduce nearby edges' speed
// and capacity, facilities inject additional trip demand nearby.
//
// Proximity checks follow a hotspot-jitter idiom: deterministic geo
// distance tests driving a synthetic effect around each marker point,
// rather than a fixed coordinate list.
package markerimpact

import (
	"math"
	"math/rand"

	"github.com/smartcity/trafficsim/internal/demand"
	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
	"github.com/smartcity/trafficsim/internal/graph"
	"github.com/smartcity/trafficsim/internal/route"
)

const (
	constructionRadiusM = 500
	constructionOverrideP = 0.05
	facilityRadiusM = 200
	facilityDistantM = 1000
	facilityDepartWindow = 3600
)

// Result collects the observable side effects of applying markers, for
// the orchestrator to fold into the final metrics report.
type Result struct {
	ConstructionLog []domain.ConstructionImpact
	AffectedEdges int
	ExtraVehicles []domain.Vehicle
}

// Apply runs every marker's effect against g in order, skipping invalid
// markers and deduplicating facility markers by coordinate (rounded to 6
// decimals).
func Apply(g *graph.Graph, builder *route.Builder, markers []domain.Marker, densityPerKm2 float64, rng *rand.Rand) Result {
	var result Result
	affected := make(map[domain.EdgeID]struct{})
	seenFacilities := make(map[[2]int64]struct{})

	for _, m := range markers {
		if !m.Valid() {
			continue
		}
		switch m.Type {
		case domain.MarkerConstruction:
			applyConstruction(g, m, affected, &result, rng)
		case domain.MarkerFacility:
			key := roundedKey(m.Coordinate)
			if _, dup := seenFacilities[key]; dup {
				continue
			}
			seenFacilities[key] = struct{}{}
			applyFacility(g, builder, m, densityPerKm2, rng, &result)
		}
	}

	result.AffectedEdges = len(affected)
	return result
}

func applyConstruction(g *graph.Graph, m domain.Marker, affected map[domain.EdgeID]struct{}, result *Result, rng *rand.Rand) {
	for _, e := range g.Edges() {
		if len(e.Geometry) == 0 {
			continue
		}
		if _, already := affected[e.ID]; already {
			continue
		}
		if geo.Distance(m.Coordinate, e.Geometry[0]) > constructionRadiusM {
			continue
		}

		originalSpeed := e.FreeFlowSpeed
		newSpeed := math.Max(5, e.FreeFlowSpeed*0.4)
		newCapacity := math.Max(50, e.Capacity*0.6)
		if rng.Float64() < constructionOverrideP {
			newSpeed = 5
			newCapacity = 10
		}
		e.ApplyConstructionReduction(newSpeed, newCapacity)

		result.ConstructionLog = append(result.ConstructionLog, domain.ConstructionImpact{
			EdgeID: e.ID,
			OriginalSpeed: originalSpeed,
			ReducedSpeed: newSpeed,
		})
		affected[e.ID] = struct{}{}
	}
}

func applyFacility(g *graph.Graph, builder *route.Builder, m domain.Marker, densityPerKm2 float64, rng *rand.Rand, result *Result) {
	nearby := edgesWithin(g, m.Coordinate, facilityRadiusM)
	if len(nearby) == 0 {
		return
	}

	extra := int(math.Min(100, math.Round(densityPerKm2*4*0.05)))
	for i := 0; i < extra; i++ {
		origin := nearby[rng.Intn(len(nearby))]
		dest := builder.DistantEdge(origin, facilityDistantM)
		if dest == nil {
			continue
		}
		v, ok := demand.SpawnFromOrigin(g, builder, origin, dest, rng, facilityDepartWindow, 10, 0.6, 0)
		if !ok {
			continue
		}
		// Tagged so callers can distinguish facility-induced demand from
		// the base population-proportional demand.
		v.ID = "facility_trip_" + v.ID
		result.ExtraVehicles = append(result.ExtraVehicles, v)
	}
}

func edgesWithin(g *graph.Graph, point domain.Coordinate, radiusM float64) []*domain.Edge {
	var out []*domain.Edge
	for _, e := range g.Edges() {
		if len(e.Geometry) == 0 {
			continue
		}
		if geo.Distance(point, e.Geometry[0]) <= radiusM {
			out = append(out, e)
		}
	}
	return out
}

func roundedKey(c domain.Coordinate) [2]int64 {
	return [2]int64{int64(math.Round(c[0] * 1e6)), int64(math.Round(c[1] * 1e6))}
}
