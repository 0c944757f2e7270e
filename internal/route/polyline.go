package route

import (
	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
	"github.com/smartcity/trafficsim/internal/graph"
)

// Polyline builds the densified route-coordinates for a multi-edge
// route: each edge's geometry is densified independently
// at stepM, then concatenated, dropping the first point of every edge
// after the first to avoid duplicates at joins.
func Polyline(g *graph.Graph, edgeIDs []domain.EdgeID, stepM float64) []domain.Coordinate {
	var out []domain.Coordinate
	for i, id := range edgeIDs {
		e, ok := g.Edge(id)
		if !ok {
			continue
		}
		densified := geo.Densify(e.Geometry, stepM)
		if i > 0 && len(densified) > 0 {
			densified = densified[1:]
		}
		out = append(out, densified...)
	}
	return out
}

// Length sums the edge lengths of a route (route_length_m).
func Length(g *graph.Graph, edgeIDs []domain.EdgeID) float64 {
	total := 0.0
	for _, id := range edgeIDs {
		if e, ok := g.Edge(id); ok {
			total += e.LengthM
		}
	}
	return total
}
