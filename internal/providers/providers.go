// Package providers defines the three pluggable upstream data sources
// treated as external collaborators (road topology, real-time traffic,
// population), each with a deterministic fallback used when the real
// upstream is unavailable or unconfigured.
package providers

import (
	"context"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
)

// NetworkData is the road-topology response from the mapping upstream.
type NetworkData struct {
	Roads []domain.Road
}

// RoadNetworkProvider fetches the road topology around a center point.
type RoadNetworkProvider interface {
	FetchRoadNetwork(ctx context.Context, center domain.Coordinate, radiusKm float64) (NetworkData, error)
}

// TrafficProvider fetches live traffic flow/incidents for a bounding box.
type TrafficProvider interface {
	FetchTraffic(ctx context.Context, bbox geo.BBox) (domain.TrafficSnapshot, error)
}

// PopulationProvider fetches population statistics for a bounding box.
type PopulationProvider interface {
	FetchPopulation(ctx context.Context, bbox geo.BBox) (domain.PopulationData, error)
}
