package graph

import (
	"github.com/pkg/errors"
	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
)

// Build constructs the road graph from raw roads: skip
// roads with <2 geometry points or an excluded highway class, compute
// length as the sum of great-circle segment distances, derive lanes/
// speed/capacity from the highway-class table, and emit one Edge per
// surviving road.
//
// Error wrapping in this package follows LdDl-osm2ch's OSM-ingestion
// idiom (github.com/pkg/errors) rather than the rest of the codebase's
// fmt.Errorf("%w",...) style, since this is the one component doing
// real map-data ingestion.
func Build(roads []domain.Road) (*Graph, error) {
	if roads == nil {
		return nil, errors.New("graph: nil road list")
	}
	g := New()
	for _, r := range roads {
		if len(r.Geometry) < 2 {
			continue
		}
		if r.Excluded() {
			continue
		}
		edge, err := buildEdge(r)
		if err != nil {
			return nil, errors.Wrapf(err, "graph: road %s", r.ID)
		}
		g.addEdge(edge)
	}
	return g, nil
}

func buildEdge(r domain.Road) (*domain.Edge, error) {
	length := geo.PolylineLength(r.Geometry)
	if length <= 0 {
		return nil, errors.New("zero-length geometry")
	}
	lanes := r.Lanes()
	profile := profileFor(r.Highway())
	capacity := profile.baseCapacity * float64(lanes)

	from, to := endpointNodes(r)

	return &domain.Edge{
		ID: domain.EdgeID(r.ID),
		FromNode: from,
		ToNode: to,
		Lanes: lanes,
		FreeFlowSpeed: profile.speedKmh,
		LengthM: length,
		Capacity: capacity,
		Geometry: r.Geometry,
		Highway: r.Highway(),
	}, nil
}

// endpointNodes derives the from/to node ids for a road. When the
// upstream supplies at least two node ids, the first and last are used
// directly; otherwise endpoints are synthesized deterministically from
// the truncated coordinate, so two roads sharing a physical intersection
// still resolve to the same node id.
func endpointNodes(r domain.Road) (domain.NodeID, domain.NodeID) {
	if len(r.NodeIDs) >= 2 {
		return domain.NodeID(r.NodeIDs[0]), domain.NodeID(r.NodeIDs[len(r.NodeIDs)-1])
	}
	return coordNodeID(r.Geometry[0]), coordNodeID(r.Geometry[len(r.Geometry)-1])
}

// coordNodeID hashes a coordinate truncated to 6 decimal places into a
// stable node id.
func coordNodeID(c domain.Coordinate) domain.NodeID {
	lng := int64(geoRound(c[0]))
	lat := int64(geoRound(c[1]))
	return domain.NodeID(lng*1_000_000_007 + lat)
}

func geoRound(v float64) float64 {
	return float64(int64(v*1e6)) // truncate to 6 decimal places
}
