package markerimpact

import (
	"math/rand"
	"testing"
	"time"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/graph"
	"github.com/smartcity/trafficsim/internal/route"
)

func smallGrid() []domain.Road {
	var roads []domain.Road
	for i := 0; i < 6; i++ {
		lng0 := float64(i) * 0.002
		lng1 := float64(i+1) * 0.002
		roads = append(roads, domain.Road{
			ID:       string(rune('a' + i)),
			NodeIDs:  []int64{int64(i + 1), int64(i + 2)},
			Tags:     map[string]string{"highway": "residential"},
			Geometry: []domain.Coordinate{{lng0, 0}, {lng1, 0}},
		})
	}
	return roads
}

func TestApplyConstructionReducesNearbyEdges(t *testing.T) {
	g, _ := graph.Build(smallGrid())
	b := route.New(g, rand.New(rand.NewSource(1)))
	marker := domain.Marker{ID: "m1", Type: domain.MarkerConstruction, Coordinate: domain.Coordinate{0, 0}, CreatedAt: time.Now()}

	res := Apply(g, b, []domain.Marker{marker}, 4000, rand.New(rand.NewSource(1)))
	if len(res.ConstructionLog) == 0 {
		t.Fatal("expected at least one edge affected by construction marker")
	}
	for _, entry := range res.ConstructionLog {
		e, ok := g.Edge(entry.EdgeID)
		if !ok {
			t.Fatalf("logged edge %s not found in graph", entry.EdgeID)
		}
		if !e.ConstructionAffected {
			t.Errorf("edge %s should be marked construction affected", entry.EdgeID)
		}
		if e.FreeFlowSpeed < 5 || e.Capacity < 10 {
			t.Errorf("edge %s violates post-reduction invariants: speed=%f capacity=%f", entry.EdgeID, e.FreeFlowSpeed, e.Capacity)
		}
	}
	if res.AffectedEdges != len(res.ConstructionLog) {
		t.Errorf("affected count %d should match log length %d", res.AffectedEdges, len(res.ConstructionLog))
	}
}

func TestApplyFacilityInjectsVehiclesWhenNearbyEdgesExist(t *testing.T) {
	g, _ := graph.Build(smallGrid())
	b := route.New(g, rand.New(rand.NewSource(2)))
	marker := domain.Marker{ID: "m2", Type: domain.MarkerFacility, Coordinate: domain.Coordinate{0.002, 0}, CreatedAt: time.Now()}

	res := Apply(g, b, []domain.Marker{marker}, 8000, rand.New(rand.NewSource(2)))
	if len(res.ExtraVehicles) == 0 {
		t.Fatal("expected facility marker to inject extra vehicles at density 8000/km2")
	}
	for _, v := range res.ExtraVehicles {
		if v.SpeedKmh < 10 {
			t.Errorf("vehicle %s speed %f below facility floor", v.ID, v.SpeedKmh)
		}
		if v.DepartTimeS < 0 || v.DepartTimeS > facilityDepartWindow {
			t.Errorf("vehicle %s depart time %d out of facility window", v.ID, v.DepartTimeS)
		}
	}
}

func TestApplyFacilityDeduplicatesByRoundedCoordinate(t *testing.T) {
	g, _ := graph.Build(smallGrid())
	b := route.New(g, rand.New(rand.NewSource(3)))
	coord := domain.Coordinate{0.002, 0}
	markers := []domain.Marker{
		{ID: "f1", Type: domain.MarkerFacility, Coordinate: coord, CreatedAt: time.Now()},
		{ID: "f2", Type: domain.MarkerFacility, Coordinate: coord, CreatedAt: time.Now()},
	}

	res := Apply(g, b, markers, 8000, rand.New(rand.NewSource(3)))
	single := Apply(g, b, markers[:1], 8000, rand.New(rand.NewSource(3)))
	if len(res.ExtraVehicles) != len(single.ExtraVehicles) {
		t.Fatalf("duplicate facility marker should not double vehicle count: got %d vs %d", len(res.ExtraVehicles), len(single.ExtraVehicles))
	}
}

func TestApplySkipsInvalidMarkers(t *testing.T) {
	g, _ := graph.Build(smallGrid())
	b := route.New(g, rand.New(rand.NewSource(4)))
	invalid := domain.Marker{ID: "bad", Type: "unknown", Coordinate: domain.Coordinate{0, 0}}

	res := Apply(g, b, []domain.Marker{invalid}, 4000, rand.New(rand.NewSource(4)))
	if len(res.ConstructionLog) != 0 || len(res.ExtraVehicles) != 0 {
		t.Fatal("expected invalid marker to produce no effect")
	}
}
