package simulation

import (
	"context"
	"testing"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/graph"
)

func straightRoads(n int) []domain.Road {
	var roads []domain.Road
	for i := 0; i < n; i++ {
		lng0 := float64(i) * 0.01
		lng1 := float64(i+1) * 0.01
		roads = append(roads, domain.Road{
			ID:       string(rune('a' + i)),
			NodeIDs:  []int64{int64(i + 1), int64(i + 2)},
			Tags:     map[string]string{"highway": "primary"},
			Geometry: []domain.Coordinate{{lng0, 0}, {lng1, 0}},
		})
	}
	return roads
}

func oneVehicle(route []domain.EdgeID, routeLengthM float64, coords []domain.Coordinate) domain.Vehicle {
	return domain.Vehicle{
		ID:               "v1",
		Route:            route,
		RouteCoordinates: coords,
		RouteLengthM:     routeLengthM,
		DepartTimeS:      0,
		SpeedKmh:         0,
	}
}

func TestAdvanceMovesVehicleAlongEdge(t *testing.T) {
	g, err := graph.Build(straightRoads(2))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	edgeA, _ := g.Edge("a")
	edgeB, _ := g.Edge("b")
	coords := append(append([]domain.Coordinate{}, edgeA.Geometry...), edgeB.Geometry[1:]...)

	v := oneVehicle([]domain.EdgeID{"a", "b"}, edgeA.LengthM+edgeB.LengthM, coords)
	sim := New(g, []domain.Vehicle{v}, domain.TrafficSnapshot{})

	occupancy := map[domain.EdgeID]int{"a": 1}
	for tick := 0; tick < 600; tick += 10 {
		sim.advance(&sim.Vehicles[0], tick, 10, occupancy)
	}

	if sim.Vehicles[0].DistanceTraveledM <= 0 {
		t.Fatal("expected vehicle to have moved")
	}
}

func TestAdvanceSetsArrivalWhenRouteExhausted(t *testing.T) {
	g, _ := graph.Build(straightRoads(1))
	edgeA, _ := g.Edge("a")
	v := oneVehicle([]domain.EdgeID{"a"}, edgeA.LengthM, edgeA.Geometry)
	v.SpeedKmh = 70
	sim := New(g, []domain.Vehicle{v}, domain.TrafficSnapshot{})

	occupancy := map[domain.EdgeID]int{"a": 1}
	for tick := 0; tick < 3600 && sim.Vehicles[0].ArrivalTimeS == nil; tick += 10 {
		sim.advance(&sim.Vehicles[0], tick, 10, occupancy)
	}

	if sim.Vehicles[0].ArrivalTimeS == nil {
		t.Fatal("expected vehicle to arrive on a single short edge")
	}
}

func TestHighUtilizationReducesTargetSpeed(t *testing.T) {
	g, _ := graph.Build(straightRoads(1))
	edgeA, _ := g.Edge("a")
	v := oneVehicle([]domain.EdgeID{"a"}, edgeA.LengthM, edgeA.Geometry)
	v.SpeedKmh = edgeA.FreeFlowSpeed

	sim := New(g, []domain.Vehicle{v}, domain.TrafficSnapshot{})
	heavyOccupancy := map[domain.EdgeID]int{"a": 1000}
	sim.advance(&sim.Vehicles[0], 0, 10, heavyOccupancy)

	if sim.Vehicles[0].SpeedKmh >= edgeA.FreeFlowSpeed {
		t.Errorf("expected congested edge to reduce speed below free flow, got %f (free flow %f)", sim.Vehicles[0].SpeedKmh, edgeA.FreeFlowSpeed)
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	g, _ := graph.Build(straightRoads(3))
	sim := New(g, nil, domain.TrafficSnapshot{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_ = sim.Run(ctx, 60,
		func(int, int) { called = true },
		func(domain.LiveSnapshot) { called = true },
	)
	if called {
		t.Fatal("expected a cancelled run to stop before any progress or live callback")
	}
}

func TestBuildSnapshotCapsSampleAndSegments(t *testing.T) {
	g, _ := graph.Build(straightRoads(1))
	edgeA, _ := g.Edge("a")

	vehicles := make([]domain.Vehicle, 0, 80)
	for i := 0; i < 80; i++ {
		v := oneVehicle([]domain.EdgeID{"a"}, edgeA.LengthM, edgeA.Geometry)
		v.ID = string(rune('a' + (i % 26)))
		v.SpeedKmh = 20
		vehicles = append(vehicles, v)
	}
	sim := New(g, vehicles, domain.TrafficSnapshot{})

	occupancy := sim.occupancyByEdge(0)
	snap := sim.BuildSnapshot(0, occupancy)
	if len(snap.Vehicles) > liveSnapshotMaxVehicles {
		t.Errorf("expected at most %d sampled vehicles, got %d", liveSnapshotMaxVehicles, len(snap.Vehicles))
	}
	if len(snap.CongestionSegments) > congestionSegmentCap {
		t.Errorf("expected at most %d congestion segments, got %d", congestionSegmentCap, len(snap.CongestionSegments))
	}
}

func TestEmissionFactorBands(t *testing.T) {
	if emissionFactor(10) != 120*1.6 {
		t.Errorf("expected low-speed band, got %f", emissionFactor(10))
	}
	if emissionFactor(30) != 120*1.2 {
		t.Errorf("expected mid-low band, got %f", emissionFactor(30))
	}
	if emissionFactor(50) != 120 {
		t.Errorf("expected base band, got %f", emissionFactor(50))
	}
	if emissionFactor(90) != 120*1.3 {
		t.Errorf("expected high-speed band, got %f", emissionFactor(90))
	}
}
