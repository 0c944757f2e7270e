// Package simulation runs the discrete-time microsimulation core:
// a fixed-state-size tick loop advancing every active vehicle, with
// periodic congestion sampling and live-snapshot emission hooks.
//
// Grounded on jwmdev-brt08/backend/sim/simulator.go's Simulator (owned
// RNG-free mutable state, a RunOnce-style driving loop advancing
// simulated time in discrete increments) generalized from a single bus
// on fixed stops to many independently-routed vehicles over a graph.
package simulation

import (
	"context"
	"math"
	"sort"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
	"github.com/smartcity/trafficsim/internal/graph"
)

const (
	highActivityThreshold = 100
	fineStepS = 1
	coarseStepS = 10
	congestionSampleEveryS = 300
	liveSnapshotEveryS = 10
	progressLogEveryS = 600
	liveSnapshotMaxVehicles = 50
	congestionSegmentCap = 20
)

// ProgressLogger receives a human-readable progress line every 600
// simulated seconds.
type ProgressLogger func(tS, activeVehicles int)

// LiveEmitter receives a live snapshot every 10 simulated seconds, when
// a subscriber is attached. The simulation
// loop never blocks on it — the stream hub owns non-blocking delivery.
type LiveEmitter func(domain.LiveSnapshot)

// Simulation owns the mutable per-run state: vehicles, the read-only
// graph and traffic snapshot, and bookkeeping for congestion sampling.
type Simulation struct {
	Graph *graph.Graph
	Vehicles []domain.Vehicle
	Traffic domain.TrafficSnapshot

	congestionSamplesKm []float64
}

// New creates a simulation over a built graph, a generated vehicle
// population and the traffic snapshot used for speed caps.
func New(g *graph.Graph, vehicles []domain.Vehicle, traffic domain.TrafficSnapshot) *Simulation {
	return &Simulation{Graph: g, Vehicles: vehicles, Traffic: traffic}
}

// Run advances the simulation from t=0 until durationMinutes*60
// simulated seconds have elapsed, or ctx is cancelled at a tick
// boundary (cancellation stops the loop at the next tick).
// Returns the averaged instantaneous congestion length in km
// (sum of periodic samples / (duration_minutes/5)).
func (s *Simulation) Run(ctx context.Context, durationMinutes int, onLog ProgressLogger, onLive LiveEmitter) float64 {
	durationS := durationMinutes * 60
	nextCongestionSampleAt := congestionSampleEveryS
	nextLiveSnapshotAt := liveSnapshotEveryS
	nextProgressLogAt := progressLogEveryS

	for t := 0; t < durationS; {
		select {
		case <-ctx.Done():
			return s.averageCongestion(durationMinutes)
		default:
		}

		active := s.activeCount(t)
		dt := coarseStepS
		if active > highActivityThreshold {
			dt = fineStepS
		}

		occupancy := s.occupancyByEdge(t)
		for i := range s.Vehicles {
			v := &s.Vehicles[i]
			if v.State(t) != domain.VehicleActive {
				continue
			}
			s.advance(v, t, dt, occupancy)
		}

		if t >= nextCongestionSampleAt {
			s.congestionSamplesKm = append(s.congestionSamplesKm, s.instantaneousCongestionKm(occupancy))
			nextCongestionSampleAt += congestionSampleEveryS
		}
		if onLive != nil && t >= nextLiveSnapshotAt {
			onLive(s.BuildSnapshot(t, occupancy))
			nextLiveSnapshotAt += liveSnapshotEveryS
		}
		if onLog != nil && t >= nextProgressLogAt {
			onLog(t, active)
			nextProgressLogAt += progressLogEveryS
		}

		t += dt
	}

	return s.averageCongestion(durationMinutes)
}

func (s *Simulation) averageCongestion(durationMinutes int) float64 {
	sum := 0.0
	for _, v := range s.congestionSamplesKm {
		sum += v
	}
	divisor := float64(durationMinutes) / 5.0
	if divisor <= 0 {
		return 0
	}
	return sum / divisor
}

func (s *Simulation) activeCount(t int) int {
	n := 0
	for i := range s.Vehicles {
		if s.Vehicles[i].State(t) == domain.VehicleActive {
			n++
		}
	}
	return n
}

// occupancyByEdge counts, for every edge, how many active vehicles
// currently occupy it (vehicle.route[0] == edge.ID).
func (s *Simulation) occupancyByEdge(t int) map[domain.EdgeID]int {
	occupancy := make(map[domain.EdgeID]int)
	for i := range s.Vehicles {
		v := &s.Vehicles[i]
		if v.State(t) != domain.VehicleActive {
			continue
		}
		if edge := v.CurrentEdge(); edge != "" {
			occupancy[edge]++
		}
	}
	return occupancy
}

func utilization(n int, capacityPerHour float64) float64 {
	return float64(n) / math.Max(1, capacityPerHour/3600)
}

// instantaneousCongestionKm sums the length (in km) of every edge whose
// current utilization exceeds 0.7.
func (s *Simulation) instantaneousCongestionKm(occupancy map[domain.EdgeID]int) float64 {
	total := 0.0
	for _, e := range s.Graph.Edges() {
		if utilization(occupancy[e.ID], e.Capacity) > 0.7 {
			total += e.LengthM / 1000
		}
	}
	return total
}

// advance implements per-vehicle physics for one tick.
func (s *Simulation) advance(v *domain.Vehicle, t, dt int, occupancy map[domain.EdgeID]int) {
	currentID := v.CurrentEdge()
	if currentID == "" {
		return
	}
	edge, ok := s.Graph.Edge(currentID)
	if !ok {
		return
	}

	target := edge.FreeFlowSpeed
	if len(edge.Geometry) > 0 {
		for _, flow := range s.Traffic.Flows {
			if len(flow.Coordinates) == 0 {
				continue
			}
			if geo.Distance(flow.Coordinates[0], edge.Geometry[0]) <= 1000 {
				target = math.Min(target, flow.CurrentSpeed)
			}
		}
	}

	n := occupancy[edge.ID]
	u := utilization(n, edge.Capacity)
	if u > 0.7 {
		target *= math.Max(0.1, 1-(u-0.7)*0.5)
	}

	v.SpeedKmh += 0.2 * (target - v.SpeedKmh)
	if v.SpeedKmh < 0 {
		v.SpeedKmh = 0
	}
	if target > 0 && v.SpeedKmh < 5 {
		v.SpeedKmh = math.Max(5, target*0.3)
	}

	d := v.SpeedKmh * float64(dt) / 3.6
	remaining := edge.LengthM * (1 - v.CurrentEdgeProgress)

	if d >= remaining {
		v.DistanceTraveledM += remaining
		v.Route = v.Route[1:]
		if len(v.Route) == 0 {
			arrival := t
			v.ArrivalTimeS = &arrival
		} else if next, ok := s.Graph.Edge(v.Route[0]); ok {
			carry := d - remaining
			v.CurrentEdgeProgress = math.Min(0.95, carry/next.LengthM)
		} else {
			v.CurrentEdgeProgress = 0
		}
	} else {
		v.DistanceTraveledM += d
		v.CurrentEdgeProgress = math.Min(0.95, v.CurrentEdgeProgress+d/edge.LengthM)
	}

	v.AccumulateEmissions(t, emissionFactor(v.SpeedKmh)*(v.SpeedKmh/3600))
}

// BuildSnapshot assembles a live snapshot: up to 50
// active vehicles sampled in stable id order, interpolated positions
// and bearings, and up to 20 congested edge segments.
func (s *Simulation) BuildSnapshot(t int, occupancy map[domain.EdgeID]int) domain.LiveSnapshot {
	active := make([]*domain.Vehicle, 0, len(s.Vehicles))
	for i := range s.Vehicles {
		if s.Vehicles[i].State(t) == domain.VehicleActive {
			active = append(active, &s.Vehicles[i])
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	sampleCount := len(active)
	if sampleCount > liveSnapshotMaxVehicles {
		sampleCount = liveSnapshotMaxVehicles
	}

	positions := make([]domain.VehiclePosition, 0, sampleCount)
	speedSum := 0.0
	for i := 0; i < sampleCount; i++ {
		positions = append(positions, vehiclePosition(active[i]))
	}
	for _, v := range active {
		speedSum += v.SpeedKmh
	}
	avgSpeed := 0.0
	if len(active) > 0 {
		avgSpeed = speedSum / float64(len(active))
	}

	return domain.LiveSnapshot{
		TimestampS: t,
		Vehicles: positions,
		CongestionSegments: s.congestionSegments(occupancy),
		TotalVehicles: len(active),
		AverageSpeed: math.Round(avgSpeed*10) / 10,
	}
}

func vehiclePosition(v *domain.Vehicle) domain.VehiclePosition {
	progress := v.Progress()
	distM := progress * v.RouteLengthM
	point := geo.PointAtDistance(v.RouteCoordinates, distM)

	nextProgress := math.Min(1, progress+0.001)
	nextPoint := geo.PointAtDistance(v.RouteCoordinates, nextProgress*v.RouteLengthM)
	bearing := geo.Bearing(point, nextPoint)

	return domain.VehiclePosition{
		ID: v.ID,
		Coordinate: point,
		SpeedKmh: v.SpeedKmh,
		BearingDeg: bearing,
		Progress: progress,
		EdgeTrail: v.Route,
		Polyline: v.RouteCoordinates,
	}
}

func (s *Simulation) congestionSegments(occupancy map[domain.EdgeID]int) []domain.CongestionSegment {
	segments := make([]domain.CongestionSegment, 0, congestionSegmentCap)
	for _, e := range s.Graph.Edges() {
		if len(segments) >= congestionSegmentCap {
			break
		}
		u := utilization(occupancy[e.ID], e.Capacity)
		var level domain.CongestionLevelLabel
		switch {
		case u > 0.8:
			level = domain.CongestionSegmentHigh
		case u > 0.5:
			level = domain.CongestionSegmentMedium
		case u > 0.3:
			level = domain.CongestionSegmentLow
		default:
			continue
		}
		segments = append(segments, domain.CongestionSegment{Coordinates: e.Geometry, Level: level})
	}
	return segments
}
