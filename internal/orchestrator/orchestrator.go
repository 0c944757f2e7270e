// Package orchestrator is the simulation engine's single entry point:
// given markers, a duration and a radius, it fans out to the three data
// providers, builds the road graph, applies marker impacts, generates
// demand, runs the microsimulation and assembles the final metrics
// report — falling back to a closed-form estimator if anything upstream
// of the simulation loop fails.
//
// The three-provider fan-out follows a concurrent-fetch-then-assemble
// shape, using golang.org/x/sync/errgroup in place of a manual
// sync.WaitGroup and mutex.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smartcity/trafficsim/internal/demand"
	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
	"github.com/smartcity/trafficsim/internal/graph"
	"github.com/smartcity/trafficsim/internal/markerimpact"
	"github.com/smartcity/trafficsim/internal/providers"
	"github.com/smartcity/trafficsim/internal/route"
	"github.com/smartcity/trafficsim/internal/simulation"
	"github.com/smartcity/trafficsim/internal/stream"
)

// Orchestrator wires the data providers and the simulation pipeline
// together for one run. RNG is the single seedable generator every
// stochastic draw in a run must go through.
type Orchestrator struct {
	RoadProvider       providers.RoadNetworkProvider
	TrafficProvider    providers.TrafficProvider
	PopulationProvider providers.PopulationProvider
	RNG                *rand.Rand

	graphMu   sync.RWMutex
	lastGraph *graph.Graph
}

// LastGraph returns the road graph built by the most recently completed
// run, or nil if no run has built one yet. Used by the debug graph
// export endpoint.
func (o *Orchestrator) LastGraph() *graph.Graph {
	o.graphMu.RLock()
	defer o.graphMu.RUnlock()
	return o.lastGraph
}

// New creates an orchestrator over the given providers and RNG.
func New(road providers.RoadNetworkProvider, traffic providers.TrafficProvider, population providers.PopulationProvider, rng *rand.Rand) *Orchestrator {
	return &Orchestrator{RoadProvider: road, TrafficProvider: traffic, PopulationProvider: population, RNG: rng}
}

// Run executes one simulation end to end. hub may be nil for the
// synchronous /simulate endpoint, which has no live subscriber. The
// only error Run ever returns is ErrEmptyInput — every other failure
// mode is absorbed into the closed-form fallback estimator so callers
// always receive a usable result.
func (o *Orchestrator) Run(ctx context.Context, markers []domain.Marker, durationMinutes int, radiusKm float64, hub *stream.Hub) (result domain.SimulationResult, err error) {
	if len(markers) == 0 {
		if hub != nil {
			hub.PushError("no markers placed for simulation")
		}
		return domain.SimulationResult{}, domain.ErrEmptyInput
	}

	defer func() {
		if r := recover(); r != nil {
			result = o.closedFormFallback(markers, durationMinutes, radiusKm)
			if hub != nil {
				hub.PushError(fmt.Sprintf("simulation_aborted: %v", r))
			}
			err = nil
		}
	}()

	coords := make([]domain.Coordinate, len(markers))
	for i, m := range markers {
		coords[i] = m.Coordinate
	}
	bbox := geo.BoundingBox(coords, 0.01)
	center := bbox.Center()

	pushStatus(hub, "fetching road network, traffic and population data")
	networkData, trafficData, populationData := o.fetchAll(ctx, center, radiusKm, bbox)

	g, buildErr := graph.Build(networkData.Roads)
	if buildErr != nil || g == nil || g.Empty() {
		pushError(hub, "graph_empty: road graph has no edges after ingestion")
		return o.closedFormFallback(markers, durationMinutes, radiusKm), nil
	}
	o.graphMu.Lock()
	o.lastGraph = g
	o.graphMu.Unlock()
	pushStatus(hub, fmt.Sprintf("graph built: %d roads, %d nodes", g.EdgeCount(), g.NodeCount()))

	builder := route.New(g, o.RNG)
	impact := markerimpact.Apply(g, builder, markers, populationData.DensityPerKm2, o.RNG)
	pushStatus(hub, fmt.Sprintf("marker impacts applied: %d edges affected", impact.AffectedEdges))

	vehicles := demand.Generate(g, builder, populationData, trafficData, o.RNG)
	vehicles = append(vehicles, impact.ExtraVehicles...)
	pushStatus(hub, fmt.Sprintf("generated %d vehicles", len(vehicles)))

	sim := simulation.New(g, vehicles, trafficData)
	congestionKm := sim.Run(ctx, durationMinutes,
		func(t, active int) { pushStatus(hub, fmt.Sprintf("t=%ds active=%d", t, active)) },
		func(snap domain.LiveSnapshot) {
			if hub != nil {
				hub.PushLive(snap, "tick")
			}
		},
	)

	metrics := assembleMetrics(g, sim.Vehicles, congestionKm, trafficData, populationData, impact, o.RNG)
	result = domain.SimulationResult{
		ID:       uuid.New().String(),
		Metrics:  metrics,
		Markers:  markers,
		Duration: durationMinutes,
		Radius:   radiusKm,
	}

	if hub != nil {
		hub.PushComplete(result)
	}
	return result, nil
}

func (o *Orchestrator) fetchAll(ctx context.Context, center domain.Coordinate, radiusKm float64, bbox geo.BBox) (providers.NetworkData, domain.TrafficSnapshot, domain.PopulationData) {
	var (
		networkData    providers.NetworkData
		trafficData    domain.TrafficSnapshot
		populationData domain.PopulationData
	)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		data, fetchErr := o.RoadProvider.FetchRoadNetwork(gctx, center, radiusKm)
		if fetchErr == nil {
			networkData = data
		}
		return nil
	})
	group.Go(func() error {
		data, fetchErr := o.TrafficProvider.FetchTraffic(gctx, bbox)
		if fetchErr == nil {
			trafficData = data
		}
		return nil
	})
	group.Go(func() error {
		data, fetchErr := o.PopulationProvider.FetchPopulation(gctx, bbox)
		if fetchErr == nil {
			populationData = data
		}
		return nil
	})
	// Providers absorb their own failures into a fallback value and never
	// return an error (provider_unavailable is a status, not
	// a failure); group.Wait() is retained to bound the fan-out.
	_ = group.Wait()

	return networkData, trafficData, populationData
}

func pushStatus(hub *stream.Hub, message string) {
	if hub != nil {
		hub.PushStatus(message)
	}
}

func pushError(hub *stream.Hub, message string) {
	if hub != nil {
		hub.PushError(message)
	}
}
