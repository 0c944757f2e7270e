// Package route builds multi-edge vehicle routes over a road graph: a
// stochastic length-targeted random walk with dead-end escape, backed by
// a loop-local memoization cache.
//
// Grounded on ArshiAbolghasemi-game-of-routes/pkg/agent/agent.go (an
// agent walking a graph edge-by-edge picking from the current node's
// outgoing set) generalized from Dijkstra-on-weight to a uniform-random
// walk, trading shortest-path optimality for stochastic, length-targeted
// routes.
package route

import (
	"fmt"
	"math/rand"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
	"github.com/smartcity/trafficsim/internal/graph"
)

const (
	stepCap = 200
	defaultMinDistance = 2000.0
	distantRetryFactor = 3
)

// Builder constructs routes over a fixed graph, memoizing results for
// the lifetime of one simulation run. Not safe for concurrent use from
// multiple goroutines without external synchronization — callers use it
// from the single-threaded demand-generation pass.
type Builder struct {
	g *graph.Graph
	rng *rand.Rand
	cache map[string][]domain.EdgeID
}

// New creates a route builder over g, driven by the orchestrator's
// single seedable RNG (all stochastic draws share one RNG).
func New(g *graph.Graph, rng *rand.Rand) *Builder {
	return &Builder{g: g, rng: rng, cache: make(map[string][]domain.EdgeID)}
}

func cacheKey(origin, dest domain.EdgeID) string {
	return fmt.Sprintf("%s→%s", origin, dest)
}

// BuildRoute implements build_route: a random walk from
// origin toward dest with a minimum target length and a step cap, with
// dead-end escape when the cursor node has no unvisited outgoing edges.
func (b *Builder) BuildRoute(origin, dest *domain.Edge) []domain.EdgeID {
	key := cacheKey(origin.ID, dest.ID)
	if cached, ok := b.cache[key]; ok {
		return cached
	}

	route := b.walk(origin, dest)
	b.cache[key] = route
	return route
}

func (b *Builder) walk(origin, dest *domain.Edge) []domain.EdgeID {
	lMin := 4000 + b.rng.Float64()*4000
	route := []domain.EdgeID{origin.ID}
	visited := map[domain.EdgeID]struct{}{origin.ID: {}}
	cursor := origin.ToNode
	cumLength := origin.LengthM
	lastEdge := origin

	for cumLength < lMin && len(route) < stepCap {
		candidates := b.unvisitedOutgoing(cursor, visited)
		var next *domain.Edge
		if len(candidates) == 0 {
			next = b.deadEndEscape(lastEdge)
			if next == nil {
				break
			}
		} else {
			next = candidates[b.rng.Intn(len(candidates))]
			visited[next.ID] = struct{}{}
		}
		route = append(route, next.ID)
		cumLength += next.LengthM
		cursor = next.ToNode
		lastEdge = next
	}

	if cursor != dest.FromNode {
		route = append(route, dest.ID)
		cumLength += dest.LengthM
	}

	if cumLength < lMin {
		// Single retry with origin/dest swapped,
		return b.walkOnce(dest, origin, lMin)
	}
	return route
}

// walkOnce runs a single non-memoized pass of the walk used for the
// one-shot retry with swapped endpoints.
func (b *Builder) walkOnce(origin, dest *domain.Edge, lMin float64) []domain.EdgeID {
	route := []domain.EdgeID{origin.ID}
	visited := map[domain.EdgeID]struct{}{origin.ID: {}}
	cursor := origin.ToNode
	cumLength := origin.LengthM
	lastEdge := origin

	for cumLength < lMin && len(route) < stepCap {
		candidates := b.unvisitedOutgoing(cursor, visited)
		var next *domain.Edge
		if len(candidates) == 0 {
			next = b.deadEndEscape(lastEdge)
			if next == nil {
				break
			}
		} else {
			next = candidates[b.rng.Intn(len(candidates))]
			visited[next.ID] = struct{}{}
		}
		route = append(route, next.ID)
		cumLength += next.LengthM
		cursor = next.ToNode
		lastEdge = next
	}

	if cursor != dest.FromNode {
		route = append(route, dest.ID)
	}
	return route
}

func (b *Builder) unvisitedOutgoing(node domain.NodeID, visited map[domain.EdgeID]struct{}) []*domain.Edge {
	out := b.g.Outgoing(node)
	candidates := make([]*domain.Edge, 0, len(out))
	for _, e := range out {
		if _, seen := visited[e.ID]; !seen {
			candidates = append(candidates, e)
		}
	}
	return candidates
}

// deadEndEscape picks a random distant edge at least 1000 m from the
// walk's current last edge's start point, so successive escapes in the
// same walk are measured from where the walk actually is, not from its
// original starting edge.
func (b *Builder) deadEndEscape(lastEdge *domain.Edge) *domain.Edge {
	return b.DistantEdge(lastEdge, 1000)
}

// DistantEdge draws uniformly from the graph's edges until one is found
// whose first geometry point is at least minDistance meters from
// origin's first point and whose id differs, bounding retries at
// K·|edges| and falling back to any edge that isn't origin itself (or
// the only edge, when the graph has just one).
func (b *Builder) DistantEdge(origin *domain.Edge, minDistance float64) *domain.Edge {
	edges := b.g.Edges()
	if len(edges) == 0 {
		return nil
	}
	if len(origin.Geometry) == 0 {
		return pickAnyOther(edges, origin.ID, b.rng)
	}
	originPoint := origin.Geometry[0]

	maxRetries := distantRetryFactor * len(edges)
	for i := 0; i < maxRetries; i++ {
		candidate := edges[b.rng.Intn(len(edges))]
		if candidate.ID == origin.ID || len(candidate.Geometry) == 0 {
			continue
		}
		if geo.Distance(originPoint, candidate.Geometry[0]) >= minDistance {
			return candidate
		}
	}
	return pickAnyOther(edges, origin.ID, b.rng)
}

func pickAnyOther(edges []*domain.Edge, excludeID domain.EdgeID, rng *rand.Rand) *domain.Edge {
	if len(edges) == 1 {
		return edges[0]
	}
	start := rng.Intn(len(edges))
	for i := 0; i < len(edges); i++ {
		e := edges[(start+i)%len(edges)]
		if e.ID != excludeID {
			return e
		}
	}
	return edges[start]
}
