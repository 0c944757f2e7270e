// Package graph builds and indexes the in-memory directed road
// multigraph the rest of the simulation runs over: an arena of edges
// plus two lookup indices, immutable after Build returns.
//
// Grounded on ArshiAbolghasemi-game-of-routes/pkg/graph/graph.go (arena +
// map[from][]*Edge indexing idiom) and LdDl-osm2ch/highway_type.go (the
// class table's string->enum shape, generalized to string->speed/cap).
package graph

import "github.com/smartcity/trafficsim/internal/domain"

// Graph is an immutable-after-build directed multigraph of road edges.
type Graph struct {
	edgeByID map[domain.EdgeID]*domain.Edge
	outgoingByFromNode map[domain.NodeID][]*domain.Edge
	nodeIDs map[domain.NodeID]struct{}
	order []domain.EdgeID // stable iteration order, build order
}

// New returns an empty graph. Exported for tests; production code builds
// graphs via Build.
func New() *Graph {
	return &Graph{
		edgeByID: make(map[domain.EdgeID]*domain.Edge),
		outgoingByFromNode: make(map[domain.NodeID][]*domain.Edge),
		nodeIDs: make(map[domain.NodeID]struct{}),
	}
}

func (g *Graph) addEdge(e *domain.Edge) {
	g.edgeByID[e.ID] = e
	g.outgoingByFromNode[e.FromNode] = append(g.outgoingByFromNode[e.FromNode], e)
	g.nodeIDs[e.FromNode] = struct{}{}
	g.nodeIDs[e.ToNode] = struct{}{}
	g.order = append(g.order, e.ID)
}

// Edge looks up an edge by id.
func (g *Graph) Edge(id domain.EdgeID) (*domain.Edge, bool) {
	e, ok := g.edgeByID[id]
	return e, ok
}

// Outgoing returns the edges leaving a node. The returned slice is
// shared and must not be mutated.
func (g *Graph) Outgoing(node domain.NodeID) []*domain.Edge {
	return g.outgoingByFromNode[node]
}

// Edges returns every edge in build order. The slice is freshly
// allocated on each call; the edges it points to are the graph's own.
func (g *Graph) Edges() []*domain.Edge {
	out := make([]*domain.Edge, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.edgeByID[id])
	}
	return out
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edgeByID) }

// NodeCount returns the number of distinct nodes touched by any edge.
func (g *Graph) NodeCount() int { return len(g.nodeIDs) }

// Empty reports whether the graph has no edges (graph_empty).
func (g *Graph) Empty() bool { return len(g.edgeByID) == 0 }
