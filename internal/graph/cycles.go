package graph

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Cycle is one strongly connected component of size > 1 found among a
// graph's InheritsFrom/Implements edges — e.g. "A extends B extends A"
// (spec §8 boundary behaviour: cycles must not be forbidden, only
// traversal-safe).
type Cycle struct {
	FQNs []string
}

// DetectInheritanceCycles runs Tarjan's SCC algorithm over the subgraph
// induced by InheritsFrom and Implements edges and reports every
// component with more than one member. This is a diagnostic, not a
// correctness requirement: Neighbors and internal/query's deps-out/deps-in
// look one hop only, so a cycle cannot make them loop.
//
// Grounded on ritzau-deps-analyzer's pkg/cycles/tarjan.go (topo.TarjanSCC
// over a gonum/graph/simple.DirectedGraph) and pkg/graph/file_graph.go
// (building such a graph from an application-level id map).
func (g *ImmutableGraph) DetectInheritanceCycles() []Cycle {
	if g == nil {
		return nil
	}
	dg := simple.NewDirectedGraph()
	for id := range g.nodes {
		if g.nodeLive(NodeID(id)) {
			dg.AddNode(simple.Node(id))
		}
	}
	for _, e := range g.edges {
		if e.Kind != EdgeInheritsFrom && e.Kind != EdgeImplements {
			continue
		}
		if dg.Node(int64(e.Src)) == nil || dg.Node(int64(e.Dst)) == nil {
			continue
		}
		if !dg.HasEdgeFromTo(int64(e.Src), int64(e.Dst)) {
			dg.SetEdge(simple.Edge{F: simple.Node(e.Src), T: simple.Node(e.Dst)})
		}
	}

	var cycles []Cycle
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		c := Cycle{}
		for _, n := range scc {
			id := NodeID(n.ID())
			if node, ok := g.Node(id); ok {
				c.FQNs = append(c.FQNs, node.FQN())
			}
		}
		cycles = append(cycles, c)
	}
	return cycles
}

func (g *ImmutableGraph) nodeLive(id NodeID) bool {
	if int(id) >= len(g.nodes) {
		return false
	}
	n := g.nodes[id]
	return n.Kind != 0 || n.Code != nil || n.Build != nil || n.Stub != nil
}
