// Package graph implements the concurrent index engine's data model: the
// immutable, multi-version graph value and the builder that produces new
// versions of it.
//
// Grounded on the original engine's CodeGraph/CodeGraphBuilder
// (src/engine/graph.rs, src/engine/builder.rs) and generalized from
// codefinder's flat Node/Edge model (internal/graph/types.go) to the
// tagged-variant node/edge set the data model requires.
package graph

import "sort"

// ImmutableGraph is a sealed, read-only graph value. Every exported method
// is a pure function of the value; the zero-cost sharing discipline lives
// one layer up in the engine (a *ImmutableGraph is handed out by pointer
// and never mutated after Builder.Seal produces it).
type ImmutableGraph struct {
	version uint64

	nodes []Node
	edges []Edge

	fqnIndex   map[string]NodeID
	nameIndex  map[string][]NodeID
	pathIndex  map[string][]NodeID
	tokenIndex map[string][]string // token -> sorted, deduped paths
	fileIndex  map[string]SourceFileRecord

	outAdj map[NodeID][]int // node -> indices into edges, outgoing
	inAdj  map[NodeID][]int // node -> indices into edges, incoming
}

// Version returns the strictly increasing seal counter.
func (g *ImmutableGraph) Version() uint64 {
	if g == nil {
		return 0
	}
	return g.version
}

// FindByFQN is find_by_fqn: O(1) expected.
func (g *ImmutableGraph) FindByFQN(fqn string) (NodeID, bool) {
	if g == nil {
		return 0, false
	}
	id, ok := g.fqnIndex[fqn]
	return id, ok
}

// NodesByName is nodes_by_name: O(1) expected plus O(k) to read the
// overload/shadow set.
func (g *ImmutableGraph) NodesByName(name string) []NodeID {
	if g == nil {
		return nil
	}
	ids := g.nameIndex[name]
	out := make([]NodeID, len(ids))
	copy(out, ids)
	return out
}

// Node returns the node stored at id, if any.
func (g *ImmutableGraph) Node(id NodeID) (Node, bool) {
	if g == nil || int(id) >= len(g.nodes) {
		return Node{}, false
	}
	n := g.nodes[id]
	if n.Kind == 0 && n.Code == nil && n.Build == nil && n.Stub == nil {
		return Node{}, false
	}
	return n, true
}

// NodeAt is node_at: the deepest (narrowest) node in path whose range
// contains (line, col). Ties among equally narrow ranges are broken by
// insertion order (first defined wins), matching a stable scan.
func (g *ImmutableGraph) NodeAt(path string, line, col int) (NodeID, bool) {
	if g == nil {
		return 0, false
	}
	ids, ok := g.pathIndex[path]
	if !ok {
		return 0, false
	}
	var best NodeID
	var bestRange Range
	found := false
	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok || n.Kind != NodeKindCode || n.Code == nil {
			continue
		}
		r := n.Code.Location.Range
		if !r.ContainsPos(line, col) {
			continue
		}
		if !found || narrower(r, bestRange) {
			best, bestRange, found = id, r, true
		}
	}
	return best, found
}

// narrower reports whether a is a strictly smaller span than b.
func narrower(a, b Range) bool {
	aLines := a.EndLine - a.StartLine
	bLines := b.EndLine - b.StartLine
	if aLines != bLines {
		return aLines < bLines
	}
	return (a.EndCol - a.StartCol) < (b.EndCol - b.StartCol)
}

// Neighbors is neighbors: nodes reachable from id via edges of kind (nil
// means any kind) in the given direction.
func (g *ImmutableGraph) Neighbors(id NodeID, kinds []EdgeKind, dir Direction) []NodeID {
	if g == nil {
		return nil
	}
	adj := g.outAdj
	if dir == DirectionIn {
		adj = g.inAdj
	}
	idxs, ok := adj[id]
	if !ok {
		return nil
	}
	allow := func(EdgeKind) bool { return true }
	if len(kinds) > 0 {
		set := make(map[EdgeKind]bool, len(kinds))
		for _, k := range kinds {
			set[k] = true
		}
		allow = func(k EdgeKind) bool { return set[k] }
	}
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, i := range idxs {
		e := g.edges[i]
		if !allow(e.Kind) {
			continue
		}
		other := e.Dst
		if dir == DirectionIn {
			other = e.Src
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, other)
	}
	return out
}

// FilesContainingToken is files_containing_token: the reference index's
// posting list lookup.
func (g *ImmutableGraph) FilesContainingToken(token string) []string {
	if g == nil {
		return nil
	}
	paths := g.tokenIndex[token]
	out := make([]string, len(paths))
	copy(out, paths)
	return out
}

// FileRecord returns the SourceFileRecord for path, if indexed.
func (g *ImmutableGraph) FileRecord(path string) (SourceFileRecord, bool) {
	if g == nil {
		return SourceFileRecord{}, false
	}
	rec, ok := g.fileIndex[path]
	return rec, ok
}

// NodesForPath returns every node id owned by path, as recorded in the
// path index (distinct from FileRecord.OwnedNodes, which the builder uses
// for removal bookkeeping; the two always agree post-seal).
func (g *ImmutableGraph) NodesForPath(path string) []NodeID {
	if g == nil {
		return nil
	}
	ids := g.pathIndex[path]
	out := make([]NodeID, len(ids))
	copy(out, ids)
	return out
}

// AllFiles returns every indexed path, sorted, for scan-side diffing.
func (g *ImmutableGraph) AllFiles() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.fileIndex))
	for p := range g.fileIndex {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Edges returns a copy of every edge in the graph, used by diagnostics
// (cycle detection) and full serialization.
func (g *ImmutableGraph) Edges() []Edge {
	if g == nil {
		return nil
	}
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Nodes returns a copy of every populated node slot, used by full
// serialization.
func (g *ImmutableGraph) Nodes() []Node {
	if g == nil {
		return nil
	}
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.Kind == 0 && n.Code == nil && n.Build == nil && n.Stub == nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Empty returns the version-1 empty graph, the result of sealing a
// Builder with no ops applied against a nil base (spec §8 "empty project").
func Empty() *ImmutableGraph {
	b := NewBuilder(nil)
	return b.Seal()
}
