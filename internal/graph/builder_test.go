package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeNode(fqn, short string, r Range, path string) Node {
	return Node{
		Kind: NodeKindCode,
		Code: &CodeNode{
			FQN:            fqn,
			ShortName:      short,
			Kind:           SymbolKindClass,
			Location:       Location{Path: path, Range: r},
			Classification: ClassificationProject,
		},
	}
}

func TestEmptyGraphIsVersionOneWithNoErrors(t *testing.T) {
	g := Empty()
	assert.Equal(t, uint64(1), g.Version())
	assert.Empty(t, g.Nodes())
	assert.Empty(t, g.Edges())
}

func TestAddNodeIsIdempotentOnFQN(t *testing.T) {
	b := NewBuilder(nil)
	id1 := b.AddNode(codeNode("com.ex.A", "A", Range{}, "a.src"))
	id2 := b.AddNode(codeNode("com.ex.A", "A", Range{StartLine: 5}, "a.src"))
	assert.Equal(t, id1, id2)
	g := b.Seal()
	n, ok := g.Node(id1)
	require.True(t, ok)
	assert.Equal(t, 0, n.Code.Location.Range.StartLine, "idempotent add keeps the first payload")
}

func TestAddEdgeDedupesOnSrcDstKind(t *testing.T) {
	b := NewBuilder(nil)
	a := b.AddNode(codeNode("com.ex.A", "A", Range{}, "a.src"))
	c := b.AddNode(codeNode("com.ex.C", "C", Range{}, "c.src"))
	b.AddEdge(Edge{Src: a, Dst: c, Kind: EdgeInheritsFrom})
	b.AddEdge(Edge{Src: a, Dst: c, Kind: EdgeInheritsFrom})
	g := b.Seal()
	assert.Len(t, g.Edges(), 1)
}

func TestAddEdgeDroppedWhenEndpointMissing(t *testing.T) {
	b := NewBuilder(nil)
	a := b.AddNode(codeNode("com.ex.A", "A", Range{}, "a.src"))
	ok := b.AddEdge(Edge{Src: a, Dst: NodeID(999), Kind: EdgeInheritsFrom})
	assert.False(t, ok)
	g := b.Seal()
	assert.Empty(t, g.Edges())
}

func TestRemoveNodesForPathRemovesOwnedNodesAndIncidentEdges(t *testing.T) {
	b := NewBuilder(nil)
	a := b.AddNode(codeNode("com.ex.A", "A", Range{}, "a.src"))
	c := b.AddNode(codeNode("com.ex.C", "C", Range{}, "c.src"))
	b.AddEdge(Edge{Src: c, Dst: a, Kind: EdgeInheritsFrom})
	b.UpsertFile(SourceFileRecord{Path: "a.src", OwnedNodes: []NodeID{a}})
	b.UpsertFile(SourceFileRecord{Path: "c.src", OwnedNodes: []NodeID{c}})
	g1 := b.Seal()
	require.Len(t, g1.Edges(), 1)

	b2 := NewBuilder(g1)
	b2.RemoveNodesForPath("a.src")
	g2 := b2.Seal()

	_, ok := g2.FindByFQN("com.ex.A")
	assert.False(t, ok)
	assert.Empty(t, g2.Edges())
	_, ok = g2.FileRecord("a.src")
	assert.False(t, ok)
}

func TestUpgradePlaceholderPreservesNodeIdentity(t *testing.T) {
	b := NewBuilder(nil)
	appID := b.AddNode(codeNode("com.ex.App", "App", Range{}, "App.src"))
	ph := b.AddNode(Node{Kind: NodeKindPlaceholder, Stub: &Placeholder{FQN: "ext.Lib", ShortName: "Lib"}})
	b.AddEdge(Edge{Src: appID, Dst: ph, Kind: EdgeUsesDependency})
	b.UpsertFile(SourceFileRecord{Path: "App.src", OwnedNodes: []NodeID{appID, ph}})
	g1 := b.Seal()

	b2 := NewBuilder(g1)
	upgraded, ok := b2.UpgradePlaceholder("ext.Lib", codeNode("ext.Lib", "Lib", Range{}, "ext.src"))
	require.True(t, ok)
	assert.Equal(t, ph, upgraded)
	g2 := b2.Seal()

	id, ok := g2.FindByFQN("ext.Lib")
	require.True(t, ok)
	assert.Equal(t, ph, id)
	neighbors := g2.Neighbors(appID, []EdgeKind{EdgeUsesDependency}, DirectionOut)
	assert.Contains(t, neighbors, ph)
}

func TestSealIsIdentityWhenNoOpsApplied(t *testing.T) {
	b := NewBuilder(nil)
	a := b.AddNode(codeNode("com.ex.A", "A", Range{}, "a.src"))
	b.UpsertFile(SourceFileRecord{Path: "a.src", OwnedNodes: []NodeID{a}})
	g1 := b.Seal()

	g2 := NewBuilder(g1).Seal()
	assert.Equal(t, g1.Version()+1, g2.Version())
	assert.Equal(t, g1.Nodes(), g2.Nodes())
	assert.Equal(t, g1.Edges(), g2.Edges())
}

func TestSealTwiceByACallerPanics(t *testing.T) {
	b := NewBuilder(nil)
	b.Seal()
	assert.Panics(t, func() { b.Seal() })
}

func TestSortOpsOrdersRemovalsBeforeAddsBeforeEdgesBeforeUpserts(t *testing.T) {
	ops := []GraphOp{
		{Kind: OpAddEdge, Edge: EdgeSpec{}},
		{Kind: OpUpsertFile, File: SourceFileRecord{Path: "x"}},
		{Kind: OpRemoveNodesForPath, RemovePath: "x"},
		{Kind: OpAddNode, Node: codeNode("com.ex.A", "A", Range{}, "a.src")},
	}
	SortOps(ops)
	var kinds []OpKind
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []OpKind{OpRemoveNodesForPath, OpAddNode, OpAddEdge, OpUpsertFile}, kinds)
}
