package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeAtPrefersNarrowestContainingRange(t *testing.T) {
	b := NewBuilder(nil)
	class := codeNode("com.ex.A", "A", Range{StartLine: 0, EndLine: 10}, "a.src")
	method := codeNode("com.ex.A#run", "run", Range{StartLine: 2, StartCol: 0, EndLine: 4, EndCol: 1}, "a.src")
	classID := b.AddNode(class)
	methodID := b.AddNode(method)
	b.UpsertFile(SourceFileRecord{Path: "a.src", OwnedNodes: []NodeID{classID, methodID}})
	g := b.Seal()

	id, ok := g.NodeAt("a.src", 3, 0)
	require.True(t, ok)
	assert.Equal(t, methodID, id)

	id, ok = g.NodeAt("a.src", 9, 0)
	require.True(t, ok)
	assert.Equal(t, classID, id)

	_, ok = g.NodeAt("a.src", 20, 0)
	assert.False(t, ok)
}

func TestFilesContainingTokenIsSoundFilterForReferenceDiscovery(t *testing.T) {
	b := NewBuilder(nil)
	s := codeNode("com.ex.S#save", "save", Range{}, "S.src")
	sid := b.AddNode(s)
	b.UpsertFile(SourceFileRecord{Path: "S.src", OwnedNodes: []NodeID{sid}, Tokens: []string{"save"}})
	b.UpsertFile(SourceFileRecord{Path: "C.src", Tokens: []string{"save", "later"}})
	b.UpsertFile(SourceFileRecord{Path: "D.src", Tokens: []string{"other"}})
	g := b.Seal()

	paths := g.FilesContainingToken("save")
	assert.ElementsMatch(t, []string{"S.src", "C.src"}, paths)
	assert.NotContains(t, paths, "D.src")
}

func TestLookupConsistencyAcrossFQNAndNameIndexes(t *testing.T) {
	b := NewBuilder(nil)
	id := b.AddNode(codeNode("com.ex.A", "A", Range{}, "a.src"))
	g := b.Seal()

	got, ok := g.FindByFQN("com.ex.A")
	require.True(t, ok)
	assert.Equal(t, id, got)
	n, ok := g.Node(got)
	require.True(t, ok)
	assert.Equal(t, "com.ex.A", n.FQN())

	names := g.NodesByName("A")
	assert.Contains(t, names, id)
}

func TestNeighborsAreSymmetricAcrossDirection(t *testing.T) {
	b := NewBuilder(nil)
	u := b.AddNode(codeNode("com.ex.U", "U", Range{}, "u.src"))
	v := b.AddNode(codeNode("com.ex.V", "V", Range{}, "v.src"))
	b.AddEdge(Edge{Src: u, Dst: v, Kind: EdgeInheritsFrom})
	g := b.Seal()

	assert.Contains(t, g.Neighbors(u, []EdgeKind{EdgeInheritsFrom}, DirectionOut), v)
	assert.Contains(t, g.Neighbors(v, []EdgeKind{EdgeInheritsFrom}, DirectionIn), u)
}

func TestCircularInheritanceBothNodesPresentWithMutualEdges(t *testing.T) {
	b := NewBuilder(nil)
	a := b.AddNode(codeNode("com.ex.A", "A", Range{}, "a.src"))
	bb := b.AddNode(codeNode("com.ex.B", "B", Range{}, "b.src"))
	b.AddEdge(Edge{Src: a, Dst: bb, Kind: EdgeInheritsFrom})
	b.AddEdge(Edge{Src: bb, Dst: a, Kind: EdgeInheritsFrom})
	g := b.Seal()

	assert.Contains(t, g.Neighbors(a, []EdgeKind{EdgeInheritsFrom}, DirectionOut), bb)
	assert.Contains(t, g.Neighbors(bb, []EdgeKind{EdgeInheritsFrom}, DirectionOut), a)

	cycles := g.DetectInheritanceCycles()
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"com.ex.A", "com.ex.B"}, cycles[0].FQNs)
}
