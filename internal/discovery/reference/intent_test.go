package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naviscope/naviscope/internal/graph"
)

func TestIntentForSelectsByTargetKind(t *testing.T) {
	assert.Equal(t, IntentMethodCall, IntentFor(graph.SymbolKindMethod))
	assert.Equal(t, IntentMethodCall, IntentFor(graph.SymbolKindConstructor))
	assert.Equal(t, IntentFieldAccess, IntentFor(graph.SymbolKindField))
	assert.Equal(t, IntentTypeReference, IntentFor(graph.SymbolKindClass))
	assert.Equal(t, IntentTypeReference, IntentFor(graph.SymbolKindInterface))
	assert.Equal(t, IntentGeneric, IntentFor(graph.SymbolKindPackage))
}

func TestTokensForMethodIncludesContainingTypeName(t *testing.T) {
	b := graph.NewBuilder(nil)
	id := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{
			FQN: "widget::S::Save", ShortName: "Save", Kind: graph.SymbolKindMethod,
			Location: graph.Location{Path: "s.go"},
		},
	})
	g := b.Seal()

	target := NewTarget(id, mustNode(t, g, id))
	toks := Tokens(g, target)
	assert.ElementsMatch(t, []string{"Save", "S"}, toks)
}

func TestTokensForPackageLevelFuncHasNoContainingType(t *testing.T) {
	b := graph.NewBuilder(nil)
	id := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{
			FQN: "widget::Save", ShortName: "Save", Kind: graph.SymbolKindMethod,
			Location: graph.Location{Path: "s.go"},
		},
	})
	g := b.Seal()

	target := NewTarget(id, mustNode(t, g, id))
	toks := Tokens(g, target)
	assert.Equal(t, []string{"Save"}, toks)
}

func TestDefaultCheckerMatchesDirectIdentity(t *testing.T) {
	b := graph.NewBuilder(nil)
	id := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{FQN: "widget::S::Save", ShortName: "Save", Kind: graph.SymbolKindMethod},
	})
	g := b.Seal()
	target := NewTarget(id, mustNode(t, g, id))

	assert.True(t, DefaultChecker{}.IsReferenceTo(g, id, target))
}

func TestDefaultCheckerMatchesBridgeForwardAndReverse(t *testing.T) {
	b := graph.NewBuilder(nil)
	targetID := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{FQN: "widget::S::Save", ShortName: "Save", Kind: graph.SymbolKindMethod},
	})
	bridgeID := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{
			FQN: "widget::S::Save$bridge", ShortName: "Save", Kind: graph.SymbolKindMethod,
			Bridge: true, BridgeTarget: "widget::S::Save",
		},
	})
	g := b.Seal()
	target := NewTarget(targetID, mustNode(t, g, targetID))

	assert.True(t, DefaultChecker{}.IsReferenceTo(g, bridgeID, target), "candidate resolving to the bridge counts as a reference to its target")

	bridgeTarget := NewTarget(bridgeID, mustNode(t, g, bridgeID))
	assert.True(t, DefaultChecker{}.IsReferenceTo(g, targetID, bridgeTarget), "searching the bridge itself also finds references resolved to its target")
}

func TestDefaultCheckerRejectsUnrelatedNode(t *testing.T) {
	b := graph.NewBuilder(nil)
	targetID := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{FQN: "widget::S::Save", ShortName: "Save", Kind: graph.SymbolKindMethod},
	})
	otherID := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{FQN: "widget::T::Save", ShortName: "Save", Kind: graph.SymbolKindMethod},
	})
	g := b.Seal()
	target := NewTarget(targetID, mustNode(t, g, targetID))

	assert.False(t, DefaultChecker{}.IsReferenceTo(g, otherID, target))
}

func mustNode(t *testing.T, g *graph.ImmutableGraph, id graph.NodeID) graph.Node {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok)
	return n
}
