package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naviscope/naviscope/internal/discovery"
	"github.com/naviscope/naviscope/internal/discovery/reference"
	"github.com/naviscope/naviscope/internal/graph"
	"github.com/naviscope/naviscope/internal/naverr"
)

func buildSampleGraph(t *testing.T) *graph.ImmutableGraph {
	t.Helper()
	b := graph.NewBuilder(nil)
	b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{
			FQN: "widget", ShortName: "widget", Kind: graph.SymbolKindPackage,
			Classification: graph.ClassificationProject,
		},
	})
	sID := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{
			FQN: "widget::S", ShortName: "S", Kind: graph.SymbolKindClass,
			Classification: graph.ClassificationProject,
			Location:       graph.Location{Path: "s.go", Range: graph.Range{StartLine: 2, EndLine: 2}},
		},
	})
	saveID := b.AddNode(graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{
			FQN: "widget::Save", ShortName: "Save", Kind: graph.SymbolKindMethod,
			Classification: graph.ClassificationProject,
			Location:       graph.Location{Path: "s.go", Range: graph.Range{StartLine: 4, EndLine: 6}},
		},
	})
	require.True(t, b.AddEdgeSpec(graph.EdgeSpec{SrcFQN: "widget", DstFQN: "widget::S", Kind: graph.EdgeContains}))
	require.True(t, b.AddEdgeSpec(graph.EdgeSpec{SrcFQN: "widget", DstFQN: "widget::Save", Kind: graph.EdgeContains}))
	b.UpsertFile(graph.SourceFileRecord{Path: "s.go", OwnedNodes: []graph.NodeID{sID, saveID}})
	return b.Seal()
}

func TestFindMatchesByFQNOrShortNameAndSortsByKindThenFQN(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	res, err := e.Execute(context.Background(), Query{Kind: KindFind, Pattern: "S|Save"})
	require.NoError(t, err)
	summaries := res.([]NodeSummary)
	require.Len(t, summaries, 2)
	assert.Equal(t, "widget::S", summaries[0].FQN, "class sorts before method at equal priority ordering")
	assert.Equal(t, "widget::Save", summaries[1].FQN)
}

func TestFindRespectsLimit(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	res, err := e.Execute(context.Background(), Query{Kind: KindFind, Pattern: ".", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.([]NodeSummary), 1)
}

func TestFindExprFilterNarrowsByKind(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	res, err := e.Execute(context.Background(), Query{Kind: KindFind, Pattern: ".", Expr: `kind == "method"`})
	require.NoError(t, err)
	summaries := res.([]NodeSummary)
	require.Len(t, summaries, 1)
	assert.Equal(t, "widget::Save", summaries[0].FQN)
}

func TestLsReturnsContainedChildrenSortedByKindThenFQN(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	res, err := e.Execute(context.Background(), Query{Kind: KindLs, FQN: "widget"})
	require.NoError(t, err)
	summaries := res.([]NodeSummary)
	require.Len(t, summaries, 2)
	assert.Equal(t, "widget::S", summaries[0].FQN)
	assert.Equal(t, "widget::Save", summaries[1].FQN)
}

func TestLsUnknownFQNIsAnError(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	_, err := e.Execute(context.Background(), Query{Kind: KindLs, FQN: "nope"})
	assert.Error(t, err)
}

func TestCatReturnsNodeAndRange(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	res, err := e.Execute(context.Background(), Query{Kind: KindCat, FQN: "widget::Save"})
	require.NoError(t, err)
	cat := res.(CatResult)
	assert.Equal(t, "s.go", cat.Path)
	assert.Equal(t, 4, cat.Range.StartLine)
	assert.Equal(t, "project", cat.Classify)
}

func TestDepsOutAndDepsInAreInverse(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	out, err := e.Execute(context.Background(), Query{Kind: KindDepsOut, FQN: "widget"})
	require.NoError(t, err)
	outSummaries := out.([]NodeSummary)
	require.Len(t, outSummaries, 2)

	in, err := e.Execute(context.Background(), Query{Kind: KindDepsIn, FQN: "widget::Save"})
	require.NoError(t, err)
	inSummaries := in.([]NodeSummary)
	require.Len(t, inSummaries, 1)
	assert.Equal(t, "widget", inSummaries[0].FQN)
}

func TestRefsWithoutFinderIsAnError(t *testing.T) {
	g := buildSampleGraph(t)
	e := New(g)

	_, err := e.Execute(context.Background(), Query{Kind: KindRefs, FQN: "widget::Save"})
	assert.Error(t, err, "refs requires an Engine constructed with WithFinder")
}

func TestRefsWithNoTargetIsAnError(t *testing.T) {
	g := buildSampleGraph(t)
	finder := reference.NewFinder(discovery.NewRegistry(), nil, nil, zap.NewNop())
	e := New(g, WithFinder(finder))

	_, err := e.Execute(context.Background(), Query{Kind: KindRefs})
	assert.Error(t, err)
}

// buildGoRefsFixture mirrors internal/discovery/reference's own
// buildGoGraph: a definition file and a caller file, scanned and
// resolved into a sealed graph, so refs can be exercised end to end
// through a real Finder rather than a synthetic in-memory graph.
func buildGoRefsFixture(t *testing.T) (*graph.ImmutableGraph, *discovery.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module widget\n\ngo 1.25.6\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.go"), []byte(`package widget

type S struct{}

func (s *S) Save() error {
	return nil
}
`), 0o644))
	cPath := filepath.Join(dir, "c.go")
	require.NoError(t, os.WriteFile(cPath, []byte(`package widget

func Run(s *S) error {
	return s.Save()
}
`), 0o644))

	registry, err := discovery.NewDefaultRegistry()
	require.NoError(t, err)
	pc, err := discovery.NewBuildResolver().Resolve(dir)
	require.NoError(t, err)

	faults := naverr.NewFaultLog(zap.NewNop())
	scanner := discovery.NewScanner(registry, 2)
	files := scanner.Scan(context.Background(), dir, nil, faults)
	require.Zero(t, faults.Count())

	var ops []graph.GraphOp
	for _, pf := range files {
		plugin, ok := registry.For(pf.Path)
		require.True(t, ok)
		fileOps, err := plugin.Resolver().Resolve(pf, pc)
		require.NoError(t, err)
		ops = append(ops, fileOps...)
	}
	b := graph.NewBuilder(nil)
	discovery.Apply(b, ops)
	return b.Seal(), registry, cPath
}

func TestRefsComposesFinderAndReturnsLocationList(t *testing.T) {
	g, registry, cPath := buildGoRefsFixture(t)
	finder := reference.NewFinder(registry, nil, nil, zap.NewNop())
	e := New(g, WithFinder(finder))

	res, err := e.Execute(context.Background(), Query{Kind: KindRefs, FQN: "widget::Save"})
	require.NoError(t, err)
	locs := res.([]graph.Location)
	require.Len(t, locs, 1, "refs must return the location list, not just the resolved target")
	assert.Equal(t, cPath, locs[0].Path)
}

func TestRefsResolvesByPosition(t *testing.T) {
	g, registry, cPath := buildGoRefsFixture(t)
	finder := reference.NewFinder(registry, nil, nil, zap.NewNop())
	e := New(g, WithFinder(finder))

	res, err := e.Execute(context.Background(), Query{
		Kind:     KindRefs,
		Position: &Position{Path: cPath, Line: 3, Col: 11},
	})
	require.NoError(t, err)
	locs := res.([]graph.Location)
	require.Len(t, locs, 1)
	assert.Equal(t, cPath, locs[0].Path)
}
