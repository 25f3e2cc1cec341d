package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naviscope/naviscope/internal/graph"
)

// fakeEnricher stands in for an internal/lsp-backed PlaceholderEnricher:
// it knows exactly one occurrence-to-definition mapping, fixed up front
// by the test, rather than spawning a real language server subprocess.
type fakeEnricher struct {
	occurrencePath string
	occurrenceLine int
	occurrenceCol  int
	defPath        string
	defLine        int
	defCol         int
}

func (f *fakeEnricher) Resolve(_ context.Context, path string, line, col int) (string, int, int, bool) {
	if path != f.occurrencePath || line != f.occurrenceLine || col != f.occurrenceCol {
		return "", 0, 0, false
	}
	return f.defPath, f.defLine, f.defCol, true
}

// buildCrossPackageEmbedProject writes a two-package Go module where
// package b embeds package a's Base by qualified selector, returning the
// module root and b.go's path.
func buildCrossPackageEmbedProject(t *testing.T) (dir, aPath, bPath string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module widget\n\ngo 1.25.6\n"), 0o644))

	aPath = filepath.Join(dir, "a", "a.go")
	require.NoError(t, os.WriteFile(aPath, []byte(`package a

type Base struct{}
`), 0o644))

	bPath = filepath.Join(dir, "b", "b.go")
	require.NoError(t, os.WriteFile(bPath, []byte(`package b

import "widget/a"

type Derived struct {
	a.Base
}
`), 0o644))
	return dir, aPath, bPath
}

func TestRunFullWithoutEnricherLeavesCrossPackageEmbedAsPlaceholder(t *testing.T) {
	dir, _, _ := buildCrossPackageEmbedProject(t)
	registry, err := NewDefaultRegistry()
	require.NoError(t, err)

	p := NewPipeline(registry, 2, zap.NewNop())
	result, err := p.RunFull(context.Background(), dir, nil)
	require.NoError(t, err)

	id, ok := result.Graph.FindByFQN("a.Base")
	require.True(t, ok, "the cross-package embed must produce a placeholder node even with no enricher wired")
	n, ok := result.Graph.Node(id)
	require.True(t, ok)
	assert.Equal(t, graph.NodeKindPlaceholder, n.Kind)
}

func TestRunFullWithEnricherUpgradesCrossPackageEmbedPlaceholder(t *testing.T) {
	dir, aPath, bPath := buildCrossPackageEmbedProject(t)
	registry, err := NewDefaultRegistry()
	require.NoError(t, err)

	// Derived's embedded field `a.Base` sits on b.go's line 5 (zero-based),
	// column 1 (after the tab); a.Base's own type_identifier definition
	// sits on a.go's line 2, column 5 ("type " is 5 columns).
	enricher := &fakeEnricher{
		occurrencePath: bPath, occurrenceLine: 5, occurrenceCol: 1,
		defPath: aPath, defLine: 2, defCol: 5,
	}

	p := NewPipeline(registry, 2, zap.NewNop(), WithEnricher(enricher))
	result, err := p.RunFull(context.Background(), dir, nil)
	require.NoError(t, err)

	id, ok := result.Graph.FindByFQN("a.Base")
	require.True(t, ok)
	n, ok := result.Graph.Node(id)
	require.True(t, ok)
	require.Equal(t, graph.NodeKindCode, n.Kind, "a resolved placeholder must upgrade to a real code node")
	assert.Equal(t, "Base", n.Code.ShortName)
	assert.Equal(t, aPath, n.Code.Location.Path)

	// The InheritsFrom edge recorded against the placeholder's FQN must
	// still resolve — upgrading preserves node identity, not just kind.
	derivedID, ok := result.Graph.FindByFQN("widget/b::Derived")
	require.True(t, ok)
	parents := result.Graph.Neighbors(derivedID, []graph.EdgeKind{graph.EdgeInheritsFrom}, graph.DirectionOut)
	require.Len(t, parents, 1)
	assert.Equal(t, id, parents[0])
}
