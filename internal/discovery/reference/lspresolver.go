package reference

import (
	"context"

	"github.com/naviscope/naviscope/internal/graph"
	"github.com/naviscope/naviscope/internal/lsp"
)

// LSPSemanticResolver resolves an occurrence position by asking a live
// language server where it points (textDocument/definition) and then
// mapping that definition site back onto the graph's own node-at lookup.
// It is an alternative to GraphSemanticResolver's name-based lookup,
// used only when a caller passes it to NewFinder explicitly.
type LSPSemanticResolver struct {
	Client *lsp.Client
	Graph  *graph.ImmutableGraph
}

func (r *LSPSemanticResolver) ResolveAt(path string, line, col int) (graph.NodeID, bool) {
	locs, err := r.Client.Definition(context.Background(), path, line, col)
	if err != nil || len(locs) == 0 {
		return 0, false
	}
	defPath, err := lsp.URIToPath(locs[0].URI)
	if err != nil {
		return 0, false
	}
	return r.Graph.NodeAt(defPath, locs[0].Range.Start.Line, locs[0].Range.Start.Character)
}
