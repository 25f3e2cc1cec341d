package discovery

import (
	"context"

	"github.com/naviscope/naviscope/internal/lsp"
)

// PlaceholderEnricher resolves the real definition an occurrence at
// (path, line, col) denotes, in zero-based LSP coordinates. It is the
// deferred-enrichment producer spec §9's third open question names:
// work spawned during a build (here, resolving a placeholder created for
// a cross-package reference the tree-sitter resolver could only guess
// at) that must drain before the build that spawned it returns.
type PlaceholderEnricher interface {
	Resolve(ctx context.Context, path string, line, col int) (defPath string, defLine, defCol int, ok bool)
}

// LSPEnricher adapts a running language-server Client into a
// PlaceholderEnricher via textDocument/definition, the same request
// internal/discovery/reference's LSPSemanticResolver issues for Phase B
// occurrences — here issued once per placeholder instead of once per
// reference candidate.
type LSPEnricher struct {
	Client *lsp.Client
}

func (e *LSPEnricher) Resolve(ctx context.Context, path string, line, col int) (string, int, int, bool) {
	locs, err := e.Client.Definition(ctx, path, line, col)
	if err != nil || len(locs) == 0 {
		return "", 0, 0, false
	}
	defPath, err := lsp.URIToPath(locs[0].URI)
	if err != nil {
		return "", 0, 0, false
	}
	return defPath, locs[0].Range.Start.Line, locs[0].Range.Start.Character, true
}
