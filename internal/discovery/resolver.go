package discovery

import "github.com/naviscope/naviscope/internal/graph"

// LanguageResolver is Phase 2's per-language contract (spec §4.D Phase
// 2). A resolver infers the owning module, extracts the logical
// namespace, emits namespaced node identifiers, emits structural and
// usage edges, and emits a single UpsertFile. Resolvers never touch the
// live graph; they emit ops only.
type LanguageResolver interface {
	Resolve(pf *ParsedFile, pc *ProjectContext) ([]graph.GraphOp, error)
}
