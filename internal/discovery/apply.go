package discovery

import "github.com/naviscope/naviscope/internal/graph"

// Apply is Phase 3: a single builder applies every accumulated op in the
// order SortOps enforces (removals, node-adds, edge-adds, file-upserts).
// Grounded on original_source/src/engine/builder.rs's apply_ops.
func Apply(b *graph.Builder, ops []graph.GraphOp) {
	b.ApplyAll(ops)
}
