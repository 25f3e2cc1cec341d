package graph

// EdgeKind is the tagged-variant relation set for graph edges.
type EdgeKind int

const (
	EdgeContains EdgeKind = iota
	EdgeInheritsFrom
	EdgeImplements
	EdgeTypedAs
	EdgeDecoratedBy
	EdgeUsesDependency
)

func (k EdgeKind) String() string {
	names := [...]string{
		"contains", "inherits_from", "implements", "typed_as",
		"decorated_by", "uses_dependency",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "unknown"
	}
	return names[k]
}

// ParseEdgeKind is the inverse of EdgeKind.String, used by the query DSL's
// edge-kind filters.
func ParseEdgeKind(s string) (EdgeKind, bool) {
	switch s {
	case "contains":
		return EdgeContains, true
	case "inherits_from":
		return EdgeInheritsFrom, true
	case "implements":
		return EdgeImplements, true
	case "typed_as":
		return EdgeTypedAs, true
	case "decorated_by":
		return EdgeDecoratedBy, true
	case "uses_dependency":
		return EdgeUsesDependency, true
	default:
		return 0, false
	}
}

// Edge is a directed relation between two nodes, with optional navigation
// provenance (the file/range where the relation was observed).
type Edge struct {
	Src        NodeID    `json:"src"`
	Dst        NodeID    `json:"dst"`
	Kind       EdgeKind  `json:"kind"`
	Provenance *Location `json:"provenance,omitempty"`
}

// key is the (src, dst, kind) dedup key AddEdge uses.
type edgeKey struct {
	src  NodeID
	dst  NodeID
	kind EdgeKind
}

func (e Edge) key() edgeKey {
	return edgeKey{src: e.Src, dst: e.Dst, kind: e.Kind}
}

// Direction selects which side of an edge neighbors() walks.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
)

// SourceFileRecord is the per-path bookkeeping entry: content fingerprint,
// modification time, owned node ids (for clean removal), and the detected
// language tag.
type SourceFileRecord struct {
	Path        string   `json:"path"`
	Fingerprint uint64   `json:"fingerprint"`
	ModTime     int64    `json:"mod_time"` // unix nanoseconds
	Language    string   `json:"language"`
	OwnedNodes  []NodeID `json:"owned_nodes"`
	// Tokens is every lexical identifier the scanner observed in the
	// file (not just the names of nodes it defines) — the raw posting
	// list the reference index's Phase A filter is built from.
	Tokens []string `json:"tokens,omitempty"`
}
