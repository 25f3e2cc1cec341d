package graph

// NodeID identifies a node within a single sealed ImmutableGraph. It is
// stable across a placeholder-to-real upgrade but is only meaningful
// relative to the graph that minted it.
type NodeID uint64

// NodeKind tags the three node variants the data model allows.
type NodeKind int

const (
	NodeKindCode NodeKind = iota
	NodeKindBuild
	NodeKindPlaceholder
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindCode:
		return "code"
	case NodeKindBuild:
		return "build"
	case NodeKindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Classification distinguishes where a code node's definition lives.
type Classification int

const (
	ClassificationProject Classification = iota
	ClassificationExternal
	ClassificationBuiltin
)

func (c Classification) String() string {
	switch c {
	case ClassificationProject:
		return "project"
	case ClassificationExternal:
		return "external"
	case ClassificationBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// SymbolKind distinguishes the source-level category of a CodeNode.
type SymbolKind int

const (
	SymbolKindClass SymbolKind = iota
	SymbolKindInterface
	SymbolKindEnum
	SymbolKindAnnotation
	SymbolKindMethod
	SymbolKindConstructor
	SymbolKindField
	SymbolKindPackage
	SymbolKindModule
	SymbolKindParameter
)

func (k SymbolKind) String() string {
	names := [...]string{
		"class", "interface", "enum", "annotation", "method",
		"constructor", "field", "package", "module", "parameter",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "unknown"
	}
	return names[k]
}

// Range is a half-open source span, line/column both zero-based.
type Range struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Contains reports whether r fully encloses other, used by node_at's
// narrowest-range tie-break.
func (r Range) Contains(other Range) bool {
	if r.StartLine > other.StartLine || (r.StartLine == other.StartLine && r.StartCol > other.StartCol) {
		return false
	}
	if r.EndLine < other.EndLine || (r.EndLine == other.EndLine && r.EndCol < other.EndCol) {
		return false
	}
	return true
}

// ContainsPos reports whether the zero-based (line, col) position falls
// within r.
func (r Range) ContainsPos(line, col int) bool {
	if line < r.StartLine || (line == r.StartLine && col < r.StartCol) {
		return false
	}
	if line > r.EndLine || (line == r.EndLine && col >= r.EndCol) {
		return false
	}
	return true
}

// Location pairs a file path with a Range, the unit returned by refs
// queries and stored as edge provenance.
type Location struct {
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

// Param is one entry of a CodeNode's optional parameter signature.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CodeNode is a source-defined entity: class, interface, enum, annotation,
// method, constructor, field, package, module, or parameter.
type CodeNode struct {
	FQN            string         `json:"fqn"`
	ShortName      string         `json:"short_name"`
	Kind           SymbolKind     `json:"kind"`
	Modifiers      []string       `json:"modifiers,omitempty"`
	Params         []Param        `json:"params,omitempty"`
	Location       Location       `json:"location"`
	Classification Classification `json:"classification"`
	// Bridge marks a method node emitted for a generic bridge/erasure.
	// A reference resolving to a bridge node is additionally checked
	// against BridgeTarget per the dual-identity rule (DESIGN.md).
	Bridge       bool   `json:"bridge,omitempty"`
	BridgeTarget string `json:"bridge_target,omitempty"`
}

// BuildNode is a project or external dependency resolved from build
// configuration (module path, or group/artifact/version for Maven-style
// coordinates).
type BuildNode struct {
	FQN        string `json:"fqn"`
	ModulePath string `json:"module_path,omitempty"`
	Group      string `json:"group,omitempty"`
	Artifact   string `json:"artifact,omitempty"`
	Version    string `json:"version,omitempty"`
}

// Placeholder stands in for an external symbol referenced by project code
// but not yet enriched. It carries the same FQN contract as a CodeNode so
// it can be upgraded in place without a node-identity change. Location, if
// set, is the occurrence that caused this placeholder to be created (not
// the target's own definition site) — the enrichment pass asks a language
// server "what does the reference at Location denote" to find it.
type Placeholder struct {
	FQN       string   `json:"fqn"`
	ShortName string   `json:"short_name"`
	Location  Location `json:"location,omitempty"`
}

// Node is the tagged-variant graph node. Exactly one of Code/Build/Stub is
// non-nil, selected by Kind.
type Node struct {
	ID    NodeID       `json:"id"`
	Kind  NodeKind     `json:"kind"`
	Code  *CodeNode    `json:"code,omitempty"`
	Build *BuildNode   `json:"build,omitempty"`
	Stub  *Placeholder `json:"stub,omitempty"`
}

// FQN returns the node's fully-qualified name regardless of variant.
func (n Node) FQN() string {
	switch n.Kind {
	case NodeKindCode:
		if n.Code != nil {
			return n.Code.FQN
		}
	case NodeKindBuild:
		if n.Build != nil {
			return n.Build.FQN
		}
	case NodeKindPlaceholder:
		if n.Stub != nil {
			return n.Stub.FQN
		}
	}
	return ""
}

// ShortName returns the node's unqualified name regardless of variant.
func (n Node) ShortName() string {
	switch n.Kind {
	case NodeKindCode:
		if n.Code != nil {
			return n.Code.ShortName
		}
	case NodeKindPlaceholder:
		if n.Stub != nil {
			return n.Stub.ShortName
		}
	case NodeKindBuild:
		if n.Build != nil {
			return n.Build.FQN
		}
	}
	return ""
}

// Classification returns the node's classification, defaulting build
// nodes and placeholders to external since neither is project-defined.
func (n Node) Classification() Classification {
	if n.Kind == NodeKindCode && n.Code != nil {
		return n.Code.Classification
	}
	return ClassificationExternal
}

// Path returns the owning source path for code nodes, empty otherwise.
func (n Node) Path() string {
	if n.Kind == NodeKindCode && n.Code != nil {
		return n.Code.Location.Path
	}
	return ""
}
