package graph

import "sort"

// OpKind tags the GraphOp variants Phase 3 applies, in the fixed order
// the engine enforces: removals, then node-adds, then edge-adds, then
// file-upserts. UpgradePlaceholder is applied alongside node-adds since it
// shares their identity-preserving contract.
type OpKind int

const (
	OpRemoveNodesForPath OpKind = iota
	OpAddNode
	OpUpgradePlaceholder
	OpAddEdge
	OpUpsertFile
)

// EdgeSpec is an edge addition keyed by endpoint FQN rather than NodeID:
// resolvers emit edges before the builder has assigned ids to either
// endpoint (AddNode assigns ids at apply time), so an op-level edge must
// name its endpoints by the identity that is stable across that gap —
// the FQN (spec §5: "node identity is FQN-based and edge addition
// deduplicates").
type EdgeSpec struct {
	SrcFQN     string
	DstFQN     string
	Kind       EdgeKind
	Provenance *Location
}

// GraphOp is the idempotent instruction set Phase 3 applies to a Builder.
// Exactly one of the payload fields is populated, selected by Kind.
type GraphOp struct {
	Kind OpKind

	// OpAddNode / OpUpgradePlaceholder
	Node Node

	// OpAddEdge
	Edge EdgeSpec

	// OpRemoveNodesForPath
	RemovePath string

	// OpUpsertFile. File.OwnedNodes is ignored if OwnedFQNs is non-empty:
	// resolvers know the FQNs they defined but not the NodeIDs the
	// builder will assign (AddNode assigns ids at apply time, which by
	// construction runs before file-upserts in phase order), so they
	// populate OwnedFQNs and leave File.OwnedNodes empty.
	File      SourceFileRecord
	OwnedFQNs []string
}

func phaseOrder(k OpKind) int {
	switch k {
	case OpRemoveNodesForPath:
		return 0
	case OpAddNode, OpUpgradePlaceholder:
		return 1
	case OpAddEdge:
		return 2
	case OpUpsertFile:
		return 3
	default:
		return 4
	}
}

// SortOps orders a batch of ops into the apply order mandated by spec
// §4.D Phase 3 / §5: removals, node-adds (and placeholder upgrades),
// edge-adds, file-upserts. The sort is stable, so within a phase the
// caller's relative ordering (e.g. per-file emission order) survives.
func SortOps(ops []GraphOp) {
	sort.SliceStable(ops, func(i, j int) bool {
		return phaseOrder(ops[i].Kind) < phaseOrder(ops[j].Kind)
	})
}

// Builder is the mutable, single-writer draft. It is seeded from an
// ImmutableGraph (conceptually a deep clone of the inner tables) and
// produces a new ImmutableGraph exactly once, via Seal.
type Builder struct {
	baseVersion uint64

	nodes []Node // indexed by NodeID; tombstones become zero-value Node
	edges []Edge

	fqnIndex  map[string]NodeID
	nameIndex map[string][]NodeID
	fileIndex map[string]SourceFileRecord

	sealed bool
}

// NewBuilder seeds a Builder from base. A nil base seeds an empty builder,
// used for the initial rebuild and for the version-1 empty-project case.
func NewBuilder(base *ImmutableGraph) *Builder {
	b := &Builder{
		fqnIndex:  make(map[string]NodeID),
		nameIndex: make(map[string][]NodeID),
		fileIndex: make(map[string]SourceFileRecord),
	}
	if base == nil {
		return b
	}
	b.baseVersion = base.version
	b.nodes = append(b.nodes, base.nodes...)
	b.edges = append(b.edges, base.edges...)
	for k, v := range base.fqnIndex {
		b.fqnIndex[k] = v
	}
	for k, v := range base.nameIndex {
		b.nameIndex[k] = append([]NodeID(nil), v...)
	}
	for k, v := range base.fileIndex {
		rec := v
		rec.OwnedNodes = append([]NodeID(nil), v.OwnedNodes...)
		b.fileIndex[k] = rec
	}
	return b
}

func (b *Builder) nodeIsLive(id NodeID) bool {
	if int(id) >= len(b.nodes) {
		return false
	}
	n := b.nodes[id]
	return n.Kind != 0 || n.Code != nil || n.Build != nil || n.Stub != nil
}

// AddNode is idempotent on FQN: if fqn is already present the existing
// node id is returned unchanged and no new node is allocated.
func (b *Builder) AddNode(n Node) NodeID {
	fqn := n.FQN()
	if id, ok := b.fqnIndex[fqn]; ok && b.nodeIsLive(id) {
		return id
	}
	id := NodeID(len(b.nodes))
	n.ID = id
	b.nodes = append(b.nodes, n)
	b.fqnIndex[fqn] = id
	if short := n.ShortName(); short != "" {
		b.nameIndex[short] = appendUnique(b.nameIndex[short], id)
	}
	return id
}

// UpgradePlaceholder replaces a placeholder's metadata with a full node
// payload while keeping its node id constant, preserving every edge that
// already points at it (spec invariant 1, FQN stability).
func (b *Builder) UpgradePlaceholder(fqn string, n Node) (NodeID, bool) {
	id, ok := b.fqnIndex[fqn]
	if !ok || !b.nodeIsLive(id) {
		return 0, false
	}
	n.ID = id
	b.nodes[id] = n
	if short := n.ShortName(); short != "" {
		b.nameIndex[short] = appendUnique(b.nameIndex[short], id)
	}
	return id, true
}

// AddEdge deduplicates on (src, dst, kind); endpoints that don't resolve
// to a live node are dropped with an invariant-violation fault left to the
// caller to log (spec §7).
func (b *Builder) AddEdge(e Edge) bool {
	if !b.nodeIsLive(e.Src) || !b.nodeIsLive(e.Dst) {
		return false
	}
	key := e.key()
	for _, existing := range b.edges {
		if existing.key() == key {
			return true
		}
	}
	b.edges = append(b.edges, e)
	return true
}

// AddEdgeSpec resolves an EdgeSpec's FQN endpoints against the builder's
// current fqn index and, if both resolve to live nodes, delegates to
// AddEdge. It returns false (an invariant violation the caller should
// log, spec §7) when either endpoint is unresolved — this is the
// ordinary case for an edge whose destination hasn't been added yet
// within the same apply batch when SortOps's phase order is bypassed, or
// for a dangling reference to a symbol that was never indexed.
func (b *Builder) AddEdgeSpec(spec EdgeSpec) bool {
	src, ok := b.fqnIndex[spec.SrcFQN]
	if !ok {
		return false
	}
	dst, ok := b.fqnIndex[spec.DstFQN]
	if !ok {
		return false
	}
	return b.AddEdge(Edge{Src: src, Dst: dst, Kind: spec.Kind, Provenance: spec.Provenance})
}

// RemoveNodesForPath removes every node owned by path and all incident
// edges, then drops the path's file-index entry.
func (b *Builder) RemoveNodesForPath(path string) {
	rec, ok := b.fileIndex[path]
	if !ok {
		return
	}
	dead := make(map[NodeID]bool, len(rec.OwnedNodes))
	for _, id := range rec.OwnedNodes {
		dead[id] = true
		if int(id) < len(b.nodes) {
			n := b.nodes[id]
			fqn := n.FQN()
			if cur, ok := b.fqnIndex[fqn]; ok && cur == id {
				delete(b.fqnIndex, fqn)
			}
			if short := n.ShortName(); short != "" {
				b.nameIndex[short] = removeID(b.nameIndex[short], id)
			}
			b.nodes[id] = Node{}
		}
	}
	filtered := b.edges[:0:0]
	for _, e := range b.edges {
		if dead[e.Src] || dead[e.Dst] {
			continue
		}
		filtered = append(filtered, e)
	}
	b.edges = filtered
	delete(b.fileIndex, path)
}

// UpsertFile records (or replaces) the SourceFileRecord for path.
func (b *Builder) UpsertFile(rec SourceFileRecord) {
	owned := append([]NodeID(nil), rec.OwnedNodes...)
	rec.OwnedNodes = owned
	b.fileIndex[rec.Path] = rec
}

// Apply dispatches a single GraphOp to the matching builder method. The
// caller is responsible for ordering the batch with SortOps first.
func (b *Builder) Apply(op GraphOp) {
	switch op.Kind {
	case OpRemoveNodesForPath:
		b.RemoveNodesForPath(op.RemovePath)
	case OpAddNode:
		b.AddNode(op.Node)
	case OpUpgradePlaceholder:
		b.UpgradePlaceholder(op.Node.FQN(), op.Node)
	case OpAddEdge:
		b.AddEdgeSpec(op.Edge)
	case OpUpsertFile:
		rec := op.File
		if len(op.OwnedFQNs) > 0 {
			rec.OwnedNodes = rec.OwnedNodes[:0]
			for _, fqn := range op.OwnedFQNs {
				if id, ok := b.fqnIndex[fqn]; ok {
					rec.OwnedNodes = append(rec.OwnedNodes, id)
				}
			}
		}
		b.UpsertFile(rec)
	}
}

// ApplyAll sorts ops into phase order and applies them in sequence.
func (b *Builder) ApplyAll(ops []GraphOp) {
	SortOps(ops)
	for _, op := range ops {
		b.Apply(op)
	}
}

// Seal builds fresh lookup tables from the builder's live node/edge set,
// assigns the next version, and returns the new ImmutableGraph. Seal may
// be called exactly once per builder; subsequent calls panic, matching the
// single-writer-per-draft lifecycle in spec §3.
func (b *Builder) Seal() *ImmutableGraph {
	if b.sealed {
		panic("graph: builder sealed twice")
	}
	b.sealed = true

	g := &ImmutableGraph{
		version:    b.baseVersion + 1,
		nodes:      append([]Node(nil), b.nodes...),
		edges:      append([]Edge(nil), b.edges...),
		fqnIndex:   make(map[string]NodeID, len(b.fqnIndex)),
		nameIndex:  make(map[string][]NodeID, len(b.nameIndex)),
		pathIndex:  make(map[string][]NodeID),
		tokenIndex: make(map[string][]string),
		fileIndex:  make(map[string]SourceFileRecord, len(b.fileIndex)),
		outAdj:     make(map[NodeID][]int),
		inAdj:      make(map[NodeID][]int),
	}

	for k, v := range b.fqnIndex {
		if b.nodeIsLive(v) {
			g.fqnIndex[k] = v
		}
	}
	for k, v := range b.nameIndex {
		var live []NodeID
		for _, id := range v {
			if b.nodeIsLive(id) {
				live = append(live, id)
			}
		}
		if len(live) > 0 {
			g.nameIndex[k] = live
		}
	}
	for path, rec := range b.fileIndex {
		g.fileIndex[path] = rec
		for _, id := range rec.OwnedNodes {
			g.pathIndex[path] = append(g.pathIndex[path], id)
		}
		for _, tok := range tokensForFile(b, rec) {
			g.tokenIndex[tok] = appendUniqueStr(g.tokenIndex[tok], path)
		}
	}
	for _, paths := range g.tokenIndex {
		sort.Strings(paths)
	}
	for i, e := range g.edges {
		g.outAdj[e.Src] = append(g.outAdj[e.Src], i)
		g.inAdj[e.Dst] = append(g.inAdj[e.Dst], i)
	}

	return g
}

// tokensForFile derives the reference-index postings for a file: the raw
// lexical tokens the scanner recorded, plus (always) the short names of
// the nodes the file owns, so a symbol's own defining file is never
// missing from its own posting list even if the scanner's tokenizer
// under-reports declaration sites.
func tokensForFile(b *Builder, rec SourceFileRecord) []string {
	toks := append([]string(nil), rec.Tokens...)
	for _, id := range rec.OwnedNodes {
		if !b.nodeIsLive(id) {
			continue
		}
		if short := b.nodes[id].ShortName(); short != "" {
			toks = appendUniqueStr(toks, short)
		}
	}
	return toks
}

func appendUnique(ids []NodeID, id NodeID) []NodeID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func appendUniqueStr(ss []string, s string) []string {
	for _, existing := range ss {
		if existing == s {
			return ss
		}
	}
	return append(ss, s)
}
