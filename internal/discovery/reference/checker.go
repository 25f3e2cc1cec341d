package reference

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/naviscope/naviscope/internal/graph"
)

// SemanticResolver maps a source position to the node id it denotes, the
// bridge between Phase B's lexical occurrence sites and the graph's node
// identity space (spec §4.D Phase B step 3). The default implementation
// resolves by name against the graph's own index; internal/lsp supplies
// an LSP-backed implementation when a language server is configured.
type SemanticResolver interface {
	ResolveAt(path string, line, col int) (graph.NodeID, bool)
}

// GraphSemanticResolver resolves purely from the graph's own indexes, with
// no external language server involved. It reads the identifier at the
// occurrence's own position (the call itself, not its enclosing
// declaration) and looks that name up via NodesByName — NodeAt would
// instead return the declaration whose range happens to contain the
// position, which is almost never the symbol a call or type reference
// actually denotes. Sound whenever the name is unique in the graph (the
// common case for project-local symbols); ambiguous names are resolved
// by preferring a same-file, then same-directory, candidate.
type GraphSemanticResolver struct {
	Graph *graph.ImmutableGraph
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func (r *GraphSemanticResolver) ResolveAt(path string, line, col int) (graph.NodeID, bool) {
	name, ok := identifierAt(path, line, col)
	if !ok {
		return 0, false
	}
	candidates := r.Graph.NodesByName(name)
	switch len(candidates) {
	case 0:
		return 0, false
	case 1:
		return candidates[0], true
	default:
		return r.disambiguate(path, candidates)
	}
}

// identifierAt re-reads path and returns the identifier-shaped token
// spanning (line, col), the occurrence Phase B already located but did
// not thread through to the resolver.
func identifierAt(path string, line, col int) (string, bool) {
	content, err := readFile(path)
	if err != nil {
		return "", false
	}
	rows := strings.Split(string(content), "\n")
	if line < 0 || line >= len(rows) {
		return "", false
	}
	row := rows[line]
	for _, span := range identifierPattern.FindAllStringIndex(row, -1) {
		if span[0] <= col && col < span[1] {
			return row[span[0]:span[1]], true
		}
	}
	return "", false
}

// disambiguate picks among several same-named definitions: one in the
// occurrence's own file, else one under the same directory, else the
// lowest node id for a deterministic (if arbitrary) result.
func (r *GraphSemanticResolver) disambiguate(path string, candidates []graph.NodeID) (graph.NodeID, bool) {
	dir := filepath.ToSlash(filepath.Dir(path))
	var sameFile, sameDir []graph.NodeID
	for _, id := range candidates {
		n, ok := r.Graph.Node(id)
		if !ok || n.Kind != graph.NodeKindCode || n.Code == nil {
			continue
		}
		switch {
		case n.Code.Location.Path == path:
			sameFile = append(sameFile, id)
		case filepath.ToSlash(filepath.Dir(n.Code.Location.Path)) == dir:
			sameDir = append(sameDir, id)
		}
	}
	if id, ok := lowest(sameFile); ok {
		return id, true
	}
	if id, ok := lowest(sameDir); ok {
		return id, true
	}
	return lowest(candidates)
}

func lowest(ids []graph.NodeID) (graph.NodeID, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0], true
}

// ResolveOccurrenceTarget resolves the symbol an occurrence at (path,
// line, col) denotes, via the same graph-only lookup
// GraphSemanticResolver.ResolveAt uses. It is the shared implementation
// behind Phase B's default resolver and the query DSL's position-based
// `refs` lookup — both need "what symbol is the identifier at this
// position", not "what declaration's range contains this position".
func ResolveOccurrenceTarget(g *graph.ImmutableGraph, path string, line, col int) (Target, bool) {
	r := &GraphSemanticResolver{Graph: g}
	id, ok := r.ResolveAt(path, line, col)
	if !ok {
		return Target{}, false
	}
	n, ok := g.Node(id)
	if !ok {
		return Target{}, false
	}
	return NewTarget(id, n), true
}

// Checker decides, under language-specific semantics, whether a
// candidate node denotes the same symbol as target (spec §4.D Phase B
// step 3: is_reference_to). The default implementation treats identity
// as sufficient and additionally honours the bridge-method dual-identity
// rule (DESIGN.md open question 2): a reference resolving to a bridge
// node also counts as a reference to its BridgeTarget.
type Checker interface {
	IsReferenceTo(g *graph.ImmutableGraph, candidate graph.NodeID, target Target) bool
}

// DefaultChecker is the identity-plus-bridge checker every language
// plugin uses unless it has richer semantics (generics, overloads,
// subtype polymorphism) to layer on top.
type DefaultChecker struct{}

func (DefaultChecker) IsReferenceTo(g *graph.ImmutableGraph, candidate graph.NodeID, target Target) bool {
	if candidate == target.NodeID {
		return true
	}
	n, ok := g.Node(candidate)
	if !ok || n.Kind != graph.NodeKindCode || n.Code == nil {
		return false
	}
	if n.Code.Bridge && n.Code.BridgeTarget == target.FQN {
		return true
	}
	// The reverse direction: target itself is the bridge and candidate
	// resolves to its specialised/erased counterpart.
	if tn, ok := g.Node(target.NodeID); ok && tn.Kind == graph.NodeKindCode && tn.Code != nil {
		if tn.Code.Bridge && tn.Code.BridgeTarget == n.FQN() {
			return true
		}
	}
	return false
}
