// Package reference implements two-phase reference discovery (spec §4.D
// "Reference discovery"): Phase A's inverted-token-index candidate
// filter, and Phase B's syntax-aware, intent-aware verification.
//
// Grounded on original_source/src/analysis/discovery.rs (DiscoveryEngine:
// scout_references for the meso filter, scan_file for the micro
// verification), adapted so Phase A is the spec's stronger, documented
// token-intersection contract rather than the prototype's weaker
// edge-walk (see DESIGN.md).
package reference

import (
	"strings"

	"github.com/naviscope/naviscope/internal/graph"
)

// Intent is the syntactic category under which a reference is sought.
type Intent int

const (
	IntentMethodCall Intent = iota
	IntentTypeReference
	IntentFieldAccess
	IntentGeneric
)

func (i Intent) String() string {
	switch i {
	case IntentMethodCall:
		return "method-call"
	case IntentTypeReference:
		return "type-reference"
	case IntentFieldAccess:
		return "field-access"
	case IntentGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// IntentFor selects the intent a target symbol's kind implies, per spec
// §4.D: "Intent is... selected by the kind of the target symbol."
func IntentFor(kind graph.SymbolKind) Intent {
	switch kind {
	case graph.SymbolKindMethod, graph.SymbolKindConstructor:
		return IntentMethodCall
	case graph.SymbolKindField:
		return IntentFieldAccess
	case graph.SymbolKindClass, graph.SymbolKindInterface, graph.SymbolKindEnum, graph.SymbolKindAnnotation:
		return IntentTypeReference
	default:
		return IntentGeneric
	}
}

// Target is a resolution to search references for: a node-id, its FQN,
// kind, and derived intent.
type Target struct {
	NodeID graph.NodeID
	FQN    string
	Kind   graph.SymbolKind
	Intent Intent
}

// NewTarget builds a Target from a resolved node, deriving Intent from
// its kind.
func NewTarget(id graph.NodeID, n graph.Node) Target {
	kind := graph.SymbolKindClass
	if n.Kind == graph.NodeKindCode && n.Code != nil {
		kind = n.Code.Kind
	}
	return Target{NodeID: id, FQN: n.FQN(), Kind: kind, Intent: IntentFor(kind)}
}

// Tokens returns the token set Phase A intersects: the target's
// unqualified short name, plus — for methods — the containing type's
// short name (spec §4.D Phase A).
func Tokens(g *graph.ImmutableGraph, t Target) []string {
	n, ok := g.Node(t.NodeID)
	if !ok {
		return nil
	}
	short := n.ShortName()
	if short == "" {
		return nil
	}
	toks := []string{short}
	if t.Intent == IntentMethodCall {
		if container := containingTypeShortName(g, t.FQN); container != "" {
			toks = append(toks, container)
		}
	}
	return toks
}

// containingTypeShortName derives the short name of fqn's second-to-last
// segment in its namespaced identifier (module::package::type[::member]),
// the canonical normalisation spec §9 mandates. Flatter identifiers
// (package::member, with no distinct type segment) have no containing
// type and return "".
func containingTypeShortName(_ *graph.ImmutableGraph, fqn string) string {
	segs := strings.Split(fqn, "::")
	if len(segs) < 3 {
		return ""
	}
	return segs[len(segs)-2]
}
