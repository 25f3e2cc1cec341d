// Package query implements the Query DSL (spec §6 "External Interfaces",
// §8 ordering contract): six fixed query kinds run as a synchronous
// read-only dispatch against a single Immutable Graph snapshot.
//
// Grounded on original_source/src/query/{dsl,engine,model}.rs
// (GraphQuery enum, QueryEngine::execute, NodeSummary), generalized from
// the prototype's five Java/Gradle-specific kinds (Grep/Ls/Inspect/
// Incoming/Outgoing) to the spec's six language-agnostic ones
// (find/ls/cat/deps-out/deps-in/refs).
package query

import (
	"sort"

	"github.com/naviscope/naviscope/internal/graph"
)

// NodeSummary is the DSL's common result shape: (FQN, short-name, kind,
// classification), per spec §6 "A node summary is (FQN, short-name,
// kind, classification)."
type NodeSummary struct {
	FQN            string `json:"fqn"`
	ShortName      string `json:"short_name"`
	Kind           string `json:"kind"`
	Classification string `json:"classification"`
}

// NewNodeSummary derives a summary from any graph node variant.
func NewNodeSummary(n graph.Node) NodeSummary {
	kind := n.Kind.String()
	if n.Kind == graph.NodeKindCode && n.Code != nil {
		kind = n.Code.Kind.String()
	}
	return NodeSummary{
		FQN:            n.FQN(),
		ShortName:      n.ShortName(),
		Kind:           kind,
		Classification: n.Classification().String(),
	}
}

// kindPriority ranks summary kinds for the (kind-priority, FQN) result
// ordering spec §6 mandates. Type-level kinds sort before member-level
// kinds, which sort before the structural package/module/build/
// placeholder kinds. This differs from SymbolKind's declaration order in
// one place: parameter ranks before package and module here.
var kindPriority = map[string]int{
	"class": 0, "interface": 1, "enum": 2, "annotation": 3,
	"method": 4, "constructor": 5, "field": 6, "parameter": 7,
	"package": 8, "module": 9,
	"build": 10, "placeholder": 11,
}

func priorityOf(kind string) int {
	if p, ok := kindPriority[kind]; ok {
		return p
	}
	return len(kindPriority)
}

// SortSummaries orders results by (kind-priority, FQN) in place.
func SortSummaries(summaries []NodeSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		pi, pj := priorityOf(summaries[i].Kind), priorityOf(summaries[j].Kind)
		if pi != pj {
			return pi < pj
		}
		return summaries[i].FQN < summaries[j].FQN
	})
}

// CatResult is cat's full payload: the node itself plus its source range,
// per spec §6 "`cat` | FQN | full node payload + source range".
type CatResult struct {
	Node     graph.Node     `json:"node"`
	Path     string         `json:"path,omitempty"`
	Range    graph.Range    `json:"range,omitempty"`
	Classify string         `json:"classification"`
}
