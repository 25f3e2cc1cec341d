package query

import "github.com/naviscope/naviscope/internal/graph"

// Kind tags one of the Query DSL's six fixed shapes (spec §6 "Query
// DSL. Six query kinds, each a tagged structure").
type Kind string

const (
	KindFind    Kind = "find"
	KindLs      Kind = "ls"
	KindCat     Kind = "cat"
	KindDepsOut Kind = "deps-out"
	KindDepsIn  Kind = "deps-in"
	KindRefs    Kind = "refs"
)

// Position names a source location, the alternative to an FQN that
// `refs` accepts (spec §6 "`refs` | FQN or position").
type Position struct {
	Path string
	Line int
	Col  int
}

// Query is the tagged-structure DSL request. Only the fields relevant to
// Kind are read by Engine.Execute; the rest are ignored.
type Query struct {
	Kind Kind

	// find
	Pattern string
	// find (supplemented): an optional CEL expression evaluated per
	// candidate NodeSummary, narrowing Pattern's regex match further.
	// See SPEC_FULL.md's domain-stack section: this is the one place
	// google/cel-go is wired into the repo.
	Expr string

	// find/ls: restrict results to these kinds (symbol kind strings,
	// e.g. "class", "method"); empty means unfiltered.
	KindFilter []string

	// ls/cat/deps-out/deps-in: the FQN to operate on.
	FQN string

	// refs: alternative to FQN — resolve the target from a source
	// position instead of a known name.
	Position *Position

	// deps-out/deps-in: restrict traversal to these edge kinds; empty
	// means any kind.
	EdgeKinds []graph.EdgeKind

	// find: caps the result count (spec default limit 20, grounded on
	// original_source/src/query/dsl.rs's default_limit()).
	Limit int
}

const defaultFindLimit = 20
