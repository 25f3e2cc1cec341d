package query

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"

	"github.com/naviscope/naviscope/internal/discovery/reference"
	"github.com/naviscope/naviscope/internal/graph"
	"github.com/naviscope/naviscope/internal/naverr"
)

// Engine is a thin, stateless dispatcher over a single Immutable Graph
// snapshot, the synchronous read surface spec §6 names `query(q)`.
// Grounded on original_source/src/query/engine.rs's QueryEngine::execute.
type Engine struct {
	g      *graph.ImmutableGraph
	finder *reference.Finder
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithFinder wires a reference.Finder into the Engine so `refs` queries
// can compose Finder.FindReferences and return an actual location list,
// per spec §6's Query DSL table ("`refs` | FQN or position | list of
// source locations"), instead of only resolving the target node.
func WithFinder(f *reference.Finder) Option {
	return func(e *Engine) { e.finder = f }
}

// New binds an Engine to g. Callers take a fresh snapshot per call site
// (spec §4.C): an Engine is cheap to construct and not meant to outlive
// the snapshot it wraps.
func New(g *graph.ImmutableGraph, opts ...Option) *Engine {
	e := &Engine{g: g}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute dispatches q to the matching query kind. ctx governs `refs`'s
// underlying Finder.FindReferences call, the one query kind whose work
// can span many files and so honors cancellation (spec §5, "a query
// holding a snapshot is cancellable at await points"); every other kind
// is a synchronous, non-cancellable index lookup.
func (e *Engine) Execute(ctx context.Context, q Query) (any, error) {
	switch q.Kind {
	case KindFind:
		return e.find(q)
	case KindLs:
		return e.ls(q)
	case KindCat:
		return e.cat(q)
	case KindDepsOut:
		return e.deps(q, graph.DirectionOut)
	case KindDepsIn:
		return e.deps(q, graph.DirectionIn)
	case KindRefs:
		return e.refs(ctx, q)
	default:
		return nil, naverr.New(naverr.QueryFault, fmt.Sprintf("unknown query kind %q", q.Kind), nil)
	}
}

func (e *Engine) find(q Query) ([]NodeSummary, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}
	re, err := regexp.Compile("(?i)" + q.Pattern)
	if err != nil {
		return nil, naverr.New(naverr.QueryFault, "invalid find pattern", err)
	}

	var filterProg cel.Program
	if q.Expr != "" {
		filterProg, err = compileFindExpr(q.Expr)
		if err != nil {
			return nil, err
		}
	}

	allowKind := kindAllower(q.KindFilter)

	var out []NodeSummary
	for _, n := range e.g.Nodes() {
		s := NewNodeSummary(n)
		if !re.MatchString(s.FQN) && !re.MatchString(s.ShortName) {
			continue
		}
		if !allowKind(s.Kind) {
			continue
		}
		if filterProg != nil {
			ok, err := evalFindExpr(filterProg, s)
			if err != nil {
				return nil, naverr.New(naverr.QueryFault, "evaluate find expr", err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, s)
		if len(out) >= limit {
			break
		}
	}
	SortSummaries(out)
	return out, nil
}

func (e *Engine) ls(q Query) ([]NodeSummary, error) {
	allowKind := kindAllower(q.KindFilter)

	if q.FQN == "" {
		// No FQN: list every project-level package/module node, the
		// closest Go analogue of the prototype's "top-level Gradle
		// module" listing (spec §6 "ls | FQN, optional kind filter |
		// list of contained children summaries", FQN omitted lists
		// top-level containers).
		var out []NodeSummary
		for _, n := range e.g.Nodes() {
			if n.Kind != graph.NodeKindCode || n.Code == nil {
				continue
			}
			if n.Code.Kind != graph.SymbolKindPackage && n.Code.Kind != graph.SymbolKindModule {
				continue
			}
			s := NewNodeSummary(n)
			if allowKind(s.Kind) {
				out = append(out, s)
			}
		}
		SortSummaries(out)
		return out, nil
	}

	id, ok := e.g.FindByFQN(q.FQN)
	if !ok {
		return nil, naverr.New(naverr.QueryFault, fmt.Sprintf("ls: node not found: %s", q.FQN), nil)
	}
	var out []NodeSummary
	for _, childID := range e.g.Neighbors(id, []graph.EdgeKind{graph.EdgeContains}, graph.DirectionOut) {
		n, ok := e.g.Node(childID)
		if !ok {
			continue
		}
		s := NewNodeSummary(n)
		if allowKind(s.Kind) {
			out = append(out, s)
		}
	}
	SortSummaries(out)
	return out, nil
}

func (e *Engine) cat(q Query) (CatResult, error) {
	id, ok := e.g.FindByFQN(q.FQN)
	if !ok {
		return CatResult{}, naverr.New(naverr.QueryFault, fmt.Sprintf("cat: node not found: %s", q.FQN), nil)
	}
	n, _ := e.g.Node(id)
	res := CatResult{Node: n, Classify: n.Classification().String()}
	if n.Kind == graph.NodeKindCode && n.Code != nil {
		res.Path = n.Code.Location.Path
		res.Range = n.Code.Location.Range
	}
	return res, nil
}

func (e *Engine) deps(q Query, dir graph.Direction) ([]NodeSummary, error) {
	id, ok := e.g.FindByFQN(q.FQN)
	if !ok {
		return nil, naverr.New(naverr.QueryFault, fmt.Sprintf("deps: node not found: %s", q.FQN), nil)
	}
	var out []NodeSummary
	for _, neighborID := range e.g.Neighbors(id, q.EdgeKinds, dir) {
		n, ok := e.g.Node(neighborID)
		if !ok {
			continue
		}
		out = append(out, NewNodeSummary(n))
	}
	SortSummaries(out)
	return out, nil
}

// refs resolves q's target (by FQN or by position) and runs the two-phase
// reference search against it, returning the location list spec §6's
// Query DSL table specifies ("`refs` | FQN or position | list of source
// locations"). It requires an Engine constructed with WithFinder; without
// one, refs reports a query fault rather than silently degrading to
// target resolution alone.
func (e *Engine) refs(ctx context.Context, q Query) ([]graph.Location, error) {
	if e.finder == nil {
		return nil, naverr.New(naverr.QueryFault, "refs: engine has no reference finder configured", nil)
	}
	target, err := e.refsTarget(q)
	if err != nil {
		return nil, err
	}
	faults := naverr.NewFaultLog(zap.NewNop())
	locs := e.finder.FindReferences(ctx, e.g, target, faults)
	if locs == nil {
		locs = []graph.Location{}
	}
	return locs, nil
}

func (e *Engine) refsTarget(q Query) (reference.Target, error) {
	if q.FQN != "" {
		id, ok := e.g.FindByFQN(q.FQN)
		if !ok {
			return reference.Target{}, naverr.New(naverr.QueryFault, fmt.Sprintf("refs: node not found: %s", q.FQN), nil)
		}
		n, _ := e.g.Node(id)
		return reference.NewTarget(id, n), nil
	}
	if q.Position == nil {
		return reference.Target{}, naverr.New(naverr.QueryFault, "refs: neither fqn nor position supplied", nil)
	}
	target, ok := reference.ResolveOccurrenceTarget(e.g, q.Position.Path, q.Position.Line, q.Position.Col)
	if !ok {
		return reference.Target{}, naverr.New(naverr.QueryFault, "refs: no symbol at position", nil)
	}
	return target, nil
}

func kindAllower(filter []string) func(string) bool {
	if len(filter) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(filter))
	for _, k := range filter {
		set[k] = true
	}
	return func(k string) bool { return set[k] }
}
