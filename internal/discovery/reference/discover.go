package reference

import (
	"context"
	"sort"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/naviscope/naviscope/internal/discovery"
	"github.com/naviscope/naviscope/internal/graph"
	"github.com/naviscope/naviscope/internal/naverr"
)

// Finder runs the two-phase reference search (spec §4.D) against a single
// graph snapshot. It holds no graph state of its own, so a new Finder (or
// a reused one, it is stateless across calls) is safe to use against any
// snapshot.
type Finder struct {
	registry *discovery.Registry
	resolver SemanticResolver
	checker  Checker
	logger   *zap.Logger

	queryCache   map[string]*sitter.Query
	queryCacheMu sync.Mutex
}

// NewFinder constructs a Finder. A nil resolver defaults to a
// GraphSemanticResolver bound to g at search time; a nil checker defaults
// to DefaultChecker.
func NewFinder(registry *discovery.Registry, resolver SemanticResolver, checker Checker, logger *zap.Logger) *Finder {
	if checker == nil {
		checker = DefaultChecker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{
		registry: registry, resolver: resolver, checker: checker, logger: logger,
		queryCache: make(map[string]*sitter.Query),
	}
}

// FindReferences runs Phase A then Phase B for target against g, returning
// a best-effort list of locations sorted by (path, start), per spec §4.D
// "Failure semantics." Individual candidate failures are recorded in
// faults but never abort the search.
func (f *Finder) FindReferences(ctx context.Context, g *graph.ImmutableGraph, target Target, faults *naverr.FaultLog) []graph.Location {
	candidates := f.phaseA(g, target)

	resolver := f.resolver
	if resolver == nil {
		resolver = &GraphSemanticResolver{Graph: g}
	}

	var mu sync.Mutex
	var out []graph.Location

	var wg sync.WaitGroup
	for _, path := range candidates {
		if ctx.Err() != nil {
			break
		}
		path := path
		wg.Add(1)
		go func() {
			defer wg.Done()
			locs, err := f.phaseBOne(g, path, target, resolver)
			if err != nil {
				faults.Record(naverr.ForPath(naverr.ParseFault, path, "verify reference candidate", err))
				return
			}
			mu.Lock()
			out = append(out, locs...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Range.StartLine != out[j].Range.StartLine {
			return out[i].Range.StartLine < out[j].Range.StartLine
		}
		return out[i].Range.StartCol < out[j].Range.StartCol
	})
	return out
}

// phaseA is the meso-level filter: intersect files_containing_token(t)
// for every token in Tokens(target). Sound but coarse: every file
// returned has at least one lexical occurrence of the name; no file
// containing a genuine reference can be excluded, because the token
// index is built from the file's complete lexical token set (spec §4.D
// Phase A, testable property "two-phase refs completeness over the
// filter").
func (f *Finder) phaseA(g *graph.ImmutableGraph, target Target) []string {
	toks := Tokens(g, target)
	if len(toks) == 0 {
		return nil
	}
	sets := make([][]string, len(toks))
	for i, t := range toks {
		sets[i] = g.FilesContainingToken(t)
	}
	return intersect(sets)
}

func intersect(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, set := range sets {
		seen := make(map[string]bool, len(set))
		for _, p := range set {
			if !seen[p] {
				seen[p] = true
				counts[p]++
			}
		}
	}
	var out []string
	for p, c := range counts {
		if c == len(sets) {
			out = append(out, p)
		}
	}
	return out
}

// phaseBOne is the micro-level verification for a single candidate path:
// parse (or retrieve from a cache a caller may wire in via the registry's
// own plugin), run the intent-aware query, resolve each occurrence to a
// node id, and check is_reference_to.
func (f *Finder) phaseBOne(g *graph.ImmutableGraph, path string, target Target, resolver SemanticResolver) ([]graph.Location, error) {
	plugin, ok := f.registry.For(path)
	if !ok {
		return nil, nil
	}
	content, pf, err := f.parseForReferences(plugin, path)
	if err != nil || pf == nil || pf.Tree == nil {
		return nil, err
	}
	defer pf.Close()

	query, err := f.intentQuery(plugin.Language(), target.Intent)
	if err != nil || query == nil {
		return nil, err
	}

	short := shortNameOf(g, target)
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	matches := cursor.Matches(query, pf.Tree.RootNode(), content)
	names := query.CaptureNames()

	var out []graph.Location
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		for _, cap := range m.Captures {
			if names[cap.Index] != "occ" {
				continue
			}
			node := cap.Node
			text := node.Utf8Text(content)
			if text != short {
				continue
			}
			start := node.StartPosition()
			id, ok := resolver.ResolveAt(path, int(start.Row), int(start.Column))
			if !ok {
				continue // unresolvable region, skipped silently per spec
			}
			if !f.checker.IsReferenceTo(g, id, target) {
				continue
			}
			end := node.EndPosition()
			out = append(out, graph.Location{
				Path: path,
				Range: graph.Range{
					StartLine: int(start.Row), StartCol: int(start.Column),
					EndLine: int(end.Row), EndCol: int(end.Column),
				},
			})
		}
	}
	return out, nil
}

func shortNameOf(g *graph.ImmutableGraph, target Target) string {
	n, ok := g.Node(target.NodeID)
	if !ok {
		return ""
	}
	return n.ShortName()
}

// parseForReferences re-parses path through its owning plugin. Phase B
// intentionally re-parses rather than threading Phase 1's cached tree
// through, since a target's references may span files scanned in a
// different build; callers that want the cache hit path can wrap Finder
// with one keyed on (path, fingerprint).
func (f *Finder) parseForReferences(plugin discovery.Plugin, path string) ([]byte, *discovery.ParsedFile, error) {
	content, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	pf, err := plugin.Parse(path, content)
	return content, pf, err
}

func (f *Finder) intentQuery(language string, intent Intent) (*sitter.Query, error) {
	key := language + ":" + intent.String()
	f.queryCacheMu.Lock()
	defer f.queryCacheMu.Unlock()
	if q, ok := f.queryCache[key]; ok {
		return q, nil
	}
	q, err := compileIntentQuery(language, intent)
	if err != nil {
		return nil, err
	}
	if q != nil {
		f.queryCache[key] = q
	}
	return q, nil
}
