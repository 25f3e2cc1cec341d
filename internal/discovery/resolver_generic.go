package discovery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/naviscope/naviscope/internal/graph"
)

// genericResolver implements LanguageResolver for every plugin that has
// no language-specific semantics beyond "find definitions, wire them
// into a package/module containment tree, and record the file's lexical
// tokens." The Go plugin layers InheritsFrom extraction (struct
// embedding) on top of this (see resolver_go.go); every other language
// uses it directly.
type genericResolver struct {
	language  string
	defQuery  *sitter.Query
}

func newGenericResolver(lang *sitter.Language, language string) (*genericResolver, error) {
	src, ok := defQueries[language]
	if !ok {
		return nil, fmt.Errorf("discovery: no definition query for language %q", language)
	}
	q, err := sitter.NewQuery(lang, src)
	if err != nil {
		return nil, fmt.Errorf("discovery: compile %s definition query: %w", language, err)
	}
	return &genericResolver{language: language, defQuery: q}, nil
}

// identRe is the fallback lexical tokenizer used to populate the
// reference index's postings regardless of AST structure — it must
// over-approximate (find every identifier-shaped substring, including
// ones inside string literals) because Phase A's soundness guarantee
//(spec §4.D) depends on never under-reporting a token's presence in a
// file; Phase B's syntax-aware query is what later excludes comments and
// strings from being treated as genuine occurrences.
var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func lexTokens(content []byte) []string {
	matches := identRe.FindAllString(string(content), -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// packageFQN derives a deterministic namespace from a file's directory,
// relative to pc's owning module when one claims the path, else the
// file's directory exactly as given (slash-separated). This is the
// canonical normalisation spec §9 "Cross-language
// uniformity" asks implementers to pick: module path + '/' + directory
// components + '::' + symbol name.
func packageFQN(path string, pc *ProjectContext) string {
	dir := filepath.Dir(path)
	if pc != nil {
		if m, ok := pc.PrefixModule(dir + string(filepath.Separator)); ok {
			rel := strings.TrimPrefix(dir, strings.TrimSuffix(m.Root, string(filepath.Separator)))
			rel = strings.TrimPrefix(rel, string(filepath.Separator))
			if rel == "" {
				return m.Path
			}
			return m.Path + "/" + filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(dir)
}

// Resolve implements LanguageResolver.
func (r *genericResolver) Resolve(pf *ParsedFile, pc *ProjectContext) ([]graph.GraphOp, error) {
	var ops []graph.GraphOp
	owned := []string{packageFQN(pf.Path, pc)}
	pkg := owned[0]

	pkgNode := graph.Node{
		Kind: graph.NodeKindCode,
		Code: &graph.CodeNode{
			FQN:            pkg,
			ShortName:      filepath.Base(pkg),
			Kind:           graph.SymbolKindPackage,
			Classification: graph.ClassificationProject,
			Location:       graph.Location{Path: pf.Path},
		},
	}
	ops = append(ops, graph.GraphOp{Kind: graph.OpAddNode, Node: pkgNode})

	if pf.Tree == nil {
		// Parse fault: treat as an empty file but still record it.
		ops = append(ops, graph.GraphOp{
			Kind:      graph.OpUpsertFile,
			OwnedFQNs: owned,
			File: graph.SourceFileRecord{
				Path: pf.Path, Fingerprint: pf.Fingerprint, Language: pf.Language,
			},
		})
		return ops, nil
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	matches := cursor.Matches(r.defQuery, pf.Tree.RootNode(), pf.Content)
	names := r.defQuery.CaptureNames()

	for {
		m := matches.Next()
		if m == nil {
			break
		}
		var defNode, nameNode *sitter.Node
		for _, cap := range m.Captures {
			switch names[cap.Index] {
			case "def":
				n := cap.Node
				defNode = &n
			case "name":
				n := cap.Node
				nameNode = &n
			}
		}
		if nameNode == nil || defNode == nil {
			continue
		}
		short := nameNode.Utf8Text(pf.Content)
		fqn := pkg + "::" + short
		start := defNode.StartPosition()
		end := defNode.EndPosition()

		node := graph.Node{
			Kind: graph.NodeKindCode,
			Code: &graph.CodeNode{
				FQN:       fqn,
				ShortName: short,
				Kind:      classifyDef(defNode.Kind()),
				Location: graph.Location{
					Path: pf.Path,
					Range: graph.Range{
						StartLine: int(start.Row), StartCol: int(start.Column),
						EndLine: int(end.Row), EndCol: int(end.Column),
					},
				},
				Classification: graph.ClassificationProject,
			},
		}
		ops = append(ops, graph.GraphOp{Kind: graph.OpAddNode, Node: node})
		ops = append(ops, graph.GraphOp{Kind: graph.OpAddEdge, Edge: graph.EdgeSpec{
			SrcFQN:     pkg,
			DstFQN:     fqn,
			Kind:       graph.EdgeContains,
			Provenance: &graph.Location{Path: pf.Path},
		}})
		owned = append(owned, fqn)
	}

	ops = append(ops, graph.GraphOp{
		Kind:      graph.OpUpsertFile,
		OwnedFQNs: owned,
		File: graph.SourceFileRecord{
			Path:        pf.Path,
			Fingerprint: pf.Fingerprint,
			Language:    pf.Language,
			Tokens:      lexTokens(pf.Content),
		},
	})
	return ops, nil
}

func classifyDef(kind string) graph.SymbolKind {
	switch {
	case strings.Contains(kind, "method"):
		return graph.SymbolKindMethod
	case strings.Contains(kind, "class"), strings.Contains(kind, "interface"), strings.Contains(kind, "type"):
		return graph.SymbolKindClass
	default:
		return graph.SymbolKindMethod
	}
}
