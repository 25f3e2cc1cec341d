package discovery

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/naviscope/naviscope/internal/graph"
)

// goResolver wraps genericResolver with the one piece of language-
// specific structural semantics Go needs beyond definitions: struct
// embedding, the closest analogue this language has to inheritance,
// emitted as InheritsFrom edges between the embedding and embedded type.
type goResolver struct {
	*genericResolver
	embedQuery *sitter.Query
}

func newGoResolver(lang *sitter.Language) (*goResolver, error) {
	base, err := newGenericResolver(lang, "go")
	if err != nil {
		return nil, err
	}
	q, qErr := sitter.NewQuery(lang, embedQueries["go"])
	if qErr != nil {
		return nil, qErr
	}
	return &goResolver{genericResolver: base, embedQuery: q}, nil
}

func (r *goResolver) Resolve(pf *ParsedFile, pc *ProjectContext) ([]graph.GraphOp, error) {
	ops, err := r.genericResolver.Resolve(pf, pc)
	if err != nil || pf.Tree == nil {
		return ops, err
	}

	pkg := packageFQN(pf.Path, pc)
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	matches := cursor.Matches(r.embedQuery, pf.Tree.RootNode(), pf.Content)
	names := r.embedQuery.CaptureNames()

	for {
		m := matches.Next()
		if m == nil {
			break
		}
		var childNode, parentNode *sitter.Node
		for _, cap := range m.Captures {
			switch names[cap.Index] {
			case "child":
				n := cap.Node
				childNode = &n
			case "parent":
				n := cap.Node
				parentNode = &n
			}
		}
		if childNode == nil || parentNode == nil {
			continue
		}
		childFQN := pkg + "::" + childNode.Utf8Text(pf.Content)
		parentName := parentNode.Utf8Text(pf.Content)

		if dot := strings.LastIndex(parentName, "."); dot >= 0 {
			// A qualified selector (pkgAlias.Type): the embedded type
			// lives in another package, not resolvable by a
			// local-package FQN guess. Emit a placeholder keyed on the
			// selector text itself, carrying the embed occurrence's own
			// position so the enrichment pass (Pipeline.enrichPlaceholders,
			// run when a PlaceholderEnricher is configured) can ask what
			// that position actually denotes and upgrade the placeholder
			// in place.
			start := parentNode.StartPosition()
			end := parentNode.EndPosition()
			ops = append(ops, graph.GraphOp{Kind: graph.OpAddNode, Node: graph.Node{
				Kind: graph.NodeKindPlaceholder,
				Stub: &graph.Placeholder{
					FQN:       parentName,
					ShortName: parentName[dot+1:],
					Location: graph.Location{
						Path: pf.Path,
						Range: graph.Range{
							StartLine: int(start.Row), StartCol: int(start.Column),
							EndLine: int(end.Row), EndCol: int(end.Column),
						},
					},
				},
			}})
			ops = append(ops, graph.GraphOp{Kind: graph.OpAddEdge, Edge: graph.EdgeSpec{
				SrcFQN: childFQN,
				DstFQN: parentName,
				Kind:   graph.EdgeInheritsFrom,
			}})
			continue
		}

		parentFQN := pkg + "::" + parentName
		ops = append(ops, graph.GraphOp{Kind: graph.OpAddEdge, Edge: graph.EdgeSpec{
			SrcFQN: childFQN,
			DstFQN: parentFQN,
			Kind:   graph.EdgeInheritsFrom,
		}})
	}
	return ops, nil
}
