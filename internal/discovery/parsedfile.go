package discovery

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParsedFile is Phase 1's output per file: an AST data bundle, a content
// fingerprint, and a language tag (spec §4.D Phase 1). Tree is nil for
// files that failed to parse (spec §7 parse fault: treated as empty).
type ParsedFile struct {
	Path        string
	Language    string
	Content     []byte
	Tree        *sitter.Tree
	Fingerprint uint64
}

// Close releases the underlying tree-sitter tree. Safe to call on a
// ParsedFile whose Tree is nil.
func (f *ParsedFile) Close() {
	if f != nil && f.Tree != nil {
		f.Tree.Close()
	}
}

// TreeSitterParser wraps a single grammar's *sitter.Parser, used by each
// language plugin's Parse method. go-tree-sitter parsers are not safe for
// concurrent Parse calls, and every langPlugin shares one TreeSitterParser
// across the scanner's worker pool and the reference Finder's per-
// candidate goroutines, so Parse serializes internally rather than
// requiring every caller to know that constraint.
type TreeSitterParser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewTreeSitterParser constructs a parser bound to lang.
func NewTreeSitterParser(lang *sitter.Language) (*TreeSitterParser, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		return nil, err
	}
	return &TreeSitterParser{parser: p}, nil
}

// Parse runs the grammar over content and returns the resulting tree. A
// nil, non-error return never happens; a genuine grammar failure (e.g.
// the parser is unset) is surfaced as an error so the caller can record a
// ParseFault and continue.
func (p *TreeSitterParser) Parse(content []byte) (*sitter.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tree := p.parser.Parse(content, nil)
	if tree == nil {
		return nil, errNoTree
	}
	return tree, nil
}

// Close releases the underlying grammar parser.
func (p *TreeSitterParser) Close() {
	p.parser.Close()
}

var errNoTree = parseError("tree-sitter returned no tree")

type parseError string

func (e parseError) Error() string { return string(e) }
