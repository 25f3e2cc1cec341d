package discovery

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tsgo "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tsjs "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tspy "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tsts "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	tslua "github.com/tree-sitter-grammars/tree-sitter-lua/bindings/go"
	tszig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
)

// langPlugin is the concrete Plugin implementation shared by every
// tree-sitter-backed language: a grammar-bound parser plus a
// LanguageResolver (genericResolver, or goResolver for Go).
type langPlugin struct {
	language string
	exts     []string
	parser   *TreeSitterParser
	resolver LanguageResolver
}

func (p *langPlugin) Language() string { return p.language }

func (p *langPlugin) Matches(path string) bool {
	return hasAnyExt(path, p.exts)
}

func (p *langPlugin) Parse(path string, content []byte) (*ParsedFile, error) {
	tree, err := p.parser.Parse(content)
	fp := xxhash.Sum64(content)
	if err != nil {
		return &ParsedFile{Path: path, Language: p.language, Content: content, Fingerprint: fp}, err
	}
	return &ParsedFile{
		Path: path, Language: p.language, Content: content,
		Tree: tree, Fingerprint: fp,
	}, nil
}

func (p *langPlugin) Resolver() LanguageResolver { return p.resolver }

func hasAnyExt(path string, exts []string) bool {
	for _, e := range exts {
		if len(path) >= len(e) && path[len(path)-len(e):] == e {
			return true
		}
	}
	return false
}

// NewDefaultRegistry constructs the plugin registry covering every
// grammar teacher's go.mod already depends on: Go, JavaScript,
// TypeScript, Python, Lua, Zig. Grounded on teacher's go.mod grammar
// requires and internal/scanner/queries.go's per-language query set.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()

	goLang := sitter.NewLanguage(tsgo.Language())
	goParser, err := NewTreeSitterParser(goLang)
	if err != nil {
		return nil, fmt.Errorf("discovery: init go parser: %w", err)
	}
	goRes, err := newGoResolver(goLang)
	if err != nil {
		return nil, err
	}
	r.Register(&langPlugin{language: "go", exts: []string{".go"}, parser: goParser, resolver: goRes}, ".go")

	type grammar struct {
		lang     string
		exts     []string
		language func() *sitter.Language
	}
	grammars := []grammar{
		{"python", []string{".py"}, func() *sitter.Language { return sitter.NewLanguage(tspy.Language()) }},
		{"javascript", []string{".js", ".jsx", ".mjs"}, func() *sitter.Language { return sitter.NewLanguage(tsjs.Language()) }},
		{"typescript", []string{".ts", ".tsx"}, func() *sitter.Language { return sitter.NewLanguage(tsts.LanguageTypescript()) }},
		{"lua", []string{".lua"}, func() *sitter.Language { return sitter.NewLanguage(tslua.Language()) }},
		{"zig", []string{".zig"}, func() *sitter.Language { return sitter.NewLanguage(tszig.Language()) }},
	}
	for _, g := range grammars {
		lang := g.language()
		parser, err := NewTreeSitterParser(lang)
		if err != nil {
			return nil, fmt.Errorf("discovery: init %s parser: %w", g.lang, err)
		}
		res, err := newGenericResolver(lang, g.lang)
		if err != nil {
			return nil, err
		}
		r.Register(&langPlugin{language: g.lang, exts: g.exts, parser: parser, resolver: res}, g.exts...)
	}
	return r, nil
}
