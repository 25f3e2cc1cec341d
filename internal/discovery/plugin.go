// Package discovery implements the Discovery Pipeline (spec §4.D): Scan &
// Parse, Resolve, and Apply, plus the pluggable per-language registry
// that each phase consults.
//
// Grounded on original_source/src/project/scanner.rs (Scanner::
// scan_and_parse) for the scan/parse shape and teacher's
// internal/scanner/queries.go for the tree-sitter query strings each
// language plugin supplies.
package discovery

import (
	"path/filepath"
	"strings"
)

// Plugin is the unit the spec's language plugin contract (§4.E) names: a
// file matcher, a parser, a resolver, and (for languages that enable it)
// a semantic resolver and reference checker supplied separately by
// internal/discovery/reference. A plugin never mutates the live graph —
// it only emits GraphOp values.
type Plugin interface {
	// Language is the tag stored on SourceFileRecord and CodeNode/
	// Placeholder metadata.
	Language() string
	// Matches reports whether this plugin owns path, by extension.
	Matches(path string) bool
	// Parse produces a ParsedFile from raw source bytes.
	Parse(path string, content []byte) (*ParsedFile, error)
	// Resolver returns the LanguageResolver this plugin uses for Phase 2.
	Resolver() LanguageResolver
}

// Registry maps file extensions to the Plugin that owns them. At most one
// plugin claims a given extension; first-registered wins.
type Registry struct {
	byExt map[string]Plugin
}

// NewRegistry constructs an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Plugin)}
}

// Register adds p for every extension it matches among the supplied set.
func (r *Registry) Register(p Plugin, exts ...string) {
	for _, ext := range exts {
		key := strings.ToLower(ext)
		if _, taken := r.byExt[key]; taken {
			continue
		}
		r.byExt[key] = p
	}
}

// For returns the plugin that owns path's extension, if any.
func (r *Registry) For(path string) (Plugin, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExt[ext]
	return p, ok
}

// Languages returns the distinct set of registered language tags.
func (r *Registry) Languages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.byExt {
		lang := p.Language()
		if !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	return out
}
