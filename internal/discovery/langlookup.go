package discovery

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tsgo "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tsjs "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tspy "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tsts "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// IntentQuerySource returns the raw tree-sitter query source for a
// (language, intent) pair, letting internal/discovery/reference compile
// Phase B's occurrence queries without duplicating the query table.
func IntentQuerySource(language, intent string) (string, bool) {
	byIntent, ok := intentQueries[language]
	if !ok {
		return "", false
	}
	src, ok := byIntent[intent]
	return src, ok
}

// LanguageByName returns the grammar *sitter.Language for a language tag,
// for the subset of languages Phase B's intent queries cover.
func LanguageByName(name string) (*sitter.Language, bool) {
	switch name {
	case "go":
		return sitter.NewLanguage(tsgo.Language()), true
	case "python":
		return sitter.NewLanguage(tspy.Language()), true
	case "javascript":
		return sitter.NewLanguage(tsjs.Language()), true
	case "typescript":
		return sitter.NewLanguage(tsts.LanguageTypescript()), true
	default:
		return nil, false
	}
}
