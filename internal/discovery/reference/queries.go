package reference

import (
	"fmt"
	"os"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/naviscope/naviscope/internal/discovery"
)

// compileIntentQuery compiles the (language, intent) occurrence query
// sourced from internal/discovery's table. A language with no intent
// query registered (no grammar wired for Phase B yet) returns a nil
// query rather than an error: Finder treats that as "no occurrences
// findable for this language" instead of a hard failure.
func compileIntentQuery(language string, intent Intent) (*sitter.Query, error) {
	src, ok := discovery.IntentQuerySource(language, intent.String())
	if !ok {
		return nil, nil
	}
	lang, ok := discovery.LanguageByName(language)
	if !ok {
		return nil, nil
	}
	q, err := sitter.NewQuery(lang, src)
	if err != nil {
		return nil, fmt.Errorf("reference: compile %s/%s occurrence query: %w", language, intent, err)
	}
	return q, nil
}

// readFile is the thin indirection Finder uses to load a candidate's raw
// bytes for Phase B re-parsing.
func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
