package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildResolverParsesGoModAndDeps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), `module github.com/acme/widget

go 1.25.6

require (
	github.com/stretchr/testify v1.11.1
	go.uber.org/zap v1.27.0
)

require github.com/google/uuid v1.6.0
`)
	writeFile(t, filepath.Join(dir, "pkg", "x.go"), "package pkg\n")

	br := NewBuildResolver()
	pc, err := br.Resolve(dir)
	require.NoError(t, err)
	require.Len(t, pc.Modules, 1)

	m := pc.Modules[0]
	assert.Equal(t, "github.com/acme/widget", m.Path)
	assert.ElementsMatch(t, []string{
		"github.com/stretchr/testify",
		"go.uber.org/zap",
		"github.com/google/uuid",
	}, m.Deps)
}

func TestPrefixModuleReturnsLongestMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module outer\n")
	writeFile(t, filepath.Join(dir, "nested", "go.mod"), "module inner\n")

	br := NewBuildResolver()
	pc, err := br.Resolve(dir)
	require.NoError(t, err)

	m, ok := pc.PrefixModule(filepath.Join(dir, "nested", "pkg") + string(filepath.Separator))
	require.True(t, ok)
	assert.Equal(t, "inner", m.Path)

	m, ok = pc.PrefixModule(filepath.Join(dir, "other") + string(filepath.Separator))
	require.True(t, ok)
	assert.Equal(t, "outer", m.Path)
}

func TestPackageFQNFallsBackToDirWhenNoModuleClaimsPath(t *testing.T) {
	fqn := packageFQN(filepath.Join("some", "dir", "file.go"), nil)
	assert.Equal(t, "some/dir", fqn)
}

func TestLexTokensDeduplicatesAndIncludesStringLiteralContent(t *testing.T) {
	toks := lexTokens([]byte(`func save() { fmt.Println("save later") }`))
	assert.Contains(t, toks, "save")
	assert.Contains(t, toks, "later")
	count := 0
	for _, tok := range toks {
		if tok == "save" {
			count++
		}
	}
	assert.Equal(t, 1, count, "lexTokens deduplicates")
}
