package discovery

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/naviscope/naviscope/internal/graph"
)

// ModuleInfo is one entry of a ProjectContext's module tree: a build
// anchor (a go.mod file) plus the declared dependencies found there.
type ModuleInfo struct {
	Path string // the module's declared import path, e.g. "github.com/acme/widget"
	Root string // absolute directory containing the anchor file
	Deps []string
}

// ProjectContext is the shared structure the build resolver produces:
// the module tree, dependency declarations, and a path-prefix-to-module
// routing table language resolvers consult to infer a file's owning
// module (spec §4.D Phase 2, glossary "Project context").
type ProjectContext struct {
	Modules []ModuleInfo
	// routes is sorted longest-prefix-first so PrefixModule can do a
	// linear scan and return the most specific match.
	routes []ModuleInfo
}

// PrefixModule returns the module owning absPath by longest matching root
// prefix, or the zero value if no module claims it.
func (pc *ProjectContext) PrefixModule(absPath string) (ModuleInfo, bool) {
	for _, m := range pc.routes {
		if strings.HasPrefix(absPath, m.Root) {
			return m, true
		}
	}
	return ModuleInfo{}, false
}

// BuildResolver processes build-manifest files under root to produce a
// ProjectContext. Grounded on original_source/src/project/scanner.rs's
// Gradle-manifest pass, generalized to Go's own build manifest (go.mod)
// since this Go-hosted index needs no other build tool's semantics to
// exercise the same contract.
type BuildResolver struct{}

// NewBuildResolver constructs a BuildResolver.
func NewBuildResolver() *BuildResolver { return &BuildResolver{} }

// Resolve walks root for go.mod files and builds a ProjectContext.
func (br *BuildResolver) Resolve(root string) (*ProjectContext, error) {
	pc := &ProjectContext{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != "go.mod" {
			return nil
		}
		info, parseErr := parseGoMod(path)
		if parseErr != nil {
			return nil // skip unreadable manifests; not fatal to the build
		}
		pc.Modules = append(pc.Modules, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pc.Modules, func(i, j int) bool {
		return len(pc.Modules[i].Root) > len(pc.Modules[j].Root)
	})
	pc.routes = pc.Modules
	return pc, nil
}

func shouldSkipDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", ".naviscope":
		return true
	default:
		return false
	}
}

func parseGoMod(path string) (ModuleInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ModuleInfo{}, err
	}
	defer f.Close()

	info := ModuleInfo{Root: filepath.Dir(path) + string(filepath.Separator)}
	scanner := bufio.NewScanner(f)
	inRequire := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "module "):
			info.Path = strings.TrimSpace(strings.TrimPrefix(line, "module "))
		case line == "require (":
			inRequire = true
		case inRequire && line == ")":
			inRequire = false
		case strings.HasPrefix(line, "require "):
			info.Deps = append(info.Deps, firstField(strings.TrimPrefix(line, "require ")))
		case inRequire && line != "":
			info.Deps = append(info.Deps, firstField(line))
		}
	}
	return info, scanner.Err()
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// BuildNodesFor emits a BuildNode for each external dependency in pc.
// Pipeline adds them to the graph as nodes only; no UsesDependency edges
// are emitted for them.
func BuildNodesFor(pc *ProjectContext) []graph.Node {
	var out []graph.Node
	for _, m := range pc.Modules {
		for _, dep := range m.Deps {
			out = append(out, graph.Node{
				Kind:  graph.NodeKindBuild,
				Build: &graph.BuildNode{FQN: dep, ModulePath: dep},
			})
		}
	}
	return out
}
