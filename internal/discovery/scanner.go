package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sabhiram/go-gitignore"

	"github.com/naviscope/naviscope/internal/naverr"
)

// Scanner walks a project tree honouring ignore rules and dispatches each
// file to the plugin registry for parsing, fanning the CPU-bound parse
// step out across a bounded worker pool (spec §4.D Phase 1).
//
// Grounded on original_source/src/project/scanner.rs's
// Scanner::scan_and_parse (parallel walk, per-file fault isolation) with
// rayon's data-parallel iterator translated to the idiomatic Go
// substitute: a fixed-size goroutine pool draining a work channel.
type Scanner struct {
	registry *Registry
	workers  int
}

// NewScanner constructs a Scanner with workers goroutines in its parse
// pool. workers <= 0 defaults to 4.
func NewScanner(registry *Registry, workers int) *Scanner {
	if workers <= 0 {
		workers = 4
	}
	return &Scanner{registry: registry, workers: workers}
}

// ScanResult is one file's Phase 1 output, paired with any fault.
type ScanResult struct {
	File  *ParsedFile
	Fault error
}

// Scan walks root and parses every file the registry claims, limited to
// the given paths if non-empty (used by update_files's targeted rescan).
// Errors are per-file: an unparseable file becomes an empty-content
// record (Tree == nil) rather than aborting the scan.
func (s *Scanner) Scan(ctx context.Context, root string, only []string, faults *naverr.FaultLog) []*ParsedFile {
	paths := only
	if len(paths) == 0 {
		paths = s.walk(root)
	}

	jobs := make(chan string)
	results := make(chan *ParsedFile)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- s.parseOne(path, faults)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []*ParsedFile
	for pf := range results {
		if pf != nil {
			out = append(out, pf)
		}
	}
	return out
}

func (s *Scanner) parseOne(path string, faults *naverr.FaultLog) *ParsedFile {
	plugin, ok := s.registry.For(path)
	if !ok {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		faults.Record(naverr.ForPath(naverr.IOFault, path, "read source file", err))
		return &ParsedFile{Path: path, Language: plugin.Language()}
	}
	pf, err := plugin.Parse(path, content)
	if err != nil {
		faults.Record(naverr.ForPath(naverr.ParseFault, path, "parse source file", err))
		return &ParsedFile{
			Path: path, Language: plugin.Language(), Content: content,
			Fingerprint: xxhash.Sum64(content),
		}
	}
	return pf
}

func (s *Scanner) walk(root string) []string {
	gi, _ := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	var out []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if gi != nil && gi.MatchesPath(path) {
			return nil
		}
		if _, ok := s.registry.For(path); ok {
			out = append(out, path)
		}
		return nil
	})
	return out
}
