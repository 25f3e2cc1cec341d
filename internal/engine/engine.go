// Package engine implements the concurrent index engine (spec §4.C): the
// current-version slot, the writer-lock that serialises builds, and the
// load/save/rebuild/update_files/watch operations built on top of
// internal/graph and internal/discovery.
//
// Grounded on original_source/src/engine/engine.rs (NaviscopeEngine):
// the slot is an Arc<RwLock<Arc<CodeGraph>>> there; here it is a
// sync.RWMutex guarding a *graph.ImmutableGraph pointer. The writer-lock
// is kept as an explicit separate sync.Mutex (the Rust source collapses
// both into one RwLock) because spec §4.C requires snapshot to never
// block on an in-flight build, which a single combined lock cannot
// guarantee under Go's non-reentrant mutex semantics once the builder
// itself needs to read is addressed by decoupling the two locks.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/naviscope/naviscope/internal/discovery"
	"github.com/naviscope/naviscope/internal/graph"
	"github.com/naviscope/naviscope/internal/naverr"
	"github.com/naviscope/naviscope/util"
)

// DefaultIndexDir is the directory name nested under the user's home
// directory that holds per-project index files. When NAVISCOPE_INDEX_DIR
// is set, that directory is used instead and DefaultIndexDir is not
// appended (see BaseIndexDir).
const DefaultIndexDir = ".naviscope/index"

// BuildStats summarizes one rebuild/update_files call, returned to
// callers (and surfaced through mcpserver's index_status tool) alongside
// the fault log.
type BuildStats struct {
	JobID      string
	Version    uint64
	FilesTotal int
	Faults     int
}

// Engine owns the current graph version and serialises writers. It is the
// single long-lived holder a project's consumers (shell, LSP front-end,
// MCP server) all share.
type Engine struct {
	slotMu  sync.RWMutex
	current *graph.ImmutableGraph

	writerMu sync.Mutex

	projectRoot string
	indexPath   string

	pipeline *discovery.Pipeline
	logger   *zap.Logger

	watcher *Watcher

	metrics *Metrics
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the nop default logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics attaches a Metrics recorder; nil disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs an Engine rooted at projectRoot with an empty, version-1
// graph. The index path is derived from a 64-bit xxhash of the
// canonicalized root, matching the original engine's xxh3-keyed index
// file naming scheme.
func New(projectRoot string, pipeline *discovery.Pipeline, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve project root: %w", err)
	}
	e := &Engine{
		current:     graph.Empty(),
		projectRoot: abs,
		indexPath:   computeIndexPath(abs),
		pipeline:    pipeline,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ProjectRoot returns the resolved absolute project root.
func (e *Engine) ProjectRoot() string { return e.projectRoot }

// IndexPath returns the on-disk path this engine persists to.
func (e *Engine) IndexPath() string { return e.indexPath }

// computeIndexPath mirrors original_source's compute_index_path: a
// 16-hex-digit xxhash of the canonical root, under BaseIndexDir.
func computeIndexPath(absRoot string) string {
	sum := xxhash.Sum64String(absRoot)
	return filepath.Join(BaseIndexDir(), fmt.Sprintf("%016x.bin", sum))
}

// BaseIndexDir resolves NAVISCOPE_INDEX_DIR, or HOME/.naviscope/index.
func BaseIndexDir() string {
	if dir := os.Getenv("NAVISCOPE_INDEX_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, DefaultIndexDir)
}

// Snapshot is snapshot(): acquires the read side of the slot lock, clones
// the pointer, releases the lock. It never blocks on an in-flight build
// because the writer-lock and slot lock are distinct.
func (e *Engine) Snapshot() *graph.ImmutableGraph {
	e.slotMu.RLock()
	defer e.slotMu.RUnlock()
	e.metrics.ObserveSnapshot()
	return e.current
}

func (e *Engine) swap(g *graph.ImmutableGraph) {
	e.slotMu.Lock()
	e.current = g
	e.slotMu.Unlock()
}

// Rebuild is rebuild(): serialised on the writer-lock, runs the full
// Discovery Pipeline against the entire project tree, seals a fresh
// Builder, swaps current, and persists. The save runs synchronously,
// under the writer-lock, before Rebuild returns; it does not run in the
// background. A write that fails mid-build leaves current untouched
// (spec §4.C tie-break).
func (e *Engine) Rebuild(ctx context.Context) (BuildStats, error) {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	jobID := util.NewJobID()
	base := e.Snapshot()

	ctx, span := startSpan(ctx, "engine.Rebuild")
	defer span.End()

	result, err := e.pipeline.RunFull(ctx, e.projectRoot, base)
	if err != nil {
		e.logger.Error("rebuild failed, current graph untouched", zap.String("job_id", jobID), zap.Error(err))
		return BuildStats{}, err
	}
	// Deferred enrichment spawned during this build counts toward its
	// completion (spec §9, open question 3): the call does not return
	// until outstanding enrichment jobs drain.
	e.pipeline.DrainEnrichment()

	e.swap(result.Graph)
	if e.metrics != nil {
		e.metrics.ObserveBuild(result.Graph.Version(), result.FaultCount)
	}

	stats := BuildStats{
		JobID:      jobID,
		Version:    result.Graph.Version(),
		FilesTotal: len(result.Graph.AllFiles()),
		Faults:     result.FaultCount,
	}

	if saveErr := e.Save(); saveErr != nil {
		e.logger.Error("post-rebuild save failed", zap.String("job_id", jobID), zap.Error(saveErr))
	}
	return stats, nil
}

// UpdateFiles is update_files(paths): serialised on the writer-lock,
// seeds a Builder from the current graph (copy-on-write), re-scans only
// the given paths, applies RemoveNodesForPath + re-resolution for each,
// seals, swaps, persists.
func (e *Engine) UpdateFiles(ctx context.Context, paths []string) (BuildStats, error) {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	jobID := util.NewJobID()
	base := e.Snapshot()

	ctx, span := startSpan(ctx, "engine.UpdateFiles")
	defer span.End()

	result, err := e.pipeline.RunIncremental(ctx, e.projectRoot, base, paths)
	if err != nil {
		e.logger.Error("update_files failed, current graph untouched", zap.String("job_id", jobID), zap.Error(err))
		return BuildStats{}, err
	}
	e.pipeline.DrainEnrichment()

	e.swap(result.Graph)
	if e.metrics != nil {
		e.metrics.ObserveBuild(result.Graph.Version(), result.FaultCount)
	}

	stats := BuildStats{
		JobID:      jobID,
		Version:    result.Graph.Version(),
		FilesTotal: len(paths),
		Faults:     result.FaultCount,
	}

	if saveErr := e.Save(); saveErr != nil {
		e.logger.Error("post-update save failed", zap.String("job_id", jobID), zap.Error(saveErr))
	}
	return stats, nil
}

// Load deserializes the on-disk index, returning false if none exists.
// Persistence failures are logged and treated as a null load, never
// fatal (spec §7 I/O fault local recovery).
func (e *Engine) Load() bool {
	raw, err := os.ReadFile(e.indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn("failed to read index file", zap.String("path", e.indexPath), zap.Error(err))
		}
		return false
	}
	g, err := graph.Decode(raw)
	if err != nil {
		e.logger.Warn("failed to decode index, will rebuild", zap.String("path", e.indexPath), zap.Error(err))
		_ = os.Remove(e.indexPath)
		return false
	}
	e.swap(g)
	e.logger.Info("loaded index", zap.String("path", e.indexPath), zap.Uint64("version", g.Version()))
	return true
}

// Save serializes the current graph to the on-disk location atomically
// (write to a temp file, then rename).
func (e *Engine) Save() error {
	g := e.Snapshot()
	raw, err := graph.Encode(g)
	if err != nil {
		return naverr.New(naverr.IOFault, "encode index", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.indexPath), 0o755); err != nil {
		return naverr.New(naverr.IOFault, "create index dir", err)
	}
	tmp := e.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return naverr.New(naverr.IOFault, "write temp index", err)
	}
	if err := os.Rename(tmp, e.indexPath); err != nil {
		return naverr.New(naverr.IOFault, "rename index into place", err)
	}
	return nil
}
