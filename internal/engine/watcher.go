package engine

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

// WatchConfig controls debounce, coalescing, and rebuild-fallback
// behaviour (spec §4.C.5).
type WatchConfig struct {
	// DebounceWindow is the quiet period after the last event before a
	// batch is flushed to update_files. Default 500ms per spec.
	DebounceWindow time.Duration
	// RebuildThreshold: if a single debounced batch touches more than
	// this many distinct paths, fall back to a full Rebuild instead of
	// UpdateFiles.
	RebuildThreshold int
}

// DefaultWatchConfig matches spec §4.C.5's stated defaults.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{DebounceWindow: 500 * time.Millisecond, RebuildThreshold: 200}
}

// Watcher subscribes to filesystem events under an engine's project root,
// debounces and deduplicates paths, and drives UpdateFiles (or Rebuild,
// above the threshold). Grounded on original_source/src/project/
// watcher.rs's thin wrapper shape, extended with the debounce/coalesce
// logic the spec requires and the prototype does not implement.
type Watcher struct {
	engine *Engine
	cfg    WatchConfig
	ignore *ignore.GitIgnore
	fsw    *fsnotify.Watcher
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running bool

	stop chan struct{}
	done chan struct{}

	// dispatch is the debounced batch's sink, defaultDispatch in
	// production. Tests substitute a counting fake so coalescing can be
	// asserted without driving a real Discovery Pipeline.
	dispatch func(ctx context.Context, paths []string)
}

// NewWatcher constructs a Watcher for e, loading .gitignore from the
// project root if present (events for ignored paths are dropped per spec
// §4.C tie-break).
func NewWatcher(e *Engine, cfg WatchConfig, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	gi, _ := ignore.CompileIgnoreFile(filepath.Join(e.projectRoot, ".gitignore"))

	w := &Watcher{
		engine:  e,
		cfg:     cfg,
		ignore:  gi,
		fsw:     fsw,
		logger:  logger,
		pending: make(map[string]struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	w.dispatch = w.defaultDispatch
	if err := w.addRecursive(e.projectRoot); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.ignore != nil && w.ignore.MatchesPath(path) {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Run drives the watcher loop until ctx is cancelled or Stop is called.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.engine.projectRoot, ev.Name)
	if err != nil || (len(rel) >= 2 && rel[:2] == "..") {
		return // outside the project root
	}
	if w.ignore != nil && w.ignore.MatchesPath(ev.Name) {
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.cfg.DebounceWindow, w.flush)
	} else {
		w.timer.Reset(w.cfg.DebounceWindow)
	}
	w.mu.Unlock()
}

// flush fires after the debounce window elapses with no further events,
// deduplicating the accumulated path set into a single update_files (or
// rebuild, above the threshold) call.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	w.dispatch(context.Background(), paths)
}

// defaultDispatch is flush's production sink: update_files for an
// ordinary batch, or a full rebuild once a batch's size crosses
// RebuildThreshold (spec §4.C.5).
func (w *Watcher) defaultDispatch(ctx context.Context, paths []string) {
	if len(paths) > w.cfg.RebuildThreshold {
		w.logger.Info("watch: change volume exceeds threshold, falling back to rebuild",
			zap.Int("changed", len(paths)), zap.Int("threshold", w.cfg.RebuildThreshold))
		if _, err := w.engine.Rebuild(ctx); err != nil {
			w.logger.Error("watch-triggered rebuild failed", zap.Error(err))
		}
		return
	}
	if _, err := w.engine.UpdateFiles(ctx, paths); err != nil {
		w.logger.Error("watch-triggered update_files failed", zap.Error(err))
	}
}

// Stop halts the watcher loop and releases the underlying OS handles. It
// waits for the loop to exit only if Run has started.
func (w *Watcher) Stop() {
	close(w.stop)
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if running {
		<-w.done
	}
	w.fsw.Close()
}

// Watch starts a background Watcher for the engine and stores the handle
// so a second Watch call is a no-op until Stop is called.
func (e *Engine) Watch(ctx context.Context, cfg WatchConfig) error {
	if e.watcher != nil {
		return nil
	}
	w, err := NewWatcher(e, cfg, e.logger)
	if err != nil {
		return err
	}
	e.watcher = w
	go w.Run(ctx)
	return nil
}

// StopWatch stops a running watcher, if any.
func (e *Engine) StopWatch() {
	if e.watcher == nil {
		return
	}
	e.watcher.Stop()
	e.watcher = nil
}
