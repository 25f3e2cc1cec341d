package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dispatchCall is one invocation a fake dispatch sink recorded.
type dispatchCall struct {
	paths []string
}

func newTestWatcher(t *testing.T, e *Engine, cfg WatchConfig) *Watcher {
	t.Helper()
	w, err := NewWatcher(e, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w
}

// TestWatcherCoalescesBurstIntoOneDispatch is spec §8 scenario 5, its
// literal example: many modifications within one debounce window must
// collapse into exactly one update_files (here: one dispatch) call.
func TestWatcherCoalescesBurstIntoOneDispatch(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	w := newTestWatcher(t, e, WatchConfig{DebounceWindow: 30 * time.Millisecond, RebuildThreshold: 200})

	var mu sync.Mutex
	var calls []dispatchCall
	w.dispatch = func(ctx context.Context, paths []string) {
		mu.Lock()
		calls = append(calls, dispatchCall{paths: append([]string(nil), paths...)})
		mu.Unlock()
	}

	for i := 0; i < 50; i++ {
		w.handleEvent(fsnotify.Event{
			Name: fmt.Sprintf("%s/file%d.go", e.projectRoot, i%5),
			Op:   fsnotify.Write,
		})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond, "50 modifications inside one debounce window must coalesce into exactly one dispatch")

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, calls[0].paths, 5, "the pending set deduplicates repeated paths before dispatch")
}

// TestWatcherResetsDebounceOnEachEvent proves the window is a trailing
// quiet period, not a fixed interval: events spaced closer together than
// DebounceWindow keep pushing the flush out, so a steady trickle of
// writes narrower than the window never flushes early.
func TestWatcherResetsDebounceOnEachEvent(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	w := newTestWatcher(t, e, WatchConfig{DebounceWindow: 60 * time.Millisecond, RebuildThreshold: 200})

	var mu sync.Mutex
	flushed := false
	w.dispatch = func(ctx context.Context, paths []string) {
		mu.Lock()
		flushed = true
		mu.Unlock()
	}

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		w.handleEvent(fsnotify.Event{Name: e.projectRoot + "/s.go", Op: fsnotify.Write})
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	stillPending := !flushed
	mu.Unlock()
	assert.True(t, stillPending, "a steady trickle of events under the debounce window must never flush mid-stream")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flushed
	}, time.Second, 5*time.Millisecond, "the batch must flush once the trickle stops and the window elapses")
}

// TestWatcherDefaultDispatchRoutesByBatchSize is spec §4.C.5's
// RebuildThreshold: a batch at or under the threshold takes the
// update_files branch, a batch over it takes the full-rebuild branch.
// Both are exercised against the real production defaultDispatch (not a
// fake), against a real small project, checking the graph actually
// advances either way.
func TestWatcherDefaultDispatchRoutesByBatchSize(t *testing.T) {
	root := writeTinyGoProject(t)
	e := newTestEngine(t, root)
	w := newTestWatcher(t, e, WatchConfig{DebounceWindow: 10 * time.Millisecond, RebuildThreshold: 1})

	before := e.Snapshot().Version()

	w.defaultDispatch(context.Background(), []string{filepath.Join(root, "s.go")})
	afterUpdate := e.Snapshot().Version()
	assert.Greater(t, afterUpdate, before, "a batch at the threshold must still dispatch through update_files")

	w.defaultDispatch(context.Background(), []string{filepath.Join(root, "s.go"), filepath.Join(root, "missing.go")})
	afterRebuild := e.Snapshot().Version()
	assert.Greater(t, afterRebuild, afterUpdate, "a batch over the threshold must fall back to a full rebuild")
}

// TestWatcherIgnoresEventsOutsideProjectRoot guards handleEvent's early
// return for paths outside the watched tree (e.g. a symlink target, or
// an fsnotify race during Stop).
func TestWatcherIgnoresEventsOutsideProjectRoot(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	w := newTestWatcher(t, e, WatchConfig{DebounceWindow: 10 * time.Millisecond, RebuildThreshold: 200})

	called := false
	w.dispatch = func(ctx context.Context, paths []string) { called = true }

	w.handleEvent(fsnotify.Event{Name: "/definitely/outside/the/project/root.go", Op: fsnotify.Write})
	time.Sleep(50 * time.Millisecond)
	assert.False(t, called, "an event outside the project root must never schedule a flush")
}
