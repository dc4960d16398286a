// Package watch re-runs preparation when its inputs change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docprep/internal/logfields"
)

// Trigger says why a run started.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerChange  Trigger = "change"
	TriggerRefresh Trigger = "refresh"
)

// RunFunc performs one preparation. changed lists the paths that fired a
// TriggerChange run.
type RunFunc func(ctx context.Context, trigger Trigger, changed []string) error

// Options configures a Watcher.
type Options struct {
	// Paths are files or directories; directories are watched recursively.
	Paths    []string
	Debounce time.Duration
	// Refresh runs periodically regardless of changes; zero disables it.
	Refresh    time.Duration
	RunOnStart bool
	// Ignore drops events for matching paths, e.g. the generated conf.py.
	Ignore []string
	Run    RunFunc
}

// Watcher serialises runs: at most one RunFunc executes at a time.
type Watcher struct {
	opts    Options
	fsw     *fsnotify.Watcher
	refresh *refresher

	pathsMu sync.Mutex
	ignore  []string
	files   map[string]bool // watched files, keyed by absolute path
	trees   []string        // watched directory roots

	runMu sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	wg      sync.WaitGroup
	runs    int
}

// New creates a watcher for opts.Paths. Missing paths are skipped with a warning.
func New(opts Options) (*Watcher, error) {
	if opts.Run == nil {
		return nil, fmt.Errorf("watch: run function is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		opts:    opts,
		fsw:     fsw,
		files:   make(map[string]bool),
		pending: make(map[string]struct{}),
	}
	if err := w.watchAll(opts.Paths, opts.Ignore); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Reset replaces the watched paths and the ignore list. A RunFunc may call
// it, e.g. after reloading the configuration that named them.
func (w *Watcher) Reset(paths, ignore []string) error {
	w.pathsMu.Lock()
	defer w.pathsMu.Unlock()
	for _, p := range w.fsw.WatchList() {
		if err := w.fsw.Remove(p); err != nil {
			slog.Debug("Failed to remove watch", logfields.Path(p), logfields.Error(err))
		}
	}
	w.files = make(map[string]bool)
	w.trees = nil
	if err := w.watchAll(paths, ignore); err != nil {
		return err
	}
	slog.Info("Watch paths updated", slog.Int("dirs", len(w.fsw.WatchList())))
	return nil
}

func (w *Watcher) watchAll(paths, ignore []string) error {
	w.ignore = make([]string, 0, len(ignore))
	for _, p := range ignore {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
	for _, p := range paths {
		if err := w.add(p, true); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) add(path string, root bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve watch path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		slog.Warn("Skipping missing watch path", logfields.Path(abs), logfields.Error(err))
		return nil
	}
	if !info.IsDir() {
		// Editors replace files on save; watching the directory survives that.
		w.files[abs] = true
		return w.fsw.Add(filepath.Dir(abs))
	}
	if root {
		w.trees = append(w.trees, abs)
	}
	return filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != abs {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// WatchList returns the directories registered with fsnotify.
func (w *Watcher) WatchList() []string {
	list := w.fsw.WatchList()
	slices.Sort(list)
	return list
}

// Runs returns how many runs have completed.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Run blocks until ctx is cancelled, then waits for any in-flight run.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()

	if w.opts.Refresh > 0 {
		r, err := newRefresher(w.opts.Refresh, func() { w.execute(ctx, TriggerRefresh, nil) })
		if err != nil {
			return err
		}
		w.refresh = r
		r.start()
	}

	slog.Info("Watching for changes",
		slog.Int("dirs", len(w.fsw.WatchList())),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("refresh", w.opts.Refresh))

	if w.opts.RunOnStart {
		w.execute(ctx, TriggerStartup, nil)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	w.pathsMu.Lock()
	if w.ignored(event.Name) || !w.relevant(event.Name) {
		w.pathsMu.Unlock()
		return
	}
	// New directories inside a watched tree are picked up as they appear.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.add(event.Name, false); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
		}
	}
	w.pathsMu.Unlock()

	slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	w.schedule(ctx, event.Name)
}

func (w *Watcher) ignored(path string) bool {
	for _, p := range w.ignore {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant drops events for siblings of a watched file.
func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	for _, root := range w.trees {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// schedule restarts the debounce timer; the run sees every path collected meanwhile.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		changed := make([]string, 0, len(w.pending))
		for p := range w.pending {
			changed = append(changed, p)
		}
		clear(w.pending)
		w.mu.Unlock()
		slices.Sort(changed)
		w.execute(ctx, TriggerChange, changed)
	})
}

func (w *Watcher) execute(ctx context.Context, trigger Trigger, changed []string) {
	if ctx.Err() != nil {
		return
	}
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := w.opts.Run(ctx, trigger, changed)
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
	if err != nil {
		slog.Error("Preparation failed", slog.String("trigger", string(trigger)), logfields.Error(err))
		return
	}
	slog.Info("Preparation finished",
		slog.String("trigger", string(trigger)),
		slog.Int("changed", len(changed)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

func (w *Watcher) shutdown() {
	if w.refresh != nil {
		if err := w.refresh.stop(); err != nil {
			slog.Warn("Failed to stop refresh scheduler", logfields.Error(err))
		}
	}
	w.mu.Lock()
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.mu.Unlock()
	w.wg.Wait()
	if err := w.fsw.Close(); err != nil {
		slog.Warn("Failed to close file watcher", logfields.Error(err))
	}
}
