// Package watch re-runs analysis when session logs change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the logs must be quiet before a run starts.
const DefaultDebounce = 2 * time.Second

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Rename

// Watcher watches the directories holding a set of log files and reports
// changes to those files only.
type Watcher struct {
	fs       *fsnotify.Watcher
	targets  map[string]struct{}
	dirs     []string
	debounce time.Duration
	logger   *zap.Logger
}

// New starts watching the parent directory of every path whose directory
// exists. It fails when none does.
func New(paths []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	targets := make(map[string]struct{}, len(paths))
	dirSet := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		targets[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirSet[dir] = struct{}{}
		}
	}
	if len(dirSet) == 0 {
		return nil, errors.New("no log directory exists to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	dirs := make([]string, 0, len(dirSet))
	for dir := range dirSet {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return &Watcher{fs: fw, targets: targets, dirs: dirs, debounce: debounce, logger: logger}, nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string { return append([]string(nil), w.dirs...) }

// Close stops watching.
func (w *Watcher) Close() error { return w.fs.Close() }

// Run calls fn once the watched logs have been quiet for the debounce
// window after a change. Calls never overlap. Run returns nil when ctx is
// done.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	timer := newDebounceTimer()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("log changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			resetDebounceTimer(timer, w.debounce)

		case <-timer.C:
			if err := fn(ctx); err != nil {
				w.logger.Warn("analysis run failed", zap.Error(err))
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.targets[abs]
	return ok
}

func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

func resetDebounceTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
