// internal/watch/watcher.go
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codebundle/internal/workspace"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the tree must stay quiet before a rebuild
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher
type Options struct {
	Root     string
	Policy   workspace.ExclusionPolicy
	Debounce time.Duration
	// Ignore lists directories whose events never trigger a rebuild, such as
	// an output directory inside Root
	Ignore []string
}

// Watcher rebuilds whenever the source tree changes. Bursts of events are
// collapsed into one call to onChange.
type Watcher struct {
	root     string
	ws       *workspace.Workspace
	watcher  *fsnotify.Watcher
	debounce time.Duration
	ignore   []string
	onChange func(ctx context.Context) error
	logger   *zap.Logger

	mu    sync.Mutex
	runs  int
	close sync.Once
}

// New starts watching every directory the policy keeps under opts.Root
func New(opts Options, onChange func(ctx context.Context) error, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		ws:       workspace.New(afero.NewOsFs(), root, opts.Policy, logger),
		watcher:  fw,
		debounce: opts.Debounce,
		onChange: onChange,
		logger:   logger,
	}
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}

	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	return w, nil
}

// addTree adds dir and every kept directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && w.skip(p, true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		w.logger.Debug("watching", zap.String("dir", p))
		return nil
	})
}

func (w *Watcher) skip(abs string, isDir bool) bool {
	for _, dir := range w.ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return true
	}
	return w.ws.ShouldIgnore(filepath.ToSlash(rel), isDir)
}

// Run processes events until ctx is done or the watcher is closed. Failures
// of onChange are logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.trigger(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// handleEvent reports whether event should schedule a rebuild
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	info, statErr := os.Stat(event.Name)
	isDir := statErr == nil && info.IsDir()
	if w.skip(event.Name, isDir) {
		return false
	}

	if isDir && event.Has(fsnotify.Create) {
		if err := w.addTree(event.Name); err != nil {
			w.logger.Error("adding new directory to watcher", zap.Error(err))
		}
	}

	w.logger.Debug("change detected",
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()))
	return true
}

func (w *Watcher) trigger(ctx context.Context) {
	w.mu.Lock()
	w.runs++
	n := w.runs
	w.mu.Unlock()

	w.logger.Info("rebuilding", zap.Int("rebuild", n))
	if err := w.onChange(ctx); err != nil {
		w.logger.Error("rebuild failed", zap.Error(err))
	}
}

// Rebuilds returns how many times onChange has been called
func (w *Watcher) Rebuilds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Close stops the underlying watcher
func (w *Watcher) Close() error {
	var err error
	w.close.Do(func() {
		err = w.watcher.Close()
	})
	return err
}
