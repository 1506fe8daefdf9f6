package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind says whether a project appeared or disappeared.
type ChangeKind int

const (
	// Added means a project directory now exists under the root.
	Added ChangeKind = iota

	// Removed means a project directory no longer exists.
	Removed
)

// String returns "added" or "removed".
func (k ChangeKind) String() string {
	if k == Removed {
		return "removed"
	}
	return "added"
}

// Change is one project added to or removed from the root.
type Change struct {
	Kind     ChangeKind
	Resource Resource
}

// ErrWatcherRunning is returned by Watch when the watcher is already running.
var ErrWatcherRunning = errors.New("watcher already running")

// WatcherConfig contains configuration for the workspace watcher.
type WatcherConfig struct {
	// Path is the workspace root to watch. Only its direct children are
	// reported.
	Path string

	// DebounceInterval is the quiet period before pending changes are
	// emitted (default: 100ms)
	DebounceInterval time.Duration

	// IncludeHidden reports directories whose names start with ".".
	IncludeHidden bool
}

// Watcher reports project directories added to or removed from a root.
// Raw filesystem events are coalesced per path and resolved against the
// filesystem once the debounce interval passes without new events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *WatcherConfig
	debounce *Debouncer

	// pending holds paths touched since the last emit
	pendingMu sync.Mutex
	pending   map[string]struct{}

	// known tracks child directories already reported as present.
	// resolveMu serializes resolution and the onChange callback.
	resolveMu sync.Mutex
	known     map[string]struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once
}

// NewWatcher creates a watcher for config.Path.
func NewWatcher(config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("watcher path cannot be empty")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default().With("component", "workspace.watcher")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		logger:   logger,
		config:   config,
		debounce: NewDebouncer(config.DebounceInterval),
		pending:  make(map[string]struct{}),
		known:    make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, invoking onChange
// with each debounced batch of changes. onChange runs on the debouncer's
// goroutine, never concurrently with itself.
func (w *Watcher) Watch(ctx context.Context, onChange func([]Change)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	root := normalize(w.config.Path)
	if err := w.snapshot(root); err != nil {
		return err
	}
	if err := w.watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %q: %w", root, err)
	}

	w.logger.Info("workspace watcher started",
		"path", root,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("workspace watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("workspace watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcessEvent(root, event) {
				continue
			}

			w.logger.Debug("workspace event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			w.pendingMu.Lock()
			w.pending[filepath.Clean(event.Name)] = struct{}{}
			w.pendingMu.Unlock()

			w.debounce.Trigger(func() {
				w.resolveMu.Lock()
				defer w.resolveMu.Unlock()
				if changes := w.resolvePending(); len(changes) > 0 {
					onChange(changes)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("workspace watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for Watch to return. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopped.Do(func() {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()

		close(w.stopCh)
		if running {
			<-w.doneCh
		}
		w.debounce.Stop()

		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

// snapshot records the projects present when watching starts, so only later
// changes are reported.
func (w *Watcher) snapshot(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() && w.visible(entry.Name()) {
			w.known[filepath.Join(root, entry.Name())] = struct{}{}
		}
	}
	return nil
}

// resolvePending turns the coalesced paths into changes by comparing the
// filesystem with the known set.
func (w *Watcher) resolvePending() []Change {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(paths)

	var changes []Change
	for _, path := range paths {
		_, wasKnown := w.known[path]
		info, err := os.Stat(path)
		isDir := err == nil && info.IsDir()

		switch {
		case isDir && !wasKnown:
			w.known[path] = struct{}{}
			changes = append(changes, Change{Kind: Added, Resource: Resource{Kind: KindProject, Path: path}})
		case !isDir && wasKnown:
			delete(w.known, path)
			changes = append(changes, Change{Kind: Removed, Resource: Resource{Kind: KindProject, Path: path}})
		}
	}

	if len(changes) > 0 {
		w.logger.Info("workspace changed", "changes", len(changes))
	}
	return changes
}

func (w *Watcher) shouldProcessEvent(root string, event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if filepath.Dir(filepath.Clean(event.Name)) != root {
		return false
	}
	return w.visible(filepath.Base(event.Name))
}

func (w *Watcher) visible(name string) bool {
	return w.config.IncludeHidden || !strings.HasPrefix(name, ".")
}

// Debouncer runs the most recent callback once no new trigger has arrived
// for the configured interval.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger schedules callback, replacing any callback still pending.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.stopCh:
		return
	default:
	}

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
		}

		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
