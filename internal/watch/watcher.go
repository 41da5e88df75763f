// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

// clearScreen is the ANSI sequence that clears the terminal and homes the
// cursor.
const clearScreen = "\033[2J\033[H"

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns are doublestar globs relative to BaseDir selecting the
		// files that trigger a run. Empty watches every non-ignored file.
		Patterns []string
		// Ignore are extra globs merged with DefaultIgnores.
		Ignore []string
		// Debounce is the quiet period after the last event. Zero or
		// negative means DefaultDebounce.
		Debounce time.Duration
		// ClearScreen writes an ANSI clear to Stdout before each run.
		ClearScreen bool
		// RunOnStart calls OnChange once with no paths before the first event.
		RunOnStart bool
		// BaseDir is the watched root. Empty means the working directory.
		BaseDir string
		// OnChange receives the sorted, deduplicated paths relative to
		// BaseDir. Errors are logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error
		// Stdout receives the clear-screen sequence. Nil means os.Stdout.
		Stdout io.Writer
		// Logger reports events and callback errors. Nil logs to stderr.
		Logger *log.Logger
	}

	// Watcher monitors a directory tree. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		matcher  *Matcher
		stdout   io.Writer
		logger   *log.Logger
		debounce time.Duration
		baseDir  string
		started  atomic.Bool
	}
)

// ConfigFor builds the watch settings of cmd: its [commands.<id>.watch]
// table when present, with patterns and ignores added from extra. A
// non-zero debounce overrides the command's.
func ConfigFor(cmd *cmdfile.Command, baseDir string, patterns, ignore []string, debounce time.Duration) Config {
	cfg := Config{BaseDir: baseDir}
	if w := cmd.Watch; w != nil {
		cfg.Patterns = slices.Clone(w.Patterns)
		cfg.Ignore = slices.Clone(w.Ignore)
		cfg.Debounce = w.Debounce
		cfg.ClearScreen = w.ClearScreen
	}
	cfg.Patterns = append(cfg.Patterns, patterns...)
	cfg.Ignore = append(cfg.Ignore, ignore...)
	if debounce > 0 {
		cfg.Debounce = debounce
	}
	return cfg
}

// New validates cfg, creates the fsnotify watcher and registers every
// non-ignored directory below BaseDir.
func New(cfg Config) (*Watcher, error) {
	matcher, err := NewMatcher(cfg.Patterns, cfg.Ignore)
	if err != nil {
		return nil, err
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		if baseDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		matcher:  matcher,
		stdout:   cfg.Stdout,
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		baseDir:  absBase,
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	if w.logger == nil {
		w.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "watch"})
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	if w.fsw, err = fsnotify.NewWatcher(); err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := w.addTree(absBase); err != nil {
		w.close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced OnChange calls.
// An in-flight call is awaited before Run returns. Fatal watcher errors
// end Run with an error; clean cancellation returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.close()

	var (
		pending = make(map[string]struct{})
		fire    = make(chan struct{}, 1)
		done    = make(chan struct{})
		running bool
	)

	timer := time.AfterFunc(time.Hour, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
	timer.Stop()
	defer timer.Stop()

	start := func(changed []string) {
		running = true
		go func() {
			defer func() { done <- struct{}{} }()
			w.invoke(ctx, changed)
		}()
	}

	if w.cfg.RunOnStart {
		start(nil)
	}

	for {
		select {
		case <-ctx.Done():
			if running {
				<-done
			}
			return nil

		case <-fire:
			// A busy run re-arms the timer when it finishes.
			if running || len(pending) == 0 {
				continue
			}
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			start(changed)

		case <-done:
			running = false
			if len(pending) > 0 {
				timer.Reset(w.debounce)
			}

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if evt.Has(fsnotify.Create) {
				w.addNewDir(evt.Name, rel)
			}
			if !w.matcher.Match(rel) {
				continue
			}
			w.logger.Debug("change", "path", rel, "op", evt.Op.String())
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) invoke(ctx context.Context, changed []string) {
	if ctx.Err() != nil || w.cfg.OnChange == nil {
		return
	}
	if w.cfg.ClearScreen {
		fmt.Fprint(w.stdout, clearScreen)
	}
	if len(changed) > 0 {
		w.logger.Info("files changed", "count", len(changed), "first", changed[0])
	}
	if err := w.cfg.OnChange(ctx, changed); err != nil {
		w.logger.Error("run failed", "err", err)
	}
}

// addTree registers root and every non-ignored directory below it.
// Unreadable directories are skipped with a warning.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // unreadable paths are skipped
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.baseDir, path)
		if err != nil {
			return nil //nolint:nilerr // paths outside baseDir are not watched
		}
		if w.dirIgnored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// addNewDir extends the watch to a directory created after startup.
func (w *Watcher) addNewDir(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.dirIgnored(rel) {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", rel, "err", err)
	}
}

func (w *Watcher) dirIgnored(rel string) bool {
	if rel == "." {
		return false
	}
	return w.matcher.Ignored(rel) || w.matcher.Ignored(rel+"/")
}

func (w *Watcher) close() {
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("failed to close fsnotify watcher", "err", err)
	}
}
