package dev

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/vango-dev/sitepack/internal/errors"
)

// Change represents a detected file change.
type Change struct {
	Path string
	Op   fsnotify.Op
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Patterns are slash-separated globs selecting the files to report.
	// "**" matches any number of directories, including none.
	Patterns []string

	// Ignore patterns to skip (names, path segments or globs).
	Ignore []string

	// Debounce is how long the watcher waits for a burst of events to end
	// before reporting it.
	Debounce time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher reports changes to files matching a set of globs.
type Watcher struct {
	config   WatcherConfig
	globs    []glob.Glob
	roots    []string
	onChange func([]Change)
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
}

// NewWatcher compiles the patterns and creates a watcher.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}

	w := &Watcher{
		config: config,
		roots:  WatchRoots(config.Patterns),
	}
	for _, pattern := range config.Patterns {
		variants := []string{pattern}
		if collapsed := strings.ReplaceAll(pattern, "/**/", "/"); collapsed != pattern {
			variants = append(variants, collapsed)
		}
		for _, v := range variants {
			g, err := glob.Compile(v, '/')
			if err != nil {
				return nil, errors.New("E131").Wrap(err).WithDetail("Invalid watch pattern " + pattern)
			}
			w.globs = append(w.globs, g)
		}
	}
	return w, nil
}

// Roots returns the watched directories.
func (w *Watcher) Roots() []string {
	return w.roots
}

// Matches reports whether a change to path would be reported.
func (w *Watcher) Matches(p string) bool {
	if w.shouldIgnore(p) {
		return false
	}
	slash := filepath.ToSlash(p)
	for _, g := range w.globs {
		if g.Match(slash) {
			return true
		}
	}
	return false
}

// OnChange sets the callback for batches of file changes.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("E131").Wrap(err)
	}
	defer fsw.Close()

	for _, root := range w.roots {
		if err := w.addTree(fsw, root); err != nil {
			return errors.New("E131").Wrap(err).WithDetail("Cannot watch " + root)
		}
	}

	var (
		pending []Change
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addTree(fsw, event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) || !w.Matches(event.Name) {
				continue
			}
			pending = append(pending, Change{Path: event.Name, Op: event.Op})
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				timer.Reset(w.config.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			timer = nil
			w.report(pending)
			pending = nil

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return errors.New("E131").Wrap(err)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// report delivers one change per path, in first-seen order.
func (w *Watcher) report(changes []Change) {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback == nil || len(changes) == 0 {
		return
	}

	seen := make(map[string]bool, len(changes))
	unique := changes[:0]
	for _, c := range changes {
		if seen[c.Path] {
			continue
		}
		seen[c.Path] = true
		unique = append(unique, c)
	}
	callback(unique)
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if p != dir && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		// Direct match
		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/") || strings.Contains(pattern, "\\")
		hasGlob := strings.ContainsAny(pattern, "*?[")

		if hasGlob {
			if hasPathSep {
				if matched, _ := path.Match(filepath.ToSlash(pattern), normalized); matched {
					return true
				}
			} else {
				if matched, _ := filepath.Match(pattern, name); matched {
					return true
				}
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(path, segment string) bool {
	if segment == "" {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
