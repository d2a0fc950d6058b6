// Package watch implements the debounced per-process file watcher (spec
// component C4): glob-matched paths, ignore patterns, optional .gitignore
// honouring, and a single coalesced WatchFired signal per debounce window.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/denormal/go-gitignore"
	"github.com/fsnotify/fsnotify"

	"github.com/charmbracelet/log"
)

// Spec is the immutable, resolved watch configuration for one process.
type Spec struct {
	BaseDir         string
	Patterns        []string
	Ignore          []string
	IgnoreGitignore bool
	Debounce        time.Duration
}

// Watcher observes the union of Spec.Patterns (recursively, for directory
// matches) and emits a coalesced signal on Fired after the debounce window
// elapses following the last relevant, non-ignored event.
type Watcher struct {
	spec Spec
	fsw  *fsnotify.Watcher
	repo gitignore.GitIgnore

	// patterns holds the absolute glob form of every spec.Patterns entry,
	// expanded once at construction; relevant() matches fsnotify events
	// against these rather than against whatever fsnotify.Add happened to
	// watch (a directory add covers every sibling, not just the pattern).
	patterns []string

	fired  chan struct{}
	done   chan struct{}
	closed chan struct{}
}

// New resolves Spec.Patterns against Spec.BaseDir and starts observing
// them. A watcher error (bad pattern, fsnotify setup failure) is returned
// to the caller for a one-time log banner; once running, watcher errors
// never stop the process (spec.md §4.4/§7).
func New(spec Spec) (*Watcher, error) {
	if spec.Debounce <= 0 {
		spec.Debounce = 300 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	w := &Watcher{
		spec:   spec,
		fsw:    fsw,
		fired:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}

	if spec.IgnoreGitignore {
		if repo, err := gitignore.NewRepositoryWithFile(spec.BaseDir, ".gitignore"); err == nil {
			w.repo = repo
		} else {
			log.Warn("gitignore repository unavailable, continuing without it", "dir", spec.BaseDir, "err", err)
		}
	}

	if err := w.addPatterns(); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addPatterns() error {
	seen := make(map[string]bool)
	for _, pattern := range w.spec.Patterns {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(w.spec.BaseDir, pattern)
		}
		w.patterns = append(w.patterns, filepath.ToSlash(full))

		matches, err := doublestar.FilepathGlob(full)
		if err != nil {
			return fmt.Errorf("invalid watch pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			// A literal path that doesn't exist yet is still watched by
			// its parent directory once created; glob with no matches is
			// not a configuration error.
			matches = []string{full}
		}
		for _, m := range matches {
			if err := w.addRecursive(m, seen); err != nil {
				log.Warn("failed to watch path", "path", m, "err", err)
			}
		}
	}
	return nil
}

func (w *Watcher) addRecursive(path string, seen map[string]bool) error {
	if seen[path] {
		return nil
	}
	seen[path] = true

	info, err := os.Stat(path)
	if err != nil {
		// Doesn't exist yet; watch the parent so creation is observed.
		parent := filepath.Dir(path)
		if parent == path || seen[parent] {
			return nil
		}
		seen[parent] = true
		return w.fsw.Add(parent)
	}

	if !info.IsDir() {
		return w.fsw.Add(filepath.Dir(path))
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort recursive add
		}
		if !d.IsDir() {
			return nil
		}
		if seen[p] {
			return nil
		}
		seen[p] = true
		if addErr := w.fsw.Add(p); addErr != nil {
			log.Warn("failed to watch directory", "path", p, "err", addErr)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	resetDebounce := func() {
		if timer == nil {
			timer = time.NewTimer(w.spec.Debounce)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.spec.Debounce)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			close(w.closed)
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				continue
			}
			if w.relevant(ev) {
				resetDebounce()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				continue
			}
			log.Warn("watcher error", "err", err)
		case <-timerC:
			timerC = nil
			select {
			case w.fired <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	for _, pattern := range w.spec.Ignore {
		rel := ev.Name
		if match, _ := doublestar.Match(pattern, rel); match {
			return false
		}
		if base := filepath.Base(ev.Name); base != rel {
			if match, _ := doublestar.Match(pattern, base); match {
				return false
			}
		}
	}
	if w.repo != nil {
		isDir := false
		if info, err := os.Stat(ev.Name); err == nil {
			isDir = info.IsDir()
		}
		if m := w.repo.Absolute(ev.Name, isDir); m != nil && m.Ignore() {
			return false
		}
	}
	return w.matchesPatterns(ev.Name)
}

// matchesPatterns reports whether name matches one of spec.Patterns'
// expanded absolute globs. addRecursive watches whole parent directories
// (including the parent of a not-yet-created path), so without this check
// every sibling change in a watched directory would count as relevant.
func (w *Watcher) matchesPatterns(name string) bool {
	slashName := filepath.ToSlash(name)
	for _, pattern := range w.patterns {
		if match, _ := doublestar.Match(pattern, slashName); match {
			return true
		}
		// The pattern may be a literal path that didn't exist when the
		// watcher started (addRecursive falls back to its parent dir);
		// a later exact-path create/write for it must still count.
		if pattern == slashName {
			return true
		}
	}
	return false
}

// Fired emits a value each time the debounce window elapses following at
// least one relevant event. The channel is buffered to size 1, so a
// consumer that's briefly busy never misses the fact that *something*
// changed even though exactly-once coalescing within a window is what the
// spec calls for.
func (w *Watcher) Fired() <-chan struct{} { return w.fired }

// Close stops the watcher goroutine and the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	<-w.closed
	return w.fsw.Close()
}
