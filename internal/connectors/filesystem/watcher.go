// Package filesystem watches an inbox directory and reports documents
// dropped into it.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/aegis/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType describes what happened to a file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a settled filesystem event for one file.
type Change struct {
	Type     ChangeType
	Path     string
	MIMEType string
}

// Watcher reports file changes under a root directory. Subdirectories
// and hidden files are ignored.
type Watcher struct {
	root     string
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a watcher for root.
func New(root string) *Watcher {
	return &Watcher{root: root, debounce: DefaultDebounce}
}

// WithDebounce overrides the quiet period. Zero reports events immediately.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Existing lists the visible regular files already in the root.
func (w *Watcher) Existing() ([]Change, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	var changes []Change
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		path := filepath.Join(w.root, e.Name())
		changes = append(changes, Change{Type: ChangeCreated, Path: path, MIMEType: detectMIMEType(path)})
	}
	return changes, nil
}

// Watch starts watching and returns a channel of settled changes.
// The channel closes when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, errors.New("watcher is closed")
	}
	if w.watcher != nil {
		return nil, errors.New("watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.watcher = fw

	out := make(chan Change)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- Change) {
	defer close(out)

	// Latest change per path, flushed once the path goes quiet.
	pending := make(map[string]*Change)
	deadlines := make(map[string]time.Time)
	ticker := time.NewTicker(w.tickInterval())
	defer ticker.Stop()

	emit := func(c Change) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			if w.debounce <= 0 {
				if !emit(*change) {
					return
				}
				continue
			}
			if prev, ok := pending[change.Path]; ok && prev.Type == ChangeCreated && change.Type == ChangeUpdated {
				change.Type = ChangeCreated
			}
			pending[change.Path] = change
			deadlines[change.Path] = time.Now().Add(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.root, err)

		case now := <-ticker.C:
			for path, due := range deadlines {
				if now.Before(due) {
					continue
				}
				c := *pending[path]
				delete(pending, path)
				delete(deadlines, path)
				if !emit(c) {
					return
				}
			}
		}
	}
}

func (w *Watcher) tickInterval() time.Duration {
	if w.debounce <= 0 {
		return time.Hour
	}
	if tick := w.debounce / 4; tick > 10*time.Millisecond {
		return tick
	}
	return 10 * time.Millisecond
}

// handleFsEvent converts a raw event into a change, or nil when the
// event is irrelevant.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name, MIMEType: detectMIMEType(event.Name)}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		kind := ChangeUpdated
		if event.Has(fsnotify.Create) {
			kind = ChangeCreated
		}
		return &Change{Type: kind, Path: event.Name, MIMEType: detectMIMEType(event.Name)}

	default:
		return nil
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// fallbackMIME covers extensions the platform registry often lacks.
var fallbackMIME = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".txt":      "text/plain",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// detectMIMEType guesses a content type from the file extension.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := fallbackMIME[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.Index(t, ";"); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return "application/octet-stream"
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
