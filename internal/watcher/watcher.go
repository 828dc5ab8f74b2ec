// Package watcher monitors the import drop folder for EPUB files. A file
// dropped into the folder is announced only once it has settled: copies
// from slow media arrive in chunks, and importing a half-written archive
// would fail the signature check and strand the file.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event announces a file that finished arriving in the drop folder.
type Event struct {
	Path string
	Size int64
}

// Options tunes the settle detection.
type Options struct {
	// SettleInterval is how often a candidate file is re-checked for growth.
	SettleInterval time.Duration
	// SettleChecks is how many consecutive unchanged size checks mean the
	// copy is done.
	SettleChecks int
	// MaxSettleWait bounds how long a file may keep growing before the
	// watcher gives up on it.
	MaxSettleWait time.Duration
	// Extensions lists accepted file extensions, lowercase with dot.
	Extensions []string
}

func (o *Options) setDefaults() {
	if o.SettleInterval <= 0 {
		o.SettleInterval = 500 * time.Millisecond
	}
	if o.SettleChecks <= 0 {
		o.SettleChecks = 2
	}
	if o.MaxSettleWait <= 0 {
		o.MaxSettleWait = 5 * time.Minute
	}
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".epub"}
	}
}

func (o *Options) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range o.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// Watcher watches one flat drop folder. Files already present when Start
// runs are announced too, so drops made while the host was down are not
// lost.
type Watcher struct {
	dir    string
	opts   Options
	logger *slog.Logger
	fs     *fsnotify.Watcher
	events chan Event

	mu       sync.Mutex
	settling map[string]struct{}
	closed   bool
}

// New creates a watcher for dir, creating the directory if needed.
func New(dir string, opts Options, logger *slog.Logger) (*Watcher, error) {
	opts.setDefaults()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create drop folder: %w", err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:      dir,
		opts:     opts,
		logger:   logger,
		fs:       fs,
		events:   make(chan Event, 16),
		settling: make(map[string]struct{}),
	}, nil
}

// Events returns the channel of settled files. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start runs the watch loop until ctx is cancelled or Close is called.
// It first sweeps files already sitting in the folder.
func (w *Watcher) Start(ctx context.Context) {
	w.sweepExisting(ctx)

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.opts.accepts(event.Name) {
				continue
			}
			if !w.beginSettle(event.Name) {
				continue
			}
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				w.settle(ctx, path)
			}(event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("drop folder watch error", "error", err)
			}
		}
	}
}

// Close stops the underlying filesystem watcher, which unblocks Start.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fs.Close()
}

// sweepExisting announces files that were already in the folder.
func (w *Watcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("drop folder sweep failed", "dir", w.dir, "error", err)
		}
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !w.opts.accepts(path) {
			continue
		}
		if w.beginSettle(path) {
			w.settle(ctx, path)
		}
	}
}

// beginSettle claims a path for settling; a path already being watched
// for growth is not claimed twice.
func (w *Watcher) beginSettle(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	if _, busy := w.settling[path]; busy {
		return false
	}
	w.settling[path] = struct{}{}
	return true
}

func (w *Watcher) endSettle(path string) {
	w.mu.Lock()
	delete(w.settling, path)
	w.mu.Unlock()
}

// settle waits for the file's size to stop changing, then emits it.
// A file that vanishes mid-settle (the user changed their mind) is
// dropped silently.
func (w *Watcher) settle(ctx context.Context, path string) {
	defer w.endSettle(path)

	deadline := time.Now().Add(w.opts.MaxSettleWait)
	lastSize := int64(-1)
	stable := 0

	for {
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.Size() == lastSize && info.Size() > 0 {
			stable++
			if stable >= w.opts.SettleChecks {
				select {
				case w.events <- Event{Path: path, Size: info.Size()}:
				case <-ctx.Done():
				}
				return
			}
		} else {
			stable = 0
			lastSize = info.Size()
		}
		if time.Now().After(deadline) {
			if w.logger != nil {
				w.logger.Warn("file never settled, skipping", "path", path)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.opts.SettleInterval):
		}
	}
}
