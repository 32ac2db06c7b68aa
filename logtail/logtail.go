// Package logtail maintains display-ready tails of append-only log
// files. It reacts to filesystem notifications instead of polling,
// coalesces write bursts through a debounce window, and never reads more
// than a bounded trailing slice of a file no matter how large the file
// grows.
package logtail

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultWindow is the trailing byte window kept per file.
	DefaultWindow = 32 * 1024
	// DefaultDebounce is how long a burst of writes is coalesced before
	// one re-read happens.
	DefaultDebounce = 200 * time.Millisecond
)

type tailFile struct {
	timer   *time.Timer
	content string
}

// Tailer watches registered files and keeps an in-memory tail for each.
// The parent directory is watched rather than the file itself so
// truncation and recreation keep working.
type Tailer struct {
	window   int64
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]*tailFile
	dirs  map[string]bool

	reads atomic.Int64
}

func New(window int64, debounce time.Duration, logger *slog.Logger) (*Tailer, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Tailer{
		window:   window,
		debounce: debounce,
		logger:   logger,
		watcher:  watcher,
		files:    map[string]*tailFile{},
		dirs:     map[string]bool{},
	}, nil
}

// Watch registers a file, creating it empty if it does not exist yet, and
// performs one synchronous read so Tail has content before any event.
func (t *Tailer) Watch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	f.Close()

	canon, err := t.canon(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(canon)

	t.mu.Lock()
	if _, ok := t.files[canon]; ok {
		t.mu.Unlock()

		return nil
	}
	t.files[canon] = &tailFile{}
	watchDir := !t.dirs[dir]
	t.dirs[dir] = true
	t.mu.Unlock()

	if watchDir {
		if err := t.watcher.Add(dir); err != nil {
			return err
		}
	}

	t.read(canon)

	return nil
}

// Tail returns the current tail of a watched file. Unwatched paths yield
// an empty string.
func (t *Tailer) Tail(path string) string {
	canon, err := t.canon(path)
	if err != nil {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.files[canon]
	if !ok {
		return ""
	}

	return f.content
}

// Reads reports how many tail reads have happened in total.
func (t *Tailer) Reads() int64 {
	return t.reads.Load()
}

// Run consumes filesystem events until ctx is cancelled or the watcher
// is closed.
func (t *Tailer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			t.schedule(event.Name)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("log watcher error", slog.Any("error", err))
		}
	}
}

func (t *Tailer) Close() error {
	t.mu.Lock()
	for _, f := range t.files {
		if f.timer != nil {
			f.timer.Stop()
		}
	}
	t.mu.Unlock()

	return t.watcher.Close()
}

func (t *Tailer) schedule(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.files[path]
	if !ok {
		return
	}
	if f.timer == nil {
		f.timer = time.AfterFunc(t.debounce, func() {
			t.read(path)
		})

		return
	}
	f.timer.Reset(t.debounce)
}

func (t *Tailer) read(path string) {
	content := t.readTail(path)

	t.mu.Lock()
	if f, ok := t.files[path]; ok {
		f.content = content
	}
	t.mu.Unlock()

	t.reads.Add(1)
}

// readTail reads at most the trailing window of the file. When the window
// cuts into the middle of a line, the partial first line is dropped.
func (t *Tailer) readTail(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ""
	}

	var offset int64
	if info.Size() > t.window {
		offset = info.Size() - t.window
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(f, t.window))
	if err != nil {
		return ""
	}
	if offset > 0 {
		if i := bytes.IndexByte(data, '\n'); i >= 0 && i+1 < len(data) {
			data = data[i+1:]
		}
	}

	return string(data)
}

func (t *Tailer) canon(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	return abs, nil
}
