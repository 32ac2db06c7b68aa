// Package eventlog renders governor events as plain `[timestamp] [LEVEL]
// message` lines into an append-only file that the log tailer can watch
// and the user can clear. It plugs into slog so the daemon logs every
// event exactly once, fanned out to both the JSON handler and this file.
package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const filePermission = 0o644

// output is shared between a Handler and every WithAttrs derivative so
// all of them serialize writes through one mutex.
type output struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

type Handler struct {
	out   *output
	level slog.Leveler
	attrs []slog.Attr
}

var _ slog.Handler = (*Handler)(nil)

func New(path string, level slog.Leveler) (*Handler, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	return &Handler{out: &output{f: f, path: path}, level: level}, nil
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}

	return level >= min
}

// Handle writes one line per record. Write failures are swallowed: the
// event log is best-effort and must never fail the caller.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", r.Time.Format(time.RFC3339), r.Level.String(), r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)

		return true
	})
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, _ = h.out.f.WriteString(b.String())

	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)

	return &Handler{out: h.out, level: h.level, attrs: merged}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return h
}

// Clear truncates the log file in place. Appends continue at the new end.
func (h *Handler) Clear() error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	return h.out.f.Truncate(0)
}

func (h *Handler) Path() string {
	return h.out.path
}

func (h *Handler) Close() error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	return h.out.f.Close()
}

type tee struct {
	handlers []slog.Handler
}

// Tee fans records out to every handler; a record is written wherever its
// level is enabled.
func Tee(handlers ...slog.Handler) slog.Handler {
	return &tee{handlers: handlers}
}

func (t *tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (t *tee) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}

	return nil
}

func (t *tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}

	return &tee{handlers: hs}
}

func (t *tee) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}

	return &tee{handlers: hs}
}
