package eventlog

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")
	h, err := New(path, slog.LevelInfo)
	require.NoError(t, err)
	defer h.Close()

	logger := slog.New(h)
	logger.Info("inference server started", slog.Int("pid", 4242))
	logger.Warn("memory pressure high")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[INFO] inference server started pid=4242")
	assert.Contains(t, lines[1], "[WARN] memory pressure high")
	assert.True(t, strings.HasPrefix(lines[0], "["))
}

func TestHandlerLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")
	h, err := New(path, slog.LevelWarn)
	require.NoError(t, err)
	defer h.Close()

	logger := slog.New(h)
	logger.Info("dropped")
	logger.Error("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestHandlerWithAttrs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")
	h, err := New(path, slog.LevelInfo)
	require.NoError(t, err)
	defer h.Close()

	logger := slog.New(h).With(slog.String("instance", "local"))
	logger.Info("tick")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick instance=local")
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")
	h, err := New(path, slog.LevelInfo)
	require.NoError(t, err)
	defer h.Close()

	logger := slog.New(h)
	logger.Info("before clear")
	require.NoError(t, h.Clear())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	logger.Info("after clear")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after clear")
	assert.NotContains(t, string(data), "before clear")
}

func TestTeeFanout(t *testing.T) {
	dir := t.TempDir()
	first, err := New(filepath.Join(dir, "a.log"), slog.LevelInfo)
	require.NoError(t, err)
	defer first.Close()
	second, err := New(filepath.Join(dir, "b.log"), slog.LevelError)
	require.NoError(t, err)
	defer second.Close()

	logger := slog.New(Tee(first, second))
	logger.Info("only first")
	logger.Error("both")

	a, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	b, err := os.ReadFile(second.Path())
	require.NoError(t, err)

	assert.Contains(t, string(a), "only first")
	assert.Contains(t, string(a), "both")
	assert.NotContains(t, string(b), "only first")
	assert.Contains(t, string(b), "both")
}
