package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

type capture struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	chunks int
}

func (c *capture) sink(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf.Write(chunk)
	c.chunks++
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buf.String()
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.chunks
}

// scriptName is short enough to survive comm truncation so the stray
// cleanup can match it, and unique to this test run so the cleanup can
// never touch a real process.
func scriptName() string {
	return fmt.Sprintf("fake-srv-%d", os.Getpid()%100000)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a unix shell")
	}

	path := filepath.Join(t.TempDir(), scriptName())
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))

	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTerminateNeverStarted(t *testing.T) {
	sup := New(testLogger())

	sup.Terminate()
	sup.Terminate()

	assert.False(t, sup.IsRunning())
	assert.Zero(t, sup.PID())
	require.NoError(t, sup.Shutdown(context.Background()))
}

func TestStartDrainsOutput(t *testing.T) {
	script := writeScript(t, `echo "loading model"
echo "server listening on 8080" 1>&2
sleep 30`)

	sup := New(testLogger())
	out := &capture{}

	pid, err := sup.Start(context.Background(), script, nil, out.sink)
	require.NoError(t, err)
	defer sup.Terminate()

	assert.NotZero(t, pid)
	assert.True(t, sup.IsRunning())
	assert.Equal(t, pid, sup.PID())

	require.Eventually(t, func() bool {
		s := out.String()

		return strings.Contains(s, "loading model") && strings.Contains(s, "server listening on 8080")
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, sup.LastOutput().Before(sup.StartedAt()))
}

func TestStartMissingBinary(t *testing.T) {
	sup := New(testLogger())

	_, err := sup.Start(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrLaunch)
	assert.False(t, sup.IsRunning())
}

func TestTerminateStopsDrain(t *testing.T) {
	script := writeScript(t, `while :; do echo tick; sleep 0.05; done`)

	sup := New(testLogger())
	out := &capture{}

	_, err := sup.Start(context.Background(), script, nil, out.sink)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return out.count() > 0 }, 2*time.Second, 10*time.Millisecond)

	sup.Terminate()
	seen := out.count()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, seen, out.count())
}

func TestRestartDropsOldOutput(t *testing.T) {
	noisy := writeScript(t, `while :; do echo old-server; sleep 0.01; done`)
	quiet := writeScript(t, `echo new-server
sleep 30`)

	sup := New(testLogger())
	out := &capture{}

	_, err := sup.Start(context.Background(), noisy, nil, out.sink)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "old-server")
	}, 2*time.Second, 10*time.Millisecond)

	sup.Terminate()
	old := strings.Count(out.String(), "old-server")

	_, err = sup.Start(context.Background(), quiet, nil, out.sink)
	require.NoError(t, err)
	defer sup.Terminate()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "new-server")
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, old, strings.Count(out.String(), "old-server"))
}

func TestShutdownWaitsForExit(t *testing.T) {
	script := writeScript(t, `trap 'exit 0' TERM
while :; do sleep 0.1; done`)

	sup := New(testLogger())

	_, err := sup.Start(context.Background(), script, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sup.Shutdown(ctx))
	assert.False(t, sup.IsRunning())
}

func TestShutdownKillsStubbornChild(t *testing.T) {
	script := writeScript(t, `trap '' TERM
while :; do sleep 1; done`)

	sup := New(testLogger())

	_, err := sup.Start(context.Background(), script, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*killGrace)
	defer cancel()

	require.NoError(t, sup.Shutdown(ctx))
	assert.False(t, sup.IsRunning())
}

func TestStartReplacesRunningChild(t *testing.T) {
	script := writeScript(t, `sleep 30`)

	sup := New(testLogger())

	first, err := sup.Start(context.Background(), script, nil, nil)
	require.NoError(t, err)

	second, err := sup.Start(context.Background(), script, nil, nil)
	require.NoError(t, err)
	defer sup.Terminate()

	assert.NotEqual(t, first, second)
	assert.Equal(t, second, sup.PID())
	assert.True(t, sup.IsRunning())
}

func TestCrashedChildObserved(t *testing.T) {
	script := writeScript(t, `echo dying
exit 7`)

	sup := New(testLogger())
	out := &capture{}

	_, err := sup.Start(context.Background(), script, nil, out.sink)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !sup.IsRunning() }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "dying")
	assert.Nil(t, sup.SampleMetrics(context.Background()))
}

func TestSampleMetrics(t *testing.T) {
	sup := New(testLogger())
	assert.Nil(t, sup.SampleMetrics(context.Background()))

	script := writeScript(t, `sleep 30`)

	_, err := sup.Start(context.Background(), script, nil, nil)
	require.NoError(t, err)
	defer sup.Terminate()

	metrics := sup.SampleMetrics(context.Background())
	require.NotNil(t, metrics)
	assert.GreaterOrEqual(t, metrics.MemPercent, 0.0)
}
