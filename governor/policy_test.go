package governor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pressureEnv(t *testing.T, names ...string) *testEnv {
	t.Helper()

	env := newTestEnv(t, names...)
	env.svc.memFn = func(context.Context) *float64 { return f64(92) }

	return env
}

func TestAdvisoryRateLimited(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q4_0.gguf")
	env.svc.settings.Config.AutoReduce = false

	env.tick()
	first := env.svc.policy.lastAdvisory
	assert.Equal(t, env.clock, first)

	env.advance(3 * time.Second)
	env.tick()
	assert.Equal(t, first, env.svc.policy.lastAdvisory)

	env.advance(58 * time.Second)
	env.tick()
	assert.Equal(t, env.clock, env.svc.policy.lastAdvisory)
}

func TestReduceWaitsForSustainedPressure(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q4_0.gguf")

	env.tick()
	assert.Equal(t, 8192, env.svc.settings.Config.ContextSize)

	env.advance(3 * time.Second)
	env.tick()
	assert.Equal(t, 8192, env.svc.settings.Config.ContextSize)

	env.advance(3 * time.Second)
	env.tick()
	assert.Equal(t, 6144, env.svc.settings.Config.ContextSize)
	assert.Equal(t, 384, env.svc.settings.Config.BatchSize)
	assert.Contains(t, env.svc.note, "reduced context and batch size")
}

func TestReduceHonoursCooldown(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q4_0.gguf")

	env.tick()
	env.advance(6 * time.Second)
	env.tick()
	require.Equal(t, 6144, env.svc.settings.Config.ContextSize)

	// Pressure stays critical, but the next reduction has to wait out
	// the cooldown.
	for range 19 {
		env.advance(3 * time.Second)
		env.tick()
	}
	assert.Equal(t, 6144, env.svc.settings.Config.ContextSize)

	env.advance(3 * time.Second)
	env.tick()
	assert.Equal(t, 4608, env.svc.settings.Config.ContextSize)
	assert.Equal(t, 288, env.svc.settings.Config.BatchSize)
}

func TestPressureDipResetsSustain(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q4_0.gguf")

	env.tick()
	env.advance(3 * time.Second)

	env.svc.memFn = func(context.Context) *float64 { return f64(40) }
	env.tick()
	assert.True(t, env.svc.policy.pressureSince.IsZero())

	env.svc.memFn = func(context.Context) *float64 { return f64(92) }
	env.advance(3 * time.Second)
	env.tick()
	env.advance(3 * time.Second)
	env.tick()
	assert.Equal(t, 8192, env.svc.settings.Config.ContextSize)

	env.advance(3 * time.Second)
	env.tick()
	assert.Equal(t, 6144, env.svc.settings.Config.ContextSize)
}

func TestReduceNeverTouchesOverriddenContext(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q4_0.gguf")
	env.svc.settings.Config.ManualContextOverride = true

	env.tick()
	env.advance(6 * time.Second)
	env.tick()

	assert.Equal(t, 8192, env.svc.settings.Config.ContextSize)
	assert.Equal(t, 384, env.svc.settings.Config.BatchSize)
}

func TestReducePreferredOverSwitchAndThrottle(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q8_0.gguf", "llama-7b-Q4_0.gguf")
	env.svc.settings.Config.AutoSwitch = true
	env.svc.settings.Config.AutoThrottle = true

	env.svc.memFn = func(context.Context) *float64 { return f64(40) }
	_, err := env.svc.StartServer(context.Background())
	require.NoError(t, err)
	env.svc.memFn = func(context.Context) *float64 { return f64(92) }

	env.tick()
	env.advance(6 * time.Second)
	env.tick()

	assert.Equal(t, 6144, env.svc.settings.Config.ContextSize)
	assert.Equal(t, "llama-7b-Q8_0.gguf", env.svc.settings.SelectedModel)
	assert.True(t, env.sup.IsRunning())
	assert.Equal(t, 1, env.sup.startCount())
}

func TestIneffectiveReduceFallsThroughToSwitch(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q8_0.gguf", "llama-7b-Q4_0.gguf")
	env.svc.settings.Config.AutoSwitch = true
	env.svc.settings.Config.ContextSize = minContextSize
	env.svc.settings.Config.BatchSize = minBatchSize

	// Make the selected variant clearly larger so the sibling wins on
	// size.
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "llama-7b-Q8_0.gguf"), make([]byte, 8192), 0o644))
	_, err := env.models.Scan(context.Background())
	require.NoError(t, err)

	env.svc.memFn = func(context.Context) *float64 { return f64(40) }
	_, err = env.svc.StartServer(context.Background())
	require.NoError(t, err)
	env.svc.memFn = func(context.Context) *float64 { return f64(92) }

	env.tick()
	env.advance(6 * time.Second)
	env.tick()

	assert.Equal(t, "llama-7b-Q4_0.gguf", env.svc.settings.SelectedModel)
	assert.Equal(t, 2, env.sup.startCount())
	assert.True(t, env.sup.IsRunning())
	assert.Contains(t, env.svc.note, "switched to llama-7b-Q4_0.gguf")
}

func TestSwitchRequiresRunningServer(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q8_0.gguf", "llama-7b-Q4_0.gguf")
	env.svc.settings.Config.AutoSwitch = true
	env.svc.settings.Config.ContextSize = minContextSize
	env.svc.settings.Config.BatchSize = minBatchSize

	env.tick()
	env.advance(6 * time.Second)
	env.tick()

	assert.Equal(t, "llama-7b-Q8_0.gguf", env.svc.settings.SelectedModel)
	assert.Zero(t, env.sup.startCount())
}

func TestThrottleStopsServer(t *testing.T) {
	t.Parallel()
	env := pressureEnv(t, "llama-7b-Q4_0.gguf")
	env.svc.settings.Config.AutoReduce = false
	env.svc.settings.Config.AutoThrottle = true

	env.svc.memFn = func(context.Context) *float64 { return f64(40) }
	_, err := env.svc.StartServer(context.Background())
	require.NoError(t, err)
	env.svc.memFn = func(context.Context) *float64 { return f64(92) }

	env.tick()
	env.advance(6 * time.Second)
	env.tick()

	assert.False(t, env.sup.IsRunning())

	st, err := env.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HealthStopped, st.Health)
	assert.Equal(t, "memory safeguard: server stopped", st.Note)

	// The stop was intentional; later ticks must not flag a crash.
	env.advance(3 * time.Second)
	env.tick()
	st, err = env.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HealthStopped, st.Health)
}

func TestNoActionsBelowHighPressure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "llama-7b-Q4_0.gguf")
	env.svc.settings.Config.AutoThrottle = true
	env.svc.memFn = func(context.Context) *float64 { return f64(70) }

	_, err := env.svc.StartServer(context.Background())
	require.NoError(t, err)

	for range 30 {
		env.advance(3 * time.Second)
		env.tick()
	}

	assert.Equal(t, 8192, env.svc.settings.Config.ContextSize)
	assert.True(t, env.sup.IsRunning())
}
