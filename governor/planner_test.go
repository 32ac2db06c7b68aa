package governor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daverage/TinyLLM/hardware"
)

func TestContextCeiling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ramGB   int
		paramsB float64
		modern  bool
		want    int
	}{
		{name: "16GB 7B", ramGB: 16, paramsB: 7, want: 32768},
		{name: "16GB 7B modern accelerator", ramGB: 16, paramsB: 7, modern: true, want: 49152},
		{name: "8GB 7B", ramGB: 8, paramsB: 7, want: 8192},
		{name: "8GB 3B", ramGB: 8, paramsB: 3, want: 16384},
		{name: "24GB 13B", ramGB: 24, paramsB: 13, want: 16384},
		{name: "32GB 7B", ramGB: 32, paramsB: 7, want: 65536},
		{name: "64GB 70B", ramGB: 64, paramsB: 70, want: 8192},
		{name: "16GB 34B", ramGB: 16, paramsB: 34, want: 4096},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ContextCeiling(tc.ramGB, tc.paramsB, tc.modern))
		})
	}
}

func TestContextCeilingMonotoneInRAM(t *testing.T) {
	t.Parallel()

	ramSteps := []int{4, 8, 12, 16, 24, 32, 64, 128}
	for _, paramsB := range []float64{3, 7, 13, 34, 70} {
		prev := 0
		for _, ramGB := range ramSteps {
			ceiling := ContextCeiling(ramGB, paramsB, false)
			require.GreaterOrEqual(t, ceiling, prev, "ceiling shrank from %d at %dGB for %.0fB", prev, ramGB, paramsB)
			prev = ceiling
		}
	}
}

func TestContextCeilingShrinksWithModelSize(t *testing.T) {
	t.Parallel()

	for _, ramGB := range []int{8, 16, 24, 64} {
		prev := int(^uint(0) >> 1)
		for _, paramsB := range []float64{3, 7, 13, 34, 70} {
			ceiling := ContextCeiling(ramGB, paramsB, false)
			require.LessOrEqual(t, ceiling, prev, "ceiling grew at %.0fB on %dGB", paramsB, ramGB)
			prev = ceiling
		}
	}
}

func TestPlanContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		desired     int
		override    bool
		wantCtx     int
		wantClamped bool
	}{
		{name: "below ceiling passes through", desired: 8192, wantCtx: 8192},
		{name: "at ceiling passes through", desired: 32768, wantCtx: 32768},
		{name: "above ceiling clamps", desired: 131072, wantCtx: 32768, wantClamped: true},
		{name: "override honoured verbatim", desired: 131072, override: true, wantCtx: 131072},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, ceiling, clamped := planContext(tc.desired, 16, 7, false, tc.override)
			assert.Equal(t, tc.wantCtx, ctx)
			assert.Equal(t, 32768, ceiling)
			assert.Equal(t, tc.wantClamped, clamped)
		})
	}
}

func TestBaseGPULayers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		ramGB          int
		aggressiveness Aggressiveness
		paramsB        float64
		want           int
	}{
		{name: "16GB balanced", ramGB: 16, aggressiveness: AggressivenessBalanced, paramsB: 7, want: 100},
		{name: "8GB low", ramGB: 8, aggressiveness: AggressivenessLow, paramsB: 7, want: 25},
		{name: "32GB max", ramGB: 32, aggressiveness: AggressivenessMax, paramsB: 7, want: 320},
		{name: "large model on 16GB halves", ramGB: 16, aggressiveness: AggressivenessBalanced, paramsB: 34, want: 50},
		{name: "large model on 32GB keeps full", ramGB: 32, aggressiveness: AggressivenessBalanced, paramsB: 34, want: 200},
		{name: "unknown aggressiveness falls back to balanced", ramGB: 16, aggressiveness: Aggressiveness("turbo"), paramsB: 7, want: 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, baseGPULayers(tc.ramGB, tc.aggressiveness, tc.paramsB))
		})
	}
}

func TestAdaptiveBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     int
		pressure PressureLevel
		thermal  hardware.ThermalState
		want     int
	}{
		{name: "calm keeps base", base: 512, pressure: PressureLow, thermal: hardware.ThermalNominal, want: 512},
		{name: "moderate pressure keeps base", base: 512, pressure: PressureModerate, thermal: hardware.ThermalNominal, want: 512},
		{name: "high pressure", base: 512, pressure: PressureHigh, thermal: hardware.ThermalNominal, want: 384},
		{name: "critical pressure", base: 512, pressure: PressureCritical, thermal: hardware.ThermalNominal, want: 256},
		{name: "heavy thermal", base: 512, pressure: PressureLow, thermal: hardware.ThermalHeavy, want: 384},
		{name: "hotspot thermal", base: 512, pressure: PressureLow, thermal: hardware.ThermalHotspot, want: 256},
		{name: "high pressure and heavy thermal compose", base: 512, pressure: PressureHigh, thermal: hardware.ThermalHeavy, want: 288},
		{name: "critical and hotspot compose", base: 512, pressure: PressureCritical, thermal: hardware.ThermalHotspot, want: 128},
		{name: "floor holds", base: 100, pressure: PressureCritical, thermal: hardware.ThermalHotspot, want: 64},
		{name: "floor never exceeds base", base: 32, pressure: PressureCritical, thermal: hardware.ThermalNominal, want: 32},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := adaptiveBatch(tc.base, tc.pressure, tc.thermal)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, got, tc.base)
		})
	}
}

func TestAdaptiveBatchMonotoneInPressure(t *testing.T) {
	t.Parallel()

	levels := []PressureLevel{PressureLow, PressureModerate, PressureHigh, PressureCritical}
	thermals := []hardware.ThermalState{hardware.ThermalNominal, hardware.ThermalModerate, hardware.ThermalHeavy, hardware.ThermalHotspot}
	for _, thermal := range thermals {
		for _, base := range []int{64, 128, 512, 2048} {
			prev := int(^uint(0) >> 1)
			for _, level := range levels {
				got := adaptiveBatch(base, level, thermal)
				require.LessOrEqual(t, got, prev, "batch grew at pressure %s for base %d thermal %s", level, base, thermal)
				prev = got
			}
		}
	}
}

func TestAdaptiveGPULayers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    int
		thermal hardware.ThermalState
		want    int
	}{
		{name: "nominal keeps base", base: 100, thermal: hardware.ThermalNominal, want: 100},
		{name: "moderate keeps base", base: 100, thermal: hardware.ThermalModerate, want: 100},
		{name: "heavy scales down", base: 100, thermal: hardware.ThermalHeavy, want: 66},
		{name: "hotspot scales down", base: 100, thermal: hardware.ThermalHotspot, want: 33},
		{name: "heavy floor", base: 40, thermal: hardware.ThermalHeavy, want: 32},
		{name: "hotspot floor", base: 40, thermal: hardware.ThermalHotspot, want: 16},
		{name: "floor never exceeds base", base: 8, thermal: hardware.ThermalHeavy, want: 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, adaptiveGPULayers(tc.base, tc.thermal))
		})
	}
}

func TestKVCacheBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ramGB   int
		context int
		want    int
	}{
		{name: "ram bound", ramGB: 16, context: 32768, want: 4096},
		{name: "context bound", ramGB: 8, context: 4096, want: 1024},
		{name: "large host ram bound", ramGB: 64, context: 131072, want: 16384},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, kvCacheMB(tc.ramGB, tc.context))
		})
	}
}

func TestPlanCacheType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CacheQ4_0, planCacheType(8, AggressivenessBalanced))
	assert.Equal(t, CacheQ4_1, planCacheType(16, AggressivenessMax))
	assert.Equal(t, CacheQ5_1, planCacheType(32, AggressivenessHigh))
	assert.Equal(t, CacheQ4_1, planCacheType(32, AggressivenessBalanced))
}

func TestBuildPlanBalancedMidRangeHost(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	hw := hardware.Info{RAMGB: 16}

	plan := buildPlan(cfg, hw, "llama-7b.gguf", 7, PressureLow, hardware.ThermalNominal)

	assert.Equal(t, 32768, plan.ContextSize)
	assert.Equal(t, 32768, plan.ContextCeiling)
	assert.False(t, plan.Clamped)
	assert.Equal(t, 100, plan.GPULayers)
	assert.Equal(t, cfg.BatchSize, plan.BatchSize)
	assert.Equal(t, 4096, plan.KVCacheMB)
	assert.Equal(t, CacheQ4_1, plan.CacheTypeK)
	assert.Equal(t, CacheQ4_1, plan.CacheTypeV)
	assert.Empty(t, plan.Warnings)
}

func TestBuildPlanModernAcceleratorBonus(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	hw := hardware.Info{RAMGB: 16, ModernAccelerator: true}

	plan := buildPlan(cfg, hw, "llama-7b.gguf", 7, PressureLow, hardware.ThermalNominal)

	assert.Equal(t, 49152, plan.ContextSize)
	assert.Equal(t, 4096, plan.KVCacheMB)
}

func TestBuildPlanClampsExcessiveRequest(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ContextSize = 131072
	hw := hardware.Info{RAMGB: 16}

	plan := buildPlan(cfg, hw, "llama-7b.gguf", 7, PressureLow, hardware.ThermalNominal)

	assert.Equal(t, 32768, plan.ContextSize)
	assert.True(t, plan.Clamped)
	require.NotEmpty(t, plan.Warnings)
	assert.Contains(t, plan.Warnings[0], "exceeds ceiling")
}

func TestBuildPlanManualOverrideVerbatim(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ContextSize = 131072
	cfg.ManualContextOverride = true
	hw := hardware.Info{RAMGB: 16}

	plan := buildPlan(cfg, hw, "llama-7b.gguf", 7, PressureLow, hardware.ThermalNominal)

	assert.Equal(t, 131072, plan.ContextSize)
	assert.False(t, plan.Clamped)
}

func TestBuildPlanDeterministic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	hw := hardware.Info{RAMGB: 24, ModernAccelerator: true}

	first := buildPlan(cfg, hw, "mistral-7b.gguf", 7, PressureHigh, hardware.ThermalHeavy)
	for range 10 {
		assert.Equal(t, first, buildPlan(cfg, hw, "mistral-7b.gguf", 7, PressureHigh, hardware.ThermalHeavy))
	}
}

func TestBuildPlanAdaptsUnderStress(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	hw := hardware.Info{RAMGB: 16}

	plan := buildPlan(cfg, hw, "llama-7b.gguf", 7, PressureCritical, hardware.ThermalHotspot)

	assert.Equal(t, 128, plan.BatchSize)
	assert.Equal(t, 33, plan.GPULayers)
	assert.NotEmpty(t, plan.Warnings)
}
