package governor

import (
	"fmt"

	"github.com/daverage/TinyLLM/hardware"
)

// Plan is the planner's output: the launch parameters the governor
// recommends for the current model, host and runtime conditions.
type Plan struct {
	ContextSize    int            `json:"context_size"`
	ContextCeiling int            `json:"context_ceiling"`
	Clamped        bool           `json:"clamped"`
	BatchSize      int            `json:"batch_size"`
	GPULayers      int            `json:"gpu_layers"`
	KVCacheMB      int            `json:"kv_cache_mb"`
	CacheTypeK     CacheType      `json:"cache_type_k"`
	CacheTypeV     CacheType      `json:"cache_type_v"`
	FlashAttention bool           `json:"flash_attention"`
	Model          string         `json:"model,omitempty"`
	ModelParamsB   float64        `json:"model_params_b"`
	Aggressiveness Aggressiveness `json:"aggressiveness"`
	Warnings       []string       `json:"warnings,omitempty"`
}

const (
	minBatchSize       = 64
	minContextSize     = 1024
	heavyGPUFloor      = 32
	hotspotGPUFloor    = 16
	kvBudgetPerGB      = 256
	largeModelParamsB  = 30
	largeModelRAMLimit = 16
)

// ramTier maps total RAM to the planning tier index: 0 for hosts up to
// 8GB, 1 up to 16GB, 2 for 17-31GB, 3 for 32GB and beyond.
func ramTier(ramGB int) int {
	switch {
	case ramGB <= 8:
		return 0
	case ramGB <= 16:
		return 1
	case ramGB < 32:
		return 2
	default:
		return 3
	}
}

// paramBucket maps estimated parameter count to the planning bucket
// index: up to 4B, 9B, 20B, 40B, and everything above.
func paramBucket(paramsB float64) int {
	switch {
	case paramsB <= 4:
		return 0
	case paramsB <= 9:
		return 1
	case paramsB <= 20:
		return 2
	case paramsB <= 40:
		return 3
	default:
		return 4
	}
}

// contextCeilings is indexed by [ramTier][paramBucket]. Values grow
// monotonically with RAM and shrink with model size.
var contextCeilings = [4][5]int{
	{16384, 8192, 4096, 2048, 2048},
	{32768, 32768, 8192, 4096, 2048},
	{65536, 49152, 16384, 8192, 4096},
	{131072, 65536, 32768, 16384, 8192},
}

// ContextCeiling is the largest context the planner allows for the given
// host and model. Modern accelerator generations get half again as much.
func ContextCeiling(ramGB int, paramsB float64, modernAccelerator bool) int {
	ceiling := contextCeilings[ramTier(ramGB)][paramBucket(paramsB)]
	if modernAccelerator {
		ceiling = ceiling * 3 / 2
	}

	return ceiling
}

// planContext clamps the desired context to the ceiling unless the
// manual override is set, in which case the request is honoured verbatim.
func planContext(desired, ramGB int, paramsB float64, modernAccelerator, manualOverride bool) (int, int, bool) {
	ceiling := ContextCeiling(ramGB, paramsB, modernAccelerator)
	if manualOverride || desired <= ceiling {
		return desired, ceiling, false
	}

	return ceiling, ceiling, true
}

// gpuLayerTable is indexed by [ramTier][aggressiveness].
var gpuLayerTable = [4]map[Aggressiveness]int{
	{AggressivenessLow: 25, AggressivenessBalanced: 50, AggressivenessHigh: 75, AggressivenessMax: 100},
	{AggressivenessLow: 50, AggressivenessBalanced: 100, AggressivenessHigh: 150, AggressivenessMax: 200},
	{AggressivenessLow: 75, AggressivenessBalanced: 150, AggressivenessHigh: 200, AggressivenessMax: 256},
	{AggressivenessLow: 100, AggressivenessBalanced: 200, AggressivenessHigh: 256, AggressivenessMax: 320},
}

// baseGPULayers looks up the offload layer count for the host and
// aggressiveness, halved for very large models on small-RAM hosts.
func baseGPULayers(ramGB int, aggressiveness Aggressiveness, paramsB float64) int {
	layers, ok := gpuLayerTable[ramTier(ramGB)][aggressiveness]
	if !ok {
		layers = gpuLayerTable[ramTier(ramGB)][AggressivenessBalanced]
	}
	if paramsB > largeModelParamsB && ramGB <= largeModelRAMLimit {
		layers /= 2
	}

	return layers
}

// adaptiveBatch scales the configured batch size down under memory
// pressure and thermal stress. The multipliers compose and the result
// never drops below the floor nor rises above the base.
func adaptiveBatch(base int, pressure PressureLevel, thermal hardware.ThermalState) int {
	scaled := float64(base)

	switch pressure {
	case PressureHigh:
		scaled *= 0.75
	case PressureCritical:
		scaled *= 0.5
	}

	switch thermal {
	case hardware.ThermalHeavy:
		scaled *= 0.75
	case hardware.ThermalHotspot:
		scaled *= 0.5
	}

	batch := int(scaled)
	if batch < minBatchSize {
		batch = minBatchSize
	}
	if batch > base {
		batch = base
	}

	return batch
}

// adaptiveGPULayers reduces offload under thermal stress only; memory
// pressure is handled through batch and context instead.
func adaptiveGPULayers(base int, thermal hardware.ThermalState) int {
	var layers int
	switch thermal {
	case hardware.ThermalHeavy:
		layers = int(float64(base) * 0.66)
		if layers < heavyGPUFloor {
			layers = heavyGPUFloor
		}
	case hardware.ThermalHotspot:
		layers = int(float64(base) * 0.33)
		if layers < hotspotGPUFloor {
			layers = hotspotGPUFloor
		}
	default:
		return base
	}

	if layers > base {
		layers = base
	}

	return layers
}

// kvCacheMB bounds the KV cache independently of context growth:
// whichever is smaller of 256MB per GB of RAM and a quarter of the
// effective context.
func kvCacheMB(ramGB, effectiveContext int) int {
	budget := ramGB * kvBudgetPerGB
	if quarter := effectiveContext / 4; quarter < budget {
		budget = quarter
	}

	return budget
}

// planCacheType picks the KV quantization: tightest on small hosts,
// highest quality only when RAM is plentiful and offload is aggressive.
func planCacheType(ramGB int, aggressiveness Aggressiveness) CacheType {
	switch {
	case ramGB <= 8:
		return CacheQ4_0
	case ramGB >= 32 && (aggressiveness == AggressivenessHigh || aggressiveness == AggressivenessMax):
		return CacheQ5_1
	default:
		return CacheQ4_1
	}
}

// buildPlan runs the full planner for one model on one host. It is pure:
// the same inputs always produce the same plan.
func buildPlan(cfg Config, hw hardware.Info, model string, paramsB float64, pressure PressureLevel, thermal hardware.ThermalState) Plan {
	plan := Plan{
		Model:          model,
		ModelParamsB:   paramsB,
		Aggressiveness: cfg.GPUAggressiveness,
	}

	ceiling := ContextCeiling(hw.RAMGB, paramsB, hw.ModernAccelerator)
	plan.ContextCeiling = ceiling
	if cfg.ManualContextOverride {
		// Overridden context is honoured verbatim and never down-tuned.
		plan.ContextSize = cfg.ContextSize
	} else {
		plan.ContextSize = ceiling
		if cfg.ContextSize > ceiling {
			plan.Clamped = true
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("requested context %d exceeds ceiling %d for %.1fB parameters on %dGB RAM; clamped", cfg.ContextSize, ceiling, paramsB, hw.RAMGB))
		}
	}

	base := baseGPULayers(hw.RAMGB, cfg.GPUAggressiveness, paramsB)
	plan.GPULayers = adaptiveGPULayers(base, thermal)
	if plan.GPULayers != base {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("gpu layers reduced from %d to %d under %s thermal state", base, plan.GPULayers, thermal))
	}

	plan.BatchSize = adaptiveBatch(cfg.BatchSize, pressure, thermal)
	if plan.BatchSize != cfg.BatchSize {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("batch size reduced from %d to %d under %s pressure and %s thermal state", cfg.BatchSize, plan.BatchSize, pressure, thermal))
	}

	plan.KVCacheMB = kvCacheMB(hw.RAMGB, plan.ContextSize)

	cache := planCacheType(hw.RAMGB, cfg.GPUAggressiveness)
	plan.CacheTypeK = cache
	plan.CacheTypeV = cache

	plan.FlashAttention = cfg.FlashAttention && hw.FlashAttention

	if model == "" {
		plan.Warnings = append(plan.Warnings, "no model selected; planning assumes a 7B model")
	}

	return plan
}
