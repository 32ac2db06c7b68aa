package governor

import (
	"runtime"
	"strconv"

	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/hardware"
	"github.com/daverage/TinyLLM/pkg/argv"
)

// launchParams are the effective values a launch resolved to after
// clamping and adaptive scaling.
type launchParams struct {
	ContextSize int
	BatchSize   int
	GPULayers   int
	KVCacheMB   int
	Threads     int
}

// launchArgs assembles the deterministic flag set the inference server is
// started with. cfg must have passed Validate, and FlashAttention must
// already be gated on binary support.
func launchArgs(record catalog.ModelRecord, cfg Config, hw hardware.Info, paramsB float64, pressure PressureLevel, thermal hardware.ThermalState) ([]string, launchParams) {
	ctx, _, _ := planContext(cfg.ContextSize, hw.RAMGB, paramsB, hw.ModernAccelerator, cfg.ManualContextOverride)

	params := launchParams{
		ContextSize: ctx,
		BatchSize:   adaptiveBatch(cfg.BatchSize, pressure, thermal),
		GPULayers:   adaptiveGPULayers(cfg.GPULayers, thermal),
		KVCacheMB:   kvCacheMB(hw.RAMGB, ctx),
		Threads:     cfg.Threads,
	}
	if params.Threads <= 0 {
		params.Threads = runtime.NumCPU()
	}

	args := []string{
		"--model", record.Path,
		"--host", cfg.Host,
		"--port", strconv.Itoa(cfg.Port),
		"--n-gpu-layers", strconv.Itoa(params.GPULayers),
		"--ctx-size", strconv.Itoa(params.ContextSize),
		"--batch-size", strconv.Itoa(params.BatchSize),
		"--threads", strconv.Itoa(params.Threads),
		"--temp", formatFloat(cfg.Temperature),
		"--top-p", formatFloat(cfg.TopP),
		"--cache-type-k", string(cfg.CacheTypeK),
		"--cache-type-v", string(cfg.CacheTypeV),
		"--kv-cache-limit", strconv.Itoa(params.KVCacheMB),
	}

	if cfg.FlashAttention {
		args = append(args, "--flash-attn")
	}
	if cfg.RopeFreqScale > 0 {
		args = append(args, "--rope-freq-scale", formatFloat(cfg.RopeFreqScale))
	}

	// cfg passed Validate, so the extra arguments tokenize cleanly.
	if extra, err := argv.Tokenize(cfg.ExtraArgs); err == nil {
		args = append(args, extra...)
	}

	args = append(args, "--alias", catalog.AliasFromFile(record.Name))

	return args, params
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
