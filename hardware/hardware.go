// Package hardware detects the host facts the planner depends on: total
// RAM, chip family, accelerator, and server-binary capabilities. Detection
// runs once at startup and the resulting Info value is injected into the
// governor; the dynamic samplers (memory percent, thermal state) read
// fresh on every call.
package hardware

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// defaultRAMGB is the conservative fallback when the total-memory read
// fails; planning proceeds on the smallest tier rather than failing.
const defaultRAMGB = 8

type Info struct {
	RAMGB             int    `json:"ram_gb"`
	ChipFamily        string `json:"chip_family"`
	Accelerator       string `json:"accelerator,omitempty"`
	ModernAccelerator bool   `json:"modern_accelerator"`
	FlashAttention    bool   `json:"flash_attention"`
}

// Detect gathers the static host facts. serverBinary may be empty, in
// which case the capability probe is skipped.
func Detect(ctx context.Context, serverBinary string, logger *slog.Logger) Info {
	info := Info{
		RAMGB: detectRAMGB(ctx),
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.ChipFamily = strings.TrimSpace(cpus[0].ModelName)
	}

	info.Accelerator, info.ModernAccelerator = probeAccelerator(info.ChipFamily)

	if serverBinary != "" {
		info.FlashAttention = FlashAttentionSupported(ctx, serverBinary)
	}

	if logger != nil {
		logger.Info("hardware detected",
			slog.Int("ram_gb", info.RAMGB),
			slog.String("chip", info.ChipFamily),
			slog.String("accelerator", info.Accelerator),
			slog.Bool("flash_attention", info.FlashAttention),
		)
	}

	return info
}

func detectRAMGB(ctx context.Context) int {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil || vm.Total == 0 {
		return defaultRAMGB
	}

	return toGB(vm.Total)
}

func toGB(bytes uint64) int {
	gb := int(math.Round(float64(bytes) / float64(1<<30)))
	if gb < 1 {
		gb = 1
	}

	return gb
}
