package hardware

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMemoryPercent reads the current system memory utilisation. It
// never caches: pressure classification wants a fresh figure on every
// tick. A nil return means the reading was unavailable.
func SystemMemoryPercent(ctx context.Context) *float64 {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil
	}

	pct := vm.UsedPercent

	return &pct
}
