//go:build darwin

package hardware

import (
	"context"
	"os/exec"
)

// SampleThermal derives the tier from the power-management speed limit.
// Reading die temperature directly needs elevated privileges on macOS;
// the speed limit reflects the same throttling decisions.
func SampleThermal(ctx context.Context) ThermalState {
	ctx, cancel := context.WithTimeout(ctx, thermalTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "pmset", "-g", "therm").CombinedOutput()
	if err != nil {
		return ThermalNominal
	}

	limit, ok := parseSpeedLimit(string(out))
	if !ok {
		return ThermalNominal
	}

	return classifySpeedLimit(limit)
}
