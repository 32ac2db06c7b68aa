//go:build !linux && !darwin

package hardware

import "context"

// SampleThermal has no sensor backend on this platform and always reports
// nominal, which disables thermal throttling in the planner.
func SampleThermal(_ context.Context) ThermalState {
	return ThermalNominal
}
