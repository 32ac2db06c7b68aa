package governor

import (
	"time"

	"github.com/daverage/TinyLLM/supervisor"
)

const (
	// stallCPUPercent and stallOutputSilence define the stall heuristic:
	// a server below this CPU share that has also written no output for
	// the silence window is suspected stalled.
	stallCPUPercent    = 1.0
	stallOutputSilence = 60 * time.Second
)

// deriveHealth computes the next health state from the previous state
// and the current sample. desired reports whether the governor believes
// the server should be running; crashed is terminal until a fresh start.
// The returned note is empty when the previous note should be kept.
func deriveHealth(prev HealthState, desired, running bool, m *supervisor.Metrics, lastOutput, now time.Time) (HealthState, string) {
	switch {
	case !running && desired:
		return HealthCrashed, "server stopped unexpectedly"
	case !running:
		if prev == HealthCrashed {
			return HealthCrashed, ""
		}

		return HealthStopped, ""
	case m == nil:
		return HealthDegraded, "process metrics unavailable"
	case m.CPUPercent < stallCPUPercent && now.Sub(lastOutput) > stallOutputSilence:
		return HealthDegraded, "possible stall: low cpu and no recent output"
	default:
		return HealthHealthy, ""
	}
}
