package governor

import (
	"encoding/json"
	"fmt"
)

// PressureLevel is the derived memory pressure severity.
type PressureLevel uint8

const (
	PressureLow PressureLevel = iota
	PressureModerate
	PressureHigh
	PressureCritical
)

func (p PressureLevel) String() string {
	switch p {
	case PressureLow:
		return "low"
	case PressureModerate:
		return "moderate"
	case PressureHigh:
		return "high"
	case PressureCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (p PressureLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PressureLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "low":
		*p = PressureLow
	case "moderate":
		*p = PressureModerate
	case "high":
		*p = PressureHigh
	case "critical":
		*p = PressureCritical
	default:
		return fmt.Errorf("unknown pressure level %q", s)
	}

	return nil
}

// systemPressure buckets the host-wide memory utilisation. A missing
// reading counts as low rather than blocking policy evaluation.
func systemPressure(pct *float64) PressureLevel {
	if pct == nil {
		return PressureLow
	}

	switch {
	case *pct < 60:
		return PressureLow
	case *pct < 75:
		return PressureModerate
	case *pct < 90:
		return PressureHigh
	default:
		return PressureCritical
	}
}

// processPressure buckets the server's share of total RAM. The cut
// points sit far below the system ones: a single process holding over a
// third of the machine is already an emergency.
func processPressure(pct *float64) PressureLevel {
	if pct == nil {
		return PressureLow
	}

	switch {
	case *pct < 15:
		return PressureLow
	case *pct < 25:
		return PressureModerate
	case *pct < 35:
		return PressureHigh
	default:
		return PressureCritical
	}
}

// CombinedPressure takes the more severe of the system and process
// buckets.
func CombinedPressure(m RuntimeMetrics) PressureLevel {
	system := systemPressure(m.SystemMemPercent)
	process := processPressure(m.LLMMemPercent)

	if process > system {
		return process
	}

	return system
}
