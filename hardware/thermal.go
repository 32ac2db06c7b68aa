package hardware

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// thermalTimeout bounds a single thermal read so a wedged sensor backend
// cannot stall the governor tick.
const thermalTimeout = 2 * time.Second

// ThermalState is the coarse thermal tier of the host. Higher values are
// hotter; the planner only ever throttles, so ordering matters.
type ThermalState uint8

const (
	// ThermalNominal means no thermal mitigation is needed.
	ThermalNominal ThermalState = iota
	// ThermalModerate means the host is warm but not yet throttling.
	ThermalModerate
	// ThermalHeavy means sustained load is pushing the host toward its limits.
	ThermalHeavy
	// ThermalHotspot means the host is at or past its throttle point.
	ThermalHotspot
)

func (t ThermalState) String() string {
	switch t {
	case ThermalNominal:
		return "nominal"
	case ThermalModerate:
		return "moderate"
	case ThermalHeavy:
		return "heavy"
	case ThermalHotspot:
		return "hotspot"
	default:
		return "unknown"
	}
}

func (t ThermalState) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ThermalState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "nominal":
		*t = ThermalNominal
	case "moderate":
		*t = ThermalModerate
	case "heavy":
		*t = ThermalHeavy
	case "hotspot":
		*t = ThermalHotspot
	default:
		return fmt.Errorf("unknown thermal state %q", s)
	}

	return nil
}

// classifyCelsius maps a package temperature to a tier.
func classifyCelsius(temp float64) ThermalState {
	switch {
	case temp < 75:
		return ThermalNominal
	case temp < 85:
		return ThermalModerate
	case temp < 95:
		return ThermalHeavy
	default:
		return ThermalHotspot
	}
}

// classifySpeedLimit maps a CPU speed limit percentage, as reported by
// power management, to a tier. 100 means the CPU runs at full speed.
func classifySpeedLimit(limit int) ThermalState {
	switch {
	case limit >= 100:
		return ThermalNominal
	case limit >= 80:
		return ThermalModerate
	case limit >= 50:
		return ThermalHeavy
	default:
		return ThermalHotspot
	}
}

// parseSpeedLimit extracts the CPU_Speed_Limit value from power
// management output of the form "CPU_Speed_Limit 	 = 100".
func parseSpeedLimit(output string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "CPU_Speed_Limit") {
			continue
		}

		_, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		limit, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}

		return limit, true
	}

	return 0, false
}
