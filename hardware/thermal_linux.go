//go:build linux

package hardware

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// cpuSensorPrefixes identifies the sensor keys that track package or core
// temperature across common x86 and ARM boards.
var cpuSensorPrefixes = []string{
	"coretemp",
	"k10temp",
	"zenpower",
	"cpu_thermal",
	"cpu-thermal",
	"soc_thermal",
	"acpitz",
}

// SampleThermal reads the hottest CPU sensor and maps it to a tier. Hosts
// without readable sensors report nominal.
func SampleThermal(ctx context.Context) ThermalState {
	ctx, cancel := context.WithTimeout(ctx, thermalTimeout)
	defer cancel()

	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil || len(stats) == 0 {
		return ThermalNominal
	}

	hottest := 0.0
	found := false
	for _, stat := range stats {
		if !cpuSensor(stat.SensorKey) {
			continue
		}
		if stat.Temperature > hottest {
			hottest = stat.Temperature
			found = true
		}
	}
	if !found {
		return ThermalNominal
	}

	return classifyCelsius(hottest)
}

func cpuSensor(key string) bool {
	key = strings.ToLower(key)
	for _, prefix := range cpuSensorPrefixes {
		if strings.Contains(key, prefix) {
			return true
		}
	}

	return false
}
