package prometheus

import (
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MakeMetrics returns the per-operation request counter and latency
// summary the service middleware observes into.
func MakeMetrics(namespace, subsystem string) (metrics.Counter, metrics.Histogram) {
	counter := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})
	latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, []string{"method"})

	return counter, latency
}

// RuntimeGauges carries the sampling-loop gauges. Any field may be nil,
// in which case the loop skips it.
type RuntimeGauges struct {
	SystemMemPercent  metrics.Gauge
	ProcessMemPercent metrics.Gauge
	ProcessCPUPercent metrics.Gauge
	Pressure          metrics.Gauge
	Thermal           metrics.Gauge
	Health            metrics.Gauge
}

// MakeRuntimeGauges builds the gauges published on every sampling tick.
// Enum-valued gauges expose the ordinal of the current level.
func MakeRuntimeGauges(namespace string) RuntimeGauges {
	gauge := func(name, help string) metrics.Gauge {
		return kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      name,
			Help:      help,
		}, []string{})
	}

	return RuntimeGauges{
		SystemMemPercent:  gauge("system_mem_percent", "System-wide memory utilization percent."),
		ProcessMemPercent: gauge("process_mem_percent", "Supervised process memory percent of total RAM."),
		ProcessCPUPercent: gauge("process_cpu_percent", "Supervised process CPU utilization percent."),
		Pressure:          gauge("memory_pressure_level", "Combined memory pressure level ordinal."),
		Thermal:           gauge("thermal_state", "Thermal pressure tier ordinal."),
		Health:            gauge("health_state", "Health state ordinal."),
	}
}
