// Package governor is the runtime governance core. It owns the desired
// configuration and the supervised inference server, runs the periodic
// sampling loop that merges hardware, thermal and process metrics into
// health state, plans launch parameters adapted to the host, and applies
// policy actions when memory pressure stays elevated.
package governor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/hardware"
	"github.com/daverage/TinyLLM/supervisor"
)

// HealthState is the derived condition of the supervised server.
type HealthState uint8

const (
	// HealthStopped means no server is running and none was expected.
	HealthStopped HealthState = iota
	// HealthStarting means a launch happened and no full sample has
	// confirmed the server yet.
	HealthStarting
	// HealthHealthy means the server is up with readable metrics.
	HealthHealthy
	// HealthDegraded means the server is up but telemetry is missing or
	// suggests a stall.
	HealthDegraded
	// HealthCrashed means the server disappeared without an intentional
	// stop. The state persists until a fresh start.
	HealthCrashed
)

func (h HealthState) String() string {
	switch h {
	case HealthStopped:
		return "stopped"
	case HealthStarting:
		return "starting"
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

func (h HealthState) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HealthState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "stopped":
		*h = HealthStopped
	case "starting":
		*h = HealthStarting
	case "healthy":
		*h = HealthHealthy
	case "degraded":
		*h = HealthDegraded
	case "crashed":
		*h = HealthCrashed
	default:
		return fmt.Errorf("unknown health state %q", s)
	}

	return nil
}

// RuntimeMetrics is one complete sampling snapshot. Process fields are
// nil whenever the server is not running or the reading failed; system
// fields are host-wide and populated whenever readable.
type RuntimeMetrics struct {
	SystemMemPercent *float64              `json:"system_mem_percent,omitempty"`
	LLMMemPercent    *float64              `json:"llm_mem_percent,omitempty"`
	LLMCPUPercent    *float64              `json:"llm_cpu_percent,omitempty"`
	ThermalState     hardware.ThermalState `json:"thermal_state"`
	SampledAt        time.Time             `json:"sampled_at"`
}

// Status is the externally visible condition of the governor.
type Status struct {
	Health        HealthState     `json:"health"`
	Note          string          `json:"note,omitempty"`
	SelectedModel string          `json:"selected_model,omitempty"`
	Running       bool            `json:"running"`
	PID           int             `json:"pid,omitempty"`
	UptimeSeconds float64         `json:"uptime_seconds,omitempty"`
	Pressure      PressureLevel   `json:"pressure"`
	Metrics       *RuntimeMetrics `json:"metrics,omitempty"`
	Hardware      hardware.Info   `json:"hardware"`
}

// ProcessSupervisor is the slice of the process supervisor the governor
// drives.
type ProcessSupervisor interface {
	Start(ctx context.Context, binary string, args []string, sink supervisor.Sink) (int, error)
	Terminate()
	Shutdown(ctx context.Context) error
	IsRunning() bool
	PID() int
	StartedAt() time.Time
	LastOutput() time.Time
	SampleMetrics(ctx context.Context) *supervisor.Metrics
}

// ModelStore is the catalog query surface the governor consumes.
type ModelStore interface {
	Scan(ctx context.Context) ([]catalog.ModelRecord, error)
	List() []catalog.ModelRecord
	Get(name string) (catalog.ModelRecord, error)
	UpdateBenchmark(name string, tokensPerSec float64) (catalog.ModelRecord, error)
	FastestSibling(name string) (catalog.ModelRecord, bool)
}

// LogTailer exposes bounded tails of the governed log files.
type LogTailer interface {
	Tail(path string) string
}

// Benchmarker measures the throughput of the running server.
type Benchmarker interface {
	Run(ctx context.Context, endpoint, alias string, maxTokens int, temperature, topP float64) (benchmark.Result, error)
}

type Service interface {
	// Status reports health, pressure and the latest metrics snapshot.
	Status(ctx context.Context) (Status, error)

	// GetConfig returns the live runtime configuration.
	GetConfig(ctx context.Context) (Config, error)

	// UpdateConfig replaces the runtime configuration after validation.
	// With auto-apply enabled the planner folds its result back in.
	UpdateConfig(ctx context.Context, cfg Config) (Config, error)

	// Recommend computes launch parameters for the current model and
	// host without changing anything.
	Recommend(ctx context.Context) (Plan, error)

	// StartServer launches the inference server with the selected model.
	StartServer(ctx context.Context) (Status, error)

	// StopServer stops the inference server intentionally.
	StopServer(ctx context.Context) (Status, error)

	// RestartServer performs a sequential stop then start.
	RestartServer(ctx context.Context) (Status, error)

	// ListModels returns the known model records.
	ListModels(ctx context.Context) ([]catalog.ModelRecord, error)

	// ScanModels rescans the models directory.
	ScanModels(ctx context.Context) ([]catalog.ModelRecord, error)

	// SelectModel chooses the model the next start will load.
	SelectModel(ctx context.Context, name string) (catalog.ModelRecord, error)

	// BenchmarkModel runs one timed completion against the running
	// server and records the result in the catalog.
	BenchmarkModel(ctx context.Context, name string, maxTokens int) (benchmark.Result, error)

	// HostLog returns the tail of the governor's own event log.
	HostLog(ctx context.Context) (string, error)

	// ServerLog returns the tail of the server's combined output.
	ServerLog(ctx context.Context) (string, error)

	// ClearHostLog truncates the governor event log.
	ClearHostLog(ctx context.Context) error

	// ClearServerLog truncates the server output log.
	ClearServerLog(ctx context.Context) error

	// Subscribe attaches the MQTT control handler.
	Subscribe(ctx context.Context) error

	// Run drives the sampling loop until ctx is cancelled.
	Run(ctx context.Context) error
}
