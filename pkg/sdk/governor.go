package sdk

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	statusEndpoint = "/status"
	configEndpoint = "/config"
	planEndpoint   = "/plan"
	serverEndpoint = "/server"
	logsEndpoint   = "/logs"
)

// Metrics is one sampling snapshot. Pointer fields are nil when the
// reading was unavailable.
type Metrics struct {
	SystemMemPercent *float64  `json:"system_mem_percent,omitempty"`
	LLMMemPercent    *float64  `json:"llm_mem_percent,omitempty"`
	LLMCPUPercent    *float64  `json:"llm_cpu_percent,omitempty"`
	ThermalState     string    `json:"thermal_state"`
	SampledAt        time.Time `json:"sampled_at"`
}

type Hardware struct {
	RAMGB             int    `json:"ram_gb"`
	ChipFamily        string `json:"chip_family"`
	Accelerator       string `json:"accelerator,omitempty"`
	ModernAccelerator bool   `json:"modern_accelerator"`
	FlashAttention    bool   `json:"flash_attention"`
}

type Status struct {
	Health        string   `json:"health"`
	Note          string   `json:"note,omitempty"`
	SelectedModel string   `json:"selected_model,omitempty"`
	Running       bool     `json:"running"`
	PID           int      `json:"pid,omitempty"`
	UptimeSeconds float64  `json:"uptime_seconds,omitempty"`
	Pressure      string   `json:"pressure"`
	Metrics       *Metrics `json:"metrics,omitempty"`
	Hardware      Hardware `json:"hardware"`
}

// RuntimeConfig mirrors the governor's runtime configuration document.
type RuntimeConfig struct {
	ContextSize           int     `json:"context_size"`
	BatchSize             int     `json:"batch_size"`
	GPULayers             int     `json:"gpu_layers"`
	Threads               int     `json:"threads"`
	Temperature           float64 `json:"temperature"`
	TopP                  float64 `json:"top_p"`
	CacheTypeK            string  `json:"cache_type_k"`
	CacheTypeV            string  `json:"cache_type_v"`
	FlashAttention        bool    `json:"flash_attention"`
	GPUAggressiveness     string  `json:"gpu_aggressiveness"`
	RopeFreqScale         float64 `json:"rope_freq_scale,omitempty"`
	ExtraArgs             string  `json:"extra_args,omitempty"`
	ManualContextOverride bool    `json:"manual_context_override"`
	Host                  string  `json:"host"`
	Port                  int     `json:"port"`
	AutoApply             bool    `json:"auto_apply"`
	AutoReduce            bool    `json:"auto_reduce"`
	AutoSwitch            bool    `json:"auto_switch"`
	AutoThrottle          bool    `json:"auto_throttle"`
}

type Plan struct {
	ContextSize    int      `json:"context_size"`
	ContextCeiling int      `json:"context_ceiling"`
	Clamped        bool     `json:"clamped"`
	BatchSize      int      `json:"batch_size"`
	GPULayers      int      `json:"gpu_layers"`
	KVCacheMB      int      `json:"kv_cache_mb"`
	CacheTypeK     string   `json:"cache_type_k"`
	CacheTypeV     string   `json:"cache_type_v"`
	FlashAttention bool     `json:"flash_attention"`
	Model          string   `json:"model,omitempty"`
	ModelParamsB   float64  `json:"model_params_b"`
	Aggressiveness string   `json:"aggressiveness"`
	Warnings       []string `json:"warnings,omitempty"`
}

type logRes struct {
	Log string `json:"log"`
}

func (sdk *govSDK) GetStatus() (Status, error) {
	url := sdk.governorURL + statusEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *govSDK) GetConfig() (RuntimeConfig, error) {
	url := sdk.governorURL + configEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RuntimeConfig{}, err
	}

	var c RuntimeConfig
	if err := json.Unmarshal(body, &c); err != nil {
		return RuntimeConfig{}, err
	}

	return c, nil
}

func (sdk *govSDK) UpdateConfig(cfg RuntimeConfig) (RuntimeConfig, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return RuntimeConfig{}, err
	}

	url := sdk.governorURL + configEndpoint

	body, err := sdk.processRequest(http.MethodPut, url, data, http.StatusOK)
	if err != nil {
		return RuntimeConfig{}, err
	}

	var c RuntimeConfig
	if err := json.Unmarshal(body, &c); err != nil {
		return RuntimeConfig{}, err
	}

	return c, nil
}

func (sdk *govSDK) Recommend() (Plan, error) {
	url := sdk.governorURL + planEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Plan{}, err
	}

	var p Plan
	if err := json.Unmarshal(body, &p); err != nil {
		return Plan{}, err
	}

	return p, nil
}

func (sdk *govSDK) StartServer() (Status, error) {
	return sdk.serverAction("start")
}

func (sdk *govSDK) StopServer() (Status, error) {
	return sdk.serverAction("stop")
}

func (sdk *govSDK) RestartServer() (Status, error) {
	return sdk.serverAction("restart")
}

func (sdk *govSDK) serverAction(action string) (Status, error) {
	url := sdk.governorURL + serverEndpoint + "/" + action

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *govSDK) HostLog() (string, error) {
	return sdk.readLog("host")
}

func (sdk *govSDK) ServerLog() (string, error) {
	return sdk.readLog("server")
}

func (sdk *govSDK) readLog(name string) (string, error) {
	url := sdk.governorURL + logsEndpoint + "/" + name

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return "", err
	}

	var lr logRes
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", err
	}

	return lr.Log, nil
}

func (sdk *govSDK) ClearHostLog() error {
	return sdk.clearLog("host")
}

func (sdk *govSDK) ClearServerLog() error {
	return sdk.clearLog("server")
}

func (sdk *govSDK) clearLog(name string) error {
	url := sdk.governorURL + logsEndpoint + "/" + name

	if _, err := sdk.processRequest(http.MethodDelete, url, nil, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}
