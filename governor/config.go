package governor

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/daverage/TinyLLM/pkg/argv"
	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

// CacheType is a KV-cache quantization format understood by the
// inference server.
type CacheType string

const (
	CacheQ4_0 CacheType = "q4_0"
	CacheQ4_1 CacheType = "q4_1"
	CacheQ5_0 CacheType = "q5_0"
	CacheQ5_1 CacheType = "q5_1"
)

func (c CacheType) Valid() bool {
	switch c {
	case CacheQ4_0, CacheQ4_1, CacheQ5_0, CacheQ5_1:
		return true
	default:
		return false
	}
}

// Aggressiveness controls how much of the model the planner offloads to
// the accelerator.
type Aggressiveness string

const (
	AggressivenessLow      Aggressiveness = "low"
	AggressivenessBalanced Aggressiveness = "balanced"
	AggressivenessHigh     Aggressiveness = "high"
	AggressivenessMax      Aggressiveness = "max"
)

func (a Aggressiveness) Valid() bool {
	switch a {
	case AggressivenessLow, AggressivenessBalanced, AggressivenessHigh, AggressivenessMax:
		return true
	default:
		return false
	}
}

// Config is the runtime configuration of the supervised server. It is
// owned by the governor; every mutation goes through the service so the
// sampling loop never observes a half-applied change.
type Config struct {
	ContextSize           int            `json:"context_size" toml:"context_size"`
	BatchSize             int            `json:"batch_size" toml:"batch_size"`
	GPULayers             int            `json:"gpu_layers" toml:"gpu_layers"`
	Threads               int            `json:"threads" toml:"threads"`
	Temperature           float64        `json:"temperature" toml:"temperature"`
	TopP                  float64        `json:"top_p" toml:"top_p"`
	CacheTypeK            CacheType      `json:"cache_type_k" toml:"cache_type_k"`
	CacheTypeV            CacheType      `json:"cache_type_v" toml:"cache_type_v"`
	FlashAttention        bool           `json:"flash_attention" toml:"flash_attention"`
	GPUAggressiveness     Aggressiveness `json:"gpu_aggressiveness" toml:"gpu_aggressiveness"`
	RopeFreqScale         float64        `json:"rope_freq_scale,omitempty" toml:"rope_freq_scale"`
	ExtraArgs             string         `json:"extra_args,omitempty" toml:"extra_args"`
	ManualContextOverride bool           `json:"manual_context_override" toml:"manual_context_override"`
	Host                  string         `json:"host" toml:"host"`
	Port                  int            `json:"port" toml:"port"`
	AutoApply             bool           `json:"auto_apply" toml:"auto_apply"`
	AutoReduce            bool           `json:"auto_reduce" toml:"auto_reduce"`
	AutoSwitch            bool           `json:"auto_switch" toml:"auto_switch"`
	AutoThrottle          bool           `json:"auto_throttle" toml:"auto_throttle"`
}

func DefaultConfig() Config {
	return Config{
		ContextSize:       8192,
		BatchSize:         512,
		GPULayers:         100,
		Threads:           runtime.NumCPU(),
		Temperature:       0.7,
		TopP:              0.9,
		CacheTypeK:        CacheQ4_1,
		CacheTypeV:        CacheQ4_1,
		GPUAggressiveness: AggressivenessBalanced,
		Host:              "127.0.0.1",
		Port:              8080,
		AutoApply:         true,
		AutoReduce:        true,
	}
}

func (c Config) Validate() error {
	if c.ContextSize <= 0 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("context size %d must be positive", c.ContextSize))
	}
	if c.BatchSize <= 0 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("batch size %d must be positive", c.BatchSize))
	}
	if c.GPULayers < 0 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("gpu layers %d must not be negative", c.GPULayers))
	}
	if c.Threads < 0 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("threads %d must not be negative", c.Threads))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("temperature %g must be within [0, 2]", c.Temperature))
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("top_p %g must be within (0, 1]", c.TopP))
	}
	if !c.CacheTypeK.Valid() {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("unknown cache type %q", c.CacheTypeK))
	}
	if !c.CacheTypeV.Valid() {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("unknown cache type %q", c.CacheTypeV))
	}
	if !c.GPUAggressiveness.Valid() {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("unknown gpu aggressiveness %q", c.GPUAggressiveness))
	}
	if c.RopeFreqScale < 0 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("rope frequency scale %g must not be negative", c.RopeFreqScale))
	}
	if c.Host == "" {
		return errors.Join(pkgerrors.ErrValidation, errors.New("host must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Join(pkgerrors.ErrValidation, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := argv.Tokenize(c.ExtraArgs); err != nil {
		return errors.Join(pkgerrors.ErrValidation, err)
	}

	return nil
}

// Settings is everything the governor persists between runs.
type Settings struct {
	ModelsDir     string `json:"models_dir" toml:"models_dir"`
	ServerBinary  string `json:"server_binary" toml:"server_binary"`
	LogDir        string `json:"log_dir" toml:"log_dir"`
	SelectedModel string `json:"selected_model" toml:"selected_model"`
	Config        Config `json:"runtime" toml:"runtime"`
}
