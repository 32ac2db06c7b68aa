package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/hardware"
	"github.com/daverage/TinyLLM/pkg/eventlog"
	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
	"github.com/daverage/TinyLLM/pkg/mqtt"
	"github.com/daverage/TinyLLM/pkg/prometheus"
	"github.com/daverage/TinyLLM/pkg/settings"
)

const (
	defaultModelParamsB = 7
	// stopGrace bounds how long an intentional stop waits for the child.
	stopGrace     = 5 * time.Second
	serverLogName = "server.log"
)

type service struct {
	hw      hardware.Info
	sup     ProcessSupervisor
	models  ModelStore
	tailer  LogTailer
	bench   Benchmarker
	store   *settings.Store[Settings]
	pubsub  mqtt.PubSub
	gauges  *prometheus.RuntimeGauges
	hostLog *eventlog.Handler
	logger  *slog.Logger

	instanceID string
	interval   time.Duration

	serverLogPath string
	logMu         sync.Mutex
	serverLog     *os.File

	// metrics holds the latest complete snapshot; readers never observe
	// a partially updated one.
	metrics atomic.Pointer[RuntimeMetrics]

	mu              sync.Mutex
	settings        Settings
	desired         bool
	health          HealthState
	note            string
	fallbackApplied bool
	policy          policyState
	flashProbes     map[string]bool

	now       func() time.Time
	memFn     func(context.Context) *float64
	thermalFn func(context.Context) hardware.ThermalState
	probeFn   func(context.Context, string) bool
}

func NewService(
	hw hardware.Info,
	sup ProcessSupervisor,
	models ModelStore,
	tailer LogTailer,
	bench Benchmarker,
	store *settings.Store[Settings],
	pubsub mqtt.PubSub,
	gauges *prometheus.RuntimeGauges,
	hostLog *eventlog.Handler,
	initial Settings,
	interval time.Duration,
	instanceID string,
	logger *slog.Logger,
) (Service, error) {
	if interval <= 0 {
		interval = DefaultSamplingInterval
	}

	svc := &service{
		hw:          hw,
		sup:         sup,
		models:      models,
		tailer:      tailer,
		bench:       bench,
		store:       store,
		pubsub:      pubsub,
		gauges:      gauges,
		hostLog:     hostLog,
		logger:      logger,
		instanceID:  instanceID,
		interval:    interval,
		settings:    initial,
		health:      HealthStopped,
		flashProbes: map[string]bool{},
		now:         time.Now,
		memFn:       hardware.SystemMemoryPercent,
		thermalFn:   hardware.SampleThermal,
		probeFn:     hardware.FlashAttentionSupported,
	}

	// Detection already probed the configured binary once.
	if initial.ServerBinary != "" {
		svc.flashProbes[initial.ServerBinary] = hw.FlashAttention
	}

	if initial.LogDir != "" {
		svc.serverLogPath = filepath.Join(initial.LogDir, serverLogName)
		f, err := os.OpenFile(svc.serverLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		svc.serverLog = f
	}

	return svc, nil
}

func (svc *service) Status(ctx context.Context) (Status, error) {
	m := svc.metrics.Load()

	svc.mu.Lock()
	st := Status{
		Health:        svc.health,
		Note:          svc.note,
		SelectedModel: svc.settings.SelectedModel,
		Hardware:      svc.hw,
	}
	svc.mu.Unlock()

	if m != nil {
		st.Metrics = m
		st.Pressure = CombinedPressure(*m)
	}

	if svc.sup.IsRunning() {
		st.Running = true
		st.PID = svc.sup.PID()
		st.UptimeSeconds = svc.now().Sub(svc.sup.StartedAt()).Seconds()
	}

	return st, nil
}

func (svc *service) GetConfig(ctx context.Context) (Config, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.settings.Config, nil
}

func (svc *service) UpdateConfig(ctx context.Context, cfg Config) (Config, error) {
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if cfg.FlashAttention && !svc.flashSupportedLocked(ctx) {
		cfg.FlashAttention = false
		svc.logger.Warn("flash attention unsupported by server binary, disabled",
			slog.String("binary", svc.settings.ServerBinary))
	}

	svc.settings.Config = cfg
	if cfg.AutoApply {
		svc.applyPlanLocked()
	}
	svc.saveSettingsLocked()

	return svc.settings.Config, nil
}

func (svc *service) Recommend(ctx context.Context) (Plan, error) {
	pressure := PressureLow
	thermal := hardware.ThermalNominal
	if m := svc.metrics.Load(); m != nil {
		pressure = CombinedPressure(*m)
		thermal = m.ThermalState
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	model, paramsB := svc.modelParamsLocked()

	return buildPlan(svc.settings.Config, svc.hw, model, paramsB, pressure, thermal), nil
}

func (svc *service) StartServer(ctx context.Context) (Status, error) {
	svc.mu.Lock()
	err := svc.startLocked(ctx)
	svc.mu.Unlock()
	if err != nil {
		return Status{}, err
	}

	return svc.Status(ctx)
}

func (svc *service) StopServer(ctx context.Context) (Status, error) {
	svc.mu.Lock()
	if !svc.desired && !svc.sup.IsRunning() {
		svc.mu.Unlock()

		return Status{}, pkgerrors.ErrServerNotRunning
	}
	svc.stopLocked(ctx, "stopped by user")
	svc.mu.Unlock()

	return svc.Status(ctx)
}

func (svc *service) RestartServer(ctx context.Context) (Status, error) {
	svc.mu.Lock()
	svc.stopLocked(ctx, "restarting")
	err := svc.startLocked(ctx)
	svc.mu.Unlock()
	if err != nil {
		return Status{}, err
	}

	return svc.Status(ctx)
}

func (svc *service) ListModels(ctx context.Context) ([]catalog.ModelRecord, error) {
	return svc.models.List(), nil
}

func (svc *service) ScanModels(ctx context.Context) ([]catalog.ModelRecord, error) {
	return svc.models.Scan(ctx)
}

func (svc *service) SelectModel(ctx context.Context, name string) (catalog.ModelRecord, error) {
	record, err := svc.models.Get(name)
	if err != nil {
		return catalog.ModelRecord{}, err
	}
	if _, err := os.Stat(record.Path); err != nil {
		return catalog.ModelRecord{}, errors.Join(pkgerrors.ErrModelFileMissing, err)
	}

	svc.mu.Lock()
	svc.settings.SelectedModel = record.Name
	if svc.settings.Config.AutoApply {
		svc.applyPlanLocked()
	}
	svc.saveSettingsLocked()
	svc.mu.Unlock()

	if svc.sup.IsRunning() {
		svc.logger.Info("model selected, restart required to load it", slog.String("model", record.Name))
	} else {
		svc.logger.Info("model selected", slog.String("model", record.Name))
	}

	return record, nil
}

func (svc *service) BenchmarkModel(ctx context.Context, name string, maxTokens int) (benchmark.Result, error) {
	svc.mu.Lock()
	selected := svc.settings.SelectedModel
	cfg := svc.settings.Config
	svc.mu.Unlock()

	if !svc.sup.IsRunning() {
		return benchmark.Result{}, pkgerrors.ErrServerNotRunning
	}
	if selected == "" {
		return benchmark.Result{}, pkgerrors.ErrNoModelSelected
	}
	if name != "" && name != selected {
		return benchmark.Result{}, errors.Join(pkgerrors.ErrValidation,
			fmt.Errorf("model %s is not loaded, the server runs %s", name, selected))
	}

	endpoint := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)

	// The benchmark round-trip can take minutes; it must not block the
	// sampling loop, so no lock is held here.
	result, err := svc.bench.Run(ctx, endpoint, catalog.AliasFromFile(selected), maxTokens, cfg.Temperature, cfg.TopP)
	if err != nil {
		return benchmark.Result{}, err
	}
	result.Model = selected

	if _, err := svc.models.UpdateBenchmark(selected, result.TokensPerSec); err != nil {
		svc.logger.Warn("failed to record benchmark result", slog.String("model", selected), slog.Any("error", err))
	}

	return result, nil
}

func (svc *service) HostLog(ctx context.Context) (string, error) {
	if svc.hostLog == nil {
		return "", nil
	}

	return svc.tailer.Tail(svc.hostLog.Path()), nil
}

func (svc *service) ServerLog(ctx context.Context) (string, error) {
	if svc.serverLogPath == "" {
		return "", nil
	}

	return svc.tailer.Tail(svc.serverLogPath), nil
}

func (svc *service) ClearHostLog(ctx context.Context) error {
	if svc.hostLog == nil {
		return nil
	}

	return svc.hostLog.Clear()
}

func (svc *service) ClearServerLog(ctx context.Context) error {
	svc.logMu.Lock()
	defer svc.logMu.Unlock()

	if svc.serverLog == nil {
		return nil
	}

	return svc.serverLog.Truncate(0)
}

func (svc *service) Subscribe(ctx context.Context) error {
	if svc.pubsub == nil {
		return nil
	}

	return svc.pubsub.Subscribe(ctx, fmt.Sprintf(topicControl, svc.instanceID), svc.handleControl)
}

func (svc *service) handleControl(topic string, msg map[string]any) error {
	action, ok := msg["action"].(string)
	if !ok {
		return errors.Join(pkgerrors.ErrInvalidData, errors.New("control message missing action"))
	}

	ctx := context.Background()
	switch action {
	case "start":
		_, err := svc.StartServer(ctx)

		return err
	case "stop":
		_, err := svc.StopServer(ctx)

		return err
	case "restart":
		_, err := svc.RestartServer(ctx)

		return err
	default:
		return errors.Join(pkgerrors.ErrInvalidData, fmt.Errorf("unknown control action %q", action))
	}
}

// startLocked validates the selection and configuration, resolves the
// effective launch parameters, and spawns the server.
func (svc *service) startLocked(ctx context.Context) error {
	if svc.settings.ServerBinary == "" {
		return errors.Join(pkgerrors.ErrLaunch, errors.New("server binary not configured"))
	}

	selected := svc.settings.SelectedModel
	if selected == "" {
		return pkgerrors.ErrNoModelSelected
	}

	record, err := svc.models.Get(selected)
	if err != nil {
		return err
	}
	if _, err := os.Stat(record.Path); err != nil {
		return errors.Join(pkgerrors.ErrModelFileMissing, err)
	}

	cfg := svc.settings.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.FlashAttention && !svc.flashSupportedLocked(ctx) {
		cfg.FlashAttention = false
	}

	// The fallback decision wants the state of the world right now, not
	// a snapshot from the previous tick.
	pressure := systemPressure(svc.memFn(ctx))
	thermal := svc.thermalFn(ctx)

	fallback := svc.startupFallbackLocked(pressure)
	if fallback {
		cfg.ContextSize = fallbackContext
		cfg.BatchSize = fallbackBatch
		cfg.GPULayers = fallbackGPULayers
		// The forced triple is already the conservative answer; adaptive
		// scaling does not stack on top of it.
		pressure = PressureLow
		thermal = hardware.ThermalNominal
	}

	paramsB := record.ParamsB
	if paramsB <= 0 {
		paramsB = defaultModelParamsB
	}

	args, params := launchArgs(record, cfg, svc.hw, paramsB, pressure, thermal)

	pid, err := svc.sup.Start(ctx, svc.settings.ServerBinary, args, svc.serverSink)
	if err != nil {
		svc.health = HealthStopped
		svc.note = "launch failed"

		return err
	}

	svc.desired = true
	svc.health = HealthStarting
	svc.note = ""
	if fallback {
		svc.note = "memory safeguard: conservative startup configuration"
	}

	svc.logger.Info("inference server launch requested",
		slog.String("model", record.Name),
		slog.Int("pid", pid),
		slog.Int("context_size", params.ContextSize),
		slog.Int("batch_size", params.BatchSize),
		slog.Int("gpu_layers", params.GPULayers),
		slog.Int("kv_cache_mb", params.KVCacheMB),
	)
	svc.publishHealthLocked(ctx)

	return nil
}

// stopLocked performs an intentional stop with a bounded wait. The
// desired flag drops first so the next tick cannot mistake the stop for
// a crash.
func (svc *service) stopLocked(ctx context.Context, note string) {
	svc.desired = false

	if svc.sup.IsRunning() {
		sctx, cancel := context.WithTimeout(context.Background(), stopGrace)
		if err := svc.sup.Shutdown(sctx); err != nil {
			svc.sup.Terminate()
		}
		cancel()
	} else {
		svc.sup.Terminate()
	}

	svc.health = HealthStopped
	svc.note = note
	svc.publishHealthLocked(ctx)
}

func (svc *service) serverSink(chunk []byte) {
	svc.logMu.Lock()
	defer svc.logMu.Unlock()

	if svc.serverLog == nil {
		return
	}
	_, _ = svc.serverLog.Write(chunk)
}

// flashSupportedLocked probes the configured binary once and caches the
// answer per binary path.
func (svc *service) flashSupportedLocked(ctx context.Context) bool {
	binary := svc.settings.ServerBinary
	if binary == "" {
		return false
	}
	if supported, ok := svc.flashProbes[binary]; ok {
		return supported
	}

	supported := svc.probeFn(ctx, binary)
	svc.flashProbes[binary] = supported

	return supported
}

// applyPlanLocked folds a calm-conditions plan back into the live
// configuration. Transient pressure or thermal scaling never gets baked
// into persisted settings.
func (svc *service) applyPlanLocked() {
	model, paramsB := svc.modelParamsLocked()
	plan := buildPlan(svc.settings.Config, svc.hw, model, paramsB, PressureLow, hardware.ThermalNominal)

	cfg := &svc.settings.Config
	cfg.ContextSize = plan.ContextSize
	cfg.BatchSize = plan.BatchSize
	cfg.GPULayers = plan.GPULayers
	cfg.CacheTypeK = plan.CacheTypeK
	cfg.CacheTypeV = plan.CacheTypeV
}

func (svc *service) modelParamsLocked() (string, float64) {
	selected := svc.settings.SelectedModel
	if selected == "" {
		return "", defaultModelParamsB
	}

	record, err := svc.models.Get(selected)
	if err != nil || record.ParamsB <= 0 {
		return selected, defaultModelParamsB
	}

	return selected, record.ParamsB
}

func (svc *service) saveSettingsLocked() {
	if svc.store == nil {
		return
	}
	svc.store.Save(svc.settings)
}
