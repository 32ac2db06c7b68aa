package governor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultSamplingInterval is the cadence of the sampling loop when the
// daemon does not configure one.
const DefaultSamplingInterval = 3 * time.Second

// Telemetry and control topics, parameterized by instance ID.
const (
	topicMetrics = "tinyllm/%s/metrics"
	topicHealth  = "tinyllm/%s/health"
	topicPolicy  = "tinyllm/%s/policy"
	topicControl = "tinyllm/%s/control"
)

// Run drives the sampling loop until ctx is cancelled, then stops the
// supervised server and flushes pending state before returning.
func (svc *service) Run(ctx context.Context) error {
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	svc.logger.Info("runtime governor started",
		slog.String("instance_id", svc.instanceID),
		slog.String("interval", svc.interval.String()),
	)

	for {
		select {
		case <-ctx.Done():
			svc.close()

			return ctx.Err()
		case <-ticker.C:
			svc.tick(ctx)
		}
	}
}

// tick samples the world, publishes the snapshot, and runs health
// derivation and policy under one lock so intentional transitions are
// never interleaved with a policy decision.
func (svc *service) tick(ctx context.Context) {
	sysMem := svc.memFn(ctx)
	thermal := svc.thermalFn(ctx)
	procMetrics := svc.sup.SampleMetrics(ctx)
	running := svc.sup.IsRunning()
	lastOutput := svc.sup.LastOutput()
	now := svc.now()

	m := RuntimeMetrics{
		SystemMemPercent: sysMem,
		ThermalState:     thermal,
		SampledAt:        now,
	}
	if running && procMetrics != nil {
		m.LLMCPUPercent = &procMetrics.CPUPercent
		m.LLMMemPercent = &procMetrics.MemPercent
	}
	svc.metrics.Store(&m)

	level := CombinedPressure(m)

	svc.mu.Lock()
	prev := svc.health
	next, note := deriveHealth(prev, svc.desired, running, procMetrics, lastOutput, now)
	svc.health = next
	if note != "" {
		svc.note = note
	} else if next == HealthHealthy {
		svc.note = ""
	}
	if next == HealthCrashed && prev != HealthCrashed {
		// Reap whatever the supervisor still tracks. No automatic
		// restart: the crashed state persists until a fresh start.
		svc.desired = false
		svc.sup.Terminate()
		svc.logger.Error("inference server exited unexpectedly",
			slog.String("model", svc.settings.SelectedModel))
	}
	if next != prev {
		svc.logger.Info("health state changed",
			slog.String("from", prev.String()),
			slog.String("to", next.String()),
		)
		svc.publishHealthLocked(ctx)
	}
	svc.evaluatePolicyLocked(ctx, m, level, now)
	svc.mu.Unlock()

	svc.updateGauges(m, level, next)
	svc.publishMetrics(ctx, m, level)
}

func (svc *service) updateGauges(m RuntimeMetrics, level PressureLevel, health HealthState) {
	if svc.gauges == nil {
		return
	}

	if svc.gauges.SystemMemPercent != nil && m.SystemMemPercent != nil {
		svc.gauges.SystemMemPercent.Set(*m.SystemMemPercent)
	}
	if svc.gauges.ProcessMemPercent != nil && m.LLMMemPercent != nil {
		svc.gauges.ProcessMemPercent.Set(*m.LLMMemPercent)
	}
	if svc.gauges.ProcessCPUPercent != nil && m.LLMCPUPercent != nil {
		svc.gauges.ProcessCPUPercent.Set(*m.LLMCPUPercent)
	}
	if svc.gauges.Thermal != nil {
		svc.gauges.Thermal.Set(float64(m.ThermalState))
	}
	if svc.gauges.Pressure != nil {
		svc.gauges.Pressure.Set(float64(level))
	}
	if svc.gauges.Health != nil {
		svc.gauges.Health.Set(float64(health))
	}
}

func (svc *service) publishMetrics(ctx context.Context, m RuntimeMetrics, level PressureLevel) {
	if svc.pubsub == nil {
		return
	}

	payload := map[string]any{
		"instance_id": svc.instanceID,
		"metrics":     m,
		"pressure":    level.String(),
	}
	if err := svc.pubsub.Publish(ctx, fmt.Sprintf(topicMetrics, svc.instanceID), payload); err != nil {
		svc.logger.Debug("failed to publish metrics", slog.Any("error", err))
	}
}

func (svc *service) publishHealthLocked(ctx context.Context) {
	if svc.pubsub == nil {
		return
	}

	payload := map[string]any{
		"instance_id": svc.instanceID,
		"health":      svc.health.String(),
		"note":        svc.note,
		"model":       svc.settings.SelectedModel,
	}
	if err := svc.pubsub.Publish(ctx, fmt.Sprintf(topicHealth, svc.instanceID), payload); err != nil {
		svc.logger.Warn("failed to publish health", slog.Any("error", err))
	}
}

func (svc *service) publishPolicy(ctx context.Context, action string, detail map[string]any) {
	if svc.pubsub == nil {
		return
	}

	payload := map[string]any{
		"instance_id": svc.instanceID,
		"action":      action,
	}
	for k, v := range detail {
		payload[k] = v
	}
	if err := svc.pubsub.Publish(ctx, fmt.Sprintf(topicPolicy, svc.instanceID), payload); err != nil {
		svc.logger.Warn("failed to publish policy event", slog.Any("error", err))
	}
}

// close is the shutdown path of Run: a bounded stop of the child, a
// settings flush so debounced saves are not lost, and release of the
// server log file.
func (svc *service) close() {
	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()

	svc.mu.Lock()
	if svc.desired || svc.sup.IsRunning() {
		svc.stopLocked(ctx, "governor shutting down")
	}
	svc.mu.Unlock()

	if svc.store != nil {
		if err := svc.store.Flush(); err != nil {
			svc.logger.Warn("failed to flush settings", slog.Any("error", err))
		}
	}

	svc.logMu.Lock()
	if svc.serverLog != nil {
		_ = svc.serverLog.Close()
		svc.serverLog = nil
	}
	svc.logMu.Unlock()

	svc.logger.Info("runtime governor stopped")
}
