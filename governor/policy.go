package governor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// advisoryInterval rate-limits the elevated-pressure log line.
	advisoryInterval = time.Minute
	// sustainGrace is how long combined pressure must stay elevated
	// before safeguards act; transient spikes never trigger actions.
	sustainGrace = 6 * time.Second
	// actionCooldown is the per-action minimum spacing.
	actionCooldown = time.Minute
)

// Conservative launch triple forced by the startup fallback.
const (
	fallbackContext   = 4096
	fallbackBatch     = 128
	fallbackGPULayers = 16
)

type policyState struct {
	pressureSince time.Time
	lastAdvisory  time.Time
	lastReduce    time.Time
	lastSwitch    time.Time
	lastThrottle  time.Time
}

// evaluatePolicyLocked runs the pressure safeguards for one tick. Actions
// are tried in priority order and the first one that applies ends the
// evaluation; each action has its own cooldown.
func (svc *service) evaluatePolicyLocked(ctx context.Context, m RuntimeMetrics, level PressureLevel, now time.Time) {
	if level < PressureHigh {
		svc.policy.pressureSince = time.Time{}

		return
	}

	if svc.policy.pressureSince.IsZero() {
		svc.policy.pressureSince = now
	}

	if now.Sub(svc.policy.lastAdvisory) >= advisoryInterval {
		svc.policy.lastAdvisory = now
		args := []any{
			slog.String("level", level.String()),
		}
		if m.SystemMemPercent != nil {
			args = append(args, slog.Float64("system_mem_percent", *m.SystemMemPercent))
		}
		if m.LLMMemPercent != nil {
			args = append(args, slog.Float64("llm_mem_percent", *m.LLMMemPercent))
		}
		svc.logger.Warn("memory pressure elevated", args...)
	}

	if now.Sub(svc.policy.pressureSince) < sustainGrace {
		return
	}

	cfg := svc.settings.Config
	if cfg.AutoReduce && now.Sub(svc.policy.lastReduce) >= actionCooldown {
		if svc.reduceLocked(ctx, level) {
			svc.policy.lastReduce = now

			return
		}
	}
	if cfg.AutoSwitch && now.Sub(svc.policy.lastSwitch) >= actionCooldown {
		if svc.switchLocked(ctx, level) {
			svc.policy.lastSwitch = now

			return
		}
	}
	if cfg.AutoThrottle && svc.sup.IsRunning() && now.Sub(svc.policy.lastThrottle) >= actionCooldown {
		svc.throttleLocked(ctx, level)
		svc.policy.lastThrottle = now
	}
}

// reduceLocked shrinks context and batch size by a quarter each, bounded
// by their floors. It reports whether any value actually changed; an
// ineffective reduction lets the next action in priority order run.
func (svc *service) reduceLocked(ctx context.Context, level PressureLevel) bool {
	cfg := svc.settings.Config

	newContext := cfg.ContextSize * 3 / 4
	if newContext < minContextSize {
		newContext = minContextSize
	}
	if cfg.ManualContextOverride {
		// Overridden context is never down-tuned.
		newContext = cfg.ContextSize
	}

	newBatch := cfg.BatchSize * 3 / 4
	if newBatch < minBatchSize {
		newBatch = minBatchSize
	}

	if newContext == cfg.ContextSize && newBatch == cfg.BatchSize {
		return false
	}

	svc.settings.Config.ContextSize = newContext
	svc.settings.Config.BatchSize = newBatch
	svc.note = "memory safeguard: reduced context and batch size"
	svc.saveSettingsLocked()

	svc.logger.Warn("memory safeguard reduced runtime configuration",
		slog.String("level", level.String()),
		slog.Int("context_size", newContext),
		slog.Int("batch_size", newBatch),
	)
	svc.publishPolicy(ctx, "reduce", map[string]any{
		"level":        level.String(),
		"context_size": newContext,
		"batch_size":   newBatch,
	})

	return true
}

// switchLocked swaps the selection to the fastest on-disk sibling of the
// current model and restarts the server under it. It reports whether a
// switch happened.
func (svc *service) switchLocked(ctx context.Context, level PressureLevel) bool {
	if !svc.sup.IsRunning() {
		return false
	}

	selected := svc.settings.SelectedModel
	if selected == "" {
		return false
	}

	sibling, ok := svc.models.FastestSibling(selected)
	if !ok {
		return false
	}

	note := fmt.Sprintf("memory safeguard: switched to %s", sibling.Name)
	svc.settings.SelectedModel = sibling.Name
	svc.saveSettingsLocked()

	svc.logger.Warn("memory safeguard switched model variant",
		slog.String("level", level.String()),
		slog.String("from", selected),
		slog.String("to", sibling.Name),
	)

	svc.stopLocked(ctx, note)
	if err := svc.startLocked(ctx); err != nil {
		svc.logger.Error("restart after model switch failed", slog.Any("error", err))
		svc.note = fmt.Sprintf("switch to %s failed: server not restarted", sibling.Name)
	} else {
		svc.note = note
	}

	svc.publishPolicy(ctx, "switch", map[string]any{
		"level": level.String(),
		"from":  selected,
		"to":    sibling.Name,
	})

	return true
}

// throttleLocked stops the server entirely as the last-resort safeguard.
func (svc *service) throttleLocked(ctx context.Context, level PressureLevel) {
	svc.stopLocked(ctx, "memory safeguard: server stopped")

	svc.logger.Warn("memory safeguard stopped inference server", slog.String("level", level.String()))
	svc.publishPolicy(ctx, "throttle", map[string]any{
		"level": level.String(),
	})
}

// startupFallbackLocked forces a conservative launch triple when the
// host is already under pressure before the first launch. The window is
// the first launch of the governor's lifetime: the first call consumes
// it whether or not the fallback engages, and a manual context choice is
// never overridden.
func (svc *service) startupFallbackLocked(level PressureLevel) bool {
	if svc.fallbackApplied {
		return false
	}
	svc.fallbackApplied = true

	if level < PressureHigh || svc.settings.Config.ManualContextOverride {
		return false
	}

	svc.logger.Warn("startup memory safeguard engaged",
		slog.String("level", level.String()),
		slog.Int("context_size", fallbackContext),
		slog.Int("batch_size", fallbackBatch),
		slog.Int("gpu_layers", fallbackGPULayers),
	)

	return true
}
