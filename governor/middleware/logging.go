package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/governor"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    governor.Service
}

func Logging(logger *slog.Logger, svc governor.Service) governor.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp governor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("status",
				slog.String("health", resp.Health.String()),
				slog.String("pressure", resp.Pressure.String()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Info("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) GetConfig(ctx context.Context) (resp governor.Config, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get config failed", args...)

			return
		}
		lm.logger.Info("Get config completed successfully", args...)
	}(time.Now())

	return lm.svc.GetConfig(ctx)
}

func (lm *loggingMiddleware) UpdateConfig(ctx context.Context, cfg governor.Config) (resp governor.Config, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("config",
				slog.Int("context_size", cfg.ContextSize),
				slog.Int("batch_size", cfg.BatchSize),
				slog.Int("gpu_layers", cfg.GPULayers),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Update config failed", args...)

			return
		}
		lm.logger.Info("Update config completed successfully", args...)
	}(time.Now())

	return lm.svc.UpdateConfig(ctx, cfg)
}

func (lm *loggingMiddleware) Recommend(ctx context.Context) (resp governor.Plan, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("plan",
				slog.Int("context_size", resp.ContextSize),
				slog.Int("gpu_layers", resp.GPULayers),
				slog.Bool("clamped", resp.Clamped),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Recommend launch plan failed", args...)

			return
		}
		lm.logger.Info("Recommend launch plan completed successfully", args...)
	}(time.Now())

	return lm.svc.Recommend(ctx)
}

func (lm *loggingMiddleware) StartServer(ctx context.Context) (resp governor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("server",
				slog.Int("pid", resp.PID),
				slog.String("model", resp.SelectedModel),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start inference server failed", args...)

			return
		}
		lm.logger.Info("Start inference server completed successfully", args...)
	}(time.Now())

	return lm.svc.StartServer(ctx)
}

func (lm *loggingMiddleware) StopServer(ctx context.Context) (resp governor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Stop inference server failed", args...)

			return
		}
		lm.logger.Info("Stop inference server completed successfully", args...)
	}(time.Now())

	return lm.svc.StopServer(ctx)
}

func (lm *loggingMiddleware) RestartServer(ctx context.Context) (resp governor.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("server",
				slog.Int("pid", resp.PID),
				slog.String("model", resp.SelectedModel),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Restart inference server failed", args...)

			return
		}
		lm.logger.Info("Restart inference server completed successfully", args...)
	}(time.Now())

	return lm.svc.RestartServer(ctx)
}

func (lm *loggingMiddleware) ListModels(ctx context.Context) (resp []catalog.ModelRecord, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("count", len(resp)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List models failed", args...)

			return
		}
		lm.logger.Info("List models completed successfully", args...)
	}(time.Now())

	return lm.svc.ListModels(ctx)
}

func (lm *loggingMiddleware) ScanModels(ctx context.Context) (resp []catalog.ModelRecord, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("count", len(resp)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Scan models failed", args...)

			return
		}
		lm.logger.Info("Scan models completed successfully", args...)
	}(time.Now())

	return lm.svc.ScanModels(ctx)
}

func (lm *loggingMiddleware) SelectModel(ctx context.Context, name string) (resp catalog.ModelRecord, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.String("name", name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Select model failed", args...)

			return
		}
		lm.logger.Info("Select model completed successfully", args...)
	}(time.Now())

	return lm.svc.SelectModel(ctx, name)
}

func (lm *loggingMiddleware) BenchmarkModel(ctx context.Context, name string, maxTokens int) (resp benchmark.Result, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("benchmark",
				slog.String("model", name),
				slog.Int("max_tokens", maxTokens),
				slog.Float64("tokens_per_sec", resp.TokensPerSec),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Benchmark model failed", args...)

			return
		}
		lm.logger.Info("Benchmark model completed successfully", args...)
	}(time.Now())

	return lm.svc.BenchmarkModel(ctx, name, maxTokens)
}

func (lm *loggingMiddleware) HostLog(ctx context.Context) (resp string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("bytes", len(resp)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get host log failed", args...)

			return
		}
		lm.logger.Info("Get host log completed successfully", args...)
	}(time.Now())

	return lm.svc.HostLog(ctx)
}

func (lm *loggingMiddleware) ServerLog(ctx context.Context) (resp string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("bytes", len(resp)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get server log failed", args...)

			return
		}
		lm.logger.Info("Get server log completed successfully", args...)
	}(time.Now())

	return lm.svc.ServerLog(ctx)
}

func (lm *loggingMiddleware) ClearHostLog(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Clear host log failed", args...)

			return
		}
		lm.logger.Info("Clear host log completed successfully", args...)
	}(time.Now())

	return lm.svc.ClearHostLog(ctx)
}

func (lm *loggingMiddleware) ClearServerLog(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Clear server log failed", args...)

			return
		}
		lm.logger.Info("Clear server log completed successfully", args...)
	}(time.Now())

	return lm.svc.ClearServerLog(ctx)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe to control topic failed", args...)

			return
		}
		lm.logger.Info("Subscribe to control topic completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}

func (lm *loggingMiddleware) Run(ctx context.Context) error {
	return lm.svc.Run(ctx)
}
