package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/governor"
)

var _ governor.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    governor.Service
}

func Tracing(tracer trace.Tracer, svc governor.Service) governor.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Status(ctx context.Context) (governor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) GetConfig(ctx context.Context) (governor.Config, error) {
	ctx, span := tm.tracer.Start(ctx, "get-config")
	defer span.End()

	return tm.svc.GetConfig(ctx)
}

func (tm *tracing) UpdateConfig(ctx context.Context, cfg governor.Config) (governor.Config, error) {
	ctx, span := tm.tracer.Start(ctx, "update-config", trace.WithAttributes(
		attribute.Int("context_size", cfg.ContextSize),
		attribute.Int("batch_size", cfg.BatchSize),
		attribute.Int("gpu_layers", cfg.GPULayers),
	))
	defer span.End()

	return tm.svc.UpdateConfig(ctx, cfg)
}

func (tm *tracing) Recommend(ctx context.Context) (governor.Plan, error) {
	ctx, span := tm.tracer.Start(ctx, "recommend")
	defer span.End()

	return tm.svc.Recommend(ctx)
}

func (tm *tracing) StartServer(ctx context.Context) (governor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "start-server")
	defer span.End()

	return tm.svc.StartServer(ctx)
}

func (tm *tracing) StopServer(ctx context.Context) (governor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "stop-server")
	defer span.End()

	return tm.svc.StopServer(ctx)
}

func (tm *tracing) RestartServer(ctx context.Context) (governor.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "restart-server")
	defer span.End()

	return tm.svc.RestartServer(ctx)
}

func (tm *tracing) ListModels(ctx context.Context) ([]catalog.ModelRecord, error) {
	ctx, span := tm.tracer.Start(ctx, "list-models")
	defer span.End()

	return tm.svc.ListModels(ctx)
}

func (tm *tracing) ScanModels(ctx context.Context) ([]catalog.ModelRecord, error) {
	ctx, span := tm.tracer.Start(ctx, "scan-models")
	defer span.End()

	return tm.svc.ScanModels(ctx)
}

func (tm *tracing) SelectModel(ctx context.Context, name string) (catalog.ModelRecord, error) {
	ctx, span := tm.tracer.Start(ctx, "select-model", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	return tm.svc.SelectModel(ctx, name)
}

func (tm *tracing) BenchmarkModel(ctx context.Context, name string, maxTokens int) (benchmark.Result, error) {
	ctx, span := tm.tracer.Start(ctx, "benchmark-model", trace.WithAttributes(
		attribute.String("name", name),
		attribute.Int("max_tokens", maxTokens),
	))
	defer span.End()

	return tm.svc.BenchmarkModel(ctx, name, maxTokens)
}

func (tm *tracing) HostLog(ctx context.Context) (string, error) {
	ctx, span := tm.tracer.Start(ctx, "host-log")
	defer span.End()

	return tm.svc.HostLog(ctx)
}

func (tm *tracing) ServerLog(ctx context.Context) (string, error) {
	ctx, span := tm.tracer.Start(ctx, "server-log")
	defer span.End()

	return tm.svc.ServerLog(ctx)
}

func (tm *tracing) ClearHostLog(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "clear-host-log")
	defer span.End()

	return tm.svc.ClearHostLog(ctx)
}

func (tm *tracing) ClearServerLog(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "clear-server-log")
	defer span.End()

	return tm.svc.ClearServerLog(ctx)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}

func (tm *tracing) Run(ctx context.Context) error {
	return tm.svc.Run(ctx)
}
