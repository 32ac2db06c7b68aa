package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/governor"
)

var _ governor.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     governor.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc governor.Service) governor.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Status(ctx context.Context) (governor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) GetConfig(ctx context.Context) (governor.Config, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-config").Add(1)
		mm.latency.With("method", "get-config").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetConfig(ctx)
}

func (mm *metricsMiddleware) UpdateConfig(ctx context.Context, cfg governor.Config) (governor.Config, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "update-config").Add(1)
		mm.latency.With("method", "update-config").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.UpdateConfig(ctx, cfg)
}

func (mm *metricsMiddleware) Recommend(ctx context.Context) (governor.Plan, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "recommend").Add(1)
		mm.latency.With("method", "recommend").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Recommend(ctx)
}

func (mm *metricsMiddleware) StartServer(ctx context.Context) (governor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start-server").Add(1)
		mm.latency.With("method", "start-server").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartServer(ctx)
}

func (mm *metricsMiddleware) StopServer(ctx context.Context) (governor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "stop-server").Add(1)
		mm.latency.With("method", "stop-server").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StopServer(ctx)
}

func (mm *metricsMiddleware) RestartServer(ctx context.Context) (governor.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "restart-server").Add(1)
		mm.latency.With("method", "restart-server").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RestartServer(ctx)
}

func (mm *metricsMiddleware) ListModels(ctx context.Context) ([]catalog.ModelRecord, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-models").Add(1)
		mm.latency.With("method", "list-models").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListModels(ctx)
}

func (mm *metricsMiddleware) ScanModels(ctx context.Context) ([]catalog.ModelRecord, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "scan-models").Add(1)
		mm.latency.With("method", "scan-models").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ScanModels(ctx)
}

func (mm *metricsMiddleware) SelectModel(ctx context.Context, name string) (catalog.ModelRecord, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "select-model").Add(1)
		mm.latency.With("method", "select-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SelectModel(ctx, name)
}

func (mm *metricsMiddleware) BenchmarkModel(ctx context.Context, name string, maxTokens int) (benchmark.Result, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "benchmark-model").Add(1)
		mm.latency.With("method", "benchmark-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.BenchmarkModel(ctx, name, maxTokens)
}

func (mm *metricsMiddleware) HostLog(ctx context.Context) (string, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "host-log").Add(1)
		mm.latency.With("method", "host-log").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.HostLog(ctx)
}

func (mm *metricsMiddleware) ServerLog(ctx context.Context) (string, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "server-log").Add(1)
		mm.latency.With("method", "server-log").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ServerLog(ctx)
}

func (mm *metricsMiddleware) ClearHostLog(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "clear-host-log").Add(1)
		mm.latency.With("method", "clear-host-log").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ClearHostLog(ctx)
}

func (mm *metricsMiddleware) ClearServerLog(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "clear-server-log").Add(1)
		mm.latency.With("method", "clear-server-log").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ClearServerLog(ctx)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}

func (mm *metricsMiddleware) Run(ctx context.Context) error {
	return mm.svc.Run(ctx)
}
