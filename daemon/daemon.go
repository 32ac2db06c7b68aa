// Package daemon assembles the runtime governor: it loads persisted
// settings, detects the host, wires the catalog, supervisor, log tailer
// and transports together, and runs everything until shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/governor"
	"github.com/daverage/TinyLLM/governor/api"
	"github.com/daverage/TinyLLM/governor/middleware"
	"github.com/daverage/TinyLLM/hardware"
	"github.com/daverage/TinyLLM/logtail"
	"github.com/daverage/TinyLLM/pkg/eventlog"
	"github.com/daverage/TinyLLM/pkg/jaeger"
	"github.com/daverage/TinyLLM/pkg/mqtt"
	"github.com/daverage/TinyLLM/pkg/prometheus"
	"github.com/daverage/TinyLLM/pkg/server"
	httpserver "github.com/daverage/TinyLLM/pkg/server/http"
	"github.com/daverage/TinyLLM/pkg/settings"
	"github.com/daverage/TinyLLM/supervisor"
)

const (
	svcName = "governor"

	dataDirName   = ".tinyllm"
	settingsName  = "settings.toml"
	indexName     = "models.json"
	hostLogName   = "host.log"
	serverLogName = "server.log"

	statusTopic = "tinyllm/%s/health"

	dirPermission = 0o755
)

// Config carries everything Start needs. Fields left zero fall back to
// sane defaults; persisted settings win over seed values on every boot
// after the first.
type Config struct {
	LogLevel         string
	InstanceID       string
	DataDir          string
	ModelsDir        string
	ServerBinary     string
	MQTTAddress      string
	MQTTQoS          uint8
	MQTTUsername     string
	MQTTPassword     string
	MQTTTimeout      time.Duration
	SamplingInterval time.Duration
	Server           server.Config
	OTELURL          url.URL
	TraceRatio       float64
}

func Start(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %s", err.Error())
		}
		cfg.DataDir = filepath.Join(home, dataDirName)
	}
	if err := os.MkdirAll(cfg.DataDir, dirPermission); err != nil {
		return fmt.Errorf("failed to create data directory: %s", err.Error())
	}

	hostLog, err := eventlog.New(filepath.Join(cfg.DataDir, hostLogName), level)
	if err != nil {
		return fmt.Errorf("failed to open host log: %s", err.Error())
	}
	defer hostLog.Close()

	stdoutHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(eventlog.Tee(stdoutHandler, hostLog))
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	store := settings.NewStore[governor.Settings](filepath.Join(cfg.DataDir, settingsName), settings.DefaultDebounce, logger)
	st, err := store.Load()
	switch {
	case os.IsNotExist(err):
		st = governor.Settings{
			ModelsDir:    cfg.ModelsDir,
			ServerBinary: cfg.ServerBinary,
			Config:       governor.DefaultConfig(),
		}
	case err != nil:
		return fmt.Errorf("failed to load settings from %s: %s", store.Path(), err.Error())
	}
	if st.LogDir == "" {
		st.LogDir = cfg.DataDir
	}
	if st.ModelsDir == "" {
		st.ModelsDir = filepath.Join(cfg.DataDir, "models")
	}
	if err := os.MkdirAll(st.ModelsDir, dirPermission); err != nil {
		return fmt.Errorf("failed to create models directory: %s", err.Error())
	}

	hw := hardware.Detect(ctx, st.ServerBinary, logger)

	models := catalog.New(st.ModelsDir, filepath.Join(cfg.DataDir, indexName), logger)
	defer models.Close()
	if _, err := models.Scan(ctx); err != nil {
		logger.Warn("initial model scan failed", slog.String("dir", st.ModelsDir), slog.Any("error", err))
	}

	tailer, err := logtail.New(logtail.DefaultWindow, logtail.DefaultDebounce, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log tailer: %s", err.Error())
	}
	defer tailer.Close()

	sup := supervisor.New(logger)
	bench := benchmark.NewClient(logger)
	gauges := prometheus.MakeRuntimeGauges("tinyllm")

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		pubsub, err = mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, cfg.InstanceID, cfg.MQTTUsername, cfg.MQTTPassword, fmt.Sprintf(statusTopic, cfg.InstanceID), cfg.MQTTTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
		}
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logger.Warn("failed to disconnect mqtt client", slog.Any("error", err))
			}
		}()
	}

	svc, err := governor.NewService(hw, sup, models, tailer, bench, store, pubsub, &gauges, hostLog, st, cfg.SamplingInterval, cfg.InstanceID, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize governor service: %s", err.Error())
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to control topic: %s", err.Error())
	}

	for _, path := range []string{hostLog.Path(), filepath.Join(st.LogDir, serverLogName)} {
		if err := tailer.Watch(path); err != nil {
			logger.Warn("failed to watch log file", slog.String("path", path), slog.Any("error", err))
		}
	}

	g.Go(func() error {
		return tailer.Run(ctx)
	})

	g.Go(func() error {
		return svc.Run(ctx)
	})

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	return nil
}
