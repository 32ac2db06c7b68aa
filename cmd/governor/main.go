package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/daverage/TinyLLM/daemon"
	"github.com/daverage/TinyLLM/pkg/server"
)

const (
	svcName       = "governor"
	defHTTPPort   = "9090"
	envPrefixHTTP = "TINYLLM_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel         string        `env:"TINYLLM_LOG_LEVEL"         envDefault:"info"`
	InstanceID       string        `env:"TINYLLM_INSTANCE_ID"`
	DataDir          string        `env:"TINYLLM_DATA_DIR"`
	ModelsDir        string        `env:"TINYLLM_MODELS_DIR"`
	ServerBinary     string        `env:"TINYLLM_SERVER_BINARY"     envDefault:"llama-server"`
	MQTTAddress      string        `env:"TINYLLM_MQTT_ADDRESS"`
	MQTTQoS          uint8         `env:"TINYLLM_MQTT_QOS"          envDefault:"2"`
	MQTTUsername     string        `env:"TINYLLM_MQTT_USERNAME"`
	MQTTPassword     string        `env:"TINYLLM_MQTT_PASSWORD"`
	MQTTTimeout      time.Duration `env:"TINYLLM_MQTT_TIMEOUT"      envDefault:"30s"`
	SamplingInterval time.Duration `env:"TINYLLM_SAMPLING_INTERVAL" envDefault:"3s"`
	OTELURL          url.URL       `env:"TINYLLM_OTEL_URL"`
	TraceRatio       float64       `env:"TINYLLM_TRACE_RATIO"       envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load %s HTTP server configuration : %s", svcName, err.Error())
	}

	if err := daemon.Start(ctx, cancel, daemon.Config{
		LogLevel:         cfg.LogLevel,
		InstanceID:       cfg.InstanceID,
		DataDir:          cfg.DataDir,
		ModelsDir:        cfg.ModelsDir,
		ServerBinary:     cfg.ServerBinary,
		MQTTAddress:      cfg.MQTTAddress,
		MQTTQoS:          cfg.MQTTQoS,
		MQTTUsername:     cfg.MQTTUsername,
		MQTTPassword:     cfg.MQTTPassword,
		MQTTTimeout:      cfg.MQTTTimeout,
		SamplingInterval: cfg.SamplingInterval,
		Server:           httpServerConfig,
		OTELURL:          cfg.OTELURL,
		TraceRatio:       cfg.TraceRatio,
	}); err != nil {
		log.Fatalf("%s service terminated: %s", svcName, err.Error())
	}
}
