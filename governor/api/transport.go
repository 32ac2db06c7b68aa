package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/daverage/TinyLLM/governor"
	"github.com/daverage/TinyLLM/pkg/api"
	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

func MakeHandler(svc governor.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Route("/config", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			getConfigEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-config").ServeHTTP)
		r.Put("/", otelhttp.NewHandler(kithttp.NewServer(
			updateConfigEndpoint(svc),
			decodeUpdateConfigReq,
			api.EncodeResponse,
			opts...,
		), "update-config").ServeHTTP)
	})

	mux.Get("/plan", otelhttp.NewHandler(kithttp.NewServer(
		recommendEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "recommend").ServeHTTP)

	mux.Route("/server", func(r chi.Router) {
		r.Post("/start", otelhttp.NewHandler(kithttp.NewServer(
			startServerEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "start-server").ServeHTTP)
		r.Post("/stop", otelhttp.NewHandler(kithttp.NewServer(
			stopServerEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "stop-server").ServeHTTP)
		r.Post("/restart", otelhttp.NewHandler(kithttp.NewServer(
			restartServerEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "restart-server").ServeHTTP)
	})

	mux.Route("/models", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listModelsEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "list-models").ServeHTTP)
		r.Post("/scan", otelhttp.NewHandler(kithttp.NewServer(
			scanModelsEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "scan-models").ServeHTTP)
		r.Route("/{modelName}", func(r chi.Router) {
			r.Post("/select", otelhttp.NewHandler(kithttp.NewServer(
				selectModelEndpoint(svc),
				decodeModelReq,
				api.EncodeResponse,
				opts...,
			), "select-model").ServeHTTP)
			r.Post("/benchmark", otelhttp.NewHandler(kithttp.NewServer(
				benchmarkModelEndpoint(svc),
				decodeBenchmarkReq,
				api.EncodeResponse,
				opts...,
			), "benchmark-model").ServeHTTP)
		})
	})

	mux.Route("/logs", func(r chi.Router) {
		r.Get("/host", otelhttp.NewHandler(kithttp.NewServer(
			hostLogEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "host-log").ServeHTTP)
		r.Delete("/host", otelhttp.NewHandler(kithttp.NewServer(
			clearHostLogEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "clear-host-log").ServeHTTP)
		r.Get("/server", otelhttp.NewHandler(kithttp.NewServer(
			serverLogEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "server-log").ServeHTTP)
		r.Delete("/server", otelhttp.NewHandler(kithttp.NewServer(
			clearServerLogEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "clear-server-log").ServeHTTP)
	})

	mux.Get("/health", api.Health("governor", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func decodeUpdateConfigReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrUnsupportedContentType)
	}

	var req updateConfigReq
	if err := json.NewDecoder(r.Body).Decode(&req.Config); err != nil {
		return nil, errors.Join(err, pkgerrors.ErrValidation)
	}

	return req, nil
}

func decodeModelReq(_ context.Context, r *http.Request) (any, error) {
	return modelReq{
		name: chi.URLParam(r, "modelName"),
	}, nil
}

// decodeBenchmarkReq reads the model name from the path and an optional
// JSON body carrying max_tokens.
func decodeBenchmarkReq(_ context.Context, r *http.Request) (any, error) {
	req := benchmarkReq{
		name: chi.URLParam(r, "modelName"),
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(err, pkgerrors.ErrValidation)
	}

	return req, nil
}
