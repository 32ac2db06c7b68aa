package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/governor"
	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

type stubService struct {
	status     governor.Status
	cfg        governor.Config
	plan       governor.Plan
	models     []catalog.ModelRecord
	record     catalog.ModelRecord
	result     benchmark.Result
	log        string
	err        error
	lastModel  string
	lastTokens int
}

func (s *stubService) Status(context.Context) (governor.Status, error) {
	return s.status, s.err
}

func (s *stubService) GetConfig(context.Context) (governor.Config, error) {
	return s.cfg, s.err
}

func (s *stubService) UpdateConfig(_ context.Context, cfg governor.Config) (governor.Config, error) {
	if s.err != nil {
		return governor.Config{}, s.err
	}
	s.cfg = cfg

	return cfg, nil
}

func (s *stubService) Recommend(context.Context) (governor.Plan, error) {
	return s.plan, s.err
}

func (s *stubService) StartServer(context.Context) (governor.Status, error) {
	return s.status, s.err
}

func (s *stubService) StopServer(context.Context) (governor.Status, error) {
	return s.status, s.err
}

func (s *stubService) RestartServer(context.Context) (governor.Status, error) {
	return s.status, s.err
}

func (s *stubService) ListModels(context.Context) ([]catalog.ModelRecord, error) {
	return s.models, s.err
}

func (s *stubService) ScanModels(context.Context) ([]catalog.ModelRecord, error) {
	return s.models, s.err
}

func (s *stubService) SelectModel(_ context.Context, name string) (catalog.ModelRecord, error) {
	s.lastModel = name
	if s.err != nil {
		return catalog.ModelRecord{}, s.err
	}

	return s.record, nil
}

func (s *stubService) BenchmarkModel(_ context.Context, name string, maxTokens int) (benchmark.Result, error) {
	s.lastModel = name
	s.lastTokens = maxTokens
	if s.err != nil {
		return benchmark.Result{}, s.err
	}

	return s.result, nil
}

func (s *stubService) HostLog(context.Context) (string, error) {
	return s.log, s.err
}

func (s *stubService) ServerLog(context.Context) (string, error) {
	return s.log, s.err
}

func (s *stubService) ClearHostLog(context.Context) error {
	return s.err
}

func (s *stubService) ClearServerLog(context.Context) error {
	return s.err
}

func (s *stubService) Subscribe(context.Context) error {
	return s.err
}

func (s *stubService) Run(context.Context) error {
	return nil
}

func newTestServer(t *testing.T, svc governor.Service) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(MakeHandler(svc, logger, "test-instance"))
	t.Cleanup(srv.Close)

	return srv
}

func TestStatusRoute(t *testing.T) {
	t.Parallel()
	svc := &stubService{status: governor.Status{Health: governor.HealthHealthy, Running: true, PID: 42}}
	srv := newTestServer(t, svc)

	res, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var got statusResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, governor.HealthHealthy, got.Health)
	assert.Equal(t, 42, got.PID)
}

func TestUpdateConfigRequiresJSON(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubService{})

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/config", strings.NewReader("context_size=1"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)
}

func TestUpdateConfigRoundTrip(t *testing.T) {
	t.Parallel()
	svc := &stubService{}
	srv := newTestServer(t, svc)

	cfg := governor.DefaultConfig()
	cfg.ContextSize = 16384
	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/config", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 16384, svc.cfg.ContextSize)
}

func TestSelectModelRoute(t *testing.T) {
	t.Parallel()
	svc := &stubService{record: catalog.ModelRecord{Name: "llama-7b-Q4_0.gguf"}}
	srv := newTestServer(t, svc)

	res, err := http.Post(srv.URL+"/models/llama-7b-Q4_0.gguf/select", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "llama-7b-Q4_0.gguf", svc.lastModel)
}

func TestSelectModelNotFound(t *testing.T) {
	t.Parallel()
	svc := &stubService{err: pkgerrors.ErrNotFound}
	srv := newTestServer(t, svc)

	res, err := http.Post(srv.URL+"/models/nope.gguf/select", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestStartWithoutSelectionMapsToPreconditionFailed(t *testing.T) {
	t.Parallel()
	svc := &stubService{err: pkgerrors.ErrNoModelSelected}
	srv := newTestServer(t, svc)

	res, err := http.Post(srv.URL+"/server/start", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusPreconditionFailed, res.StatusCode)
}

func TestStopWithoutServerMapsToConflict(t *testing.T) {
	t.Parallel()
	svc := &stubService{err: pkgerrors.ErrServerNotRunning}
	srv := newTestServer(t, svc)

	res, err := http.Post(srv.URL+"/server/stop", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestBenchmarkBodyDecoded(t *testing.T) {
	t.Parallel()
	svc := &stubService{result: benchmark.Result{TokensPerSec: 12.5}}
	srv := newTestServer(t, svc)

	res, err := http.Post(srv.URL+"/models/llama-7b-Q4_0.gguf/benchmark", "application/json",
		strings.NewReader(`{"max_tokens": 32}`))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 32, svc.lastTokens)
	assert.Equal(t, "llama-7b-Q4_0.gguf", svc.lastModel)
}

func TestBenchmarkEmptyBodyAllowed(t *testing.T) {
	t.Parallel()
	svc := &stubService{}
	srv := newTestServer(t, svc)

	res, err := http.Post(srv.URL+"/models/llama-7b-Q4_0.gguf/benchmark", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Zero(t, svc.lastTokens)
}

func TestClearLogsNoContent(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubService{})

	for _, path := range []string{"/logs/host", "/logs/server"} {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+path, nil)
		require.NoError(t, err)

		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()

		assert.Equal(t, http.StatusNoContent, res.StatusCode)
	}
}

func TestLogRoutes(t *testing.T) {
	t.Parallel()
	svc := &stubService{log: "[2025-06-01T12:00:00Z] [INFO] governor started\n"}
	srv := newTestServer(t, svc)

	for _, path := range []string{"/logs/host", "/logs/server"} {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)

		var got logResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
		res.Body.Close()

		assert.Contains(t, got.Log, "governor started")
	}
}

func TestHealthRoute(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubService{})

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"pass"`)
	assert.Contains(t, string(body), "test-instance")
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubService{})

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}
