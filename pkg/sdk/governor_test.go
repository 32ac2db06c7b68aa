package sdk_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daverage/TinyLLM/pkg/sdk"
)

func newSDK(t *testing.T, handler http.HandlerFunc) sdk.SDK {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return sdk.NewSDK(sdk.Config{GovernorURL: srv.URL})
}

func TestGetStatus(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"health":"healthy","running":true,"pid":42,"pressure":"low","hardware":{"ram_gb":16}}`))
	})

	status, err := s.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Health)
	assert.True(t, status.Running)
	assert.Equal(t, 42, status.PID)
	assert.Equal(t, 16, status.Hardware.RAMGB)
}

func TestUpdateConfigSendsDocument(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/config", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var cfg sdk.RuntimeConfig
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cfg))
		assert.Equal(t, 16384, cfg.ContextSize)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cfg)
	})

	cfg, err := s.UpdateConfig(sdk.RuntimeConfig{ContextSize: 16384, BatchSize: 512})
	require.NoError(t, err)
	assert.Equal(t, 16384, cfg.ContextSize)
	assert.Equal(t, 512, cfg.BatchSize)
}

func TestSelectModelEscapesName(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/Qwen2.5 Coder 7B-Q4_K_M.gguf/select", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Qwen2.5 Coder 7B-Q4_K_M.gguf","params_b":7}`))
	})

	m, err := s.SelectModel("Qwen2.5 Coder 7B-Q4_K_M.gguf")
	require.NoError(t, err)
	assert.Equal(t, "Qwen2.5 Coder 7B-Q4_K_M.gguf", m.Name)
	assert.InDelta(t, 7.0, m.ParamsB, 0.001)
}

func TestBenchmarkModelSendsMaxTokens(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/llama-7b-Q4_0.gguf/benchmark", r.URL.Path)

		var req struct {
			MaxTokens int `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 64, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"label":"brave-panda","model":"llama-7b-Q4_0.gguf","tokens_per_sec":41.5,"latency_ms":1543,"tokens_used":64}`))
	})

	result, err := s.BenchmarkModel("llama-7b-Q4_0.gguf", 64)
	require.NoError(t, err)
	assert.InDelta(t, 41.5, result.TokensPerSec, 0.001)
	assert.Equal(t, 64, result.TokensUsed)
}

func TestListModels(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"a.gguf"},{"name":"b.gguf"}],"total":2}`))
	})

	page, err := s.ListModels()
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Models, 2)
	assert.Equal(t, "a.gguf", page.Models[0].Name)
}

func TestLogsRoundTrip(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"log":"server listening\n"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	tail, err := s.ServerLog()
	require.NoError(t, err)
	assert.Contains(t, tail, "server listening")

	require.NoError(t, s.ClearServerLog())
}

func TestErrorBodySurfaced(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = w.Write([]byte(`{"error":"no model selected"}`))
	})

	_, err := s.StartServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "412")
	assert.Contains(t, err.Error(), "no model selected")
}

func TestErrorWithoutBody(t *testing.T) {
	t.Parallel()
	s := newSDK(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := s.GetStatus()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response code: 500")
}
