package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const modelsEndpoint = "/models"

type Model struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	SizeBytes     int64     `json:"size_bytes"`
	ParamsB       float64   `json:"params_b"`
	LastSeen      time.Time `json:"last_seen"`
	TokensPerSec  float64   `json:"tokens_per_sec,omitempty"`
	BenchmarkedAt time.Time `json:"benchmarked_at,omitempty"`
}

type ModelPage struct {
	Models []Model `json:"models"`
	Total  int     `json:"total"`
}

type BenchmarkResult struct {
	Label        string  `json:"label"`
	Model        string  `json:"model"`
	TokensPerSec float64 `json:"tokens_per_sec"`
	LatencyMS    int64   `json:"latency_ms"`
	TokensUsed   int     `json:"tokens_used"`
}

type benchmarkReq struct {
	MaxTokens int `json:"max_tokens,omitempty"`
}

func (sdk *govSDK) ListModels() (ModelPage, error) {
	reqURL := sdk.governorURL + modelsEndpoint

	body, err := sdk.processRequest(http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return ModelPage{}, err
	}

	var mp ModelPage
	if err := json.Unmarshal(body, &mp); err != nil {
		return ModelPage{}, err
	}

	return mp, nil
}

func (sdk *govSDK) ScanModels() (ModelPage, error) {
	reqURL := sdk.governorURL + modelsEndpoint + "/scan"

	body, err := sdk.processRequest(http.MethodPost, reqURL, nil, http.StatusOK)
	if err != nil {
		return ModelPage{}, err
	}

	var mp ModelPage
	if err := json.Unmarshal(body, &mp); err != nil {
		return ModelPage{}, err
	}

	return mp, nil
}

func (sdk *govSDK) SelectModel(name string) (Model, error) {
	reqURL := fmt.Sprintf("%s%s/%s/select", sdk.governorURL, modelsEndpoint, url.PathEscape(name))

	body, err := sdk.processRequest(http.MethodPost, reqURL, nil, http.StatusOK)
	if err != nil {
		return Model{}, err
	}

	var m Model
	if err := json.Unmarshal(body, &m); err != nil {
		return Model{}, err
	}

	return m, nil
}

func (sdk *govSDK) BenchmarkModel(name string, maxTokens int) (BenchmarkResult, error) {
	data, err := json.Marshal(benchmarkReq{MaxTokens: maxTokens})
	if err != nil {
		return BenchmarkResult{}, err
	}

	reqURL := fmt.Sprintf("%s%s/%s/benchmark", sdk.governorURL, modelsEndpoint, url.PathEscape(name))

	body, err := sdk.processRequest(http.MethodPost, reqURL, data, http.StatusOK)
	if err != nil {
		return BenchmarkResult{}, err
	}

	var br BenchmarkResult
	if err := json.Unmarshal(body, &br); err != nil {
		return BenchmarkResult{}, err
	}

	return br, nil
}
