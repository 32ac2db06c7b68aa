// Package sdk is the HTTP client for the governor API, used by the CLI
// and by programs embedding TinyLLM control.
package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

type SDK interface {
	// GetStatus reports the governor's health, pressure and metrics.
	//
	// example:
	//  status, _ := sdk.GetStatus()
	//  fmt.Println(status)
	GetStatus() (Status, error)

	// GetConfig returns the live runtime configuration.
	//
	// example:
	//  cfg, _ := sdk.GetConfig()
	//  fmt.Println(cfg)
	GetConfig() (RuntimeConfig, error)

	// UpdateConfig replaces the runtime configuration.
	//
	// example:
	//  cfg, _ := sdk.GetConfig()
	//  cfg.ContextSize = 16384
	//  cfg, _ = sdk.UpdateConfig(cfg)
	UpdateConfig(cfg RuntimeConfig) (RuntimeConfig, error)

	// Recommend computes launch parameters for the selected model
	// without applying them.
	//
	// example:
	//  plan, _ := sdk.Recommend()
	//  fmt.Println(plan)
	Recommend() (Plan, error)

	// StartServer launches the inference server.
	//
	// example:
	//  status, _ := sdk.StartServer()
	//  fmt.Println(status)
	StartServer() (Status, error)

	// StopServer stops the inference server.
	//
	// example:
	//  status, _ := sdk.StopServer()
	//  fmt.Println(status)
	StopServer() (Status, error)

	// RestartServer stops then starts the inference server.
	//
	// example:
	//  status, _ := sdk.RestartServer()
	//  fmt.Println(status)
	RestartServer() (Status, error)

	// ListModels returns the known model records.
	//
	// example:
	//  page, _ := sdk.ListModels()
	//  fmt.Println(page)
	ListModels() (ModelPage, error)

	// ScanModels rescans the models directory.
	//
	// example:
	//  page, _ := sdk.ScanModels()
	//  fmt.Println(page)
	ScanModels() (ModelPage, error)

	// SelectModel chooses the model the next start will load.
	//
	// example:
	//  model, _ := sdk.SelectModel("llama-7b-Q4_0.gguf")
	//  fmt.Println(model)
	SelectModel(name string) (Model, error)

	// BenchmarkModel runs one timed completion against the running
	// server. maxTokens zero uses the server default.
	//
	// example:
	//  result, _ := sdk.BenchmarkModel("llama-7b-Q4_0.gguf", 64)
	//  fmt.Println(result)
	BenchmarkModel(name string, maxTokens int) (BenchmarkResult, error)

	// HostLog returns the tail of the governor's own event log.
	//
	// example:
	//  tail, _ := sdk.HostLog()
	//  fmt.Println(tail)
	HostLog() (string, error)

	// ServerLog returns the tail of the inference server's output.
	//
	// example:
	//  tail, _ := sdk.ServerLog()
	//  fmt.Println(tail)
	ServerLog() (string, error)

	// ClearHostLog truncates the governor event log.
	//
	// example:
	//  _ = sdk.ClearHostLog()
	ClearHostLog() error

	// ClearServerLog truncates the inference server log.
	//
	// example:
	//  _ = sdk.ClearServerLog()
	ClearServerLog() error
}

type govSDK struct {
	governorURL string
	client      *http.Client
}

type Config struct {
	GovernorURL     string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &govSDK{
		governorURL: cfg.GovernorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

type errorRes struct {
	Err string `json:"error"`
}

func (sdk *govSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e errorRes
		if err := json.Unmarshal(body, &e); err == nil && e.Err != "" {
			return []byte{}, fmt.Errorf("unexpected response code %d: %s", resp.StatusCode, e.Err)
		}

		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
