// Package benchmark measures the throughput of a running inference
// server. A benchmark is a single timed completion request; tokens/sec
// comes from the usage the server reports, or from the requested token
// cap when the server stays silent about usage.
package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/0x6flab/namegenerator"
)

const (
	completionPath   = "/v1/completions"
	defaultPrompt    = "Write a short story about a lighthouse keeper who finds a message in a bottle."
	defaultMaxTokens = 128
	requestTimeout   = 5 * time.Minute
)

var namegen = namegenerator.NewGenerator()

type completionReq struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type completionRes struct {
	Usage struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Result is one benchmark measurement. Label is a generated run name so
// individual runs can be told apart in logs and telemetry.
type Result struct {
	Label        string  `json:"label"`
	Model        string  `json:"model"`
	TokensPerSec float64 `json:"tokens_per_sec"`
	LatencyMS    int64   `json:"latency_ms"`
	TokensUsed   int     `json:"tokens_used"`
}

type Client struct {
	client *http.Client
	logger *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// Run issues one completion request against the server at endpoint and
// times it. alias is the serving alias the server announced for the
// loaded model.
func (c *Client) Run(ctx context.Context, endpoint, alias string, maxTokens int, temperature, topP float64) (Result, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(completionReq{
		Model:       alias,
		Prompt:      defaultPrompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+completionPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	label := namegen.Generate()
	c.logger.Info("benchmark run started", slog.String("label", label), slog.String("model", alias))

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("completion request returned status %d", resp.StatusCode)
	}

	var cres completionRes
	if err := json.NewDecoder(resp.Body).Decode(&cres); err != nil {
		return Result{}, err
	}

	tokens := cres.Usage.CompletionTokens
	if tokens <= 0 {
		tokens = maxTokens
	}

	seconds := elapsed.Seconds()
	if seconds <= 0 {
		seconds = time.Millisecond.Seconds()
	}

	result := Result{
		Label:        label,
		Model:        alias,
		TokensPerSec: float64(tokens) / seconds,
		LatencyMS:    elapsed.Milliseconds(),
		TokensUsed:   tokens,
	}

	c.logger.Info("benchmark run completed",
		slog.String("label", label),
		slog.String("model", alias),
		slog.Float64("tokens_per_sec", result.TokensPerSec),
		slog.Int64("latency_ms", result.LatencyMS),
	)

	return result, nil
}
