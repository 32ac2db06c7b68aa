package catalog

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// defaultParamsB is assumed when a filename carries no recognisable
// parameter-count token.
const defaultParamsB = 7

var (
	// quantTag matches a trailing quantization suffix such as -Q4_K_M or
	// -Q8_0. Matching is case sensitive: lowercase tags like "-q4" are
	// part of the model name, not a variant marker.
	quantTag = regexp.MustCompile(`-Q\d.*$`)

	// paramToken matches a parameter-count token such as 7B, 13b or 1.1B
	// delimited by separators.
	paramToken = regexp.MustCompile(`(?i)(?:^|[-_ .])(\d+(?:\.\d+)?)b(?:$|[-_ .])`)
)

// ModelRecord describes one model file found in the models directory.
// Records are created and refreshed by scans and enriched by benchmarks;
// they are never deleted, so benchmark history survives a file that
// temporarily disappears.
type ModelRecord struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	SizeBytes     int64     `json:"size_bytes"`
	ParamsB       float64   `json:"params_b"`
	LastSeen      time.Time `json:"last_seen"`
	TokensPerSec  float64   `json:"tokens_per_sec,omitempty"`
	BenchmarkedAt time.Time `json:"benchmarked_at,omitempty"`
}

// BaseName reduces a model filename to its family key so differently
// quantized copies of the same model group together. The extension is
// stripped first, then a trailing quantization tag if one is present.
func BaseName(name string) string {
	base := strings.TrimSuffix(name, ".gguf")

	return quantTag.ReplaceAllString(base, "")
}

// EstimateParams guesses the parameter count in billions from filename
// tokens, e.g. "Qwen2.5-Coder-7B-Q4_K_M.gguf" yields 7.
func EstimateParams(name string) float64 {
	m := paramToken.FindStringSubmatch(name)
	if m == nil {
		return defaultParamsB
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return defaultParamsB
	}

	return v
}

// AliasFromFile derives the serving alias the inference server announces:
// the filename without its extension, with spaces replaced by dashes.
func AliasFromFile(name string) string {
	alias := strings.TrimSuffix(name, filepath.Ext(name))

	return strings.ReplaceAll(alias, " ", "-")
}

func (r ModelRecord) Base() string {
	return BaseName(r.Name)
}
