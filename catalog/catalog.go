// Package catalog tracks the model files available to the governor. It
// scans a models directory for GGUF files, keeps per-model size and
// benchmark metadata, persists the collection as a JSON index, and
// answers the sibling-variant queries behind automatic model switching.
package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

// Catalog serializes all access to the record map; callers only ever see
// copies of records, never the map itself.
type Catalog struct {
	dir    string
	logger *slog.Logger
	index  *indexWriter

	mu      sync.RWMutex
	records map[string]ModelRecord
}

func New(dir, indexPath string, logger *slog.Logger) *Catalog {
	index := newIndexWriter(indexPath, logger)

	records, err := index.load()
	if err != nil {
		logger.Warn("failed to load model index, starting empty", slog.String("path", indexPath), slog.Any("error", err))
		records = map[string]ModelRecord{}
	}

	return &Catalog{
		dir:     dir,
		logger:  logger,
		index:   index,
		records: records,
	}
}

// Scan walks the models directory and creates or refreshes a record for
// every GGUF file found. Records of files that have disappeared are kept;
// their benchmark history remains valid if the file comes back.
func (c *Catalog) Scan(ctx context.Context) ([]ModelRecord, error) {
	type found struct {
		name string
		path string
		size int64
	}

	var files []found
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".gguf") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// File vanished mid-scan.
			return nil
		}
		files = append(files, found{name: d.Name(), path: path, size: info.Size()})

		return nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()

	c.mu.Lock()
	for _, f := range files {
		record, ok := c.records[f.name]
		if !ok {
			record = ModelRecord{Name: f.name}
		}
		record.Path = f.path
		record.SizeBytes = f.size
		record.ParamsB = EstimateParams(f.name)
		record.LastSeen = now
		c.records[f.name] = record
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.index.save(snapshot)
	c.logger.Info("model scan completed", slog.String("dir", c.dir), slog.Int("models", len(files)))

	return c.List(), nil
}

func (c *Catalog) List() []ModelRecord {
	c.mu.RLock()
	records := make([]ModelRecord, 0, len(c.records))
	for _, record := range c.records {
		records = append(records, record)
	}
	c.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})

	return records
}

func (c *Catalog) Get(name string) (ModelRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.records[name]
	if !ok {
		return ModelRecord{}, pkgerrors.ErrNotFound
	}

	return record, nil
}

// UpdateBenchmark stores a measured throughput for a model and schedules
// an index flush.
func (c *Catalog) UpdateBenchmark(name string, tokensPerSec float64) (ModelRecord, error) {
	c.mu.Lock()
	record, ok := c.records[name]
	if !ok {
		c.mu.Unlock()

		return ModelRecord{}, pkgerrors.ErrNotFound
	}
	record.TokensPerSec = tokensPerSec
	record.BenchmarkedAt = time.Now()
	c.records[name] = record
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.index.save(snapshot)

	return record, nil
}

// FastestSibling returns the best alternative quantization of the model's
// family: the highest measured throughput among benchmarked siblings, or
// the smallest file when none have benchmarks. Only siblings whose file
// is still on disk qualify. The second return is false when no candidate
// exists.
func (c *Catalog) FastestSibling(name string) (ModelRecord, bool) {
	base := BaseName(name)

	c.mu.RLock()
	var candidates []ModelRecord
	for _, record := range c.records {
		if record.Name == name || record.Base() != base {
			continue
		}
		candidates = append(candidates, record)
	}
	c.mu.RUnlock()

	var best ModelRecord
	found := false
	for _, record := range candidates {
		if _, err := os.Stat(record.Path); err != nil {
			continue
		}
		if !found || better(record, best) {
			best = record
			found = true
		}
	}

	return best, found
}

// better prefers benchmarked records by throughput, then smaller files.
func better(a, b ModelRecord) bool {
	switch {
	case a.TokensPerSec > 0 && b.TokensPerSec > 0:
		if a.TokensPerSec != b.TokensPerSec {
			return a.TokensPerSec > b.TokensPerSec
		}

		return a.SizeBytes < b.SizeBytes
	case a.TokensPerSec > 0:
		return true
	case b.TokensPerSec > 0:
		return false
	default:
		return a.SizeBytes < b.SizeBytes
	}
}

// Close flushes any pending index write.
func (c *Catalog) Close() error {
	return c.index.flush()
}

func (c *Catalog) snapshotLocked() map[string]ModelRecord {
	snapshot := make(map[string]ModelRecord, len(c.records))
	for name, record := range c.records {
		snapshot[name] = record
	}

	return snapshot
}
