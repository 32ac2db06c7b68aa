package catalog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// indexDebounce coalesces bursts of record updates into one index write.
const indexDebounce = 500 * time.Millisecond

// indexWriter persists the record map as a JSON file keyed by filename.
// Writes are debounced: only the final state of a burst reaches disk.
// Persistence is best effort; a failed write is logged and dropped.
type indexWriter struct {
	path   string
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]ModelRecord
	timer   *time.Timer
}

func newIndexWriter(path string, logger *slog.Logger) *indexWriter {
	return &indexWriter{
		path:   path,
		delay:  indexDebounce,
		logger: logger,
	}
}

func (w *indexWriter) load() (map[string]ModelRecord, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ModelRecord{}, nil
		}

		return nil, err
	}

	records := map[string]ModelRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (w *indexWriter) save(records map[string]ModelRecord) {
	snapshot := make(map[string]ModelRecord, len(records))
	for name, record := range records {
		snapshot[name] = record
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = snapshot
	if w.timer == nil {
		w.timer = time.AfterFunc(w.delay, w.write)

		return
	}
	w.timer.Reset(w.delay)
}

func (w *indexWriter) write() {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	if pending == nil {
		return
	}
	if err := w.writeValue(pending); err != nil {
		w.logger.Warn("failed to persist model index", slog.String("path", w.path), slog.Any("error", err))
	}
}

// flush writes any pending state immediately and reports the outcome.
func (w *indexWriter) flush() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	if pending == nil {
		return nil
	}

	return w.writeValue(pending)
}

func (w *indexWriter) writeValue(records map[string]ModelRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(w.path, data, 0o644)
}
