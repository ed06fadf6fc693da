package eventlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
)

// DefaultFileName is the event log file name inside a run directory.
const DefaultFileName = "eventlog.jsonl"

// FileWriter appends canonical event log lines to a single file. Existing
// content is never rewritten.
type FileWriter struct {
	path   string
	logger *logging.Logger
	mu     sync.Mutex
}

// NewFileWriter creates a writer appending to path. The parent directory is
// created on first write.
func NewFileWriter(path string, logger *logging.Logger) *FileWriter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileWriter{path: path, logger: logger}
}

// Path returns the file the writer appends to.
func (w *FileWriter) Path() string {
	return w.path
}

// Write appends entries in order. Cancellation is checked before each entry;
// entries already written stay written.
func (w *FileWriter) Write(ctx context.Context, entries []core.EventLogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("creating event log directory: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := EncodeEntry(entry)
		if err != nil {
			return err
		}

		w.logger.Info("writing event log entry",
			"event_type", entry.EventType,
			"run_id", entry.RunID,
			"path", w.path)
		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("appending event log entry: %w", err)
		}
		w.logger.Info("wrote event log entry",
			"event_type", entry.EventType,
			"run_id", entry.RunID)
	}
	return nil
}

var _ core.EventLogWriter = (*FileWriter)(nil)
