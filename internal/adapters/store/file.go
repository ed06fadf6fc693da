// Package store persists recorded runs. The file backend keeps one
// directory per run; the SQLite backend keeps all runs in one database.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/fsutil"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
)

// File names inside a run directory.
const (
	ManifestFileName = "manifest.json"
	EventLogFileName = eventlog.DefaultFileName
	SchemaFileName   = "schema.json"
)

// FileStore keeps each run under <root>/<runID>/. The manifest and schema
// are written atomically; the event log is only ever appended to. Saves of
// the same run id are serialized, so only one of them can succeed.
type FileStore struct {
	root   string
	logger *logging.Logger

	runLocks sync.Map // run id -> *sync.Mutex
}

// NewFileStore creates a file store rooted at root. The directory is
// created on first save.
func NewFileStore(root string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileStore{root: root, logger: logger.WithComponent("file-store")}
}

// Root returns the directory holding run directories.
func (s *FileStore) Root() string {
	return s.root
}

// RunDir returns the directory of a run.
func (s *FileStore) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

// SaveRun writes a new run. A run id that is already stored is rejected.
func (s *FileStore) SaveRun(ctx context.Context, a *core.Artifacts) error {
	if a == nil || a.Manifest == nil {
		return core.ErrInvalidArgument(core.CodeInvalidManifest, "artifacts have no manifest")
	}
	runID := a.Manifest.RunID
	if err := checkRunID(runID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lockRun(runID)
	defer unlock()

	dir := s.RunDir(runID)
	if _, err := os.Stat(filepath.Join(dir, ManifestFileName)); err == nil {
		return core.ErrInvalidOperation(core.CodeRunExists, "run already stored: "+runID)
	}
	if err := s.discardIncomplete(runID); err != nil {
		return err
	}

	manifest, err := eventlog.EncodeManifest(a.Manifest)
	if err != nil {
		return err
	}
	schema, err := eventlog.SchemaFor(runID).MarshalIndented()
	if err != nil {
		return fmt.Errorf("encoding event log schema: %w", err)
	}

	// The event log goes first: a manifest on disk marks the run complete.
	writer := eventlog.NewFileWriter(filepath.Join(dir, EventLogFileName), s.logger)
	if err := writer.Write(ctx, a.EventLogEntries); err != nil {
		return fmt.Errorf("writing event log: %w", err)
	}
	if err := config.AtomicWrite(filepath.Join(dir, SchemaFileName), schema); err != nil {
		return fmt.Errorf("writing event log schema: %w", err)
	}
	if err := config.AtomicWrite(filepath.Join(dir, ManifestFileName), manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	s.logger.Debug("run saved", "run_id", runID, "dir", dir)
	return nil
}

func (s *FileStore) lockRun(runID string) func() {
	v, _ := s.runLocks.LoadOrStore(runID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// discardIncomplete removes the event log of a save that failed before its
// manifest was written. Appending to it would corrupt the new run.
func (s *FileStore) discardIncomplete(runID string) error {
	path := filepath.Join(s.RunDir(runID), EventLogFileName)
	err := os.Remove(path)
	switch {
	case err == nil:
		s.logger.Warn("discarded event log of incomplete save", "run_id", runID, "path", path)
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("removing incomplete event log: %w", err)
	}
}

// LoadManifest returns the stored manifest bytes.
func (s *FileStore) LoadManifest(ctx context.Context, runID string) ([]byte, error) {
	return s.read(ctx, runID, ManifestFileName)
}

// LoadEventLog returns the stored event log bytes.
func (s *FileStore) LoadEventLog(ctx context.Context, runID string) ([]byte, error) {
	return s.read(ctx, runID, EventLogFileName)
}

// LoadSchema returns the stored event log schema bytes.
func (s *FileStore) LoadSchema(ctx context.Context, runID string) ([]byte, error) {
	return s.read(ctx, runID, SchemaFileName)
}

func (s *FileStore) read(ctx context.Context, runID, name string) ([]byte, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	data, err := fsutil.ReadFileInDir(ctx, s.RunDir(runID), name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.ErrNotFound("run", runID).WithCause(err)
	}
	return data, err
}

// ListRuns returns every directory under root that holds a manifest,
// ordered by start time, then run id. A manifest that cannot be decoded is
// still listed, with a zero start time, so that verification reports it.
func (s *FileStore) ListRuns(ctx context.Context) ([]core.RunSummary, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return []core.RunSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]core.RunSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runID := entry.Name()
		manifest, err := fsutil.ReadFileInDir(ctx, s.RunDir(runID), ManifestFileName)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading manifest of %s: %w", runID, err)
		}

		summary := core.RunSummary{RunID: runID}
		if m, err := eventlog.DecodeManifest(manifest); err == nil {
			summary.StartedAt = m.StartedAtUTC
		} else {
			s.logger.Warn("listing run with unreadable manifest", "run_id", runID, "error", err)
		}
		if events, err := fsutil.ReadFileInDir(ctx, s.RunDir(runID), EventLogFileName); err == nil {
			summary.EventCount = countLines(events)
		}
		runs = append(runs, summary)
	}

	sortRuns(runs)
	return runs, nil
}

func countLines(data []byte) int {
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}

func sortRuns(runs []core.RunSummary) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
}

var _ core.ArtifactStore = (*FileStore)(nil)
