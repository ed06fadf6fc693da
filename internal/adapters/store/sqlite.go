package store

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore keeps all runs in one SQLite database. Manifests and event log
// lines are stored in their canonical encoded form, so loads return the same
// bytes the file backend would.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	logger *logging.Logger

	// writeMu serializes saves so a duplicate run id is seen by the
	// existence check rather than failing on the primary key.
	writeMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// pending migrations.
func NewSQLiteStore(dbPath string, logger *logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db, logger: logger.WithComponent("sqlite-store")}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// SaveRun stores a new run and its event log in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, a *core.Artifacts) error {
	if a == nil || a.Manifest == nil {
		return core.ErrInvalidArgument(core.CodeInvalidManifest, "artifacts have no manifest")
	}
	runID := a.Manifest.RunID
	if err := checkRunID(runID); err != nil {
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

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE run_id = ?", runID).Scan(&exists)
	switch {
	case err == nil:
		return core.ErrInvalidOperation(core.CodeRunExists, "run already stored: "+runID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking run: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (run_id, started_at_unix_nano, manifest, event_schema) VALUES (?, ?, ?, ?)",
		runID, a.Manifest.StartedAtUTC.UnixNano(), manifest, schema)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, entry := range a.EventLogEntries {
		line, err := eventlog.EncodeEntry(entry)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO events (run_id, seq, event_type, line) VALUES (?, ?, ?, ?)",
			runID, i, entry.EventType, line)
		if err != nil {
			return fmt.Errorf("inserting event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}

	s.logger.Debug("run saved", "run_id", runID, "events", len(a.EventLogEntries))
	return nil
}

// LoadManifest returns the stored manifest bytes.
func (s *SQLiteStore) LoadManifest(ctx context.Context, runID string) ([]byte, error) {
	return s.loadRunColumn(ctx, runID, "manifest")
}

// LoadSchema returns the stored event log schema bytes.
func (s *SQLiteStore) LoadSchema(ctx context.Context, runID string) ([]byte, error) {
	return s.loadRunColumn(ctx, runID, "event_schema")
}

func (s *SQLiteStore) loadRunColumn(ctx context.Context, runID, column string) ([]byte, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	var data []byte
	// column is one of a fixed set chosen by this file.
	err := s.db.QueryRowContext(ctx, "SELECT "+column+" FROM runs WHERE run_id = ?", runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound("run", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", column, err)
	}
	return data, nil
}

// LoadEventLog returns the stored event log lines concatenated in emission
// order.
func (s *SQLiteStore) LoadEventLog(ctx context.Context, runID string) ([]byte, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT line FROM events WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("loading event log: %w", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	for rows.Next() {
		var line []byte
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning event log line: %w", err)
		}
		buf.Write(line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event log: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *SQLiteStore) requireRun(ctx context.Context, runID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE run_id = ?", runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound("run", runID)
	}
	if err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	return nil
}

// ListRuns returns stored runs ordered by start time, then run id.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]core.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at_unix_nano, COUNT(e.seq)
		FROM runs r
		LEFT JOIN events e ON e.run_id = r.run_id
		GROUP BY r.run_id, r.started_at_unix_nano
		ORDER BY r.started_at_unix_nano, r.run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []core.RunSummary{}
	for rows.Next() {
		var (
			summary core.RunSummary
			nanos   int64
		)
		if err := rows.Scan(&summary.RunID, &nanos, &summary.EventCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		summary.StartedAt = time.Unix(0, nanos).UTC()
		runs = append(runs, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

var _ core.ArtifactStore = (*SQLiteStore)(nil)
