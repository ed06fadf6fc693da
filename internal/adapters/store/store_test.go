package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/testutil"
)

func helloArtifacts(runID string, started time.Time) *core.Artifacts {
	m := testutil.NewTestManifest(func(m *core.Manifest) {
		m.RunID = runID
		m.Seed.SeedID = core.SeedIDFor(runID)
		m.StartedAtUTC = started
		m.CompletedAtUTC = &started
	})
	return &core.Artifacts{
		Manifest: m,
		EventLogEntries: []core.EventLogEntry{{
			RunID:         runID,
			EventType:     core.EventTypeHello,
			Data:          json.RawMessage(`{"message":"hello","manifestVersion":"0.1"}`),
			OccurredAtUTC: started,
		}},
	}
}

// backends returns one fresh store per backend.
func backends(t *testing.T) map[string]core.ArtifactStore {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]core.ArtifactStore{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "runs"), nil),
		"sqlite": sqliteStore,
	}
}

func TestStore_SaveAndLoadCanonicalBytes(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := helloArtifacts(testutil.GoldenRunID, testutil.GoldenInstant)
			require.NoError(t, s.SaveRun(ctx, a))

			wantManifest, err := eventlog.EncodeManifest(a.Manifest)
			require.NoError(t, err)
			wantLog, err := eventlog.Encode(a.EventLogEntries)
			require.NoError(t, err)

			gotManifest, err := s.LoadManifest(ctx, testutil.GoldenRunID)
			require.NoError(t, err)
			assert.Equal(t, string(wantManifest), string(gotManifest))

			gotLog, err := s.LoadEventLog(ctx, testutil.GoldenRunID)
			require.NoError(t, err)
			assert.Equal(t, string(wantLog), string(gotLog))

			loader, ok := s.(SchemaLoader)
			require.True(t, ok)
			schema, err := loader.LoadSchema(ctx, testutil.GoldenRunID)
			require.NoError(t, err)
			assert.Contains(t, string(schema), `"runId": "`+testutil.GoldenRunID+`"`)
		})
	}
}

func TestStore_RejectsDuplicateRun(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := helloArtifacts("run-dup", testutil.GoldenInstant)
			require.NoError(t, s.SaveRun(ctx, a))

			err := s.SaveRun(ctx, a)
			require.Error(t, err)
			assert.True(t, core.IsCategory(err, core.ErrCatInvalidOperation))

			log, err := s.LoadEventLog(ctx, "run-dup")
			require.NoError(t, err)
			entries, err := eventlog.Decode(log)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestStore_ConcurrentSavesOfOneRun(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := helloArtifacts("run-race", testutil.GoldenInstant)

			const writers = 8
			errs := make([]error, writers)
			var wg sync.WaitGroup
			for i := range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs[i] = s.SaveRun(ctx, a)
				}()
			}
			wg.Wait()

			saved := 0
			for _, err := range errs {
				if err == nil {
					saved++
					continue
				}
				assert.True(t, core.IsCategory(err, core.ErrCatInvalidOperation), err)
			}
			assert.Equal(t, 1, saved)

			wantLog, err := eventlog.Encode(a.EventLogEntries)
			require.NoError(t, err)
			gotLog, err := s.LoadEventLog(ctx, "run-race")
			require.NoError(t, err)
			assert.Equal(t, string(wantLog), string(gotLog))
		})
	}
}

func TestFileStore_DiscardsIncompleteSave(t *testing.T) {
	root := filepath.Join(t.TempDir(), "runs")
	s := NewFileStore(root, nil)
	ctx := context.Background()

	// An earlier save wrote its event log and failed before the manifest.
	a := helloArtifacts("run-retry", testutil.GoldenInstant)
	wantLog, err := eventlog.Encode(a.EventLogEntries)
	require.NoError(t, err)
	testutil.TempFile(t, filepath.Join(root, "run-retry"), EventLogFileName, wantLog)

	require.NoError(t, s.SaveRun(ctx, a))

	gotLog, err := s.LoadEventLog(ctx, "run-retry")
	require.NoError(t, err)
	assert.Equal(t, string(wantLog), string(gotLog))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].EventCount)
}

func TestStore_UnknownRunIsNotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.LoadManifest(ctx, "missing")
			assert.True(t, core.IsCategory(err, core.ErrCatNotFound))

			_, err = s.LoadEventLog(ctx, "missing")
			assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
		})
	}
}

func TestStore_RejectsUnsafeRunIDs(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"", "   ", "..", "a/b", `a\b`} {
				err := s.SaveRun(ctx, helloArtifacts(id, testutil.GoldenInstant))
				assert.True(t, core.IsCategory(err, core.ErrCatInvalidArgument), "id %q", id)

				_, err = s.LoadManifest(ctx, id)
				assert.True(t, core.IsCategory(err, core.ErrCatInvalidArgument), "id %q", id)
			}
		})
	}
}

func TestStore_ListRunsOrdering(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			runs, err := s.ListRuns(ctx)
			require.NoError(t, err)
			assert.Empty(t, runs)

			later := testutil.GoldenInstant.Add(time.Hour)
			require.NoError(t, s.SaveRun(ctx, helloArtifacts("run-c", later)))
			require.NoError(t, s.SaveRun(ctx, helloArtifacts("run-b", testutil.GoldenInstant)))
			require.NoError(t, s.SaveRun(ctx, helloArtifacts("run-a", testutil.GoldenInstant)))

			runs, err = s.ListRuns(ctx)
			require.NoError(t, err)
			require.Len(t, runs, 3)

			ids := []string{runs[0].RunID, runs[1].RunID, runs[2].RunID}
			assert.Equal(t, []string{"run-a", "run-b", "run-c"}, ids)
			assert.True(t, runs[2].StartedAt.Equal(later))
			for _, r := range runs {
				assert.Equal(t, 1, r.EventCount)
			}
		})
	}
}

func TestStore_SaveRejectsMissingManifest(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.SaveRun(context.Background(), &core.Artifacts{})
			assert.True(t, core.IsCategory(err, core.ErrCatInvalidArgument))
		})
	}
}

func TestFileStore_Layout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "runs")
	s := NewFileStore(root, nil)
	require.NoError(t, s.SaveRun(context.Background(), helloArtifacts("run-layout", testutil.GoldenInstant)))

	for _, name := range []string{ManifestFileName, EventLogFileName, SchemaFileName} {
		info, err := os.Stat(filepath.Join(root, "run-layout", name))
		require.NoError(t, err, name)
		assert.False(t, info.IsDir())
	}
}

func TestFileStore_ListsRunWithCorruptManifest(t *testing.T) {
	root := filepath.Join(t.TempDir(), "runs")
	s := NewFileStore(root, nil)
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, helloArtifacts("run-ok", testutil.GoldenInstant)))
	testutil.TempFile(t, filepath.Join(root, "run-bad"), ManifestFileName, []byte("{not json"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-run"), 0o755))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Zero start time sorts first.
	assert.Equal(t, "run-bad", runs[0].RunID)
	assert.True(t, runs[0].StartedAt.IsZero())
	assert.Equal(t, "run-ok", runs[1].RunID)
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "runs"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SaveRun(ctx, helloArtifacts("run-cancel", testutil.GoldenInstant))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.LoadManifest(ctx, "run-cancel")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.SaveRun(ctx, helloArtifacts("run-persist", testutil.GoldenInstant)))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-persist", runs[0].RunID)
	assert.True(t, runs[0].StartedAt.Equal(testutil.GoldenInstant))
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	s, err := New(config.StoreConfig{Backend: config.StoreBackendFile, Path: filepath.Join(dir, "runs")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.NoError(t, Close(s))

	s, err = New(config.StoreConfig{Backend: "SQLite", Path: filepath.Join(dir, "runs")}, nil)
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	assert.Equal(t, filepath.Join(dir, "runs.db"), s.(*SQLiteStore).Path())
	assert.NoError(t, Close(s))

	_, err = New(config.StoreConfig{Backend: "postgres", Path: dir}, nil)
	assert.True(t, core.IsCategory(err, core.ErrCatInvalidArgument))
}
