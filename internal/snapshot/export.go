package snapshot

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// Export writes the selected runs of st to a snapshot archive. The archive
// is written atomically; a failed export leaves no partial file behind.
func Export(ctx context.Context, st core.ArtifactStore, opts *ExportOptions) (*ExportResult, error) {
	if err := normalizeExportOptions(opts); err != nil {
		return nil, err
	}

	stored, err := st.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	selected, err := selectRunsForExport(stored, opts.RunIDs)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	index := &Index{
		Version:    FormatVersion,
		CreatedAt:  time.Now().UTC(),
		AOSVersion: opts.AOSVersion,
		RunCount:   len(selected),
		Runs:       make([]RunEntry, 0, len(selected)),
		Files:      make([]FileEntry, 0, 2*len(selected)),
	}

	for _, run := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		manifest, err := st.LoadManifest(ctx, run.RunID)
		if err != nil {
			return nil, fmt.Errorf("loading manifest for run %s: %w", run.RunID, err)
		}
		eventLog, err := st.LoadEventLog(ctx, run.RunID)
		if err != nil {
			return nil, fmt.Errorf("loading event log for run %s: %w", run.RunID, err)
		}

		if err := addBytesToArchive(tarWriter, index, runArchivePath(run.RunID, manifestEntryName), manifest); err != nil {
			return nil, err
		}
		if err := addBytesToArchive(tarWriter, index, runArchivePath(run.RunID, eventLogEntryName), eventLog); err != nil {
			return nil, err
		}

		index.Runs = append(index.Runs, RunEntry{
			RunID:      run.RunID,
			StartedAt:  run.StartedAt,
			EventCount: run.EventCount,
		})
	}

	indexData, err := encodeIndex(index)
	if err != nil {
		return nil, fmt.Errorf("encoding index: %w", err)
	}
	if err := writeTarEntry(tarWriter, indexArchivePath, indexData); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}

	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing tar stream: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip stream: %w", err)
	}
	if err := config.AtomicWrite(opts.OutputPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("writing snapshot file: %w", err)
	}

	return &ExportResult{
		OutputPath: opts.OutputPath,
		Index:      index,
	}, nil
}

// selectRunsForExport keeps store order for a full export and request order
// for an explicit selection. Duplicate ids are exported once.
func selectRunsForExport(stored []core.RunSummary, selectedIDs []string) ([]core.RunSummary, error) {
	if len(selectedIDs) == 0 {
		return stored, nil
	}

	lookup := make(map[string]core.RunSummary, len(stored))
	for _, r := range stored {
		lookup[r.RunID] = r
	}

	seen := make(map[string]bool, len(selectedIDs))
	runs := make([]core.RunSummary, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		r, ok := lookup[id]
		if !ok {
			return nil, core.ErrNotFound("run", id)
		}
		seen[id] = true
		runs = append(runs, r)
	}
	return runs, nil
}
