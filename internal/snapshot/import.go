package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
)

// Import restores the runs of a snapshot archive into st. The archive is
// fully validated, and every run decoded, before anything is written.
func Import(ctx context.Context, st core.ArtifactStore, opts *ImportOptions) (*ImportReport, error) {
	if err := normalizeImportOptions(opts); err != nil {
		return nil, err
	}

	index, archiveFiles, err := loadSnapshotArchive(ctx, opts.InputPath)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		DryRun:         opts.DryRun,
		ConflictPolicy: opts.ConflictPolicy,
		Index:          index,
		Runs:           make([]RunImportReport, 0, len(index.Runs)),
	}

	planned := make([]plannedRun, 0, len(index.Runs))
	for _, entry := range index.Runs {
		run, warning, planErr := planRunImport(entry, archiveFiles)
		if planErr != nil {
			return nil, planErr
		}
		if warning != "" {
			report.Warnings = append(report.Warnings, warning)
		}
		planned = append(planned, run)
	}

	for _, run := range planned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runID := run.artifacts.Manifest.RunID
		exists, err := runExists(ctx, st, runID)
		if err != nil {
			return nil, err
		}
		if exists {
			conflict := fmt.Sprintf("run %s already exists in the destination store", runID)
			if opts.ConflictPolicy == ConflictFail {
				return nil, core.ErrInvalidOperation(core.CodeRunExists, conflict)
			}
			report.Conflicts = append(report.Conflicts, conflict)
			report.Runs = append(report.Runs, RunImportReport{RunID: runID, Action: ActionSkipped, Reason: "run already exists"})
			report.Skipped++
			continue
		}

		if opts.DryRun {
			report.Runs = append(report.Runs, RunImportReport{RunID: runID, Action: ActionWouldImport})
			continue
		}
		if err := st.SaveRun(ctx, run.artifacts); err != nil {
			return nil, fmt.Errorf("importing run %s: %w", runID, err)
		}
		report.Runs = append(report.Runs, RunImportReport{RunID: runID, Action: ActionImported})
		report.Imported++
	}

	return report, nil
}

type plannedRun struct {
	artifacts *core.Artifacts
}

// planRunImport decodes one archived run. A manifest whose bytes are not in
// canonical form is still imported; the store persists the canonical
// re-encoding and a warning is returned.
func planRunImport(entry RunEntry, archiveFiles map[string][]byte) (plannedRun, string, error) {
	manifestData := archiveFiles[runArchivePath(entry.RunID, manifestEntryName)]
	eventLogData := archiveFiles[runArchivePath(entry.RunID, eventLogEntryName)]

	manifest, err := eventlog.DecodeManifest(manifestData)
	if err != nil {
		return plannedRun{}, "", fmt.Errorf("decoding manifest for run %s: %w", entry.RunID, err)
	}
	if manifest.RunID != entry.RunID {
		return plannedRun{}, "", invalidSnapshot(
			fmt.Sprintf("index run %s holds a manifest for run %s", entry.RunID, manifest.RunID), nil)
	}
	if violations := core.ValidateManifest(manifest); len(violations) > 0 {
		return plannedRun{}, "", core.ErrValidation(core.CodeInvalidManifest,
			fmt.Sprintf("run %s: %s", entry.RunID, strings.Join(violations, " ")))
	}

	entries, err := eventlog.Decode(eventLogData)
	if err != nil {
		return plannedRun{}, "", fmt.Errorf("decoding event log for run %s: %w", entry.RunID, err)
	}

	var warning string
	if canonical, encErr := eventlog.EncodeManifest(manifest); encErr == nil && !bytes.Equal(canonical, manifestData) {
		warning = fmt.Sprintf("manifest for run %s is not in canonical form and will be re-encoded", entry.RunID)
	}

	return plannedRun{artifacts: &core.Artifacts{Manifest: manifest, EventLogEntries: entries}}, warning, nil
}

func runExists(ctx context.Context, st core.ArtifactStore, runID string) (bool, error) {
	_, err := st.LoadManifest(ctx, runID)
	switch {
	case err == nil:
		return true, nil
	case core.IsCategory(err, core.ErrCatNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("checking run %s: %w", runID, err)
	}
}
