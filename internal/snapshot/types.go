// Package snapshot moves stored runs between artifact stores through a
// portable tar.gz archive. An archive carries each run's manifest and event
// log bytes exactly as stored, plus an index with per-file checksums.
package snapshot

import (
	"time"
)

const (
	// FormatVersion is the current snapshot index format version.
	FormatVersion = 1

	indexArchivePath = "index.json"
	runsArchiveRoot  = "runs"

	manifestEntryName = "manifest.json"
	eventLogEntryName = "eventlog.jsonl"
)

// ConflictPolicy controls how import handles runs already in the store.
// Stores are append-only, so there is no overwrite policy.
type ConflictPolicy string

const (
	ConflictSkip ConflictPolicy = "skip"
	ConflictFail ConflictPolicy = "fail"
)

// Import actions reported per run.
const (
	ActionImported    = "imported"
	ActionWouldImport = "would_import"
	ActionSkipped     = "skipped"
)

// FileEntry describes one archived file.
type FileEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// RunEntry captures listing metadata for an archived run.
type RunEntry struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAtUtc"`
	EventCount int       `json:"eventCount"`
}

// Index is the metadata file stored at the archive root.
type Index struct {
	Version    int         `json:"version"`
	CreatedAt  time.Time   `json:"createdAt"`
	AOSVersion string      `json:"aosVersion,omitempty"`
	RunCount   int         `json:"runCount"`
	Runs       []RunEntry  `json:"runs"`
	Files      []FileEntry `json:"files"`
}

// ExportOptions configures snapshot export behavior.
type ExportOptions struct {
	OutputPath string
	// RunIDs restricts the export; empty exports every stored run.
	RunIDs     []string
	AOSVersion string
}

// ExportResult describes an export operation.
type ExportResult struct {
	OutputPath string `json:"outputPath"`
	Index      *Index `json:"index"`
}

// ImportOptions configures snapshot import behavior.
type ImportOptions struct {
	InputPath      string
	DryRun         bool
	ConflictPolicy ConflictPolicy
}

// RunImportReport is the per-run result from import.
type RunImportReport struct {
	RunID  string `json:"runId"`
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// ImportReport summarizes import execution.
type ImportReport struct {
	DryRun         bool              `json:"dryRun"`
	ConflictPolicy ConflictPolicy    `json:"conflictPolicy"`
	Index          *Index            `json:"index"`
	Runs           []RunImportReport `json:"runs"`
	Conflicts      []string          `json:"conflicts,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Imported       int               `json:"imported"`
	Skipped        int               `json:"skipped"`
}
