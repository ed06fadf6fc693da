package core

import (
	"context"
	"time"
)

// =============================================================================
// Time Port
// =============================================================================

// TimeSource supplies "now" for a run. Implementations are fixed to a single
// mode (record or replay) for their whole lifetime and are not safe for
// concurrent use: one run drives one TimeSource.
type TimeSource interface {
	// Now returns the next instant. Replay sources fail once the recorded
	// sequence is exhausted.
	Now() (time.Time, error)

	// Describe returns metadata embedded in the manifest.
	Describe() TimeSourceInfo
}

// =============================================================================
// Seed Ports
// =============================================================================

// SeedSource produces a seed for a run id.
type SeedSource interface {
	CreateSeed(runID string) (SeedInfo, error)
}

// SeedProvider returns the seed locked for a run id. Repeated calls with the
// same run id return equal seeds. Safe for concurrent use.
type SeedProvider interface {
	LockedSeed(runID string) (SeedInfo, error)
}

// =============================================================================
// Persistence Ports
// =============================================================================

// EventLogWriter appends entries to an event log in emission order.
type EventLogWriter interface {
	Write(ctx context.Context, entries []EventLogEntry) error
}

// RunSummary is a listing row for a stored run.
type RunSummary struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAtUtc"`
	EventCount int       `json:"eventCount"`
}

// ArtifactStore persists and loads the artifacts of recorded runs. Loads
// return the raw persisted bytes; decoding is the caller's concern.
type ArtifactStore interface {
	// SaveRun persists a manifest and appends its event log entries.
	SaveRun(ctx context.Context, artifacts *Artifacts) error

	// LoadManifest returns the persisted manifest bytes for a run.
	LoadManifest(ctx context.Context, runID string) ([]byte, error)

	// LoadEventLog returns the persisted event log bytes for a run.
	LoadEventLog(ctx context.Context, runID string) ([]byte, error)

	// ListRuns returns stored runs ordered by start time, then run id.
	ListRuns(ctx context.Context) ([]RunSummary, error)
}
