package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/clock"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/seed"
)

// NewRunID returns a fresh run id: a random UUID without hyphens.
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Recorder runs the recording pass and persists its artifacts.
type Recorder struct {
	store    core.ArtifactStore
	seeds    core.SeedProvider
	newClock func() core.TimeSource
	newRunID func() string
	logger   *logging.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSeedProvider replaces the process-wide random seed lock.
func WithSeedProvider(p core.SeedProvider) RecorderOption {
	return func(r *Recorder) {
		r.seeds = p
	}
}

// WithClock sets the time source factory. Each run gets its own instance,
// wrapped in a recording source.
func WithClock(fn func() core.TimeSource) RecorderOption {
	return func(r *Recorder) {
		r.newClock = fn
	}
}

// WithRunIDGenerator replaces NewRunID.
func WithRunIDGenerator(fn func() string) RecorderOption {
	return func(r *Recorder) {
		r.newRunID = fn
	}
}

// WithRecorderLogger sets the logger. Nil keeps the no-op default.
func WithRecorderLogger(l *logging.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a recorder persisting to store. By default seeds come
// from a random source locked per run for the recorder's lifetime and time
// comes from the system clock.
func NewRecorder(store core.ArtifactStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:    store,
		seeds:    seed.NewLock(seed.NewRandomSeedSource()),
		newClock: func() core.TimeSource { return clock.NewSystemTimeSource() },
		newRunID: NewRunID,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record mints a run id, builds the hello-workflow artifacts under a
// recording clock and persists them.
func (r *Recorder) Record(ctx context.Context, cfg config.HelloWorkflowConfig) (*core.Artifacts, error) {
	return r.RecordRun(ctx, r.newRunID(), cfg)
}

// RecordRun is Record with a caller-supplied run id.
func (r *Recorder) RecordRun(ctx context.Context, runID string, cfg config.HelloWorkflowConfig) (*core.Artifacts, error) {
	logger := r.logger.WithRun(runID).WithMode(core.TimeModeRecord)

	recording := clock.NewRecordingTimeSource(r.newClock())
	artifacts, err := BuildHello(runID, r.seeds, recording, cfg)
	if err != nil {
		logger.Warn("recording failed", "error", err)
		return nil, err
	}

	if err := checkRecordedInstants(recording.Recorded(), artifacts.EventLogEntries); err != nil {
		logger.Error("recorded instants disagree with event log", "error", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.store.SaveRun(ctx, artifacts); err != nil {
		logger.Error("persisting run failed", "error", err)
		return nil, fmt.Errorf("persisting run %s: %w", runID, err)
	}

	logger.Info("run recorded",
		"seed", artifacts.Manifest.Seed.Value,
		"started_at", artifacts.Manifest.StartedAtUTC,
		"events", len(artifacts.EventLogEntries))
	return artifacts, nil
}

// checkRecordedInstants verifies that every instant the clock handed out is
// the timestamp of an event, in order. A replay rebuilds its clock from the
// event log alone, so any instant missing there would be unreplayable.
func checkRecordedInstants(recorded []time.Time, entries []core.EventLogEntry) error {
	if len(recorded) != len(entries) {
		return core.ErrDeterminism(core.CodeRecordingDrift,
			fmt.Sprintf("recorded %d instant(s) but emitted %d event(s)", len(recorded), len(entries)))
	}
	for i := range recorded {
		if !recorded[i].Equal(entries[i].OccurredAtUTC) {
			return core.ErrDeterminism(core.CodeRecordingDrift,
				fmt.Sprintf("event %d occurred at %s, recorded %s", i, entries[i].OccurredAtUTC, recorded[i]))
		}
	}
	return nil
}
