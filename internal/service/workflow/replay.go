package workflow

import (
	"bytes"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/clock"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/seed"
)

// ReplayStatus is the outcome of a completed verification.
type ReplayStatus string

const (
	StatusVerified        ReplayStatus = "verified"
	StatusInvalidManifest ReplayStatus = "invalid_manifest"
	StatusEmptyEventLog   ReplayStatus = "empty_event_log"
	StatusMismatch        ReplayStatus = "mismatch"
)

// MsgEventLogBytesDiffer is reported when the canonical event log encodings
// of the recording and the replay differ.
const MsgEventLogBytesDiffer = "Event log bytes differ from replay output."

// ReplayResult reports how a recorded run compared against its replay.
// Violations is set for StatusInvalidManifest, Mismatches for
// StatusMismatch.
type ReplayResult struct {
	Status     ReplayStatus `json:"status"`
	RunID      string       `json:"runId"`
	Violations []string     `json:"violations,omitempty"`
	Mismatches []string     `json:"mismatches,omitempty"`
}

// OK reports whether the run was verified.
func (r *ReplayResult) OK() bool {
	return r.Status == StatusVerified
}

// Verify replays a recorded run from its manifest and event log bytes and
// compares the result with the recording.
//
// Malformed input fails with a format error. A replay that cannot run to
// completion fails with the builder's error. Every other outcome, including
// an invalid manifest, an empty event log and mismatches, is a result.
func Verify(manifestBytes, eventLogBytes []byte) (*ReplayResult, error) {
	expected, err := eventlog.DecodeManifest(manifestBytes)
	if err != nil {
		return nil, err
	}
	entries, err := eventlog.Decode(eventLogBytes)
	if err != nil {
		return nil, err
	}

	result := &ReplayResult{RunID: expected.RunID}

	if violations := core.ValidateManifest(expected); len(violations) > 0 {
		result.Status = StatusInvalidManifest
		result.Violations = violations
		return result, nil
	}
	if len(entries) == 0 {
		result.Status = StatusEmptyEventLog
		return result, nil
	}

	instants := make([]time.Time, len(entries))
	for i, e := range entries {
		instants[i] = e.OccurredAtUTC
	}
	replayClock := clock.NewReplayTimeSource(instants)
	seeds := seed.NewLock(seed.NewBoundSeedSource(expected.Seed, expected.RunID))

	actual, err := BuildHello(expected.RunID, seeds, replayClock, ConfigFromManifest(expected))
	if err != nil {
		return nil, err
	}

	mismatches := core.ManifestDiff(expected, actual.Manifest)

	expectedBytes, err := eventlog.Encode(entries)
	if err != nil {
		return nil, err
	}
	actualBytes, err := eventlog.Encode(actual.EventLogEntries)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(expectedBytes, actualBytes) {
		mismatches = append(mismatches, MsgEventLogBytesDiffer)
	}

	if n := replayClock.Remaining(); n > 0 {
		mismatches = append(mismatches, fmt.Sprintf("Replay left %d recorded instant(s) unconsumed.", n))
	}

	if len(mismatches) > 0 {
		result.Status = StatusMismatch
		result.Mismatches = mismatches
		return result, nil
	}
	result.Status = StatusVerified
	return result, nil
}
