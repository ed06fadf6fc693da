package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
)

// SequenceTimeSource returns a fixed list of instants with a fixed
// descriptor, failing once the list runs out.
type SequenceTimeSource struct {
	instants []time.Time
	info     core.TimeSourceInfo
	calls    int
}

// NewSequenceTimeSource creates a time source over instants.
func NewSequenceTimeSource(info core.TimeSourceInfo, instants ...time.Time) *SequenceTimeSource {
	return &SequenceTimeSource{instants: instants, info: info}
}

// Now returns the next instant.
func (s *SequenceTimeSource) Now() (time.Time, error) {
	s.calls++
	if len(s.instants) == 0 {
		return time.Time{}, core.ErrDeterminism(core.CodeReplayExhausted, "no more test instants available")
	}
	next := s.instants[0]
	s.instants = s.instants[1:]
	return next, nil
}

// Describe returns the fixed descriptor.
func (s *SequenceTimeSource) Describe() core.TimeSourceInfo {
	return s.info
}

// Calls returns how many times Now was called.
func (s *SequenceTimeSource) Calls() int {
	return s.calls
}

// MemoryStore is an in-memory ArtifactStore holding canonical artifact
// bytes.
type MemoryStore struct {
	mu        sync.Mutex
	manifests map[string][]byte
	eventLogs map[string][]byte
	summaries map[string]core.RunSummary
	saveErr   error
	saves     int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		manifests: make(map[string][]byte),
		eventLogs: make(map[string][]byte),
		summaries: make(map[string]core.RunSummary),
	}
}

// WithSaveError makes every SaveRun fail with err.
func (m *MemoryStore) WithSaveError(err error) *MemoryStore {
	m.saveErr = err
	return m
}

// Put stores raw artifact bytes for a run directly.
func (m *MemoryStore) Put(summary core.RunSummary, manifest, eventLog []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[summary.RunID] = manifest
	m.eventLogs[summary.RunID] = eventLog
	m.summaries[summary.RunID] = summary
}

// SaveRun encodes and stores artifacts.
func (m *MemoryStore) SaveRun(_ context.Context, a *core.Artifacts) error {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	manifest, err := eventlog.EncodeManifest(a.Manifest)
	if err != nil {
		return err
	}
	eventLog, err := eventlog.Encode(a.EventLogEntries)
	if err != nil {
		return err
	}
	m.Put(core.RunSummary{
		RunID:      a.Manifest.RunID,
		StartedAt:  a.Manifest.StartedAtUTC,
		EventCount: len(a.EventLogEntries),
	}, manifest, eventLog)
	return nil
}

// LoadManifest returns stored manifest bytes.
func (m *MemoryStore) LoadManifest(_ context.Context, runID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.manifests[runID]
	if !ok {
		return nil, core.ErrNotFound("run", runID)
	}
	return data, nil
}

// LoadEventLog returns stored event log bytes.
func (m *MemoryStore) LoadEventLog(_ context.Context, runID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.eventLogs[runID]
	if !ok {
		return nil, core.ErrNotFound("run", runID)
	}
	return data, nil
}

// ListRuns returns runs ordered by start time, then run id.
func (m *MemoryStore) ListRuns(_ context.Context) ([]core.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.RunSummary, 0, len(m.summaries))
	for _, s := range m.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

// Saves returns how many times SaveRun was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var (
	_ core.TimeSource    = (*SequenceTimeSource)(nil)
	_ core.ArtifactStore = (*MemoryStore)(nil)
)
