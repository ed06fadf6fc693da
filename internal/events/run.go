package events

import "slices"

// Event types
const (
	TypeRunRecorded    = "run_recorded"
	TypeRecordFailed   = "record_failed"
	TypeReplayFinished = "replay_finished"
)

// RunRecordedEvent is published after a run's artifacts are stored.
type RunRecordedEvent struct {
	BaseEvent
	Seed       int64 `json:"seed"`
	EventCount int   `json:"eventCount"`
}

// NewRunRecordedEvent creates a run recorded event.
func NewRunRecordedEvent(runID string, seed int64, eventCount int) RunRecordedEvent {
	return RunRecordedEvent{
		BaseEvent:  NewBaseEvent(TypeRunRecorded, runID),
		Seed:       seed,
		EventCount: eventCount,
	}
}

// RecordFailedEvent is published when a recording could not be stored.
type RecordFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// NewRecordFailedEvent creates a record failed event. runID may be empty
// when the failure happened before an id was assigned.
func NewRecordFailedEvent(runID string, err error) RecordFailedEvent {
	return RecordFailedEvent{
		BaseEvent: NewBaseEvent(TypeRecordFailed, runID),
		Error:     err.Error(),
	}
}

// ReplayFinishedEvent is published after a replay completes or fails.
type ReplayFinishedEvent struct {
	BaseEvent
	Outcome    string   `json:"outcome"`
	Mismatches []string `json:"mismatches,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// NewReplayFinishedEvent creates a replay finished event.
func NewReplayFinishedEvent(runID, outcome string, mismatches []string, err error) ReplayFinishedEvent {
	e := ReplayFinishedEvent{
		BaseEvent:  NewBaseEvent(TypeReplayFinished, runID),
		Outcome:    outcome,
		Mismatches: mismatches,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// KnownTypes lists every event type published on the bus.
func KnownTypes() []string {
	return []string{TypeRunRecorded, TypeRecordFailed, TypeReplayFinished}
}

// IsKnownType reports whether t is a published event type.
func IsKnownType(t string) bool {
	return slices.Contains(KnownTypes(), t)
}
