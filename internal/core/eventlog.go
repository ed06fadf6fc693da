package core

import (
	"bytes"
	"encoding/json"
	"time"
)

// EventTypeHello is emitted once by the hello workflow.
const EventTypeHello = "workflow.hello"

// EventLogEntry is one timestamped domain event. Data holds the payload as
// produced, so its key order survives a decode/encode round trip.
type EventLogEntry struct {
	RunID         string
	EventType     string
	Data          json.RawMessage
	OccurredAtUTC time.Time
}

// Equal reports whether two entries match field by field. Data is compared
// byte for byte.
func (e EventLogEntry) Equal(o EventLogEntry) bool {
	return e.RunID == o.RunID &&
		e.EventType == o.EventType &&
		bytes.Equal(e.Data, o.Data) &&
		e.OccurredAtUTC.Equal(o.OccurredAtUTC)
}

// HelloPayload is the data carried by a workflow.hello event.
type HelloPayload struct {
	Message         string `json:"message"`
	ManifestVersion string `json:"manifestVersion"`
}

// Artifacts is what one workflow execution produces.
type Artifacts struct {
	Manifest        *Manifest
	EventLogEntries []EventLogEntry
}
