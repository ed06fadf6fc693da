package eventlog

import (
	"bytes"
	"encoding/json"
)

// SchemaVersion is the version of the event log line layout.
const SchemaVersion = "0.1"

// FormatJSONL names the newline-delimited JSON encoding.
const FormatJSONL = "jsonl"

// Schema describes the layout of a run's event log.
type Schema struct {
	SchemaVersion string   `json:"schemaVersion"`
	RunID         string   `json:"runId"`
	Format        string   `json:"format"`
	Fields        []string `json:"fields"`
}

// SchemaFor returns the descriptor for a run's event log.
func SchemaFor(runID string) Schema {
	return Schema{
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		Format:        FormatJSONL,
		Fields:        []string{"runId", "eventType", "data", "occurredAtUtc"},
	}
}

// MarshalIndented renders the descriptor the way manifests are written.
func (s Schema) MarshalIndented() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
