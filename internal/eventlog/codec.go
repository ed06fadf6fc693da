// Package eventlog implements the canonical byte representation of run
// artifacts: the newline-delimited event log, the manifest document and the
// per-run schema descriptor.
package eventlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// FormatTimestamp renders an instant in canonical form: UTC, RFC 3339 with
// trailing fractional zeros trimmed.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses an RFC 3339 instant with any offset and normalises it
// to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// wireEntry fixes the field order of an encoded line.
type wireEntry struct {
	RunID         string          `json:"runId"`
	EventType     string          `json:"eventType"`
	Data          json.RawMessage `json:"data"`
	OccurredAtUTC string          `json:"occurredAtUtc"`
}

// Encode serializes entries to JSONL, one object per line, each line
// terminated by "\n". The output is byte-deterministic for equal input.
func Encode(entries []core.EventLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, e := range entries {
		w := wireEntry{
			RunID:         e.RunID,
			EventType:     e.EventType,
			Data:          e.Data,
			OccurredAtUTC: FormatTimestamp(e.OccurredAtUTC),
		}
		if err := enc.Encode(w); err != nil {
			return nil, fmt.Errorf("encoding event log entry %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// EncodeEntry serializes a single entry as one terminated line.
func EncodeEntry(entry core.EventLogEntry) ([]byte, error) {
	return Encode([]core.EventLogEntry{entry})
}

// Decode parses JSONL into entries. Blank lines are skipped and "\r\n" line
// endings are tolerated. Any other line that is not a well-formed entry
// object fails the whole decode with a format error naming the line.
func Decode(data []byte) ([]core.EventLogEntry, error) {
	var entries []core.EventLogEntry

	for n, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry, err := decodeLine(line)
		if err != nil {
			return nil, core.ErrFormat(core.CodeInvalidEventLogJSON,
				fmt.Sprintf("event log line %d: %v", n+1, err)).WithCause(err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeLine(line []byte) (core.EventLogEntry, error) {
	var w *wireEntry
	if err := json.Unmarshal(line, &w); err != nil {
		return core.EventLogEntry{}, err
	}
	if w == nil {
		return core.EventLogEntry{}, errors.New("entry is null")
	}

	occurred, err := ParseTimestamp(w.OccurredAtUTC)
	if err != nil {
		return core.EventLogEntry{}, fmt.Errorf("occurredAtUtc: %w", err)
	}

	data := w.Data
	if bytes.Equal(data, []byte("null")) {
		data = nil
	}

	return core.EventLogEntry{
		RunID:         w.RunID,
		EventType:     w.EventType,
		Data:          data,
		OccurredAtUTC: occurred,
	}, nil
}

// EncodeManifest serializes a manifest as indented JSON followed by a
// newline. Timestamps are normalised to UTC first.
func EncodeManifest(m *core.Manifest) ([]byte, error) {
	if m == nil {
		return nil, errors.New("manifest is nil")
	}
	out := *m
	out.StartedAtUTC = m.StartedAtUTC.UTC()
	if m.CompletedAtUTC != nil {
		completed := m.CompletedAtUTC.UTC()
		out.CompletedAtUTC = &completed
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeManifest parses a manifest document. Keys match case-insensitively
// and timestamps are normalised to UTC.
func DecodeManifest(data []byte) (*core.Manifest, error) {
	var m *core.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, core.ErrFormat(core.CodeInvalidManifestJSON, err.Error()).WithCause(err)
	}
	if m == nil {
		return nil, core.ErrFormat(core.CodeInvalidManifestJSON, "manifest is null")
	}

	m.StartedAtUTC = m.StartedAtUTC.UTC()
	if m.CompletedAtUTC != nil {
		completed := m.CompletedAtUTC.UTC()
		m.CompletedAtUTC = &completed
	}
	return m, nil
}
