package clock

import (
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

const recordingNote = "time recording enabled"

// RecordingTimeSource delegates to an inner source and keeps every instant it
// hands out, in call order. Callers that need concurrency must serialize
// access themselves.
type RecordingTimeSource struct {
	inner    core.TimeSource
	recorded []time.Time
}

// NewRecordingTimeSource wraps inner.
func NewRecordingTimeSource(inner core.TimeSource) *RecordingTimeSource {
	return &RecordingTimeSource{inner: inner}
}

// Now returns the inner source's next instant and records it. Failures of the
// inner source are returned unchanged and nothing is recorded.
func (r *RecordingTimeSource) Now() (time.Time, error) {
	instant, err := r.inner.Now()
	if err != nil {
		return time.Time{}, err
	}
	r.recorded = append(r.recorded, instant)
	return instant, nil
}

// Describe returns the inner descriptor forced to record mode, with a note
// that recording is enabled.
func (r *RecordingTimeSource) Describe() core.TimeSourceInfo {
	info := r.inner.Describe()
	info.Mode = core.TimeModeRecord
	if core.IsBlank(info.Notes) {
		info.Notes = recordingNote
	} else {
		info.Notes = info.Notes + "; " + recordingNote
	}
	return info
}

// Recorded returns a copy of the instants returned so far.
func (r *RecordingTimeSource) Recorded() []time.Time {
	out := make([]time.Time, len(r.recorded))
	copy(out, r.recorded)
	return out
}
