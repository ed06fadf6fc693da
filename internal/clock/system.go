// Package clock provides the time sources that drive a workflow run: the
// wall clock, a recorder wrapping another source, and a replayer fed from a
// previously recorded sequence.
package clock

import (
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// PrecisionUTCMillis is the precision reported by the built-in sources.
const PrecisionUTCMillis = "utc-millis"

// SystemTimeSource reads the wall clock.
type SystemTimeSource struct {
	now func() time.Time
}

// NewSystemTimeSource creates a wall clock source.
func NewSystemTimeSource() *SystemTimeSource {
	return &SystemTimeSource{now: time.Now}
}

// Now returns the current UTC instant truncated to milliseconds, so that it
// survives a round trip through the persisted text form unchanged.
func (s *SystemTimeSource) Now() (time.Time, error) {
	return s.now().UTC().Truncate(time.Millisecond), nil
}

// Describe reports the wall clock in record mode.
func (s *SystemTimeSource) Describe() core.TimeSourceInfo {
	return core.TimeSourceInfo{
		Mode:      core.TimeModeRecord,
		Source:    "system-utc",
		ClockID:   "clock-system-1",
		Precision: PrecisionUTCMillis,
	}
}
