package clock

import (
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// ReplayTimeSource hands out previously recorded instants in FIFO order.
// Asking for more instants than were recorded is an error, never a fallback
// to the wall clock.
type ReplayTimeSource struct {
	instants []time.Time
	next     int
}

// NewReplayTimeSource creates a replay source over a copy of instants.
func NewReplayTimeSource(instants []time.Time) *ReplayTimeSource {
	queued := make([]time.Time, len(instants))
	copy(queued, instants)
	return &ReplayTimeSource{instants: queued}
}

// Now dequeues the next recorded instant.
func (r *ReplayTimeSource) Now() (time.Time, error) {
	if r.next >= len(r.instants) {
		return time.Time{}, core.ErrDeterminism(core.CodeReplayExhausted,
			"replay time source has no more recorded instants").
			WithDetail("recorded", len(r.instants))
	}
	instant := r.instants[r.next]
	r.next++
	return instant, nil
}

// Describe always reports the in-memory replay clock.
func (r *ReplayTimeSource) Describe() core.TimeSourceInfo {
	return core.TimeSourceInfo{
		Mode:      core.TimeModeReplay,
		Source:    "recorded-sequence",
		ClockID:   "clock-replay-1",
		Precision: PrecisionUTCMillis,
		Notes:     "replayed from in-memory sequence",
	}
}

// Remaining returns how many recorded instants have not been consumed.
func (r *ReplayTimeSource) Remaining() int {
	return len(r.instants) - r.next
}
