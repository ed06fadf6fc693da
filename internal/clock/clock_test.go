package clock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// stubTimeSource hands out a fixed queue of instants.
type stubTimeSource struct {
	values []time.Time
	info   core.TimeSourceInfo
}

func (s *stubTimeSource) Now() (time.Time, error) {
	if len(s.values) == 0 {
		return time.Time{}, errors.New("no more test instants available")
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}

func (s *stubTimeSource) Describe() core.TimeSourceInfo { return s.info }

func TestSystemTimeSource_TruncatesToMillisecondsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	src := NewSystemTimeSource()
	src.now = func() time.Time {
		return time.Date(2026, 2, 26, 21, 0, 0, 123456789, loc)
	}

	got, err := src.Now()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 2, 26, 19, 0, 0, 123000000, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())

	info := src.Describe()
	assert.Equal(t, core.TimeModeRecord, info.Mode)
	assert.Equal(t, "system-utc", info.Source)
	assert.NotEmpty(t, info.ClockID)
	assert.Equal(t, PrecisionUTCMillis, info.Precision)
}

func TestRecordingTimeSource_RecordsReturnedInstants(t *testing.T) {
	t1 := time.Date(2026, 2, 26, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 26, 10, 0, 1, 0, time.UTC)
	inner := &stubTimeSource{
		values: []time.Time{t1, t2},
		info:   core.TimeSourceInfo{Mode: "replay", Source: "stub-clock", ClockID: "clock-stub", Precision: "utc-millis", Notes: "stub"},
	}
	src := NewRecordingTimeSource(inner)

	first, err := src.Now()
	require.NoError(t, err)
	second, err := src.Now()
	require.NoError(t, err)

	assert.Equal(t, t1, first)
	assert.Equal(t, t2, second)
	assert.Equal(t, []time.Time{t1, t2}, src.Recorded())

	info := src.Describe()
	assert.Equal(t, core.TimeModeRecord, info.Mode)
	assert.Equal(t, "stub-clock", info.Source)
	assert.Equal(t, "stub; time recording enabled", info.Notes)
}

func TestRecordingTimeSource_NoteWithoutInnerNotes(t *testing.T) {
	src := NewRecordingTimeSource(&stubTimeSource{info: core.TimeSourceInfo{Source: "x"}})
	assert.Equal(t, "time recording enabled", src.Describe().Notes)
}

func TestRecordingTimeSource_InnerFailureIsNotRecorded(t *testing.T) {
	src := NewRecordingTimeSource(&stubTimeSource{})

	_, err := src.Now()
	require.Error(t, err)
	assert.Empty(t, src.Recorded())
}

func TestRecordingTimeSource_RecordedIsACopy(t *testing.T) {
	t1 := time.Date(2026, 2, 26, 10, 0, 0, 0, time.UTC)
	src := NewRecordingTimeSource(&stubTimeSource{values: []time.Time{t1}})
	_, err := src.Now()
	require.NoError(t, err)

	got := src.Recorded()
	got[0] = time.Time{}

	assert.Equal(t, []time.Time{t1}, src.Recorded())
}

func TestReplayTimeSource_ReplaysInOrderThenFails(t *testing.T) {
	t1 := time.Date(2026, 2, 26, 11, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 26, 11, 0, 1, 0, time.UTC)
	src := NewReplayTimeSource([]time.Time{t1, t2})
	assert.Equal(t, 2, src.Remaining())

	first, err := src.Now()
	require.NoError(t, err)
	second, err := src.Now()
	require.NoError(t, err)

	assert.Equal(t, t1, first)
	assert.Equal(t, t2, second)
	assert.Equal(t, 0, src.Remaining())

	_, err = src.Now()
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatDeterminism))
	assert.ErrorIs(t, err, core.ErrDeterminism(core.CodeReplayExhausted, ""))
	assert.Contains(t, err.Error(), "no more recorded instants")
}

func TestReplayTimeSource_Describe(t *testing.T) {
	info := NewReplayTimeSource(nil).Describe()

	assert.Equal(t, core.TimeSourceInfo{
		Mode:      "replay",
		Source:    "recorded-sequence",
		ClockID:   "clock-replay-1",
		Precision: "utc-millis",
		Notes:     "replayed from in-memory sequence",
	}, info)
}

func TestReplayTimeSource_CopiesInput(t *testing.T) {
	t1 := time.Date(2026, 2, 26, 12, 0, 0, 0, time.UTC)
	input := []time.Time{t1}
	src := NewReplayTimeSource(input)
	input[0] = time.Time{}

	got, err := src.Now()
	require.NoError(t, err)
	assert.Equal(t, t1, got)
}
