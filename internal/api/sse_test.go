package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/events"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/testutil"
)

func nextEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestServer_PublishesRunEvents(t *testing.T) {
	s, _ := newGoldenServer(t)
	ch := s.EventBus().Subscribe()
	defer s.EventBus().Unsubscribe(ch)

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/workflow/hello", nil).Code)

	e := nextEvent(t, ch)
	recorded, ok := e.(events.RunRecordedEvent)
	require.True(t, ok, "got %T", e)
	assert.Equal(t, testutil.GoldenRunID, recorded.RunID())
	assert.Equal(t, testutil.GoldenSeed.Value, recorded.Seed)
	assert.Equal(t, 1, recorded.EventCount)

	require.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/api/v1/workflow/hello", nil).Code)
	failed, ok := nextEvent(t, ch).(events.RecordFailedEvent)
	require.True(t, ok)
	assert.Contains(t, failed.Error, "run already stored")

	require.Equal(t, http.StatusOK,
		do(t, s, http.MethodPost, "/api/v1/runs/"+testutil.GoldenRunID+"/replay", nil).Code)
	finished, ok := nextEvent(t, ch).(events.ReplayFinishedEvent)
	require.True(t, ok)
	assert.Equal(t, "verified", finished.Outcome)
	assert.Empty(t, finished.Error)

	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/v1/runs/missing/replay", nil).Code)
	finished, ok = nextEvent(t, ch).(events.ReplayFinishedEvent)
	require.True(t, ok)
	assert.Equal(t, outcomeError, finished.Outcome)
	assert.Contains(t, finished.Error, "not found")
}

func TestServer_SSEStream(t *testing.T) {
	s, _ := newGoldenServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events?type="+events.TypeRunRecorded, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	waitFor := func(prefix string) string {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream ended before %q", prefix)
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	waitFor("event: connected")

	post, err := http.Post(ts.URL+"/api/v1/workflow/hello", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	assert.Equal(t, "id: 2", waitFor("id: "))
	waitFor("event: " + events.TypeRunRecorded)
	data := waitFor("data: ")
	assert.Contains(t, data, `"runId":"`+testutil.GoldenRunID+`"`)
	assert.Contains(t, data, `"eventCount":1`)
}

func TestServer_SSERejectsUnknownType(t *testing.T) {
	s, _ := newGoldenServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/events?type=bogus", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `unknown event type \"bogus\"`)
	assert.Zero(t, s.EventBus().SubscriberCount())
}

func TestServer_SSEEndsWhenBusCloses(t *testing.T) {
	s, _ := newGoldenServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan())
	assert.Equal(t, "id: 1", sc.Text())

	s.EventBus().Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for sc.Scan() {
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the bus closed")
	}
}
