package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/events"
)

// maxRequestBody bounds request bodies; the only body is a small JSON object.
const maxRequestBody = 64 << 10

// RecordRequest is the optional body of POST /api/v1/workflow/hello.
type RecordRequest struct {
	RunID string `json:"runId,omitempty"`
}

// RecordResponse is returned by a successful recording.
type RecordResponse struct {
	RunID    string         `json:"runId"`
	Manifest *core.Manifest `json:"manifest"`
}

// RunListResponse is returned by GET /api/v1/runs.
type RunListResponse struct {
	Runs []core.RunSummary `json:"runs"`
}

// handleRecordHello runs the hello workflow under a recording clock and
// stores the result. An empty body mints a run id.
func (s *Server) handleRecordHello(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	cfg := s.HelloConfig()
	var artifacts *core.Artifacts
	if req.RunID != "" {
		artifacts, err = s.recorder.RecordRun(r.Context(), req.RunID, cfg)
	} else {
		artifacts, err = s.recorder.Record(r.Context(), cfg)
	}
	s.metrics.recordRun(err)
	if err != nil {
		s.eventBus.Publish(events.NewRecordFailedEvent(req.RunID, err))
		s.respondDomainError(w, err)
		return
	}
	s.eventBus.Publish(events.NewRunRecordedEvent(artifacts.Manifest.RunID,
		artifacts.Manifest.Seed.Value, len(artifacts.EventLogEntries)))

	s.respondJSON(w, http.StatusCreated, RecordResponse{
		RunID:    artifacts.Manifest.RunID,
		Manifest: artifacts.Manifest,
	})
}

// handleListRuns lists stored runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// handleGetManifest returns a run's stored manifest bytes.
func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.LoadManifest(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondRaw(w, "application/json", data)
}

// handleGetEventLog returns a run's stored event log bytes.
func (s *Server) handleGetEventLog(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.LoadEventLog(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondRaw(w, "application/x-ndjson", data)
}

// handleReplay replays a stored run. Every completed comparison, including
// a mismatch, is a 200 carrying the result; errors are reserved for runs
// that could not be loaded or replayed.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	start := time.Now()
	result, err := s.verifier.VerifyRun(r.Context(), runID)
	if err != nil {
		s.metrics.observeReplay(outcomeError, time.Since(start).Seconds())
		s.eventBus.Publish(events.NewReplayFinishedEvent(runID, outcomeError, nil, err))
		if r.Context().Err() != nil {
			s.respondError(w, http.StatusServiceUnavailable, "request cancelled")
			return
		}
		s.respondDomainError(w, err)
		return
	}
	s.metrics.observeReplay(string(result.Status), time.Since(start).Seconds())
	s.eventBus.Publish(events.NewReplayFinishedEvent(runID, string(result.Status), result.Mismatches, nil))
	s.respondJSON(w, http.StatusOK, result)
}
