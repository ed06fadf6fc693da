// Package api serves recorded runs over HTTP: recording the hello workflow,
// listing and fetching stored artifacts, and replaying them.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/events"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/service/workflow"
)

// Server provides the HTTP endpoints for recording and replaying runs.
type Server struct {
	router   chi.Router
	store    core.ArtifactStore
	recorder *workflow.Recorder
	verifier *workflow.Verifier
	metrics  *Metrics
	eventBus *events.EventBus
	logger   *logging.Logger
	cors     bool

	helloMu sync.RWMutex
	hello   config.HelloWorkflowConfig
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder replaces the default recorder built over the store.
func WithRecorder(r *workflow.Recorder) ServerOption {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithHelloConfig sets the reference lists used for new recordings.
func WithHelloConfig(cfg config.HelloWorkflowConfig) ServerOption {
	return func(s *Server) {
		s.hello = cfg
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithEventBus sets the bus run lifecycle events are published on.
func WithEventBus(bus *events.EventBus) ServerOption {
	return func(s *Server) {
		s.eventBus = bus
	}
}

// WithCORS enables or disables the CORS middleware.
func WithCORS(enabled bool) ServerOption {
	return func(s *Server) {
		s.cors = enabled
	}
}

// NewServer creates a new API server over store.
func NewServer(store core.ArtifactStore, opts ...ServerOption) *Server {
	s := &Server{
		store:  store,
		logger: logging.NewNop(),
		hello:  config.DefaultHelloWorkflow(),
		cors:   true,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.recorder == nil {
		s.recorder = workflow.NewRecorder(store, workflow.WithRecorderLogger(s.logger))
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.eventBus == nil {
		s.eventBus = events.New(events.DefaultBufferSize)
	}
	if err := s.metrics.watchEventBus(s.eventBus); err != nil {
		s.logger.Warn("event bus metrics not registered", "error", err)
	}
	s.verifier = workflow.NewVerifier(store, s.logger)

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// EventBus returns the bus run lifecycle events are published on.
func (s *Server) EventBus() *events.EventBus {
	return s.eventBus
}

// SetHelloConfig replaces the reference lists for subsequent recordings.
// Recordings already in progress keep the lists they started with.
func (s *Server) SetHelloConfig(cfg config.HelloWorkflowConfig) {
	s.helloMu.Lock()
	defer s.helloMu.Unlock()
	s.hello = cfg
}

// HelloConfig returns the reference lists used for new recordings.
func (s *Server) HelloConfig() config.HelloWorkflowConfig {
	s.helloMu.RLock()
	defer s.helloMu.RUnlock()
	return s.hello
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.loggingMiddleware)

	if s.cors {
		corsHandler := cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: false,
			MaxAge:           300,
		})
		r.Use(corsHandler.Handler)
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/workflow/hello", s.handleRecordHello)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)

			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/manifest", s.handleGetManifest)
				r.Get("/eventlog", s.handleGetEventLog)
				r.Post("/replay", s.handleReplay)
			})
		})

		// SSE endpoint for run lifecycle events
		r.Get("/events", s.handleSSE)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondRaw sends stored artifact bytes unchanged.
func (s *Server) respondRaw(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
