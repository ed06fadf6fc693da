package api

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/events"
)

// Replay outcome label for requests that failed before producing a result.
const outcomeError = "error"

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// runsRecorded counts recordings.
	// Labels: status (success, error)
	runsRecorded *prometheus.CounterVec

	// replays counts replays.
	// Labels: outcome (verified, invalid_manifest, empty_event_log, mismatch, error)
	replays *prometheus.CounterVec

	// replayDuration measures replay latency in seconds.
	replayDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them, with the Go runtime
// and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aos",
			Subsystem: "replay",
			Name:      "runs_recorded_total",
			Help:      "Total hello-workflow recordings by status",
		}, []string{"status"}),
		replays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aos",
			Subsystem: "replay",
			Name:      "replays_total",
			Help:      "Total replays by outcome",
		}, []string{"outcome"}),
		replayDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aos",
			Subsystem: "replay",
			Name:      "duration_seconds",
			Help:      "Replay latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) recordRun(err error) {
	status := "success"
	if err != nil {
		status = outcomeError
	}
	m.runsRecorded.WithLabelValues(status).Inc()
}

func (m *Metrics) observeReplay(outcome string, seconds float64) {
	m.replays.WithLabelValues(outcome).Inc()
	m.replayDuration.Observe(seconds)
}

// watchEventBus exports the bus's subscriber and drop counts. A registry
// already watching a bus keeps its first one.
func (m *Metrics) watchEventBus(bus *events.EventBus) error {
	subscribers := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "aos",
		Subsystem: "events",
		Name:      "subscribers",
		Help:      "Open run event subscriptions",
	}, func() float64 { return float64(bus.SubscriberCount()) })
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "aos",
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Run events lost to full subscriber queues",
	}, func() float64 { return float64(bus.DroppedCount()) })

	for _, c := range []prometheus.Collector{subscribers, dropped} {
		if err := m.registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}
