// Package metrics provides Prometheus observability for the translation
// pipeline.
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors. All methods are safe
// on a nil receiver so callers can run without observability wired up.
type Metrics struct {
	registry *prometheus.Registry

	// Translations by final outcome ("success", "error").
	Translations *prometheus.CounterVec

	// Pipeline failures by stage ("decision", "dispatch", "validation",
	// "routing").
	StageFailures *prometheus.CounterVec

	// Reasoning-service call latency.
	DecisionLatency prometheus.Histogram

	// Facility delivery latency.
	ForwardLatency prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Translations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interop_translations_total",
			Help: "Total translation requests by final outcome",
		}, []string{"outcome"}),

		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interop_stage_failures_total",
			Help: "Pipeline failures by stage",
		}, []string{"stage"}),

		DecisionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interop_decision_duration_seconds",
			Help:    "Duration of reasoning-service tool selection calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		ForwardLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interop_forward_duration_seconds",
			Help:    "Duration of facility delivery calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementTranslation records a finished translation request.
func (m *Metrics) IncrementTranslation(outcome string) {
	if m != nil {
		m.Translations.WithLabelValues(outcome).Inc()
	}
}

// IncrementStageFailure records which pipeline stage rejected a request.
func (m *Metrics) IncrementStageFailure(stage string) {
	if m != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// ObserveDecisionLatency records one reasoning-service round trip.
func (m *Metrics) ObserveDecisionLatency(d time.Duration) {
	if m != nil {
		m.DecisionLatency.Observe(d.Seconds())
	}
}

// ObserveForwardLatency records one facility delivery round trip.
func (m *Metrics) ObserveForwardLatency(d time.Duration) {
	if m != nil {
		m.ForwardLatency.Observe(d.Seconds())
	}
}

// Handler exposes the registry in Prometheus text format for GET /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
