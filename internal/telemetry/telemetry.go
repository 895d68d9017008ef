// Package telemetry provides OpenTelemetry instrumentation for the phishguard service.
// It exports Prometheus metrics and provides tracing capabilities.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "phishguard"

// Metrics holds all phishguard Prometheus metrics
type Metrics struct {
	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	ShortCircuitsTotal *prometheus.CounterVec

	// Race metrics
	RaceWinsTotal     *prometheus.CounterVec
	RaceFailuresTotal *prometheus.CounterVec
	VerifyDuration    *prometheus.HistogramVec

	// List provider metrics
	ListRefreshTotal *prometheus.CounterVec
	ListSnapshotSize *prometheus.GaugeVec
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics
func NewProvider() *Provider {
	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: initMetrics(),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

// StartSpan begins a named span. A nil provider returns the ambient
// span so callers never branch on instrumentation being present.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if p == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.Tracer.Start(ctx, name)
}

// RecordEvaluation records one finished evaluation with its final label
func (p *Provider) RecordEvaluation(label string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.EvaluationsTotal.WithLabelValues(label).Inc()
	p.Metrics.EvaluationDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordShortCircuit records a filter stage concluding an evaluation
func (p *Provider) RecordShortCircuit(stage string) {
	if p == nil {
		return
	}
	p.Metrics.ShortCircuitsTotal.WithLabelValues(stage).Inc()
}

// RecordRaceWin records which side won a verification race
func (p *Provider) RecordRaceWin(side string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.RaceWinsTotal.WithLabelValues(side).Inc()
	p.Metrics.VerifyDuration.WithLabelValues(side).Observe(duration.Seconds())
}

// RecordRaceFailure records a race whose first-completed side failed
func (p *Provider) RecordRaceFailure(side string) {
	if p == nil {
		return
	}
	p.Metrics.RaceFailuresTotal.WithLabelValues(side).Inc()
}

// RecordListRefresh records the outcome of a bulk list refresh
func (p *Provider) RecordListRefresh(list, outcome string) {
	if p == nil {
		return
	}
	p.Metrics.ListRefreshTotal.WithLabelValues(list, outcome).Inc()
}

// SetListSnapshotSize records the item count of the serving snapshot
func (p *Provider) SetListSnapshotSize(list string, size int) {
	if p == nil {
		return
	}
	p.Metrics.ListSnapshotSize.WithLabelValues(list).Set(float64(size))
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initEvaluationMetrics(m)
	initRaceMetrics(m)
	initListMetrics(m)
	return m
}

func initEvaluationMetrics(m *Metrics) {
	m.EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_evaluations_total",
		Help: "Total URL evaluations by final label",
	}, []string{"label"})

	m.EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishguard_evaluation_duration_seconds",
		Help:    "End-to-end time to evaluate a URL",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.25, 1.0, 2.5, 5.0, 10.0, 30.0},
	}, []string{"label"})

	m.ShortCircuitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_short_circuits_total",
		Help: "Evaluations concluded by a filter stage before verification",
	}, []string{"stage"})
}

func initRaceMetrics(m *Metrics) {
	m.RaceWinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_race_wins_total",
		Help: "Verification races won, by side",
	}, []string{"side"})

	m.RaceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_race_failures_total",
		Help: "Verification races whose first-completed side failed, by side",
	}, []string{"side"})

	m.VerifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phishguard_verify_duration_seconds",
		Help:    "Time for the winning side to complete both model calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	}, []string{"side"})
}

func initListMetrics(m *Metrics) {
	m.ListRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phishguard_list_refresh_total",
		Help: "Bulk list refresh attempts by list and outcome",
	}, []string{"list", "outcome"})

	m.ListSnapshotSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "phishguard_list_snapshot_size",
		Help: "Item count of the snapshot currently serving lookups",
	}, []string{"list"})
}
