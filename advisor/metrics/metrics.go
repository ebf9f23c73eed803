// Package metrics exposes advisor activity as Prometheus collectors.
package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/biwstack/biw-advisor/advisor"
)

const namespace = "biw_advisor"

// Metrics holds the advisor collectors. A nil *Metrics records nothing.
type Metrics struct {
	DecisionsTotal  *prometheus.CounterVec
	FallbacksTotal  *prometheus.CounterVec
	PredictedMs     *prometheus.HistogramVec
	OutcomesTotal   *prometheus.CounterVec
	CPUErrorPercent *prometheus.HistogramVec
	Boundary        *prometheus.GaugeVec
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Advisory decisions by query class and chosen path",
			},
			[]string{"class", "choice"},
		),
		FallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Decisions that defaulted to the CPU without a prediction",
			},
			[]string{"reason"},
		),
		PredictedMs: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "predicted_ms",
				Help:      "Predicted execution time per path in milliseconds",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"path"},
		),
		OutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Observed CPU executions fed back to the regression models",
			},
			[]string{"class"},
		),
		CPUErrorPercent: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cpu_prediction_error_percent",
				Help:      "Relative error of the CPU estimate against the observed time",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
			},
			[]string{"class"},
		),
		Boundary: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bucket_boundary_krows",
				Help:      "Current bucket boundary sizes of each regression model, in thousands of rows",
			},
			[]string{"class", "boundary"},
		),
		RequestTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveDecision counts a decision and, when predicted, both estimates.
func (m *Metrics) ObserveDecision(d advisor.Decision) {
	if m == nil {
		return
	}
	class := string(d.Class)
	if class == "" {
		class = "none"
	}
	m.DecisionsTotal.WithLabelValues(class, string(d.Choice)).Inc()
	if !d.Predicted {
		m.FallbacksTotal.WithLabelValues(string(d.Reason)).Inc()
		return
	}
	m.PredictedMs.WithLabelValues(string(advisor.ChoiceCPU)).Observe(d.PredictedCPUms)
	m.PredictedMs.WithLabelValues(string(advisor.ChoiceAccelerator)).Observe(d.PredictedHWms)
}

// ObserveOutcome counts an outcome and records the estimate's error.
func (m *Metrics) ObserveOutcome(class advisor.QueryClass, estimatedMs, elapsedMs float64, hasEstimate bool) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(string(class)).Inc()
	if hasEstimate && elapsedMs > 0 {
		m.CPUErrorPercent.WithLabelValues(string(class)).Observe(math.Abs(estimatedMs-elapsedMs) / elapsedMs * 100)
	}
}

// SetBoundaries publishes the two bucket boundaries of a class.
func (m *Metrics) SetBoundaries(class advisor.QueryClass, smallMedium, mediumLarge float64) {
	if m == nil {
		return
	}
	m.Boundary.WithLabelValues(string(class), "small_medium").Set(smallMedium)
	m.Boundary.WithLabelValues(string(class), "medium_large").Set(mediumLarge)
}
