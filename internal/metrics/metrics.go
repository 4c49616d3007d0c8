// Package metrics exposes the Prometheus collectors of the DIFAL service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors updated by the calculation runs and the HTTP layer.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	linesIgnored prometheus.Counter
	items        *prometheus.CounterVec
	difalTotal   prometheus.Counter
	httpRequests *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	registry    *Metrics
)

// Default returns the process-wide collectors, registering them on first use.
func Default() *Metrics {
	metricsOnce.Do(func() {
		registry = &Metrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "difal",
				Subsystem: "engine",
				Name:      "runs_total",
				Help:      "Total calculation runs by outcome.",
			}, []string{"outcome"}),
			runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "difal",
				Subsystem: "engine",
				Name:      "run_duration_seconds",
				Help:      "Wall time of a complete run, from decoding to totals.",
				Buckets:   prometheus.DefBuckets,
			}),
			linesIgnored: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "difal",
				Subsystem: "sped",
				Name:      "lines_ignored_total",
				Help:      "Total SPED lines skipped because they were malformed.",
			}),
			items: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "difal",
				Subsystem: "engine",
				Name:      "items_total",
				Help:      "Total line items calculated by status.",
			}, []string{"status"}),
			difalTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "difal",
				Subsystem: "engine",
				Name:      "collected_amount_total",
				Help:      "Sum of DIFAL plus FCP computed across all runs.",
			}),
			httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "difal",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status code.",
			}, []string{"route", "status"}),
		}
		prometheus.MustRegister(
			registry.runs,
			registry.runDuration,
			registry.linesIgnored,
			registry.items,
			registry.difalTotal,
			registry.httpRequests,
		)
	})
	return registry
}

// RunSummary is what a finished run reports.
type RunSummary struct {
	Duration       time.Duration
	LinesIgnored   int
	Items          int
	ErroredItems   int
	TotalToCollect float64
}

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(s RunSummary) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.runDuration.Observe(s.Duration.Seconds())
	m.linesIgnored.Add(float64(s.LinesIgnored))
	m.items.WithLabelValues("ok").Add(float64(s.Items - s.ErroredItems))
	m.items.WithLabelValues("error").Add(float64(s.ErroredItems))
	if s.TotalToCollect > 0 {
		m.difalTotal.Add(s.TotalToCollect)
	}
}

// ObserveFailure records a run aborted by a fatal error.
func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(reason).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}
