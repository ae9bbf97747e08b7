// Package metrics exposes Prometheus collectors for extraction runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sfevents"

// Metrics holds the collectors for one process. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	Runs          prometheus.Counter
	VenueStatus   *prometheus.CounterVec
	Candidates    prometheus.Counter
	Duplicates    prometheus.Counter
	FetchFailures prometheus.Counter
	FetchDuration prometheus.Histogram
	LastRun       prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed extraction runs.",
		}),
		VenueStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "venue_status_total",
			Help:      "Per-venue outcomes by status.",
		}, []string{"status"}),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Unique candidate events produced.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Candidate events dropped by deduplication.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Candidate URLs that could not be fetched.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.Runs,
		m.VenueStatus,
		m.Candidates,
		m.Duplicates,
		m.FetchFailures,
		m.FetchDuration,
		m.LastRun,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
	if err != nil {
		m.FetchFailures.Inc()
	}
}

// ObserveVenue counts a venue outcome.
func (m *Metrics) ObserveVenue(status string) {
	if m == nil {
		return
	}
	m.VenueStatus.WithLabelValues(status).Inc()
}

// ObserveRun records run totals.
func (m *Metrics) ObserveRun(unique, duplicates int, finished time.Time) {
	if m == nil {
		return
	}
	m.Runs.Inc()
	m.Candidates.Add(float64(unique))
	m.Duplicates.Add(float64(duplicates))
	m.LastRun.Set(float64(finished.Unix()))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
