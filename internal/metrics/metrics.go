// Package metrics exposes Prometheus collectors for the monitoring pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	postsFetchedTotal    *prometheus.CounterVec
	postsStoredTotal     *prometheus.CounterVec
	postsRelevantTotal   *prometheus.CounterVec
	sourceErrorsTotal    *prometheus.CounterVec
	cyclesTotal          *prometheus.CounterVec
	cycleDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		postsFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_posts_fetched_total",
				Help: "Total number of posts fetched, labeled by subreddit.",
			},
			[]string{"subreddit"},
		)

		postsStoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_posts_stored_total",
				Help: "Total number of newly stored posts, labeled by subreddit.",
			},
			[]string{"subreddit"},
		)

		postsRelevantTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_posts_relevant_total",
				Help: "Total number of posts marked relevant, labeled by subreddit.",
			},
			[]string{"subreddit"},
		)

		sourceErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_source_errors_total",
				Help: "Total number of per-source failures, labeled by subreddit.",
			},
			[]string{"subreddit"},
		)

		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_cycles_total",
				Help: "Total number of monitoring cycles, labeled by outcome (completed, skipped).",
			},
			[]string{"outcome"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "monitor_cycle_duration_seconds",
				Help:    "Histogram of end-to-end monitoring cycle durations.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSourceRun records the per-subreddit counters for one run.
func ObserveSourceRun(subreddit string, fetched, stored, relevant int) {
	if postsFetchedTotal == nil {
		return
	}
	postsFetchedTotal.WithLabelValues(subreddit).Add(float64(fetched))
	postsStoredTotal.WithLabelValues(subreddit).Add(float64(stored))
	postsRelevantTotal.WithLabelValues(subreddit).Add(float64(relevant))
}

// ObserveSourceError counts a per-source failure.
func ObserveSourceError(subreddit string) {
	if sourceErrorsTotal == nil {
		return
	}
	sourceErrorsTotal.WithLabelValues(subreddit).Inc()
}

// ObserveCycle records a completed cycle and its duration.
func ObserveCycle(seconds float64) {
	if cyclesTotal == nil {
		return
	}
	cyclesTotal.WithLabelValues("completed").Inc()
	cycleDurationSeconds.Observe(seconds)
}

// ObserveCycleSkipped counts a scheduler tick skipped because a cycle was
// still in flight.
func ObserveCycleSkipped() {
	if cyclesTotal == nil {
		return
	}
	cyclesTotal.WithLabelValues("skipped").Inc()
}
