/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector represents a collector of the queue metrics.
type MetricsCollector interface {
	// SetLimit sets the current concurrency limit.
	SetLimit(limit int)

	// SetQueueSize sets the number of pending and running records.
	SetQueueSize(pending, running int)

	// ObserveFinished observes the duration of the request that reached the terminal state.
	ObserveFinished(state State, duration time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// DurationBuckets is a list of buckets for the request duration histogram.
	DurationBuckets []float64
}

// PrometheusMetrics represents Prometheus metrics of the request queue.
type PrometheusMetrics struct {
	Limit         prometheus.Gauge
	Pending       prometheus.Gauge
	Running       prometheus.Gauge
	FinishedTotal *prometheus.CounterVec
	Durations     *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 150, 300, 600}
	}
	return &PrometheusMetrics{
		Limit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "queue_concurrency_limit",
			Help:      "Maximum number of simultaneously running requests.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "queue_requests_pending",
			Help:      "Number of requests waiting for admission.",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "queue_requests_running",
			Help:      "Number of requests in progress.",
		}),
		FinishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "queue_requests_finished_total",
			Help:      "Number of requests that reached a terminal state.",
		}, []string{"state"}),
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "queue_request_duration_seconds",
			Help:      "A histogram of the queued requests durations measured from dispatch start.",
			Buckets:   buckets,
		}, []string{"state"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Limit, pm.Pending, pm.Running, pm.FinishedTotal, pm.Durations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Limit)
	prometheus.Unregister(pm.Pending)
	prometheus.Unregister(pm.Running)
	prometheus.Unregister(pm.FinishedTotal)
	prometheus.Unregister(pm.Durations)
}

// SetLimit sets the current concurrency limit.
func (pm *PrometheusMetrics) SetLimit(limit int) {
	pm.Limit.Set(float64(limit))
}

// SetQueueSize sets the number of pending and running records.
func (pm *PrometheusMetrics) SetQueueSize(pending, running int) {
	pm.Pending.Set(float64(pending))
	pm.Running.Set(float64(running))
}

// ObserveFinished observes the duration of the request that reached the terminal state.
func (pm *PrometheusMetrics) ObserveFinished(state State, duration time.Duration) {
	pm.FinishedTotal.WithLabelValues(string(state)).Inc()
	pm.Durations.WithLabelValues(string(state)).Observe(duration.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) SetLimit(int)                         {}
func (disabledMetrics) SetQueueSize(int, int)                {}
func (disabledMetrics) ObserveFinished(State, time.Duration) {}
