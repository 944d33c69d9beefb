/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects metrics of outgoing requests.
type MetricsCollector interface {
	RequestDuration(requestType, host, method, status string, elapsed time.Duration)
}

// DefaultDurationBuckets is default buckets into which observations of outgoing requests durations are counted.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// PrometheusMetricsCollector is a Prometheus implementation of MetricsCollector.
type PrometheusMetricsCollector struct {
	Durations *prometheus.HistogramVec
}

// NewPrometheusMetricsCollector creates a new PrometheusMetricsCollector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "A histogram of the outgoing http requests durations.",
			Buckets:   DefaultDurationBuckets,
		}, []string{"type", "host", "method", "status"}),
	}
}

// MustRegister registers the collector in the default Prometheus registerer.
func (c *PrometheusMetricsCollector) MustRegister() {
	prometheus.MustRegister(c.Durations)
}

// Unregister removes the collector from the default Prometheus registerer.
func (c *PrometheusMetricsCollector) Unregister() {
	prometheus.Unregister(c.Durations)
}

// RequestDuration implements MetricsCollector.
func (c *PrometheusMetricsCollector) RequestDuration(requestType, host, method, status string, elapsed time.Duration) {
	c.Durations.WithLabelValues(requestType, host, method, status).Observe(elapsed.Seconds())
}

// MetricsRoundTripperOpts represents an options for MetricsRoundTripper.
type MetricsRoundTripperOpts struct {
	RequestType string
	Collector   MetricsCollector
}

// MetricsRoundTripper is an HTTP transport that measures outgoing requests.
type MetricsRoundTripper struct {
	Delegate    http.RoundTripper
	RequestType string
	Collector   MetricsCollector
}

// NewMetricsRoundTripperWithOpts creates a new MetricsRoundTripper.
func NewMetricsRoundTripperWithOpts(delegate http.RoundTripper, opts MetricsRoundTripperOpts) *MetricsRoundTripper {
	return &MetricsRoundTripper{Delegate: delegate, RequestType: opts.RequestType, Collector: opts.Collector}
}

// RoundTrip executes the request and observes its duration.
// Status is "0" when no response was received.
func (rt *MetricsRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Collector == nil {
		return rt.Delegate.RoundTrip(r)
	}

	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	status := "0"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	reqType := requestTypeOrDefault(r.Context(), rt.RequestType)
	rt.Collector.RequestDuration(reqType, r.URL.Host, r.Method, status, time.Since(start))
	return resp, err
}
