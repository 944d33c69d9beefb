/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsMu             sync.RWMutex
	metricsResponseErrors *prometheus.CounterVec
)

// MustInitAndRegisterMetrics initializes and registers the counter of REST API errors responded.
func MustInitAndRegisterMetrics(namespace string) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "restapi",
		Name:      "response_errors",
		Help:      "The total number of REST API errors that were respond.",
	}, []string{"domain", "code"})
	prometheus.MustRegister(counter)

	metricsMu.Lock()
	metricsResponseErrors = counter
	metricsMu.Unlock()
}

// UnregisterMetrics unregisters the counter of REST API errors.
func UnregisterMetrics() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsResponseErrors != nil {
		prometheus.Unregister(metricsResponseErrors)
		metricsResponseErrors = nil
	}
}

func collectErrorMetrics(err *Error) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if metricsResponseErrors != nil {
		metricsResponseErrors.WithLabelValues(err.Domain, err.Code).Inc()
	}
}
