/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelMethod        = "method"
	labelRoutePattern  = "route_pattern"
	labelUserAgentType = "user_agent_type"
	labelStatusCode    = "status_code"
)

// Values of the user_agent_type label. The console UI runs in a browser, scripts and CI use plain clients.
const (
	userAgentTypeBrowser    = "browser"
	userAgentTypeHTTPClient = "http-client"
)

// DefaultHTTPRequestDurationBuckets covers control API calls (milliseconds) as well as relayed calls (up to a minute).
var DefaultHTTPRequestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// HTTPRequestMetricsCollectorOpts configures HTTPRequestMetricsCollector.
type HTTPRequestMetricsCollectorOpts struct {
	Namespace       string
	DurationBuckets []float64
	ConstLabels     prometheus.Labels
}

// HTTPRequestMetricsCollector holds metrics of served HTTP requests.
type HTTPRequestMetricsCollector struct {
	Durations *prometheus.HistogramVec
	InFlight  *prometheus.GaugeVec
}

// NewHTTPRequestMetricsCollector creates a collector with default buckets and no namespace.
func NewHTTPRequestMetricsCollector() *HTTPRequestMetricsCollector {
	return NewHTTPRequestMetricsCollectorWithOpts(HTTPRequestMetricsCollectorOpts{})
}

// NewHTTPRequestMetricsCollectorWithOpts creates a collector.
func NewHTTPRequestMetricsCollectorWithOpts(opts HTTPRequestMetricsCollectorOpts) *HTTPRequestMetricsCollector {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultHTTPRequestDurationBuckets
	}
	return &HTTPRequestMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "Duration of served HTTP requests.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{labelMethod, labelRoutePattern, labelUserAgentType, labelStatusCode}),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests being served now.",
			ConstLabels: opts.ConstLabels,
		}, []string{labelMethod, labelUserAgentType}),
	}
}

// MustRegister registers the collector in the default Prometheus registry.
func (c *HTTPRequestMetricsCollector) MustRegister() {
	prometheus.MustRegister(c.Durations, c.InFlight)
}

// Unregister removes the collector from the default Prometheus registry.
func (c *HTTPRequestMetricsCollector) Unregister() {
	prometheus.Unregister(c.Durations)
	prometheus.Unregister(c.InFlight)
}

// UserAgentTypeGetterFunc classifies the request client. It must return a small fixed set of values.
type UserAgentTypeGetterFunc func(r *http.Request) string

// HTTPRequestMetricsOpts configures the HTTPRequestMetricsWithOpts middleware.
type HTTPRequestMetricsOpts struct {
	GetUserAgentType  UserAgentTypeGetterFunc
	ExcludedEndpoints []string
}

type httpRequestMetricsHandler struct {
	next            http.Handler
	collector       *HTTPRequestMetricsCollector
	getRoutePattern RoutePatternGetterFunc
	getUserAgent    UserAgentTypeGetterFunc
	excluded        map[string]struct{}
}

// HTTPRequestMetricsWithOpts returns a middleware that observes durations and in-flight counts of requests.
// Paths listed in ExcludedEndpoints (health checks, metrics scraping) are not measured.
func HTTPRequestMetricsWithOpts(
	collector *HTTPRequestMetricsCollector, getRoutePattern RoutePatternGetterFunc, opts HTTPRequestMetricsOpts,
) func(next http.Handler) http.Handler {
	if getRoutePattern == nil {
		panic("function for getting route pattern cannot be nil")
	}
	getUserAgent := opts.GetUserAgentType
	if getUserAgent == nil {
		getUserAgent = determineUserAgentType
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedEndpoints))
	for _, path := range opts.ExcludedEndpoints {
		excluded[path] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return &httpRequestMetricsHandler{
			next:            next,
			collector:       collector,
			getRoutePattern: getRoutePattern,
			getUserAgent:    getUserAgent,
			excluded:        excluded,
		}
	}
}

func (h *httpRequestMetricsHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if _, skip := h.excluded[r.URL.Path]; skip {
		h.next.ServeHTTP(rw, r)
		return
	}

	started := GetRequestStartTimeFromContext(r.Context())
	if started.IsZero() {
		started = time.Now()
		r = r.WithContext(NewContextWithRequestStartTime(r.Context(), started))
	}
	uaType := h.getUserAgent(r)

	inFlight := h.collector.InFlight.WithLabelValues(r.Method, uaType)
	inFlight.Inc()
	defer inFlight.Dec()

	wrw := WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
	defer func() {
		p := recover()
		switch {
		case p == nil:
			h.observe(r, uaType, statusOrOK(wrw), started)
		case p != http.ErrAbortHandler:
			h.observe(r, uaType, http.StatusInternalServerError, started)
		}
		if p != nil {
			panic(p)
		}
	}()

	h.next.ServeHTTP(wrw, r)
}

// observe must run after the handler: chi resolves the route pattern while routing.
func (h *httpRequestMetricsHandler) observe(r *http.Request, uaType string, status int, started time.Time) {
	h.collector.Durations.
		WithLabelValues(r.Method, h.getRoutePattern(r), uaType, strconv.Itoa(status)).
		Observe(time.Since(started).Seconds())
}

func determineUserAgentType(r *http.Request) string {
	if strings.Contains(strings.ToLower(r.UserAgent()), "mozilla") {
		return userAgentTypeBrowser
	}
	return userAgentTypeHTTPClient
}
