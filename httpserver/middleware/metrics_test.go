/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/testutil"
)

func TestHTTPRequestMetricsHandler_ServeHTTP(t *testing.T) {
	collector := NewHTTPRequestMetricsCollector()

	router := chi.NewRouter()
	router.Use(HTTPRequestMetricsWithOpts(collector, GetChiRoutePattern, HTTPRequestMetricsOpts{
		ExcludedEndpoints: []string{"/healthz"},
	}))
	router.Get("/requests/{id}", func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, 1.0, promtestutil.ToFloat64(collector.InFlight.With(prometheus.Labels{
			labelMethod:        http.MethodGet,
			labelUserAgentType: userAgentTypeHTTPClient,
		})))
		rw.WriteHeader(http.StatusNotFound)
	})
	router.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/requests/"+id, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	hist := collector.Durations.With(prometheus.Labels{
		labelMethod:        http.MethodGet,
		labelRoutePattern:  "/requests/{id}",
		labelUserAgentType: userAgentTypeHTTPClient,
		labelStatusCode:    "404",
	}).(prometheus.Histogram)
	testutil.RequireSamplesCountInHistogram(t, hist, 2)
	require.Equal(t, 1, promtestutil.CollectAndCount(collector.Durations))
	require.Equal(t, 0.0, promtestutil.ToFloat64(collector.InFlight.With(prometheus.Labels{
		labelMethod:        http.MethodGet,
		labelUserAgentType: userAgentTypeHTTPClient,
	})))
}

func TestDetermineUserAgentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	require.Equal(t, userAgentTypeBrowser, determineUserAgentType(req))
	req.Header.Set("User-Agent", "curl/8.0")
	require.Equal(t, userAgentTypeHTTPClient, determineUserAgentType(req))
}
