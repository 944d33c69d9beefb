/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-apiconsole/httpserver/middleware"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/restapi"
)

const (
	metricsPath     = "/metrics"
	healthCheckPath = "/healthz"
)

// newRouter builds the middleware chain (ids, access log, recovery, metrics, body limit)
// and mounts system, API and root routes.
//
//nolint:gocritic // hugeParam
func newRouter(
	cfg *Config, logger log.FieldLogger, collector *middleware.HTTPRequestMetricsCollector, opts Opts,
) chi.Router {
	errDomain := opts.ErrorDomain
	router := chi.NewRouter()

	router.Use(
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
			RequestStart:         cfg.Log.RequestStart,
			ExcludedEndpoints:    cfg.Log.ExcludedEndpoints,
			SecretQueryParams:    cfg.Log.SecretQueryParams,
			SlowRequestThreshold: time.Duration(cfg.Log.SlowRequestThreshold),
		}),
		middleware.Recovery(errDomain),
		middleware.HTTPRequestMetricsWithOpts(collector, middleware.GetChiRoutePattern,
			middleware.HTTPRequestMetricsOpts{ExcludedEndpoints: []string{metricsPath, healthCheckPath}}),
	)
	if cfg.Limits.MaxBodySizeBytes > 0 {
		router.Use(middleware.RequestBodyLimit(uint64(cfg.Limits.MaxBodySizeBytes), errDomain))
	}
	router.Use(opts.RootMiddlewares...)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, metricsPath, metricsHandler)
	router.Method(http.MethodGet, healthCheckPath, NewHealthCheckHandler(opts.HealthCheck))

	if len(opts.APIRoutes) > 0 {
		router.Route("/api/"+opts.ServiceNameInURL, func(api chi.Router) {
			for version, routes := range opts.APIRoutes {
				api.Route(fmt.Sprintf("/v%d", version), routes)
			}
		})
	}
	if opts.RootRoutes != nil {
		opts.RootRoutes(router)
	}

	respond := func(status int, code, msg string) http.HandlerFunc {
		return func(rw http.ResponseWriter, r *http.Request) {
			reqLogger := middleware.GetLoggerFromContext(r.Context())
			if reqLogger == nil {
				reqLogger = logger
			}
			restapi.RespondError(rw, status, restapi.NewError(errDomain, code, msg), reqLogger)
		}
	}
	router.NotFound(respond(http.StatusNotFound, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound))
	router.MethodNotAllowed(respond(http.StatusMethodNotAllowed, restapi.ErrCodeMethodNotAllowed, restapi.ErrMessageMethodNotAllowed))

	return router
}
