/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-apiconsole/api"
	"github.com/acronis/go-apiconsole/httpclient"
	"github.com/acronis/go-apiconsole/httpserver"
	"github.com/acronis/go-apiconsole/internal/appinfo"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/profserver"
	"github.com/acronis/go-apiconsole/queue"
	"github.com/acronis/go-apiconsole/relay"
	"github.com/acronis/go-apiconsole/restapi"
	"github.com/acronis/go-apiconsole/service"
	"github.com/acronis/go-apiconsole/transport"
)

const metricsNamespace = "apiconsole"

const schedulerStopTimeout = 30 * time.Second

type metricsCollector interface {
	MustRegister()
	Unregister()
}

// metricsCollectors lets the collectors that are not owned by any unit be registered along with the worker unit.
type metricsCollectors []metricsCollector

func (mc metricsCollectors) MustRegisterMetrics() {
	for _, c := range mc {
		c.MustRegister()
	}
}

func (mc metricsCollectors) UnregisterMetrics() {
	for _, c := range mc {
		c.Unregister()
	}
}

// restapiMetrics registers the counter of API errors responded by both servers.
type restapiMetrics struct {
	namespace string
}

func (m restapiMetrics) MustRegister() { restapi.MustInitAndRegisterMetrics(m.namespace) }

func (m restapiMetrics) Unregister() { restapi.UnregisterMetrics() }

type app struct {
	scheduler     *queue.Scheduler
	controlServer *httpserver.HTTPServer
	relayServer   *httpserver.HTTPServer
	profServer    *profserver.ProfServer
	unit          *service.CompositeUnit
}

type appOpts struct {
	// metricsNamespace is prepended to all metric names.
	metricsNamespace string
}

func newApp(cfg *AppConfig, logger log.FieldLogger, opts appOpts) (*app, error) {
	queueMetrics := queue.NewPrometheusMetricsWithOpts(queue.PrometheusMetricsOpts{Namespace: opts.metricsNamespace})
	clientMetrics := httpclient.NewPrometheusMetricsCollector(opts.metricsNamespace)

	if cfg.Client.UserAgent == httpclient.DefaultUserAgent {
		cfg.Client.UserAgent = appinfo.UserAgent()
	}
	client, err := httpclient.NewWithOpts(cfg.Client, httpclient.Opts{
		RequestType:      transport.RequestType,
		Logger:           logger,
		MetricsCollector: clientMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	tr := transport.New(client, transport.Opts{MaxResponseBodySize: uint64(cfg.Queue.MaxResponseBodySize)})

	scheduler, err := queue.NewSchedulerWithOpts(tr, logger, queue.SchedulerOpts{
		Limit:            cfg.Queue.ConcurrencyLimit,
		MetricsCollector: queueMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create request scheduler: %w", err)
	}

	a := &app{scheduler: scheduler}
	units := []service.Unit{
		service.NewWorkerUnitWithOpts(scheduler, service.WorkerUnitOpts{
			MetricsRegisterer:   metricsCollectors{queueMetrics, clientMetrics, restapiMetrics{opts.metricsNamespace}},
			GracefulStopTimeout: schedulerStopTimeout,
		}),
	}
	if interval := time.Duration(cfg.Queue.StatsInterval); interval > 0 {
		statsWorker := service.NewPeriodicWorker(service.WorkerFunc(scheduler.LogStats), interval, logger)
		units = append(units, service.NewWorkerUnit(statsWorker))
	}

	if a.controlServer, err = newControlServer(cfg.Server, scheduler, logger, opts); err != nil {
		return nil, err
	}
	units = append(units, a.controlServer)

	if cfg.Relay.Enabled {
		if a.relayServer, err = newRelayServer(cfg.RelayServer, cfg.Relay, logger, opts); err != nil {
			return nil, err
		}
		units = append(units, a.relayServer)
	}

	if cfg.ProfServer.Enabled {
		a.profServer = profserver.New(cfg.ProfServer, logger)
		units = append(units, a.profServer)
	}

	a.unit = service.NewCompositeUnit(units...)
	return a, nil
}

func newControlServer(
	cfg *httpserver.Config, scheduler *queue.Scheduler, logger log.FieldLogger, opts appOpts,
) (*httpserver.HTTPServer, error) {
	var submitMiddlewares []func(http.Handler) http.Handler
	rateLimitMW, err := api.NewSubmitRateLimitMiddleware(&cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	if rateLimitMW != nil {
		submitMiddlewares = append(submitMiddlewares, rateLimitMW)
	}
	handler := api.NewHandler(scheduler, logger, api.Opts{SubmitMiddlewares: submitMiddlewares})

	return httpserver.New(cfg, logger, httpserver.Opts{
		ServiceNameInURL: api.ServiceNameInURL,
		APIRoutes:        map[httpserver.APIVersion]httpserver.APIRoute{api.Version: handler.Routes},
		ErrorDomain:      api.ErrDomain,
		HealthCheck: func(ctx context.Context) (httpserver.HealthCheckResult, error) {
			return httpserver.HealthCheckResult{"queue": httpserver.HealthCheckStatusOK}, ctx.Err()
		},
		HTTPRequestMetrics: httpserver.HTTPRequestMetricsOpts{
			Namespace:   opts.metricsNamespace,
			ConstLabels: appinfo.AddPrometheusVersionLabel(prometheus.Labels{"server": "control"}),
		},
	}), nil
}

func newRelayServer(
	serverCfg *httpserver.Config, relayCfg *relay.Config, logger log.FieldLogger, opts appOpts,
) (*httpserver.HTTPServer, error) {
	relayLogger := logger.With(log.String("component", "relay"))
	handler, err := relay.New(relayCfg, relayLogger)
	if err != nil {
		return nil, fmt.Errorf("create relay handler: %w", err)
	}
	return httpserver.New(serverCfg, relayLogger, httpserver.Opts{
		RootRoutes:  func(router chi.Router) { handler.Routes(router) },
		ErrorDomain: relay.ErrDomain,
		HTTPRequestMetrics: httpserver.HTTPRequestMetricsOpts{
			Namespace:   opts.metricsNamespace,
			ConstLabels: appinfo.AddPrometheusVersionLabel(prometheus.Labels{"server": "relay"}),
		},
	}), nil
}
