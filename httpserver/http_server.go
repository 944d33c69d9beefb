/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/acronis/go-apiconsole/httpserver/middleware"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/service"
)

// APIVersion is the N in "/api/{service}/vN".
type APIVersion = int

// APIRoute registers routes on a sub-router.
type APIRoute = func(router chi.Router)

// HTTPRequestMetricsOpts configures the metrics of served requests.
// ConstLabels tell apart servers of one process, e.g. the control API and the relay.
type HTTPRequestMetricsOpts struct {
	Namespace       string
	DurationBuckets []float64
	ConstLabels     prometheus.Labels
}

// Opts configures New.
type Opts struct {
	// ServiceNameInURL is the {service} part of "/api/{service}/vN" for APIRoutes.
	ServiceNameInURL string
	APIRoutes        map[APIVersion]APIRoute
	// RootRoutes are mounted on "/" next to the system endpoints.
	RootRoutes         APIRoute
	RootMiddlewares    []func(http.Handler) http.Handler
	ErrorDomain        string
	HealthCheck        HealthCheck
	MetricsHandler     http.Handler
	HTTPRequestMetrics HTTPRequestMetricsOpts
	// Listener replaces listening on Config.Address.
	Listener net.Listener
}

// HTTPServer is an http.Server with a chi router, request logging, panic recovery,
// metrics and /healthz. It is a service.Unit.
type HTTPServer struct {
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener  net.Listener
	port      atomic.Int32
	served    atomic.Value // chan struct{} closed when Start returns
	collector *middleware.HTTPRequestMetricsCollector
}

var _ service.Unit = (*HTTPServer)(nil)
var _ service.MetricsRegisterer = (*HTTPServer)(nil)

// New builds the server. Nothing listens until Start.
func New(cfg *Config, logger log.FieldLogger, opts Opts) *HTTPServer { //nolint:gocritic // hugeParam
	collector := middleware.NewHTTPRequestMetricsCollectorWithOpts(middleware.HTTPRequestMetricsCollectorOpts{
		Namespace:       opts.HTTPRequestMetrics.Namespace,
		DurationBuckets: opts.HTTPRequestMetrics.DurationBuckets,
		ConstLabels:     opts.HTTPRequestMetrics.ConstLabels,
	})
	router := newRouter(cfg, logger, collector, opts)

	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
		},
		HTTPRouter:      router,
		Logger:          logger,
		ShutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
		listener:        opts.Listener,
		collector:       collector,
	}
}

// Start serves until Stop. Listening and serving errors go to fatalError.
func (s *HTTPServer) Start(fatalError chan<- error) {
	served := make(chan struct{})
	defer close(served)
	s.served.Store(served)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting HTTP server...")

	if err := s.serve(); err != nil {
		logger.Error("HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	logger.Info("HTTP server closed")
}

func (s *HTTPServer) serve() error {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.HTTPServer.Addr)
		if err != nil {
			return err
		}
		s.listener = ln
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		s.port.Store(int32(addr.Port)) //nolint:gosec // port fits int32
	}
	if err := s.HTTPServer.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down waiting for in-flight requests up to ShutdownTimeout,
// or closes all connections at once if gracefully is false.
func (s *HTTPServer) Stop(gracefully bool) error {
	var err error
	if gracefully {
		s.Logger.Info("shutting down HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
		ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		err = s.HTTPServer.Shutdown(ctx)
	} else {
		s.Logger.Info("closing HTTP server...")
		err = s.HTTPServer.Close()
	}
	if err != nil {
		s.Logger.Error("HTTP server stopping error", log.Error(err), log.Bool("graceful", gracefully))
		return err
	}
	if served, ok := s.served.Load().(chan struct{}); ok {
		<-served
	}
	s.Logger.Info("HTTP server stopped")
	return nil
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (s *HTTPServer) MustRegisterMetrics() {
	s.collector.MustRegister()
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (s *HTTPServer) UnregisterMetrics() {
	s.collector.Unregister()
}

// GetPort returns the listening port, or 0 before Start has bound it.
func (s *HTTPServer) GetPort() int {
	return int(s.port.Load())
}
