/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides an optional HTTP server exposing pprof endpoints under /debug.
package profserver

import (
	"errors"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/acronis/go-apiconsole/httpserver/middleware"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/service"
)

const readHeaderTimeout = 5 * time.Second

// ProfServer serves net/http/pprof handlers. It is a service.Unit and never shuts down gracefully:
// profiles in progress are dropped on Stop.
type ProfServer struct {
	srv    *http.Server
	logger log.FieldLogger
	cfg    Config

	port   *atomic.Int32
	closed chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New builds the server. Nothing listens until Start.
func New(cfg *Config, logger log.FieldLogger) *ProfServer {
	logger = logger.With(log.String("address", cfg.Address))

	router := chi.NewRouter()
	router.Use(middleware.RequestID(), middleware.LoggingWithOpts(logger, middleware.LoggingOpts{RequestStart: true}))
	router.Mount("/debug", chimiddleware.Profiler())

	return &ProfServer{
		srv:    &http.Server{Addr: cfg.Address, Handler: router, ReadHeaderTimeout: readHeaderTimeout},
		logger: logger,
		cfg:    *cfg,
		port:   atomic.NewInt32(-1),
		closed: make(chan struct{}),
	}
}

// Start implements service.Unit.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.closed)

	if s.cfg.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(s.cfg.BlockProfileRate)
	}
	if s.cfg.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(s.cfg.MutexProfileFraction)
	}

	s.logger.Info("starting profiling HTTP server...")
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err == nil {
		s.port.Store(int32(ln.Addr().(*net.TCPAddr).Port)) //nolint:gosec // port fits int32
		if err = s.srv.Serve(ln); errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	if err != nil {
		s.logger.Error("profiling HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	s.logger.Info("profiling HTTP server closed")
}

// GetPort returns the listening port, or -1 before Start has bound it.
func (s *ProfServer) GetPort() int {
	return int(s.port.Load())
}

// Stop implements service.Unit. The gracefully flag is ignored.
func (s *ProfServer) Stop(bool) error {
	if err := s.srv.Close(); err != nil {
		s.logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	<-s.closed
	return nil
}
