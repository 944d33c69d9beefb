/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acronis/go-apiconsole/log"
)

// Opts configures NewWithOpts.
type Opts struct {
	ShutdownSignals []os.Signal
}

// Service runs a single (usually composite) unit for the lifetime of the process.
type Service struct {
	Unit   Unit
	Logger log.FieldLogger
	Opts   Opts
	// Signals receives OS signals; tests may write to it directly.
	Signals chan os.Signal
}

// New returns a Service stopped by SIGINT or SIGTERM.
func New(logger log.FieldLogger, unit Unit) *Service {
	return NewWithOpts(logger, unit, Opts{ShutdownSignals: []os.Signal{syscall.SIGINT, syscall.SIGTERM}})
}

// NewWithOpts returns a Service with custom shutdown signals.
func NewWithOpts(logger log.FieldLogger, unit Unit, opts Opts) *Service {
	return &Service{Unit: unit, Logger: logger, Opts: opts, Signals: make(chan os.Signal, 1)}
}

// Start is StartContext with the background context.
func (s *Service) Start() error {
	return s.StartContext(context.Background())
}

// StartContext registers the unit metrics, starts the unit and blocks.
// The unit is stopped gracefully on a shutdown signal or when ctx is done.
// A fatal error from the unit is returned as is, wrapped.
func (s *Service) StartContext(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	signal.Notify(s.Signals, s.Opts.ShutdownSignals...)
	defer signal.Stop(s.Signals)

	fatal := make(chan error, 1)
	go s.Unit.Start(fatal)

	if err := s.wait(ctx, fatal); err != nil {
		s.Logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	}
	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}

// wait returns a non-nil error only for a unit failure.
func (s *Service) wait(ctx context.Context, fatal <-chan error) error {
	select {
	case err := <-fatal:
		return err
	case sig := <-s.Signals:
		s.Logger.Info("service got signal", log.String("signal", sig.String()))
	case <-ctx.Done():
		s.Logger.Info("context is canceled, service will be stopped")
	}
	return nil
}
