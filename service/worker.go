/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/acronis/go-apiconsole/log"
)

// ErrPeriodicWorkerStop may be returned by the worker to interrupt PeriodicWorker's loop.
var ErrPeriodicWorkerStop = errors.New("stop periodic worker")

// Worker performs some (usually long-running) work.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc is an adapter to allow the use of ordinary functions as Worker.
type WorkerFunc func(ctx context.Context) error

// Run implements Worker interface.
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PeriodicWorker runs the underlying worker periodically until its context is done.
type PeriodicWorker struct {
	worker       Worker
	logger       log.FieldLogger
	initialDelay time.Duration
	interval     time.Duration
}

// PeriodicWorkerOpts contains optional parameters for constructing PeriodicWorker.
type PeriodicWorkerOpts struct {
	InitialDelay time.Duration
}

// NewPeriodicWorker creates a new PeriodicWorker.
func NewPeriodicWorker(worker Worker, interval time.Duration, logger log.FieldLogger) *PeriodicWorker {
	return NewPeriodicWorkerWithOpts(worker, interval, logger, PeriodicWorkerOpts{})
}

// NewPeriodicWorkerWithOpts creates a new PeriodicWorker with an ability to specify optional parameters.
func NewPeriodicWorkerWithOpts(worker Worker, interval time.Duration, logger log.FieldLogger, opts PeriodicWorkerOpts) *PeriodicWorker {
	return &PeriodicWorker{worker: worker, logger: logger, initialDelay: opts.InitialDelay, interval: interval}
}

// Run runs the loop. Errors of the underlying worker are logged and don't stop the loop.
func (pw *PeriodicWorker) Run(ctx context.Context) (resErr error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			pw.logger.Error(fmt.Sprintf("panic: %+v", p), log.Bytes("stack", stack))
			panic(p)
		}
		pw.logger.Info("periodic worker stopped")
	}()

	pw.logger.Info("running periodic worker",
		log.Duration("initial_delay", pw.initialDelay), log.Duration("interval", pw.interval))

	timer := time.NewTimer(pw.initialDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if err := pw.worker.Run(ctx); err != nil {
			if errors.Is(err, ErrPeriodicWorkerStop) {
				return nil
			}
			pw.logger.Error("periodic worker iteration failed", log.Error(err))
		}
		timer.Reset(pw.interval)
	}
}
