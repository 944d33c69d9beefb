/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
)

// ErrWorkerUnitStopTimeoutExceeded is returned when the worker didn't stop within the graceful stop timeout.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

const (
	workerUnitIdle int32 = iota
	workerUnitStarted
	workerUnitStoppedBeforeStart
)

// WorkerUnit presents Worker as Unit. Stop cancels the context passed to the worker's Run.
// A unit stopped before Start never runs its worker.
type WorkerUnit struct {
	worker            Worker
	ctx               context.Context
	cancel            context.CancelFunc
	done              chan struct{}
	state             atomic.Int32
	stopTimeout       time.Duration
	metricsRegisterer MetricsRegisterer
}

// WorkerUnitOpts contains optional parameters for constructing WorkerUnit.
type WorkerUnitOpts struct {
	MetricsRegisterer   MetricsRegisterer
	GracefulStopTimeout time.Duration
}

// NewWorkerUnit creates a new WorkerUnit.
func NewWorkerUnit(worker Worker) *WorkerUnit {
	return NewWorkerUnitWithOpts(worker, WorkerUnitOpts{})
}

// NewWorkerUnitWithOpts creates a new WorkerUnit with an ability to specify optional parameters.
func NewWorkerUnitWithOpts(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:            worker,
		ctx:               ctx,
		cancel:            cancel,
		done:              make(chan struct{}),
		stopTimeout:       opts.GracefulStopTimeout,
		metricsRegisterer: opts.MetricsRegisterer,
	}
}

// Start runs the worker and blocks until it returns.
func (u *WorkerUnit) Start(fatalError chan<- error) {
	if !u.state.CompareAndSwap(workerUnitIdle, workerUnitStarted) {
		return
	}
	defer close(u.done)
	if err := u.worker.Run(u.ctx); err != nil {
		fatalError <- err
	}
}

// Stop cancels the worker's context. If gracefully is true, it waits for the worker to return.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.cancel()
	if u.state.CompareAndSwap(workerUnitIdle, workerUnitStoppedBeforeStart) {
		close(u.done)
		return nil
	}
	if !gracefully {
		return nil
	}
	if u.stopTimeout == 0 {
		<-u.done
		return nil
	}
	select {
	case <-u.done:
		return nil
	case <-time.After(u.stopTimeout):
		return ErrWorkerUnitStopTimeoutExceeded
	}
}

// MustRegisterMetrics registers the worker's metrics.
func (u *WorkerUnit) MustRegisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.MustRegisterMetrics()
	}
}

// UnregisterMetrics unregisters the worker's metrics.
func (u *WorkerUnit) UnregisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.UnregisterMetrics()
	}
}
