/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-apiconsole/log/logtest"
)

type mockUnit struct {
	startErr error
	stopErr  error
	stopCh   chan struct{}
	started  atomic.Bool
	stopped  atomic.Bool
	graceful atomic.Bool
	metrics  atomic.Int32
}

func newMockUnit() *mockUnit {
	return &mockUnit{stopCh: make(chan struct{})}
}

func (u *mockUnit) Start(fatalErr chan<- error) {
	u.started.Store(true)
	if u.startErr != nil {
		fatalErr <- u.startErr
		return
	}
	<-u.stopCh
}

func (u *mockUnit) Stop(gracefully bool) error {
	if u.stopped.CompareAndSwap(false, true) {
		u.graceful.Store(gracefully)
		close(u.stopCh)
	}
	return u.stopErr
}

func (u *mockUnit) MustRegisterMetrics() { u.metrics.Inc() }
func (u *mockUnit) UnregisterMetrics()   { u.metrics.Dec() }

func TestService_StopsBySignal(t *testing.T) {
	unit := newMockUnit()
	svc := New(logtest.NewRecorder(), NewCompositeUnit(unit))

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	require.Eventually(t, unit.started.Load, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), unit.metrics.Load())
	svc.Signals <- syscall.SIGTERM

	require.NoError(t, <-done)
	require.True(t, unit.stopped.Load())
	require.True(t, unit.graceful.Load())
	require.Zero(t, unit.metrics.Load())
}

func TestService_StopsByContext(t *testing.T) {
	unit := newMockUnit()
	unit.stopErr = errors.New("close listener")
	svc := New(logtest.NewRecorder(), unit)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.StartContext(ctx) }()
	require.Eventually(t, unit.started.Load, time.Second, 5*time.Millisecond)
	cancel()

	err := <-done
	require.ErrorIs(t, err, unit.stopErr)
}

func TestCompositeUnit_FatalErrorStopsOthers(t *testing.T) {
	okUnit := newMockUnit()
	failedUnit := newMockUnit()
	failedUnit.startErr = errors.New("listen: address already in use")

	logger := logtest.NewRecorder()
	err := New(logger, NewCompositeUnit(okUnit, failedUnit)).Start()
	require.ErrorIs(t, err, failedUnit.startErr)
	var cuErr *CompositeUnitError
	require.ErrorAs(t, err, &cuErr)
	require.Len(t, cuErr.UnitErrors, 1)

	require.True(t, okUnit.stopped.Load())
	require.False(t, okUnit.graceful.Load())
	_, found := logger.FindEntry("service fatal error")
	require.True(t, found)
}

func TestWorkerUnit(t *testing.T) {
	runs := atomic.NewInt32(0)
	worker := WorkerFunc(func(ctx context.Context) error {
		runs.Inc()
		<-ctx.Done()
		return nil
	})
	unit := NewWorkerUnit(worker)
	fatalErr := make(chan error, 1)
	go unit.Start(fatalErr)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, unit.Stop(true))
	require.Empty(t, fatalErr)

	notStarted := NewWorkerUnit(worker)
	require.NoError(t, notStarted.Stop(true), "stopping not started unit must not block")
	notStarted.Start(fatalErr)
	require.Equal(t, int32(1), runs.Load(), "stopped unit must not run its worker")
}

func TestWorkerUnit_StopRightAfterStartWaitsForWorker(t *testing.T) {
	for i := 0; i < 50; i++ {
		runs := atomic.NewInt32(0)
		finished := atomic.NewBool(false)
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			runs.Inc()
			<-ctx.Done()
			time.Sleep(time.Millisecond)
			finished.Store(true)
			return nil
		}))
		go unit.Start(make(chan error, 1))
		require.NoError(t, unit.Stop(true))
		require.Equal(t, runs.Load() == 1, finished.Load(), "worker is still running after Stop")
	}
}

func TestWorkerUnit_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	unit := NewWorkerUnitWithOpts(WorkerFunc(func(ctx context.Context) error {
		<-release
		return nil
	}), WorkerUnitOpts{GracefulStopTimeout: 20 * time.Millisecond})
	go unit.Start(make(chan error, 1))
	require.Eventually(t, func() bool { return unit.state.Load() == workerUnitStarted }, time.Second, time.Millisecond)
	require.ErrorIs(t, unit.Stop(true), ErrWorkerUnitStopTimeoutExceeded)
}

func TestPeriodicWorker(t *testing.T) {
	runs := atomic.NewInt32(0)
	logger := logtest.NewRecorder()
	pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
		if runs.Inc() == 2 {
			return errors.New("temporary")
		}
		return nil
	}), 5*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pw.Run(ctx) }()
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	_, found := logger.FindEntry("periodic worker iteration failed")
	require.True(t, found)
}

func TestPeriodicWorker_Stop(t *testing.T) {
	pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
		return ErrPeriodicWorkerStop
	}), time.Millisecond, logtest.NewRecorder())
	require.NoError(t, pw.Run(context.Background()))
}
