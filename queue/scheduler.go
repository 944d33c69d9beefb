/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/acronis/go-apiconsole/log"
)

// ErrSchedulerAlreadyRunning is returned by Run when the admission loop is already started.
var ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

// SchedulerOpts contains optional parameters for constructing Scheduler.
type SchedulerOpts struct {
	// Limit is an initial concurrency limit. DefaultConcurrencyLimit is used if it's zero.
	Limit int

	// MetricsCollector receives the queue metrics. Metrics are not collected if it's nil.
	MetricsCollector MetricsCollector
}

// Scheduler accepts request descriptors, admits pending records in FIFO order while
// the number of running ones is below the concurrency limit and executes them via the Transport.
//
// Admission is performed by the single loop started by Run.
// Submission, completion, limit change and clearing only signal this loop.
type Scheduler struct {
	store    *Store
	registry *Registry
	exec     *executor
	logger   log.FieldLogger
	metrics  MetricsCollector

	trigger chan struct{}
	started atomic.Bool
	wg      sync.WaitGroup

	metricsMu sync.Mutex

	// mu guards the fields below and makes claiming of pending records and
	// registration of their cancellation handles atomic for Cancel.
	mu      sync.Mutex
	limit   int
	active  int
	baseCtx context.Context
	stopped bool
}

// NewScheduler creates a new Scheduler with the default options.
func NewScheduler(transport Transport, logger log.FieldLogger) (*Scheduler, error) {
	return NewSchedulerWithOpts(transport, logger, SchedulerOpts{})
}

// NewSchedulerWithOpts creates a new Scheduler with an ability to specify optional parameters.
func NewSchedulerWithOpts(transport Transport, logger log.FieldLogger, opts SchedulerOpts) (*Scheduler, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultConcurrencyLimit
	}
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: fmt.Sprintf("must be positive, got %d", limit)}
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetrics{}
	}

	store := NewStore(logger)
	registry := NewRegistry()
	s := &Scheduler{
		store:    store,
		registry: registry,
		exec:     &executor{transport: transport, store: store, registry: registry, logger: logger},
		logger:   logger,
		metrics:  metrics,
		trigger:  make(chan struct{}, 1),
		limit:    limit,
	}
	metrics.SetLimit(limit)
	return s, nil
}

// Run runs the admission loop until ctx is done.
// On exit, all running requests are cancelled and Run waits for their executors.
// Implements service.Worker interface.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSchedulerAlreadyRunning
	}

	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.logger.Info("request scheduler started", log.Int("limit", s.Limit()))
	s.kick()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-s.trigger:
			s.admit()
		}
	}
}

func (s *Scheduler) shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if n := s.registry.CancelAll(); n > 0 {
		s.logger.Info("cancelling running requests", log.Int("count", n))
	}
	s.wg.Wait()
	s.logger.Info("request scheduler stopped")
}

// kick signals the admission loop. Signals are coalesced.
func (s *Scheduler) kick() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) admit() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	slots := s.limit - s.active
	if slots <= 0 {
		s.mu.Unlock()
		return
	}
	records := s.store.claimPending(slots)
	tasks := make([]*task, 0, len(records))
	for i := range records {
		tasks = append(tasks, s.exec.prepare(s.baseCtx, records[i]))
	}
	s.active += len(tasks)
	s.wg.Add(len(tasks))
	s.mu.Unlock()

	if len(tasks) == 0 {
		return
	}
	s.updateQueueMetrics()
	for _, t := range tasks {
		s.logger.Debug("request admitted", log.String("request_id", t.record.ID),
			log.String("method", t.record.Descriptor.Method), log.String("url", t.record.Descriptor.URL))
		go s.execute(t)
	}
}

func (s *Scheduler) execute(t *task) {
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		s.wg.Done()
		s.kick()
	}()

	if rec, ok := s.exec.run(t); ok {
		s.metrics.ObserveFinished(rec.State, rec.Duration)
	}
	s.updateQueueMetrics()
}

// Submit validates the descriptor, creates a pending record and signals admission.
// Invalid input (including a body that is not JSON) is rejected with *ValidationError and no record is created.
func (s *Scheduler) Submit(desc RequestDescriptor) (string, error) {
	desc, err := NormalizeDescriptor(desc)
	if err != nil {
		return "", err
	}
	rec := s.store.Add(desc)
	s.logger.Debug("request submitted", log.String("request_id", rec.ID),
		log.String("method", desc.Method), log.String("url", desc.URL))
	s.updateQueueMetrics()
	s.kick()
	return rec.ID, nil
}

// Cancel aborts the running request.
// For a record that is not running (pending or already finished) it reports that there is nothing to cancel.
// An unknown id is a *ValidationError wrapping ErrRecordNotFound.
func (s *Scheduler) Cancel(id string) (CancelOutcome, error) {
	if _, err := s.store.Get(id); err != nil {
		return CancelOutcome{}, &ValidationError{Field: "id", Message: fmt.Sprintf("unknown request %q", id), Err: err}
	}

	s.mu.Lock()
	found := s.registry.Cancel(id)
	s.mu.Unlock()
	if !found {
		return CancelOutcome{Cancelled: false}, nil
	}

	rec, err := s.store.Transition(id, Outcome{State: StateCancelled})
	if err != nil {
		// The executor or clearing has reached the store first.
		return CancelOutcome{Cancelled: false}, nil
	}
	s.logger.Info("request cancelled", log.String("request_id", id), log.Int64("duration_ms", rec.Duration.Milliseconds()))
	s.metrics.ObserveFinished(rec.State, rec.Duration)
	s.updateQueueMetrics()
	return CancelOutcome{Cancelled: true}, nil
}

// Discard removes the pending record, so it will never be admitted.
func (s *Scheduler) Discard(id string) error {
	if err := s.store.Remove(id); err != nil {
		return err
	}
	s.logger.Debug("pending request discarded", log.String("request_id", id))
	s.updateQueueMetrics()
	return nil
}

// SetLimit changes the concurrency limit and signals admission.
// Running requests above the decreased limit are not interrupted.
func (s *Scheduler) SetLimit(n int) error {
	if n < 1 {
		return &ValidationError{Field: "limit", Message: fmt.Sprintf("must be positive, got %d", n)}
	}
	s.mu.Lock()
	prev := s.limit
	s.limit = n
	s.mu.Unlock()

	s.logger.Info("concurrency limit changed", log.Int("limit", n), log.Int("previous_limit", prev))
	s.metrics.SetLimit(n)
	s.kick()
	return nil
}

// Limit returns the current concurrency limit.
func (s *Scheduler) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// ClearAll removes every record regardless of its state.
// Requests that are still running are aborted and their late outcomes are discarded.
// Their slots are released only when their executors finish.
func (s *Scheduler) ClearAll() {
	s.mu.Lock()
	n := s.store.ClearAll()
	aborted := s.registry.CancelAll()
	s.mu.Unlock()

	s.logger.Info("request records cleared", log.Int("count", n), log.Int("aborted", aborted))
	s.updateQueueMetrics()
	s.kick()
}

// Get returns the record by id.
func (s *Scheduler) Get(id string) (RequestRecord, error) {
	return s.store.Get(id)
}

// List returns all records in submission order.
func (s *Scheduler) List() []RequestRecord {
	return s.store.List()
}

// ListByState returns the records in the given state in submission order.
func (s *Scheduler) ListByState(state State) []RequestRecord {
	return s.store.ListByState(state)
}

// Stats returns a snapshot of the queue counters.
func (s *Scheduler) Stats() Stats {
	counts := s.store.Counts()
	s.mu.Lock()
	limit, active := s.limit, s.active
	s.mu.Unlock()
	return Stats{
		Limit:     limit,
		Active:    active,
		Pending:   counts[StatePending],
		Running:   counts[StateRunning],
		Completed: counts[StateCompleted],
		Failed:    counts[StateFailed],
		Cancelled: counts[StateCancelled],
	}
}

// LogStats logs the queue counters. It's intended to be run by service.PeriodicWorker.
func (s *Scheduler) LogStats(_ context.Context) error {
	st := s.Stats()
	s.logger.Info("request queue stats",
		log.Int("limit", st.Limit),
		log.Int("active", st.Active),
		log.Int("pending", st.Pending),
		log.Int("running", st.Running),
		log.Int("completed", st.Completed),
		log.Int("failed", st.Failed),
		log.Int("cancelled", st.Cancelled),
	)
	return nil
}

func (s *Scheduler) updateQueueMetrics() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	counts := s.store.Counts()
	s.metrics.SetQueueSize(counts[StatePending], counts[StateRunning])
}
