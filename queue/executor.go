/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"context"

	"github.com/acronis/go-apiconsole/log"
)

// executor performs the admitted records against the Transport and writes outcomes to the Store.
type executor struct {
	transport Transport
	store     *Store
	registry  *Registry
	logger    log.FieldLogger
}

type task struct {
	record RequestRecord
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// prepare creates the cancellation handle for the just admitted record and registers it.
func (e *executor) prepare(parent context.Context, rec RequestRecord) *task {
	ctx, cancel := context.WithCancelCause(parent)
	e.registry.register(rec.ID, cancel)
	return &task{record: rec, ctx: ctx, cancel: cancel}
}

// run performs the call and stores the outcome.
// The returned record is the one written to the Store, ok is false if the Store rejected the write.
func (e *executor) run(t *task) (rec RequestRecord, ok bool) {
	logger := e.logger.With(log.String("request_id", t.record.ID))

	outcome := e.call(t)

	e.registry.deregister(t.record.ID)
	t.cancel(nil)

	rec, err := e.store.Transition(t.record.ID, outcome)
	if err != nil {
		logger.Debug("request outcome is discarded",
			log.String("state", string(outcome.State)), log.Error(err))
		return RequestRecord{}, false
	}

	fields := []log.Field{
		log.String("state", string(rec.State)),
		log.Int64("duration_ms", rec.Duration.Milliseconds()),
	}
	switch rec.State {
	case StateCompleted:
		logger.Info("request completed", append(fields, log.Int("status", rec.Result.StatusCode))...)
	case StateFailed:
		logger.Warn("request failed", append(fields, log.String("error", rec.Failure.Message))...)
	default:
		logger.Info("request cancelled", fields...)
	}
	return rec, true
}

func (e *executor) call(t *task) Outcome {
	call, err := BuildCall(t.record.Descriptor)
	if err != nil {
		return Outcome{State: StateFailed, Failure: makeFailure(err)}
	}

	if t.ctx.Err() != nil {
		return Outcome{State: StateCancelled}
	}

	result, err := e.transport.Call(t.ctx, call)
	if err != nil {
		// An error caused by the abort is a cancellation, not a failure.
		if t.ctx.Err() != nil {
			return Outcome{State: StateCancelled}
		}
		return Outcome{State: StateFailed, Failure: makeFailure(err)}
	}
	if result == nil {
		result = &Result{}
	}
	return Outcome{State: StateCompleted, Result: result}
}
