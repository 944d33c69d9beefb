/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"encoding/json"
	"net/http"
	"time"
)

// State is a lifecycle state of the queued request.
type State string

// Request states.
// Pending -> Running -> {Completed, Failed, Cancelled}. Terminal states are final.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// IsValid reports whether the state is one of the known states.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateRunning, StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// RequestDescriptor describes an outgoing HTTP call supplied by the caller.
type RequestDescriptor struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Result is an outcome of the successfully completed call.
type Result struct {
	StatusCode int         `json:"status"`
	Headers    http.Header `json:"headers"`
	Data       interface{} `json:"data"`
}

// Failure is an outcome of the failed call.
type Failure struct {
	Message         string      `json:"message"`
	StatusCode      int         `json:"status,omitempty"`
	ResponsePayload interface{} `json:"response,omitempty"`
}

// RequestRecord is the tracked state of one submitted request.
// Records returned by the Store are copies and may be used freely by the caller.
// Duration is encoded as "duration" in milliseconds once the record is finished.
type RequestRecord struct {
	ID          string            `json:"id"`
	Seq         uint64            `json:"seq"`
	Descriptor  RequestDescriptor `json:"request"`
	State       State             `json:"state"`
	SubmittedAt time.Time         `json:"submittedAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
	Duration    time.Duration     `json:"-"`
	Result      *Result           `json:"result,omitempty"`
	Failure     *Failure          `json:"failure,omitempty"`
}

// recordFields has the fields of RequestRecord without its JSON methods.
type recordFields RequestRecord

// MarshalJSON implements json.Marshaler.
func (r RequestRecord) MarshalJSON() ([]byte, error) {
	var durationMs *int64
	if r.FinishedAt != nil {
		ms := r.Duration.Milliseconds()
		durationMs = &ms
	}
	return json.Marshal(struct {
		recordFields
		DurationMs *int64 `json:"duration,omitempty"`
	}{recordFields(r), durationMs})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RequestRecord) UnmarshalJSON(data []byte) error {
	aux := struct {
		*recordFields
		DurationMs *int64 `json:"duration"`
	}{recordFields: (*recordFields)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.DurationMs != nil {
		r.Duration = time.Duration(*aux.DurationMs) * time.Millisecond
	}
	return nil
}

func (r *RequestRecord) clone() RequestRecord {
	c := *r
	if r.Descriptor.Headers != nil {
		c.Descriptor.Headers = make(map[string]string, len(r.Descriptor.Headers))
		for k, v := range r.Descriptor.Headers {
			c.Descriptor.Headers[k] = v
		}
	}
	if r.Result != nil {
		res := *r.Result
		res.Headers = r.Result.Headers.Clone()
		c.Result = &res
	}
	if r.Failure != nil {
		f := *r.Failure
		c.Failure = &f
	}
	if r.StartedAt != nil {
		started := *r.StartedAt
		c.StartedAt = &started
	}
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		c.FinishedAt = &finished
	}
	return c
}

// Outcome is a terminal update applied to the record by the executor or by the cancellation.
type Outcome struct {
	State   State
	Result  *Result
	Failure *Failure
}

// CancelOutcome reports whether the cancellation request took effect.
// Cancelled is false when there is nothing to cancel (the record is not running).
type CancelOutcome struct {
	Cancelled bool `json:"cancelled"`
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	Limit     int `json:"limit"`
	Active    int `json:"active"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
