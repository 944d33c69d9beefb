/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"errors"
	"fmt"
)

// ErrValidation is a sentinel matched by every *ValidationError.
var ErrValidation = errors.New("validation error")

// ErrRecordNotFound is returned when the record with the given id doesn't exist in the store.
var ErrRecordNotFound = errors.New("request record not found")

// ErrRecordNotPending is returned when the operation requires the record to be in the pending state.
var ErrRecordNotPending = errors.New("request record is not pending")

// ErrTerminalState is returned when the transition is attempted on the record that is already in a terminal state.
var ErrTerminalState = errors.New("request record is already in a terminal state")

// ErrInvalidTransition is returned when the requested transition is not allowed by the lifecycle.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrCancelled is used as a cancellation cause of the running request context.
var ErrCancelled = errors.New("request cancelled")

// ValidationError is returned when the caller's input can't be accepted.
// Err, if set, is the underlying reason, e.g. ErrRecordNotFound for an unknown id.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error returns a string representation of the validation error.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the underlying reason.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransportError is returned by the Transport when the call fails.
// StatusCode and ResponsePayload are set when the remote party responded with a non-success status.
type TransportError struct {
	Message         string
	StatusCode      int
	ResponsePayload interface{}
	Err             error
}

// Error returns a string representation of the transport error.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

func makeFailure(err error) *Failure {
	var trErr *TransportError
	if errors.As(err, &trErr) {
		return &Failure{Message: trErr.Error(), StatusCode: trErr.StatusCode, ResponsePayload: trErr.ResponsePayload}
	}
	return &Failure{Message: err.Error()}
}
