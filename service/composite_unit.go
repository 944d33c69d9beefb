/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"strings"
	"sync"
)

// CompositeUnit runs several units as one: the console wires its control server,
// relay, scheduler worker and optional profiling server through it.
type CompositeUnit struct {
	Units []Unit
}

// NewCompositeUnit composes units.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units}
}

// Start starts every unit and returns when all of them have returned.
// The first failure stops the remaining units non-gracefully; all failures are then
// reported in one CompositeUnitError.
func (cu *CompositeUnit) Start(fatalError chan<- error) {
	unitErrs := make([]chan error, len(cu.Units))
	failed := make(chan struct{})
	var failOnce sync.Once
	var wg sync.WaitGroup

	for i, u := range cu.Units {
		unitErrs[i] = make(chan error, 1)
		wg.Add(1)
		go func(u Unit, errCh chan error) {
			defer wg.Done()
			u.Start(errCh)
			if len(errCh) > 0 {
				failOnce.Do(func() { close(failed) })
			}
		}(u, unitErrs[i])
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		// A unit may fail right before the last one returns.
		select {
		case <-failed:
		default:
			return
		}
	case <-failed:
	}

	var errs []error
	if stopErr := cu.Stop(false); stopErr != nil {
		errs = append(errs, stopErr.(*CompositeUnitError).UnitErrors...)
	}
	for _, errCh := range unitErrs {
		select {
		case err := <-errCh:
			errs = append([]error{err}, errs...)
		default:
		}
	}
	fatalError <- &CompositeUnitError{UnitErrors: errs}
}

// Stop stops all units concurrently.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	errs := make([]error, len(cu.Units))
	var wg sync.WaitGroup
	for i, u := range cu.Units {
		wg.Add(1)
		go func(i int, u Unit) {
			defer wg.Done()
			errs[i] = u.Stop(gracefully)
		}(i, u)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &CompositeUnitError{UnitErrors: failed}
}

// MustRegisterMetrics registers metrics of the units implementing MetricsRegisterer.
func (cu *CompositeUnit) MustRegisterMetrics() {
	cu.eachRegisterer(MetricsRegisterer.MustRegisterMetrics)
}

// UnregisterMetrics unregisters metrics of the units implementing MetricsRegisterer.
func (cu *CompositeUnit) UnregisterMetrics() {
	cu.eachRegisterer(MetricsRegisterer.UnregisterMetrics)
}

func (cu *CompositeUnit) eachRegisterer(fn func(MetricsRegisterer)) {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			fn(mr)
		}
	}
}

// CompositeUnitError aggregates unit errors. errors.Is and errors.As look into each of them.
type CompositeUnitError struct {
	UnitErrors []error
}

func (cue *CompositeUnitError) Error() string {
	msgs := make([]string, len(cue.UnitErrors))
	for i, err := range cue.UnitErrors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the unit errors.
func (cue *CompositeUnitError) Unwrap() []error {
	return cue.UnitErrors
}
