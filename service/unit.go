/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the console components (HTTP servers, scheduler, periodic workers) as units
// with a common lifecycle and OS-signal driven graceful shutdown.
package service

// Unit is a component of the service with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may return immediately or block for the unit's lifetime.
	// A failure is reported by writing to fatalErr, the channel must not be used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus collectors.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
