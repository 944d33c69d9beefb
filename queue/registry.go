/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"context"
	"sync"
)

// Registry maps ids of running records to their cancellation handles.
// Handles are registered and deregistered by the executor only.
type Registry struct {
	mu      sync.Mutex
	handles map[string]context.CancelCauseFunc
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]context.CancelCauseFunc)}
}

func (r *Registry) register(id string, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	r.handles[id] = cancel
	r.mu.Unlock()
}

func (r *Registry) deregister(id string) {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}

// Cancel triggers the handle registered for the id and removes it.
// It returns false if there is nothing to cancel, so the second call for the same id is a no-op.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel(ErrCancelled)
	return true
}

// CancelAll triggers all registered handles and returns their number.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]context.CancelCauseFunc)
	r.mu.Unlock()
	for _, cancel := range handles {
		cancel(ErrCancelled)
	}
	return len(handles)
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
