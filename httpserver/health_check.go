/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/acronis/go-apiconsole/httpserver/middleware"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/restapi"
)

// StatusClientClosedRequest is the nginx status for a request abandoned by its client.
const StatusClientClosedRequest = 499

// HealthCheckStatus is the state of one component.
type HealthCheckStatus int

// Component states.
const (
	HealthCheckStatusOK HealthCheckStatus = iota
	HealthCheckStatusFail
)

// HealthCheckResult maps component names (e.g. "scheduler") to their state.
type HealthCheckResult = map[string]HealthCheckStatus

// HealthCheck reports component states.
type HealthCheck = func(ctx context.Context) (HealthCheckResult, error)

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler serves /healthz. It answers 503 if any component fails.
type HealthCheckHandler struct {
	check HealthCheck
}

// NewHealthCheckHandler returns a handler calling fn. A nil fn reports no components.
func NewHealthCheckHandler(fn HealthCheck) *HealthCheckHandler {
	if fn == nil {
		fn = func(ctx context.Context) (HealthCheckResult, error) { return HealthCheckResult{}, ctx.Err() }
	}
	return &HealthCheckHandler{check: fn}
}

func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	result, err := h.check(r.Context())
	if err != nil {
		logger.Error("error while checking health", log.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) {
			status = StatusClientClosedRequest
		}
		rw.WriteHeader(status)
		return
	}

	data := healthCheckResponseData{Components: make(map[string]bool, len(result))}
	status := http.StatusOK
	for name, st := range result {
		healthy := st == HealthCheckStatusOK
		data.Components[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
		}
	}
	restapi.RespondCodeAndJSON(rw, status, data, logger)
}
