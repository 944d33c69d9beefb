/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package api provides the control REST API of the request queue.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/go-apiconsole/curl"
	"github.com/acronis/go-apiconsole/httpserver"
	"github.com/acronis/go-apiconsole/httpserver/middleware"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/queue"
	"github.com/acronis/go-apiconsole/restapi"
)

// ErrDomain is the domain of errors returned by the control API.
const ErrDomain = "Console"

// ServiceNameInURL is used in the control API prefix ("/api/console/v1").
const ServiceNameInURL = "console"

// Version is the current version of the control API.
const Version httpserver.APIVersion = 1

// Scheduler is the part of the request queue used by the control API.
type Scheduler interface {
	Submit(desc queue.RequestDescriptor) (string, error)
	Cancel(id string) (queue.CancelOutcome, error)
	Discard(id string) error
	SetLimit(n int) error
	Limit() int
	ClearAll()
	Get(id string) (queue.RequestRecord, error)
	List() []queue.RequestRecord
	ListByState(state queue.State) []queue.RequestRecord
	Stats() queue.Stats
}

var _ Scheduler = (*queue.Scheduler)(nil)

// Opts represents options for the control API Handler.
type Opts struct {
	// SubmitMiddlewares are applied to the routes creating new requests (e.g. rate limiting).
	SubmitMiddlewares []func(http.Handler) http.Handler
}

// Handler serves the control API.
type Handler struct {
	scheduler         Scheduler
	logger            log.FieldLogger
	submitMiddlewares []func(http.Handler) http.Handler
}

// NewHandler creates a new control API Handler.
func NewHandler(scheduler Scheduler, logger log.FieldLogger, opts Opts) *Handler {
	return &Handler{scheduler: scheduler, logger: logger, submitMiddlewares: opts.SubmitMiddlewares}
}

// NewSubmitRateLimitMiddleware creates a middleware limiting the rate of submissions per client IP.
// It returns nil if rate limiting is disabled.
func NewSubmitRateLimitMiddleware(cfg *httpserver.RateLimitConfig) (func(http.Handler) http.Handler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	mw, err := middleware.RateLimitWithOpts(cfg.Rate(), ErrDomain, middleware.RateLimitOpts{
		Alg:      cfg.Alg,
		MaxBurst: cfg.Burst,
		GetKey:   middleware.GetRateLimitKeyByRemoteIP,
		MaxKeys:  cfg.MaxKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("create submit rate limit middleware: %w", err)
	}
	return mw, nil
}

// Routes registers the control API routes in the router.
func (h *Handler) Routes(router chi.Router) {
	router.Group(func(router chi.Router) {
		router.Use(h.submitMiddlewares...)
		router.Post("/requests", h.submit)
		router.Post("/requests/curl", h.submitCurl)
	})
	router.Get("/requests", h.list)
	router.Delete("/requests", h.clearAll)
	router.Get("/requests/{id}", h.get)
	router.Delete("/requests/{id}", h.discard)
	router.Post("/requests/{id}/cancel", h.cancel)
	router.Get("/limit", h.getLimit)
	router.Put("/limit", h.setLimit)
	router.Get("/stats", h.stats)
}

type submitResponse struct {
	ID      string                   `json:"id"`
	Request *queue.RequestDescriptor `json:"request,omitempty"`
}

type curlRequest struct {
	Command string `json:"command"`
}

type limitData struct {
	Limit int `json:"limit"`
}

type listResponse struct {
	Items []queue.RequestRecord `json:"items"`
}

func (h *Handler) submit(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	var desc queue.RequestDescriptor
	if err := restapi.DecodeRequestJSON(r, &desc); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrDomain, err, logger)
		return
	}
	id, err := h.scheduler.Submit(desc)
	if err != nil {
		h.respondSchedulerError(rw, err, logger)
		return
	}
	restapi.RespondCodeAndJSON(rw, http.StatusCreated, submitResponse{ID: id}, logger)
}

func (h *Handler) submitCurl(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	var req curlRequest
	if err := restapi.DecodeRequestJSON(r, &req); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrDomain, err, logger)
		return
	}
	desc, err := curl.Parse(req.Command)
	if err != nil {
		apiErr := restapi.NewError(ErrDomain, restapi.ErrCodeInvalidRequest, "Cannot parse cURL command.").
			AddContext("reason", err.Error())
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
		return
	}
	id, err := h.scheduler.Submit(desc)
	if err != nil {
		h.respondSchedulerError(rw, err, logger)
		return
	}
	restapi.RespondCodeAndJSON(rw, http.StatusCreated, submitResponse{ID: id, Request: &desc}, logger)
}

func (h *Handler) list(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	var items []queue.RequestRecord
	if stateParam := r.URL.Query().Get("state"); stateParam != "" {
		state := queue.State(stateParam)
		if !state.IsValid() {
			apiErr := restapi.NewError(ErrDomain, restapi.ErrCodeInvalidRequest, "Unknown request state.").
				AddContext("state", stateParam)
			restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
			return
		}
		items = h.scheduler.ListByState(state)
	} else {
		items = h.scheduler.List()
	}
	if items == nil {
		items = []queue.RequestRecord{}
	}
	restapi.RespondJSON(rw, listResponse{Items: items}, logger)
}

func (h *Handler) get(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	rec, err := h.scheduler.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondSchedulerError(rw, err, logger)
		return
	}
	restapi.RespondJSON(rw, rec, logger)
}

func (h *Handler) cancel(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	outcome, err := h.scheduler.Cancel(chi.URLParam(r, "id"))
	if err != nil {
		h.respondSchedulerError(rw, err, logger)
		return
	}
	restapi.RespondJSON(rw, outcome, logger)
}

func (h *Handler) discard(rw http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Discard(chi.URLParam(r, "id")); err != nil {
		h.respondSchedulerError(rw, err, h.loggerFromRequest(r))
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearAll(rw http.ResponseWriter, _ *http.Request) {
	h.scheduler.ClearAll()
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getLimit(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, limitData{Limit: h.scheduler.Limit()}, h.loggerFromRequest(r))
}

func (h *Handler) setLimit(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	var req limitData
	if err := restapi.DecodeRequestJSON(r, &req); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrDomain, err, logger)
		return
	}
	if err := h.scheduler.SetLimit(req.Limit); err != nil {
		h.respondSchedulerError(rw, err, logger)
		return
	}
	restapi.RespondJSON(rw, limitData{Limit: h.scheduler.Limit()}, logger)
}

func (h *Handler) stats(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, h.scheduler.Stats(), h.loggerFromRequest(r))
}

func (h *Handler) respondSchedulerError(rw http.ResponseWriter, err error, logger log.FieldLogger) {
	var validationErr *queue.ValidationError
	switch {
	case errors.Is(err, queue.ErrRecordNotFound):
		restapi.RespondError(rw, http.StatusNotFound,
			restapi.NewError(ErrDomain, restapi.ErrCodeNotFound, "Request not found."), logger)
	case errors.As(err, &validationErr):
		apiErr := restapi.NewError(ErrDomain, restapi.ErrCodeInvalidRequest, validationErr.Error())
		if validationErr.Field != "" {
			apiErr.AddContext("field", validationErr.Field)
		}
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
	case errors.Is(err, queue.ErrRecordNotPending):
		restapi.RespondError(rw, http.StatusConflict,
			restapi.NewError(ErrDomain, restapi.ErrCodeConflict, "Request is not pending."), logger)
	default:
		logger.Error("request queue operation failed", log.Error(err))
		restapi.RespondInternalError(rw, ErrDomain, logger)
	}
}

func (h *Handler) loggerFromRequest(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
