/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package relay provides the forwarding relay: an HTTP intermediary that re-targets requests
// to the base URL taken from the X-Original-Base-Url header.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vasayxtx/go-glob"

	"github.com/acronis/go-apiconsole/httpclient"
	"github.com/acronis/go-apiconsole/httpserver"
	"github.com/acronis/go-apiconsole/httpserver/middleware"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/lrucache"
	"github.com/acronis/go-apiconsole/restapi"
)

// ErrDomain is the domain of errors returned by the relay.
const ErrDomain = "Relay"

// Error messages.
const (
	ErrMessageMissingTarget   = "Missing target base URL."
	ErrMessageInvalidTarget   = "Invalid target base URL."
	ErrMessageForbiddenTarget = "Target host is not allowed."
	ErrMessageProxyError      = "Proxy encountered an error."
)

type ctxKeyTarget struct{}

// Opts represents options for the relay Handler.
type Opts struct {
	// Transport is used for forwarded requests. http.DefaultTransport is used if it's nil.
	Transport http.RoundTripper
}

// Handler forwards requests under the path prefix to the target from the X-Original-Base-Url header.
type Handler struct {
	cfg       *Config
	logger    log.FieldLogger
	proxy     *httputil.ReverseProxy
	matchers  []func(string) bool
	decisions *lrucache.LRUCache[string, bool]
}

// New creates a new relay Handler.
func New(cfg *Config, logger log.FieldLogger) (*Handler, error) {
	return NewWithOpts(cfg, logger, Opts{})
}

// NewWithOpts creates a new relay Handler with an ability to specify optional parameters.
func NewWithOpts(cfg *Config, logger log.FieldLogger, opts Opts) (*Handler, error) {
	decisions, err := lrucache.New[string, bool](cfg.DecisionsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("new target decisions cache: %w", err)
	}
	matchers := make([]func(string) bool, 0, len(cfg.AllowedTargets))
	for _, pattern := range cfg.AllowedTargets {
		matchers = append(matchers, glob.Compile(strings.ToLower(pattern)))
	}

	h := &Handler{cfg: cfg, logger: logger, matchers: matchers, decisions: decisions}
	h.proxy = &httputil.ReverseProxy{
		Rewrite:        h.rewrite,
		Transport:      opts.Transport,
		ModifyResponse: h.modifyResponse,
		ErrorHandler:   h.handleProxyError,
	}
	return h, nil
}

// Routes registers the relay routes in the router.
func (h *Handler) Routes(router chi.Router) {
	pattern := h.cfg.PathPrefix + "/*"
	// Handle binds all methods, so OPTIONS is overridden after it.
	router.Handle(pattern, http.HandlerFunc(h.serveForward))
	router.Options(pattern, h.servePreflight)
}

func (h *Handler) servePreflight(rw http.ResponseWriter, _ *http.Request) {
	h.setCORSHeaders(rw.Header())
	rw.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS")
	rw.WriteHeader(http.StatusOK)
}

func (h *Handler) serveForward(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)

	rawTarget := r.Header.Get(httpclient.OriginalBaseURLHeader)
	if rawTarget == "" {
		h.respondError(rw, http.StatusBadRequest, restapi.ErrCodeInvalidRequest, ErrMessageMissingTarget, logger)
		return
	}
	target, err := url.Parse(rawTarget)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		h.respondError(rw, http.StatusBadRequest, restapi.ErrCodeInvalidRequest, ErrMessageInvalidTarget, logger)
		return
	}
	if !h.isTargetAllowed(target.Host) {
		h.respondError(rw, http.StatusForbidden, restapi.ErrCodeForbidden, ErrMessageForbiddenTarget,
			logger.With(log.String("target_host", target.Host)))
		return
	}

	if lp := middleware.GetLoggingParamsFromContext(r.Context()); lp != nil {
		lp.ExtendFields(log.String("relay_target", target.Scheme+"://"+target.Host))
	}
	h.proxy.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ctxKeyTarget{}, target)))
}

func (h *Handler) rewrite(pr *httputil.ProxyRequest) {
	target := pr.In.Context().Value(ctxKeyTarget{}).(*url.URL)

	pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, h.cfg.PathPrefix)
	pr.Out.URL.RawPath = strings.TrimPrefix(pr.In.URL.RawPath, h.cfg.PathPrefix)
	pr.SetURL(target)
	pr.SetXForwarded()

	pr.Out.Header.Del(httpclient.OriginalBaseURLHeader)
	for name, value := range h.cfg.InjectHeaders {
		pr.Out.Header.Set(name, value)
	}
}

func (h *Handler) modifyResponse(resp *http.Response) error {
	h.setCORSHeaders(resp.Header)
	return nil
}

func (h *Handler) handleProxyError(rw http.ResponseWriter, r *http.Request, err error) {
	logger := h.loggerFromRequest(r)
	if r.Context().Err() != nil {
		logger.Warn("relay request aborted by client", log.Error(err))
		rw.WriteHeader(httpserver.StatusClientClosedRequest)
		return
	}
	logger.Error("relay proxy error", log.Error(err))
	h.respondError(rw, http.StatusBadGateway, restapi.ErrCodeBadGateway, ErrMessageProxyError, logger)
}

func (h *Handler) isTargetAllowed(host string) bool {
	if len(h.matchers) == 0 {
		return true
	}
	host = strings.ToLower(host)
	allowed, _ := h.decisions.GetOrAdd(host, func() bool {
		for _, match := range h.matchers {
			if match(host) {
				return true
			}
		}
		return false
	})
	return allowed
}

func (h *Handler) setCORSHeaders(header http.Header) {
	header.Set("Access-Control-Allow-Origin", h.cfg.CORS.AllowedOrigin)
	header.Set("Access-Control-Allow-Headers", strings.Join(h.cfg.CORS.AllowedHeaders, ", "))
}

func (h *Handler) respondError(rw http.ResponseWriter, status int, code, message string, logger log.FieldLogger) {
	h.setCORSHeaders(rw.Header())
	restapi.RespondError(rw, status, restapi.NewError(ErrDomain, code, message), logger)
}

func (h *Handler) loggerFromRequest(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
