/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/acronis/go-apiconsole/log"
)

// LoggingSecretQueryPlaceholder replaces values of secret query parameters in the "uri" field.
const LoggingSecretQueryPlaceholder = "_HIDDEN_"

// DefaultSlowRequestThreshold is the duration after which "time_slots" are added to the access log line.
const DefaultSlowRequestThreshold = time.Second

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// LoggingOpts configures LoggingWithOpts.
type LoggingOpts struct {
	RequestStart         bool
	ExcludedEndpoints    []string
	SecretQueryParams    []string
	SlowRequestThreshold time.Duration
}

// Logging writes one access log line per request and puts a logger tagged with request ids into the context.
func Logging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return LoggingWithOpts(logger, LoggingOpts{})
}

// LoggingWithOpts is Logging with options.
// Requests to ExcludedEndpoints are logged only when they fail with 4xx or 5xx.
func LoggingWithOpts(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	slowThreshold := opts.SlowRequestThreshold
	if slowThreshold == 0 {
		slowThreshold = DefaultSlowRequestThreshold
	}
	excluded := make(map[string]bool, len(opts.ExcludedEndpoints))
	for _, path := range opts.ExcludedEndpoints {
		excluded[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			started := GetRequestStartTimeFromContext(ctx)
			if started.IsZero() {
				started = time.Now()
				ctx = NewContextWithRequestStartTime(ctx, started)
			}

			reqLogger := logger.With(
				log.String("request_id", GetRequestIDFromContext(ctx)),
				log.String("int_request_id", GetInternalRequestIDFromContext(ctx)),
			)
			accessLogger := reqLogger.With(requestFields(r, opts.SecretQueryParams)...)
			quiet := excluded[r.URL.Path]
			if opts.RequestStart && !quiet {
				accessLogger.Info("request started")
			}

			lp := &LoggingParams{}
			ctx = NewContextWithLoggingParams(NewContextWithLogger(ctx, reqLogger), lp)
			wrw := WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r.WithContext(ctx))

			status := statusOrOK(wrw)
			if quiet && status < http.StatusBadRequest {
				return
			}
			elapsed := time.Since(started)
			fields := append([]log.Field{
				log.Int64("duration_ms", elapsed.Milliseconds()),
				log.Int("status", status),
				log.Int("bytes_sent", wrw.BytesWritten()),
			}, lp.logFields(elapsed >= slowThreshold)...)
			accessLogger.Info(fmt.Sprintf("response completed in %.3fs", elapsed.Seconds()), fields...)
		})
	}
}

func requestFields(r *http.Request, secretParams []string) []log.Field {
	fields := make([]log.Field, 0, 8)
	fields = append(fields,
		log.String("method", r.Method),
		log.String("uri", uriToLog(r, secretParams)),
		log.String("remote_addr", r.RemoteAddr),
		log.Int64("content_length", r.ContentLength),
		log.String("user_agent", r.UserAgent()),
	)
	if host, portStr, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		fields = append(fields, log.String("remote_addr_ip", host))
		if port, convErr := strconv.ParseUint(portStr, 10, 16); convErr == nil {
			fields = append(fields, log.Int("remote_addr_port", int(port)))
		}
	}
	if origin := getOriginAddr(r); origin != "" {
		fields = append(fields, log.String("origin_addr", origin))
	}
	return fields
}

// uriToLog hides non-empty values of secret query parameters.
func uriToLog(r *http.Request, secretParams []string) string {
	if len(secretParams) == 0 || r.URL.RawQuery == "" {
		return r.RequestURI
	}
	query := r.URL.Query()
	for _, name := range secretParams {
		for i, v := range query[name] {
			if v != "" {
				query[name][i] = LoggingSecretQueryPlaceholder
			}
		}
	}
	return r.URL.Path + "?" + query.Encode()
}

// getOriginAddr returns the client address reported by a fronting proxy, if any.
func getOriginAddr(r *http.Request) string {
	if fwd := r.Header.Get(headerForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get(headerRealIP))
}
