/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the *http.Client used to execute console requests.
// The transport is a chain of round trippers: retries, request id, user agent,
// client-side rate limiting, metrics, logging and, optionally, relay addressing.
package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/acronis/go-apiconsole/log"
)

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// RequestType is used in logs and metrics when the request context doesn't carry one.
	RequestType string

	// Delegate is the innermost RoundTripper. A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	Logger            log.FieldLogger
	LoggerProvider    func(ctx context.Context) log.FieldLogger
	RequestIDProvider func(ctx context.Context) string
	MetricsCollector  MetricsCollector
}

// New creates a new *http.Client by the configuration.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new *http.Client by the configuration and options.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}
	var err error

	if cfg.Relay.Enabled {
		if delegate, err = NewRelayRoundTripper(delegate, cfg.Relay.BaseURL, cfg.Relay.PathPrefix); err != nil {
			return nil, fmt.Errorf("create relay round tripper: %w", err)
		}
	}

	if cfg.Logger.Enabled {
		delegate = NewLoggingRoundTripperWithOpts(delegate, LoggingRoundTripperOpts{
			Logger:               opts.Logger,
			LoggerProvider:       opts.LoggerProvider,
			RequestType:          opts.RequestType,
			Mode:                 cfg.Logger.Mode,
			SlowRequestThreshold: cfg.Logger.SlowRequestThreshold,
		})
	}

	if cfg.Metrics.Enabled && opts.MetricsCollector != nil {
		delegate = NewMetricsRoundTripperWithOpts(delegate, MetricsRoundTripperOpts{
			RequestType: opts.RequestType,
			Collector:   opts.MetricsCollector,
		})
	}

	if cfg.RateLimits.Enabled {
		if delegate, err = NewRateLimitingRoundTripperWithOpts(delegate, cfg.RateLimits.Limit, RateLimitingRoundTripperOpts{
			Burst:       cfg.RateLimits.Burst,
			WaitTimeout: cfg.RateLimits.WaitTimeout,
		}); err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	if cfg.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, cfg.UserAgent)
	}

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	if cfg.Retries.Enabled {
		if delegate, err = NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{
			Logger:           opts.Logger,
			LoggerProvider:   opts.LoggerProvider,
			MaxRetryAttempts: cfg.Retries.MaxAttempts,
			BackoffPolicy:    cfg.Retries.BackoffPolicy(),
		}); err != nil {
			return nil, fmt.Errorf("create retryable round tripper: %w", err)
		}
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts is like NewWithOpts but panics on error.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
