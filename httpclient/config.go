/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/acronis/go-apiconsole/config"
	"github.com/acronis/go-apiconsole/retry"
)

const cfgDefaultKeyPrefix = "client"

const (
	cfgKeyTimeout                                 = "timeout"
	cfgKeyUserAgent                               = "userAgent"
	cfgKeyRetriesEnabled                          = "retries.enabled"
	cfgKeyRetriesMaxAttempts                      = "retries.maxAttempts"
	cfgKeyRetriesPolicyStrategy                   = "retries.policy.strategy"
	cfgKeyRetriesPolicyExponentialInitialInterval = "retries.policy.exponentialBackoffInitialInterval"
	cfgKeyRetriesPolicyExponentialMultiplier      = "retries.policy.exponentialBackoffMultiplier"
	cfgKeyRetriesPolicyConstantInterval           = "retries.policy.constantBackoffInterval"
	cfgKeyRateLimitsEnabled                       = "rateLimits.enabled"
	cfgKeyRateLimitsLimit                         = "rateLimits.limit"
	cfgKeyRateLimitsBurst                         = "rateLimits.burst"
	cfgKeyRateLimitsWaitTimeout                   = "rateLimits.waitTimeout"
	cfgKeyLoggerEnabled                           = "logger.enabled"
	cfgKeyLoggerMode                              = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold              = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled                          = "metrics.enabled"
	cfgKeyRelayEnabled                            = "relay.enabled"
	cfgKeyRelayBaseURL                            = "relay.baseURL"
	cfgKeyRelayPathPrefix                         = "relay.pathPrefix"
)

// Default values.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultUserAgent       = "apiconsole"
	DefaultRelayPathPrefix = "/api"
)

// Retry policy strategies.
const (
	RetryPolicyExponential = "exponential"
	RetryPolicyConstant    = "constant"
)

// Config represents a set of configuration parameters for the outgoing HTTP client.
type Config struct {
	Timeout    time.Duration   `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	UserAgent  string          `mapstructure:"userAgent" yaml:"userAgent" json:"userAgent"`
	Retries    RetriesConfig   `mapstructure:"retries" yaml:"retries" json:"retries"`
	RateLimits RateLimitConfig `mapstructure:"rateLimits" yaml:"rateLimits" json:"rateLimits"`
	Logger     LoggerConfig    `mapstructure:"logger" yaml:"logger" json:"logger"`
	Metrics    MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Relay      RelayConfig     `mapstructure:"relay" yaml:"relay" json:"relay"`

	keyPrefix string
}

// RetriesConfig represents retry options of the client.
// Retries are done only for idempotent requests (see DefaultCheckRetry).
type RetriesConfig struct {
	Enabled     bool         `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxAttempts int          `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	Policy      PolicyConfig `mapstructure:"policy" yaml:"policy" json:"policy"`
}

// PolicyConfig represents a backoff policy for retries.
type PolicyConfig struct {
	Strategy                          string        `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	ExponentialBackoffInitialInterval time.Duration `mapstructure:"exponentialBackoffInitialInterval" yaml:"exponentialBackoffInitialInterval" json:"exponentialBackoffInitialInterval"` //nolint:lll
	ExponentialBackoffMultiplier      float64       `mapstructure:"exponentialBackoffMultiplier" yaml:"exponentialBackoffMultiplier" json:"exponentialBackoffMultiplier"`                //nolint:lll
	ConstantBackoffInterval           time.Duration `mapstructure:"constantBackoffInterval" yaml:"constantBackoffInterval" json:"constantBackoffInterval"`
}

// RateLimitConfig represents client-side rate limiting options.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Limit       int           `mapstructure:"limit" yaml:"limit" json:"limit"`
	Burst       int           `mapstructure:"burst" yaml:"burst" json:"burst"`
	WaitTimeout time.Duration `mapstructure:"waitTimeout" yaml:"waitTimeout" json:"waitTimeout"`
}

// LoggerConfig represents logging options of outgoing requests.
type LoggerConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Mode                 LoggingMode   `mapstructure:"mode" yaml:"mode" json:"mode"`
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// MetricsConfig represents metrics options of outgoing requests.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// RelayConfig represents options of sending requests through the forwarding relay.
type RelayConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	BaseURL    string `mapstructure:"baseURL" yaml:"baseURL" json:"baseURL"`
	PathPrefix string `mapstructure:"pathPrefix" yaml:"pathPrefix" json:"pathPrefix"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Timeout = DefaultTimeout
	cfg.UserAgent = DefaultUserAgent
	cfg.Logger = LoggerConfig{Enabled: true, Mode: LoggingModeAll}
	cfg.Metrics.Enabled = true
	cfg.Relay.PathPrefix = DefaultRelayPathPrefix
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the HTTP client in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
	dp.SetDefault(cfgKeyUserAgent, DefaultUserAgent)
	dp.SetDefault(cfgKeyRetriesEnabled, false)
	dp.SetDefault(cfgKeyRetriesMaxAttempts, DefaultMaxRetryAttempts)
	dp.SetDefault(cfgKeyRetriesPolicyStrategy, RetryPolicyExponential)
	dp.SetDefault(cfgKeyRetriesPolicyExponentialInitialInterval, DefaultExponentialBackoffInitialInterval.String())
	dp.SetDefault(cfgKeyRetriesPolicyExponentialMultiplier, DefaultExponentialBackoffMultiplier)
	dp.SetDefault(cfgKeyRetriesPolicyConstantInterval, DefaultExponentialBackoffInitialInterval.String())
	dp.SetDefault(cfgKeyRateLimitsEnabled, false)
	dp.SetDefault(cfgKeyRateLimitsBurst, DefaultRateLimitingBurst)
	dp.SetDefault(cfgKeyRateLimitsWaitTimeout, DefaultRateLimitingWaitTimeout.String())
	dp.SetDefault(cfgKeyLoggerEnabled, true)
	dp.SetDefault(cfgKeyLoggerMode, string(LoggingModeAll))
	dp.SetDefault(cfgKeyLoggerSlowRequestThreshold, "0s")
	dp.SetDefault(cfgKeyMetricsEnabled, true)
	dp.SetDefault(cfgKeyRelayEnabled, false)
	dp.SetDefault(cfgKeyRelayPathPrefix, DefaultRelayPathPrefix)
}

// Set sets the HTTP client configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, errors.New("must not be negative"))
	}
	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}

	for _, set := range []func(config.DataProvider) error{c.setRetries, c.setRateLimits, c.setLogger, c.setRelay} {
		if err = set(dp); err != nil {
			return err
		}
	}

	c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled)
	return err
}

func (c *Config) setRetries(dp config.DataProvider) error {
	var err error
	if c.Retries.Enabled, err = dp.GetBool(cfgKeyRetriesEnabled); err != nil || !c.Retries.Enabled {
		return err
	}

	if c.Retries.MaxAttempts, err = dp.GetInt(cfgKeyRetriesMaxAttempts); err != nil {
		return err
	}
	if c.Retries.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesMaxAttempts, errors.New("must not be negative"))
	}

	policy := &c.Retries.Policy
	strategies := []string{RetryPolicyExponential, RetryPolicyConstant}
	if policy.Strategy, err = dp.GetStringFromSet(cfgKeyRetriesPolicyStrategy, strategies, true); err != nil {
		return err
	}
	switch policy.Strategy {
	case RetryPolicyExponential:
		if policy.ExponentialBackoffInitialInterval, err = dp.GetDuration(cfgKeyRetriesPolicyExponentialInitialInterval); err != nil {
			return err
		}
		if policy.ExponentialBackoffInitialInterval <= 0 {
			return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialInitialInterval, errors.New("must be positive"))
		}
		if policy.ExponentialBackoffMultiplier, err = dp.GetFloat64(cfgKeyRetriesPolicyExponentialMultiplier); err != nil {
			return err
		}
		if policy.ExponentialBackoffMultiplier <= 1 {
			return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialMultiplier, errors.New("must be greater than 1"))
		}
	case RetryPolicyConstant:
		if policy.ConstantBackoffInterval, err = dp.GetDuration(cfgKeyRetriesPolicyConstantInterval); err != nil {
			return err
		}
		if policy.ConstantBackoffInterval <= 0 {
			return dp.WrapKeyErr(cfgKeyRetriesPolicyConstantInterval, errors.New("must be positive"))
		}
	}
	return nil
}

func (c *Config) setRateLimits(dp config.DataProvider) error {
	var err error
	if c.RateLimits.Enabled, err = dp.GetBool(cfgKeyRateLimitsEnabled); err != nil || !c.RateLimits.Enabled {
		return err
	}
	if c.RateLimits.Limit, err = dp.GetInt(cfgKeyRateLimitsLimit); err != nil {
		return err
	}
	if c.RateLimits.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsLimit, fmt.Errorf("must be positive, got %d", c.RateLimits.Limit))
	}
	if c.RateLimits.Burst, err = dp.GetInt(cfgKeyRateLimitsBurst); err != nil {
		return err
	}
	if c.RateLimits.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsBurst, errors.New("must not be negative"))
	}
	if c.RateLimits.WaitTimeout, err = dp.GetDuration(cfgKeyRateLimitsWaitTimeout); err != nil {
		return err
	}
	if c.RateLimits.WaitTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsWaitTimeout, errors.New("must not be negative"))
	}
	return nil
}

func (c *Config) setLogger(dp config.DataProvider) error {
	var err error
	if c.Logger.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil || !c.Logger.Enabled {
		return err
	}
	modes := []string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}
	var mode string
	if mode, err = dp.GetStringFromSet(cfgKeyLoggerMode, modes, true); err != nil {
		return err
	}
	c.Logger.Mode = LoggingMode(mode)
	if c.Logger.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLoggerSlowRequestThreshold); err != nil {
		return err
	}
	if c.Logger.SlowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLoggerSlowRequestThreshold, errors.New("must not be negative"))
	}
	return nil
}

func (c *Config) setRelay(dp config.DataProvider) error {
	var err error
	if c.Relay.PathPrefix, err = dp.GetString(cfgKeyRelayPathPrefix); err != nil {
		return err
	}
	if c.Relay.PathPrefix != "" && !strings.HasPrefix(c.Relay.PathPrefix, "/") {
		return dp.WrapKeyErr(cfgKeyRelayPathPrefix, errors.New("must start with /"))
	}
	if c.Relay.Enabled, err = dp.GetBool(cfgKeyRelayEnabled); err != nil || !c.Relay.Enabled {
		return err
	}
	if c.Relay.BaseURL, err = dp.GetString(cfgKeyRelayBaseURL); err != nil {
		return err
	}
	u, parseErr := url.Parse(c.Relay.BaseURL)
	if parseErr != nil || u.Scheme == "" || u.Host == "" {
		return dp.WrapKeyErr(cfgKeyRelayBaseURL, fmt.Errorf("must be an absolute URL, got %q", c.Relay.BaseURL))
	}
	return nil
}

// BackoffPolicy returns a retry policy built from the configuration.
func (c *RetriesConfig) BackoffPolicy() retry.Policy {
	if c.Policy.Strategy == RetryPolicyConstant {
		return retry.NewConstantBackoffPolicy(c.Policy.ConstantBackoffInterval, 0)
	}
	return retry.ExponentialBackoffPolicy{
		InitialInterval: c.Policy.ExponentialBackoffInitialInterval,
		Multiplier:      c.Policy.ExponentialBackoffMultiplier,
	}
}
