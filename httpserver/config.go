/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"time"

	"github.com/acronis/go-apiconsole/config"
	"github.com/acronis/go-apiconsole/internal/ratelimit"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyServerAddress                 = "address"
	cfgKeyServerTimeoutsWrite           = "timeouts.write"
	cfgKeyServerTimeoutsRead            = "timeouts.read"
	cfgKeyServerTimeoutsReadHeader      = "timeouts.readHeader"
	cfgKeyServerTimeoutsIdle            = "timeouts.idle"
	cfgKeyServerTimeoutsShutdown        = "timeouts.shutdown"
	cfgKeyServerLimitsMaxBodySize       = "limits.maxBodySize"
	cfgKeyServerLogRequestStart         = "log.requestStart"
	cfgKeyServerLogExcludedEndpoints    = "log.excludedEndpoints"
	cfgKeyServerLogSecretQueryParams    = "log.secretQueryParams" // nolint:gosec // false positive
	cfgKeyServerLogSlowRequestThreshold = "log.slowRequestThreshold"
	cfgKeyServerRateLimitEnabled        = "rateLimit.enabled"
	cfgKeyServerRateLimitAlg            = "rateLimit.alg"
	cfgKeyServerRateLimitCount          = "rateLimit.count"
	cfgKeyServerRateLimitPeriod         = "rateLimit.period"
	cfgKeyServerRateLimitBurst          = "rateLimit.burst"
	cfgKeyServerRateLimitMaxKeys        = "rateLimit.maxKeys"
)

const (
	defaultServerAddress            = ":8080"
	defaultServerTimeoutsWrite      = time.Minute
	defaultServerTimeoutsRead       = time.Second * 15
	defaultServerTimeoutsReadHeader = time.Second * 10
	defaultServerTimeoutsIdle       = time.Minute
	defaultServerTimeoutsShutdown   = time.Second * 5
	defaultServerLimitsMaxBodySize  = 1024 * 1024
	defaultSlowRequestThreshold     = time.Second
	defaultRateLimitCount           = 20
	defaultRateLimitPeriod          = time.Second
	defaultRateLimitBurst           = 10
	defaultRateLimitMaxKeys         = 10000
)

// Config represents a set of configuration parameters for HTTPServer.
type Config struct {
	Address   string          `mapstructure:"address" yaml:"address" json:"address"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits" json:"limits"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit" json:"rateLimit"`

	keyPrefix      string
	defaultAddress string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix      string
	defaultAddress string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// WithDefaultAddress returns a ConfigOption that overrides the default listening address.
func WithDefaultAddress(addr string) ConfigOption {
	return func(o *configOptions) {
		o.defaultAddress = addr
	}
}

func makeConfigOptions(options []ConfigOption) configOptions {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix, defaultAddress: defaultServerAddress}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := makeConfigOptions(options)
	return &Config{keyPrefix: opts.keyPrefix, defaultAddress: opts.defaultAddress}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := makeConfigOptions(options)
	return &Config{
		keyPrefix:      opts.keyPrefix,
		defaultAddress: opts.defaultAddress,
		Address:        opts.defaultAddress,
		Timeouts: TimeoutsConfig{
			Write:      config.TimeDuration(defaultServerTimeoutsWrite),
			Read:       config.TimeDuration(defaultServerTimeoutsRead),
			ReadHeader: config.TimeDuration(defaultServerTimeoutsReadHeader),
			Idle:       config.TimeDuration(defaultServerTimeoutsIdle),
			Shutdown:   config.TimeDuration(defaultServerTimeoutsShutdown),
		},
		Limits: LimitsConfig{MaxBodySizeBytes: defaultServerLimitsMaxBodySize},
		Log:    LogConfig{SlowRequestThreshold: config.TimeDuration(defaultSlowRequestThreshold)},
		RateLimit: RateLimitConfig{
			Alg:     ratelimit.AlgLeakyBucket,
			Count:   defaultRateLimitCount,
			Period:  config.TimeDuration(defaultRateLimitPeriod),
			Burst:   defaultRateLimitBurst,
			MaxKeys: defaultRateLimitMaxKeys,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTPServer in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	addr := c.defaultAddress
	if addr == "" {
		addr = defaultServerAddress
	}
	dp.SetDefault(cfgKeyServerAddress, addr)

	dp.SetDefault(cfgKeyServerTimeoutsWrite, defaultServerTimeoutsWrite)
	dp.SetDefault(cfgKeyServerTimeoutsRead, defaultServerTimeoutsRead)
	dp.SetDefault(cfgKeyServerTimeoutsReadHeader, defaultServerTimeoutsReadHeader)
	dp.SetDefault(cfgKeyServerTimeoutsIdle, defaultServerTimeoutsIdle)
	dp.SetDefault(cfgKeyServerTimeoutsShutdown, defaultServerTimeoutsShutdown)

	dp.SetDefault(cfgKeyServerLimitsMaxBodySize, defaultServerLimitsMaxBodySize)

	dp.SetDefault(cfgKeyServerLogRequestStart, false)
	dp.SetDefault(cfgKeyServerLogSlowRequestThreshold, defaultSlowRequestThreshold)

	dp.SetDefault(cfgKeyServerRateLimitEnabled, false)
	dp.SetDefault(cfgKeyServerRateLimitAlg, string(ratelimit.AlgLeakyBucket))
	dp.SetDefault(cfgKeyServerRateLimitCount, defaultRateLimitCount)
	dp.SetDefault(cfgKeyServerRateLimitPeriod, defaultRateLimitPeriod)
	dp.SetDefault(cfgKeyServerRateLimitBurst, defaultRateLimitBurst)
	dp.SetDefault(cfgKeyServerRateLimitMaxKeys, defaultRateLimitMaxKeys)
}

// Set sets HTTPServer configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyServerAddress, fmt.Errorf("cannot be empty"))
	}
	if err = c.Timeouts.Set(dp); err != nil {
		return err
	}
	if err = c.Limits.Set(dp); err != nil {
		return err
	}
	if err = c.Log.Set(dp); err != nil {
		return err
	}
	return c.RateLimit.Set(dp)
}

// TimeoutsConfig represents a set of configuration parameters for HTTPServer relating to timeouts.
type TimeoutsConfig struct {
	Write      config.TimeDuration `mapstructure:"write" yaml:"write" json:"write"`
	Read       config.TimeDuration `mapstructure:"read" yaml:"read" json:"read"`
	ReadHeader config.TimeDuration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Idle       config.TimeDuration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown   config.TimeDuration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// Set sets timeout server configuration values from config.DataProvider.
func (t *TimeoutsConfig) Set(dp config.DataProvider) error {
	for _, item := range []struct {
		key string
		dst *config.TimeDuration
	}{
		{cfgKeyServerTimeoutsWrite, &t.Write},
		{cfgKeyServerTimeoutsRead, &t.Read},
		{cfgKeyServerTimeoutsReadHeader, &t.ReadHeader},
		{cfgKeyServerTimeoutsIdle, &t.Idle},
		{cfgKeyServerTimeoutsShutdown, &t.Shutdown},
	} {
		dur, err := dp.GetDuration(item.key)
		if err != nil {
			return err
		}
		*item.dst = config.TimeDuration(dur)
	}
	return nil
}

// LimitsConfig represents a set of configuration parameters for HTTPServer relating to limits.
type LimitsConfig struct {
	// MaxBodySizeBytes is the maximum size of the request body, zero disables the limit.
	MaxBodySizeBytes config.ByteSize `mapstructure:"maxBodySize" yaml:"maxBodySize" json:"maxBodySize"`
}

// Set sets limit server configuration values from config.DataProvider.
func (l *LimitsConfig) Set(dp config.DataProvider) error {
	var err error
	l.MaxBodySizeBytes, err = dp.GetByteSize(cfgKeyServerLimitsMaxBodySize)
	return err
}

// LogConfig represents a set of configuration parameters for HTTPServer relating to logging.
type LogConfig struct {
	RequestStart         bool                `mapstructure:"requestStart" yaml:"requestStart" json:"requestStart"`
	ExcludedEndpoints    []string            `mapstructure:"excludedEndpoints" yaml:"excludedEndpoints" json:"excludedEndpoints"`
	SecretQueryParams    []string            `mapstructure:"secretQueryParams" yaml:"secretQueryParams" json:"secretQueryParams"`
	SlowRequestThreshold config.TimeDuration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// Set sets log server configuration values from config.DataProvider.
func (l *LogConfig) Set(dp config.DataProvider) error {
	var err error

	if l.RequestStart, err = dp.GetBool(cfgKeyServerLogRequestStart); err != nil {
		return err
	}
	if l.ExcludedEndpoints, err = dp.GetStringSlice(cfgKeyServerLogExcludedEndpoints); err != nil {
		return err
	}
	if l.SecretQueryParams, err = dp.GetStringSlice(cfgKeyServerLogSecretQueryParams); err != nil {
		return err
	}

	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyServerLogSlowRequestThreshold); err != nil {
		return err
	}
	l.SlowRequestThreshold = config.TimeDuration(dur)

	return nil
}

// RateLimitConfig represents a set of configuration parameters for limiting request submission rate.
type RateLimitConfig struct {
	Enabled bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Alg     ratelimit.Alg       `mapstructure:"alg" yaml:"alg" json:"alg"`
	Count   int                 `mapstructure:"count" yaml:"count" json:"count"`
	Period  config.TimeDuration `mapstructure:"period" yaml:"period" json:"period"`
	Burst   int                 `mapstructure:"burst" yaml:"burst" json:"burst"`
	MaxKeys int                 `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`
}

// Set sets rate limit configuration values from config.DataProvider.
func (r *RateLimitConfig) Set(dp config.DataProvider) error {
	var err error

	if r.Enabled, err = dp.GetBool(cfgKeyServerRateLimitEnabled); err != nil {
		return err
	}

	var alg string
	if alg, err = dp.GetStringFromSet(cfgKeyServerRateLimitAlg,
		[]string{string(ratelimit.AlgLeakyBucket), string(ratelimit.AlgSlidingWindow)}, true); err != nil {
		return err
	}
	r.Alg = ratelimit.Alg(alg)

	if r.Count, err = dp.GetInt(cfgKeyServerRateLimitCount); err != nil {
		return err
	}
	if r.Count < 1 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitCount, fmt.Errorf("must be positive"))
	}

	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyServerRateLimitPeriod); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitPeriod, fmt.Errorf("must be positive"))
	}
	r.Period = config.TimeDuration(dur)

	if r.Burst, err = dp.GetInt(cfgKeyServerRateLimitBurst); err != nil {
		return err
	}
	if r.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitBurst, fmt.Errorf("cannot be negative"))
	}

	if r.MaxKeys, err = dp.GetInt(cfgKeyServerRateLimitMaxKeys); err != nil {
		return err
	}
	if r.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitMaxKeys, fmt.Errorf("cannot be negative"))
	}
	return nil
}

// Rate returns the configured rate.
func (r *RateLimitConfig) Rate() ratelimit.Rate {
	return ratelimit.Rate{Count: r.Count, Duration: time.Duration(r.Period)}
}
