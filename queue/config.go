/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-apiconsole/config"
)

const cfgDefaultKeyPrefix = "queue"

const (
	cfgKeyConcurrencyLimit    = "concurrencyLimit"
	cfgKeyMaxResponseBodySize = "maxResponseBodySize"
	cfgKeyStatsInterval       = "statsInterval"
)

// Default values.
const (
	DefaultConcurrencyLimit    = 3
	DefaultMaxResponseBodySize = 10 * 1024 * 1024
	DefaultStatsInterval       = 10 * time.Second
)

// Config represents a set of configuration parameters for the request queue.
type Config struct {
	// ConcurrencyLimit is an initial maximum number of simultaneously running requests.
	ConcurrencyLimit int `mapstructure:"concurrencyLimit" yaml:"concurrencyLimit" json:"concurrencyLimit"`

	// MaxResponseBodySize limits the response body read by the transport.
	MaxResponseBodySize config.ByteSize `mapstructure:"maxResponseBodySize" yaml:"maxResponseBodySize" json:"maxResponseBodySize"`

	// StatsInterval is an interval of the periodic queue stats logging. Zero disables it.
	StatsInterval config.TimeDuration `mapstructure:"statsInterval" yaml:"statsInterval" json:"statsInterval"`

	keyPrefix string
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
	cfg.ConcurrencyLimit = DefaultConcurrencyLimit
	cfg.MaxResponseBodySize = DefaultMaxResponseBodySize
	cfg.StatsInterval = config.TimeDuration(DefaultStatsInterval)
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the queue in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyConcurrencyLimit, DefaultConcurrencyLimit)
	dp.SetDefault(cfgKeyMaxResponseBodySize, "10M")
	dp.SetDefault(cfgKeyStatsInterval, DefaultStatsInterval.String())
}

// Set sets the queue configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.ConcurrencyLimit, err = dp.GetInt(cfgKeyConcurrencyLimit); err != nil {
		return err
	}
	if c.ConcurrencyLimit < 1 {
		return dp.WrapKeyErr(cfgKeyConcurrencyLimit, fmt.Errorf("must be positive, got %d", c.ConcurrencyLimit))
	}

	if c.MaxResponseBodySize, err = dp.GetByteSize(cfgKeyMaxResponseBodySize); err != nil {
		return err
	}

	var statsInterval time.Duration
	if statsInterval, err = dp.GetDuration(cfgKeyStatsInterval); err != nil {
		return err
	}
	if statsInterval < 0 {
		return dp.WrapKeyErr(cfgKeyStatsInterval, errors.New("must not be negative"))
	}
	c.StatsInterval = config.TimeDuration(statsInterval)

	return nil
}
