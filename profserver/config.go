/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"errors"

	"github.com/acronis/go-apiconsole/config"
)

const (
	cfgKeyEnabled              = "enabled"
	cfgKeyAddress              = "address"
	cfgKeyBlockProfileRate     = "blockProfileRate"
	cfgKeyMutexProfileFraction = "mutexProfileFraction"
)

const defaultAddress = "127.0.0.1:8081"

// Config is the profServer section. Disabled by default.
// Non-zero profile rates turn on block and mutex profiling of the whole process.
type Config struct {
	Enabled              bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Address              string `mapstructure:"address" yaml:"address" json:"address"`
	BlockProfileRate     int    `mapstructure:"blockProfileRate" yaml:"blockProfileRate" json:"blockProfileRate"`
	MutexProfileFraction int    `mapstructure:"mutexProfileFraction" yaml:"mutexProfileFraction" json:"mutexProfileFraction"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption customizes NewConfig.
type ConfigOption func(*Config)

// WithKeyPrefix changes the "profServer" key prefix.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(c *Config) { c.keyPrefix = keyPrefix }
}

// NewConfig returns an empty Config to be filled by config.Loader.
func NewConfig(options ...ConfigOption) *Config {
	c := &Config{keyPrefix: "profServer"}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewDefaultConfig returns a Config holding the default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	c := NewConfig(options...)
	c.Address = defaultAddress
	return c
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, false)
	dp.SetDefault(cfgKeyAddress, defaultAddress)
	dp.SetDefault(cfgKeyBlockProfileRate, 0)
	dp.SetDefault(cfgKeyMutexProfileFraction, 0)
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Enabled && c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, errors.New("cannot be empty"))
	}
	for key, dst := range map[string]*int{
		cfgKeyBlockProfileRate:     &c.BlockProfileRate,
		cfgKeyMutexProfileFraction: &c.MutexProfileFraction,
	} {
		if *dst, err = dp.GetInt(key); err != nil {
			return err
		}
		if *dst < 0 {
			return dp.WrapKeyErr(key, errors.New("cannot be negative"))
		}
	}
	return nil
}
