/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package relay

import (
	"fmt"
	"strings"

	"github.com/acronis/go-apiconsole/config"
)

const cfgDefaultKeyPrefix = "relay"

const (
	cfgKeyEnabled         = "enabled"
	cfgKeyPathPrefix      = "pathPrefix"
	cfgKeyAllowedTargets  = "allowedTargets"
	cfgKeyInjectHeaders   = "injectHeaders"
	cfgKeyDecisionsCache  = "decisionsCacheSize"
	cfgKeyAllowedHeaders  = "cors.allowedHeaders"
	cfgKeyAllowedOrigin   = "cors.allowedOrigin"
	defaultPathPrefix     = "/api"
	defaultAllowedOrigin  = "*"
	defaultDecisionsCache = 1000
)

// DefaultAllowedHeaders are returned in Access-Control-Allow-Headers.
var DefaultAllowedHeaders = []string{
	"Origin", "X-Requested-With", "Content-Type", "Accept",
	"X-API-Token-Name", "X-API-Token-Secret", "X-Original-Base-Url",
}

// Config represents a set of configuration parameters for the forwarding relay.
// Listening parameters of the relay server are configured by httpserver.Config with the same key prefix.
type Config struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	PathPrefix string `mapstructure:"pathPrefix" yaml:"pathPrefix" json:"pathPrefix"`

	// AllowedTargets is a list of glob patterns ("*.example.com", "localhost:*") for target hosts.
	// Any target is allowed when the list is empty.
	AllowedTargets []string `mapstructure:"allowedTargets" yaml:"allowedTargets" json:"allowedTargets"`

	// InjectHeaders are set on every forwarded request.
	InjectHeaders map[string]string `mapstructure:"injectHeaders" yaml:"injectHeaders" json:"injectHeaders"`

	DecisionsCacheSize int        `mapstructure:"decisionsCacheSize" yaml:"decisionsCacheSize" json:"decisionsCacheSize"`
	CORS               CORSConfig `mapstructure:"cors" yaml:"cors" json:"cors"`

	keyPrefix string
}

// CORSConfig represents CORS parameters of the relay responses.
type CORSConfig struct {
	AllowedOrigin  string   `mapstructure:"allowedOrigin" yaml:"allowedOrigin" json:"allowedOrigin"`
	AllowedHeaders []string `mapstructure:"allowedHeaders" yaml:"allowedHeaders" json:"allowedHeaders"`
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
	cfg.PathPrefix = defaultPathPrefix
	cfg.InjectHeaders = map[string]string{}
	cfg.DecisionsCacheSize = defaultDecisionsCache
	cfg.CORS = CORSConfig{AllowedOrigin: defaultAllowedOrigin, AllowedHeaders: DefaultAllowedHeaders}
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the relay in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, false)
	dp.SetDefault(cfgKeyPathPrefix, defaultPathPrefix)
	dp.SetDefault(cfgKeyDecisionsCache, defaultDecisionsCache)
	dp.SetDefault(cfgKeyAllowedOrigin, defaultAllowedOrigin)
	dp.SetDefault(cfgKeyAllowedHeaders, DefaultAllowedHeaders)
}

// Set sets the relay configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}

	if c.PathPrefix, err = dp.GetString(cfgKeyPathPrefix); err != nil {
		return err
	}
	c.PathPrefix = "/" + strings.Trim(c.PathPrefix, "/")
	if c.PathPrefix == "/" {
		return dp.WrapKeyErr(cfgKeyPathPrefix, fmt.Errorf("cannot be empty"))
	}

	if c.AllowedTargets, err = dp.GetStringSlice(cfgKeyAllowedTargets); err != nil {
		return err
	}
	if c.InjectHeaders, err = dp.GetStringMapString(cfgKeyInjectHeaders); err != nil {
		return err
	}

	if c.DecisionsCacheSize, err = dp.GetInt(cfgKeyDecisionsCache); err != nil {
		return err
	}
	if c.DecisionsCacheSize < 1 {
		return dp.WrapKeyErr(cfgKeyDecisionsCache, fmt.Errorf("must be positive"))
	}

	if c.CORS.AllowedOrigin, err = dp.GetString(cfgKeyAllowedOrigin); err != nil {
		return err
	}
	if c.CORS.AllowedHeaders, err = dp.GetStringSlice(cfgKeyAllowedHeaders); err != nil {
		return err
	}
	return nil
}
