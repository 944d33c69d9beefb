/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration of the console components from YAML/JSON files and environment variables.
//
// Each component owns a Config implementation bound to a key prefix ("queue", "relay", "log", ...).
// Loader first lets every Config register its defaults and then lets it read and validate its values,
// so one file may describe the whole application.
package config

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is implemented by configuration objects of the components.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by configs whose keys live under a common prefix.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// DataType is a configuration file format.
type DataType string

// Supported formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataProvider gives typed access to configuration values.
// Getters return errors that already name the offending key.
type DataProvider interface {
	UseEnvVars(prefix string)
	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error

	Set(key string, value interface{})
	SetDefault(key string, value interface{})

	Get(key string) interface{}
	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetFloat64(key string) (float64, error)
	GetString(key string) (string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetStringSlice(key string) ([]string, error)
	GetStringMapString(key string) (map[string]string, error)
	GetDuration(key string) (time.Duration, error)
	GetByteSize(key string) (ByteSize, error)

	Unmarshal(rawVal interface{}, opts ...DecoderConfigOption) error
	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error

	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption tunes mapstructure decoding in Unmarshal and UnmarshalKey.
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WrapKeyErr prefixes err with the key: "queue.concurrencyLimit: must be positive".
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}

// WrapKeyErrIfNeeded is WrapKeyErr that keeps nil as nil.
func WrapKeyErrIfNeeded(key string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKeyErr(key, err)
}

// Loader feeds configuration data into Config objects.
type Loader struct {
	DataProvider DataProvider
}

// NewLoader returns a Loader reading from dp.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// NewDefaultLoader returns a viper-based Loader that also reads environment variables
// named like APICONSOLE_QUEUE_CONCURRENCYLIMIT for envVarsPrefix "apiconsole".
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// LoadFromFile reads the file and sets all cfgs.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.Load(cfgs...)
}

// LoadFromReader reads r and sets all cfgs.
func (l *Loader) LoadFromReader(r io.Reader, dataType DataType, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(r, dataType); err != nil {
		return err
	}
	return l.Load(cfgs...)
}

// Load sets all cfgs from defaults and whatever data the provider already has.
// Defaults of all configs are registered before any of them is set.
func (l *Loader) Load(cfgs ...Config) error {
	for _, c := range cfgs {
		c.SetProviderDefaults(scopedProvider(c, l.DataProvider))
	}
	for _, c := range cfgs {
		if err := c.Set(scopedProvider(c, l.DataProvider)); err != nil {
			return err
		}
	}
	return nil
}

// CallSetProviderDefaultsForFields calls SetProviderDefaults for every exported non-nil field of *obj
// that implements Config. It lets an aggregate config delegate to its parts.
func CallSetProviderDefaultsForFields(obj interface{}, dp DataProvider) {
	_ = visitConfigFields(obj, dp, func(c Config, scoped DataProvider) error {
		c.SetProviderDefaults(scoped)
		return nil
	})
}

// CallSetForFields calls Set for every exported non-nil field of *obj that implements Config.
func CallSetForFields(obj interface{}, dp DataProvider) error {
	return visitConfigFields(obj, dp, func(c Config, scoped DataProvider) error {
		return c.Set(scoped)
	})
}

func visitConfigFields(obj interface{}, dp DataProvider, visit func(c Config, scoped DataProvider) error) error {
	v := reflect.ValueOf(obj).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		f := v.Field(i)
		if f.Kind() == reflect.Ptr && f.IsNil() {
			continue
		}
		if c, ok := f.Interface().(Config); ok {
			if err := visit(c, scopedProvider(c, dp)); err != nil {
				return err
			}
		}
	}
	return nil
}

func scopedProvider(c Config, dp DataProvider) DataProvider {
	if kp, ok := c.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
