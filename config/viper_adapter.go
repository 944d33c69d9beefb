/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperAdapter is DataProvider implementation that uses viper library under the hood.
type ViperAdapter struct {
	viper *viper.Viper
}

var _ DataProvider = (*ViperAdapter)(nil)

// NewViperAdapter creates a new ViperAdapter.
func NewViperAdapter() *ViperAdapter {
	return &ViperAdapter{viper.New()}
}

// UseEnvVars enables reading of configuration parameters from environment variables.
// Key "queue.concurrencyLimit" with prefix "apiconsole" is looked up as APICONSOLE_QUEUE_CONCURRENCYLIMIT.
func (va *ViperAdapter) UseEnvVars(prefix string) {
	va.viper.AutomaticEnv()
	va.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	va.viper.SetEnvPrefix(prefix)
}

// Set sets the value for the key in the override register.
func (va *ViperAdapter) Set(key string, value interface{}) {
	va.viper.Set(key, value)
}

// SetDefault sets the default value for this key.
func (va *ViperAdapter) SetDefault(key string, value interface{}) {
	va.viper.SetDefault(key, value)
}

// Get retrieves any value given the key to use.
func (va *ViperAdapter) Get(key string) interface{} {
	return va.viper.Get(key)
}

// SetFromFile reads configuration data from the file.
func (va *ViperAdapter) SetFromFile(path string, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	va.viper.SetConfigFile(path)
	return va.viper.ReadInConfig()
}

// SetFromReader reads configuration data from the reader.
func (va *ViperAdapter) SetFromReader(reader io.Reader, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	return va.viper.ReadConfig(reader)
}

// GetBool tries to retrieve the value associated with the key as a bool.
func (va *ViperAdapter) GetBool(key string) (bool, error) {
	res, err := cast.ToBoolE(va.Get(key))
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetInt tries to retrieve the value associated with the key as an integer.
func (va *ViperAdapter) GetInt(key string) (int, error) {
	res, err := cast.ToIntE(va.Get(key))
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetFloat64 tries to retrieve the value associated with the key as a float64.
func (va *ViperAdapter) GetFloat64(key string) (float64, error) {
	res, err := cast.ToFloat64E(va.Get(key))
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetString tries to retrieve the value associated with the key as a string.
func (va *ViperAdapter) GetString(key string) (string, error) {
	res, err := cast.ToStringE(va.Get(key))
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetStringFromSet tries to retrieve the value associated with the key as a string from the specified set.
func (va *ViperAdapter) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	str, err := va.GetString(key)
	if err != nil {
		return "", err
	}
	for _, s := range set {
		if str == s || (ignoreCase && strings.EqualFold(str, s)) {
			return s, nil
		}
	}
	return "", WrapKeyErr(key, fmt.Errorf("unknown value %q, should be one of %v", str, set))
}

// GetStringSlice tries to retrieve the value associated with the key as a slice of strings.
func (va *ViperAdapter) GetStringSlice(key string) ([]string, error) {
	val := va.Get(key)
	if val == nil {
		return nil, nil
	}
	if s, ok := val.(string); ok {
		// Environment variables contain comma-separated lists.
		return splitList(s), nil
	}
	res, err := cast.ToStringSliceE(val)
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetStringMapString tries to retrieve the value associated with the key as a map of strings.
func (va *ViperAdapter) GetStringMapString(key string) (map[string]string, error) {
	val := va.Get(key)
	if val == nil {
		return map[string]string{}, nil
	}
	res, err := cast.ToStringMapStringE(val)
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetDuration tries to retrieve the value associated with the key as a duration.
func (va *ViperAdapter) GetDuration(key string) (time.Duration, error) {
	val := va.Get(key)
	if val == nil {
		return 0, nil
	}
	res, err := cast.ToDurationE(val)
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetByteSize tries to retrieve the value associated with the key as a size in bytes.
// Both integers and human-readable strings ("10M", "512Ki") are supported.
func (va *ViperAdapter) GetByteSize(key string) (ByteSize, error) {
	switch v := va.Get(key).(type) {
	case nil:
		return 0, nil
	case ByteSize:
		return v, nil
	case string:
		res, err := parseByteSize(v)
		return res, WrapKeyErrIfNeeded(key, err)
	case float32, float64:
		f := cast.ToFloat64(v)
		if f < 0 {
			return 0, WrapKeyErr(key, fmt.Errorf("negative value is not allowed: %v", f))
		}
		return ByteSize(f), nil
	default:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return 0, WrapKeyErr(key, err)
		}
		if n < 0 {
			return 0, WrapKeyErr(key, fmt.Errorf("negative value is not allowed: %d", n))
		}
		return ByteSize(n), nil
	}
}

// Unmarshal unmarshals the config into a Struct.
func (va *ViperAdapter) Unmarshal(rawVal interface{}, opts ...DecoderConfigOption) error {
	return va.viper.Unmarshal(rawVal, toViperDecoderOptions(opts)...)
}

// UnmarshalKey takes a single key and unmarshals it into a Struct.
func (va *ViperAdapter) UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error {
	return WrapKeyErrIfNeeded(key, va.viper.UnmarshalKey(key, rawVal, toViperDecoderOptions(opts)...))
}

// WrapKeyErr wraps error adding information about a key where this error occurs.
func (va *ViperAdapter) WrapKeyErr(key string, err error) error {
	return WrapKeyErr(key, err)
}

func toViperDecoderOptions(opts []DecoderConfigOption) []viper.DecoderConfigOption {
	res := make([]viper.DecoderConfigOption, len(opts))
	for i, opt := range opts {
		res[i] = viper.DecoderConfigOption(opt)
	}
	return res
}

func splitList(s string) []string {
	var res []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res
}
