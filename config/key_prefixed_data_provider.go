/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"strings"
	"time"
)

// KeyPrefixedDataProvider scopes a DataProvider to the keys under a prefix,
// so a component reads "concurrencyLimit" while the file has "queue.concurrencyLimit".
// Source-level methods (UseEnvVars, SetFromFile, SetFromReader) are not scoped.
type KeyPrefixedDataProvider struct {
	DataProvider
	keyPrefix string
}

var _ DataProvider = (*KeyPrefixedDataProvider)(nil)

// NewKeyPrefixedDataProvider wraps dp.
func NewKeyPrefixedDataProvider(dp DataProvider, keyPrefix string) *KeyPrefixedDataProvider {
	return &KeyPrefixedDataProvider{DataProvider: dp, keyPrefix: keyPrefix}
}

func (kp *KeyPrefixedDataProvider) full(key string) string {
	return strings.Trim(kp.keyPrefix+"."+key, ".")
}

func (kp *KeyPrefixedDataProvider) Set(key string, value interface{}) {
	kp.DataProvider.Set(kp.full(key), value)
}

func (kp *KeyPrefixedDataProvider) SetDefault(key string, value interface{}) {
	kp.DataProvider.SetDefault(kp.full(key), value)
}

func (kp *KeyPrefixedDataProvider) Get(key string) interface{} {
	return kp.DataProvider.Get(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetBool(key string) (bool, error) {
	return kp.DataProvider.GetBool(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetInt(key string) (int, error) {
	return kp.DataProvider.GetInt(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetFloat64(key string) (float64, error) {
	return kp.DataProvider.GetFloat64(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetString(key string) (string, error) {
	return kp.DataProvider.GetString(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	return kp.DataProvider.GetStringFromSet(kp.full(key), set, ignoreCase)
}

func (kp *KeyPrefixedDataProvider) GetStringSlice(key string) ([]string, error) {
	return kp.DataProvider.GetStringSlice(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetStringMapString(key string) (map[string]string, error) {
	return kp.DataProvider.GetStringMapString(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetDuration(key string) (time.Duration, error) {
	return kp.DataProvider.GetDuration(kp.full(key))
}

func (kp *KeyPrefixedDataProvider) GetByteSize(key string) (ByteSize, error) {
	return kp.DataProvider.GetByteSize(kp.full(key))
}

// Unmarshal decodes the whole prefixed subtree.
func (kp *KeyPrefixedDataProvider) Unmarshal(rawVal interface{}, opts ...DecoderConfigOption) error {
	return kp.DataProvider.UnmarshalKey(kp.keyPrefix, rawVal, opts...)
}

func (kp *KeyPrefixedDataProvider) UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error {
	return kp.DataProvider.UnmarshalKey(kp.full(key), rawVal, opts...)
}

func (kp *KeyPrefixedDataProvider) WrapKeyErr(key string, err error) error {
	return kp.DataProvider.WrapKeyErr(kp.full(key), err)
}
