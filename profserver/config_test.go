/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/config"
)

func loadConfig(t *testing.T, yamlData string, opts ...ConfigOption) (*Config, error) {
	t.Helper()
	cfg := NewConfig(opts...)
	return cfg, config.NewDefaultLoader("").LoadFromReader(strings.NewReader(yamlData), config.DataTypeYAML, cfg)
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(t, "")
	require.NoError(t, err)
	require.Equal(t, NewDefaultConfig(), cfg)
	require.False(t, cfg.Enabled)
}

func TestConfig_Values(t *testing.T) {
	cfg, err := loadConfig(t, `
debug:
  enabled: true
  address: "0.0.0.0:6060"
  blockProfileRate: 1
  mutexProfileFraction: 5
`, WithKeyPrefix("debug"))
	require.NoError(t, err)

	want := NewDefaultConfig(WithKeyPrefix("debug"))
	want.Enabled = true
	want.Address = "0.0.0.0:6060"
	want.BlockProfileRate = 1
	want.MutexProfileFraction = 5
	require.Equal(t, want, cfg)
}

func TestConfig_Errors(t *testing.T) {
	for data, wantErr := range map[string]string{
		"profServer: {enabled: true, address: ''}": "profServer.address: cannot be empty",
		"profServer: {blockProfileRate: -1}":       "profServer.blockProfileRate: cannot be negative",
		"profServer: {mutexProfileFraction: many}": "profServer.mutexProfileFraction",
	} {
		_, err := loadConfig(t, data)
		require.ErrorContains(t, err, wantErr, data)
	}
}
