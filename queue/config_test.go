/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/config"
)

func TestConfig(t *testing.T) {
	load := func(cfg *Config, yamlData string) error {
		return config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg)
	}

	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, load(cfg, ""))
		require.Equal(t, NewDefaultConfig(), cfg)
		require.Equal(t, DefaultConcurrencyLimit, cfg.ConcurrencyLimit)
		require.EqualValues(t, DefaultMaxResponseBodySize, cfg.MaxResponseBodySize)
		require.Equal(t, config.TimeDuration(DefaultStatsInterval), cfg.StatsInterval)
	})

	t.Run("custom key prefix", func(t *testing.T) {
		cfg := NewConfig(WithKeyPrefix("scheduler"))
		require.NoError(t, load(cfg, `
scheduler:
  concurrencyLimit: 8
  maxResponseBodySize: 512K
  statsInterval: 0s
`))
		require.Equal(t, "scheduler", cfg.KeyPrefix())
		require.Equal(t, 8, cfg.ConcurrencyLimit)
		require.EqualValues(t, 512*1024, cfg.MaxResponseBodySize)
		require.Equal(t, config.TimeDuration(0), cfg.StatsInterval)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			yaml    string
			wantErr string
		}{
			{name: "zero limit", yaml: "queue:\n  concurrencyLimit: 0\n", wantErr: "queue.concurrencyLimit: must be positive, got 0"},
			{name: "non-numeric limit", yaml: "queue:\n  concurrencyLimit: many\n", wantErr: "queue.concurrencyLimit"},
			{name: "bad body size", yaml: "queue:\n  maxResponseBodySize: lots\n", wantErr: "queue.maxResponseBodySize"},
			{name: "negative stats interval", yaml: "queue:\n  statsInterval: -1s\n", wantErr: "queue.statsInterval: must not be negative"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.ErrorContains(t, load(NewConfig(), tt.yaml), tt.wantErr)
			})
		}
	})

	t.Run("stats interval is a duration", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, load(cfg, "queue:\n  statsInterval: 1m30s\n"))
		require.Equal(t, 90*time.Second, time.Duration(cfg.StatsInterval))
	})
}
