/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/config"
	"github.com/acronis/go-apiconsole/internal/ratelimit"
)

func loadConfig(t *testing.T, cfg *Config, yamlData string) error {
	t.Helper()
	return config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg)
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, loadConfig(t, cfg, ""))
		require.Equal(t, NewDefaultConfig(), cfg)
		require.Equal(t, ":8080", cfg.Address)
	})

	t.Run("custom key prefix and default address", func(t *testing.T) {
		cfg := NewConfig(WithKeyPrefix("relay"), WithDefaultAddress(":3000"))
		require.NoError(t, loadConfig(t, cfg, "relay:\n  timeouts:\n    shutdown: 1s\n"))
		require.Equal(t, "relay", cfg.KeyPrefix())
		require.Equal(t, ":3000", cfg.Address)
		require.Equal(t, config.TimeDuration(time.Second), cfg.Timeouts.Shutdown)
		require.Equal(t, NewDefaultConfig(WithDefaultAddress(":3000")).Address, cfg.Address)
	})

	t.Run("all options", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, loadConfig(t, cfg, `
server:
  address: "127.0.0.1:9090"
  timeouts:
    write: 1h
    read: 7m
    readHeader: 1m
    idle: 20m
    shutdown: 30s
  limits:
    maxBodySize: 2M
  log:
    requestStart: true
    excludedEndpoints: [/healthz, /metrics]
    secretQueryParams: [token]
    slowRequestThreshold: 2s
  rateLimit:
    enabled: true
    alg: Sliding_Window
    count: 5
    period: 1m
    burst: 2
    maxKeys: 100
`))
		require.Equal(t, "127.0.0.1:9090", cfg.Address)
		require.Equal(t, TimeoutsConfig{
			Write:      config.TimeDuration(time.Hour),
			Read:       config.TimeDuration(7 * time.Minute),
			ReadHeader: config.TimeDuration(time.Minute),
			Idle:       config.TimeDuration(20 * time.Minute),
			Shutdown:   config.TimeDuration(30 * time.Second),
		}, cfg.Timeouts)
		require.Equal(t, config.ByteSize(2*1024*1024), cfg.Limits.MaxBodySizeBytes)
		require.Equal(t, LogConfig{
			RequestStart:         true,
			ExcludedEndpoints:    []string{"/healthz", "/metrics"},
			SecretQueryParams:    []string{"token"},
			SlowRequestThreshold: config.TimeDuration(2 * time.Second),
		}, cfg.Log)
		require.Equal(t, RateLimitConfig{
			Enabled: true,
			Alg:     ratelimit.AlgSlidingWindow,
			Count:   5,
			Period:  config.TimeDuration(time.Minute),
			Burst:   2,
			MaxKeys: 100,
		}, cfg.RateLimit)
		require.Equal(t, ratelimit.Rate{Count: 5, Duration: time.Minute}, cfg.RateLimit.Rate())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			cfgData string
			wantErr string
		}{
			{"empty address", "server:\n  address: \"\"\n", "server.address: cannot be empty"},
			{"bad duration", "server:\n  timeouts:\n    write: abc\n", "server.timeouts.write"},
			{"bad body size", "server:\n  limits:\n    maxBodySize: lots\n", "server.limits.maxBodySize"},
			{"unknown alg", "server:\n  rateLimit:\n    alg: token_bucket\n", `server.rateLimit.alg: unknown value "token_bucket"`},
			{"zero count", "server:\n  rateLimit:\n    count: 0\n", "server.rateLimit.count: must be positive"},
			{"zero period", "server:\n  rateLimit:\n    period: 0s\n", "server.rateLimit.period: must be positive"},
			{"negative burst", "server:\n  rateLimit:\n    burst: -1\n", "server.rateLimit.burst: cannot be negative"},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				require.ErrorContains(t, loadConfig(t, NewConfig(), tt.cfgData), tt.wantErr)
			})
		}
	})
}
