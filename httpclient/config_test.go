/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/config"
	"github.com/acronis/go-apiconsole/retry"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg))

		expected := NewDefaultConfig()
		expected.Retries.Enabled = false
		require.Equal(t, expected, cfg)
	})

	t.Run("all options", func(t *testing.T) {
		yamlData := `
client:
  timeout: 5s
  userAgent: console-test
  retries:
    enabled: true
    maxAttempts: 5
    policy:
      strategy: Constant
      constantBackoffInterval: 200ms
  rateLimits:
    enabled: true
    limit: 10
    burst: 20
    waitTimeout: 3s
  logger:
    enabled: true
    mode: failed
    slowRequestThreshold: 1s
  metrics:
    enabled: false
  relay:
    enabled: true
    baseURL: http://localhost:3000
`
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg))

		require.Equal(t, 5*time.Second, cfg.Timeout)
		require.Equal(t, "console-test", cfg.UserAgent)
		require.Equal(t, RetriesConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Policy:      PolicyConfig{Strategy: RetryPolicyConstant, ConstantBackoffInterval: 200 * time.Millisecond},
		}, cfg.Retries)
		require.Equal(t, RateLimitConfig{Enabled: true, Limit: 10, Burst: 20, WaitTimeout: 3 * time.Second}, cfg.RateLimits)
		require.Equal(t, LoggerConfig{Enabled: true, Mode: LoggingModeFailed, SlowRequestThreshold: time.Second}, cfg.Logger)
		require.False(t, cfg.Metrics.Enabled)
		require.Equal(t, RelayConfig{Enabled: true, BaseURL: "http://localhost:3000", PathPrefix: "/api"}, cfg.Relay)
		require.Equal(t, retry.NewConstantBackoffPolicy(200*time.Millisecond, 0), cfg.Retries.BackoffPolicy())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name       string
			yamlData   string
			wantErrMsg string
		}{
			{
				name:       "negative timeout",
				yamlData:   "client:\n  timeout: -1s",
				wantErrMsg: "client.timeout: must not be negative",
			},
			{
				name:       "unknown retry strategy",
				yamlData:   "client:\n  retries:\n    enabled: true\n    policy:\n      strategy: linear",
				wantErrMsg: "client.retries.policy.strategy: unknown value \"linear\"",
			},
			{
				name:       "zero rate limit",
				yamlData:   "client:\n  rateLimits:\n    enabled: true\n    limit: 0",
				wantErrMsg: "client.rateLimits.limit: must be positive, got 0",
			},
			{
				name:       "relay base URL is not absolute",
				yamlData:   "client:\n  relay:\n    enabled: true\n    baseURL: localhost",
				wantErrMsg: "client.relay.baseURL: must be an absolute URL, got \"localhost\"",
			},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				cfg := NewConfig()
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.yamlData), config.DataTypeYAML, cfg)
				require.ErrorContains(t, err, tt.wantErrMsg)
			})
		}
	})
}
