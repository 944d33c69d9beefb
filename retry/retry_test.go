/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTemporary = errors.New("temporary")

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name         string
		policy       Policy
		failures     int
		isRetryable  IsRetryable
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "succeeds after retries",
			policy:       NewConstantBackoffPolicy(time.Millisecond, 5),
			failures:     3,
			wantAttempts: 4,
		},
		{
			name:         "gives up after max attempts",
			policy:       NewExponentialBackoffPolicy(time.Millisecond, 2),
			failures:     10,
			wantErr:      errTemporary,
			wantAttempts: 3,
		},
		{
			name:         "non-retryable error",
			policy:       NewConstantBackoffPolicy(time.Millisecond, 5),
			failures:     10,
			isRetryable:  func(err error) bool { return false },
			wantErr:      errTemporary,
			wantAttempts: 1,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			notified := 0
			err := DoWithRetry(context.Background(), tt.policy, tt.isRetryable,
				func(error, time.Duration) { notified++ },
				func(ctx context.Context) error {
					attempts++
					if attempts <= tt.failures {
						return errTemporary
					}
					return nil
				})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantAttempts, attempts)
			require.Equal(t, tt.wantAttempts-1, notified)
		})
	}
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := DoWithRetry(ctx, NewConstantBackoffPolicy(time.Hour, 0), nil, nil, func(ctx context.Context) error {
		attempts++
		cancel()
		return errTemporary
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
