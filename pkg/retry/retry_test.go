package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:    maxRetries,
		BackoffFactor: 2.0,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		Jitter:        time.Millisecond,
	}
}

func TestRetry_Do(t *testing.T) {
	errTemporary := errors.New("temporary error")
	errFatal := errors.New("bad request")

	tests := []struct {
		name         string
		maxRetries   int
		failures     int
		failWith     error
		permanent    bool
		wantErr      error
		wantAttempts int
	}{
		{name: "success_first_try", maxRetries: 3, wantAttempts: 1},
		{name: "success_after_retries", maxRetries: 3, failures: 2, failWith: errTemporary, wantAttempts: 3},
		{name: "max_retries_exceeded", maxRetries: 2, failures: 10, failWith: errTemporary, wantErr: errTemporary, wantAttempts: 3},
		{name: "permanent_stops_early", maxRetries: 5, failures: 10, failWith: errFatal, permanent: true, wantErr: errFatal, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			op := func(ctx context.Context) error {
				attempts++
				if attempts <= tt.failures {
					if tt.permanent {
						return Permanent(tt.failWith)
					}
					return tt.failWith
				}
				return nil
			}

			err := NewRetrier(fastConfig(tt.maxRetries)).Do(context.Background(), op)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.False(t, IsPermanent(err), "permanent wrapper should be stripped")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewRetrier(&Config{MaxRetries: 3, BackoffFactor: 1, InitialDelay: time.Second, MaxDelay: time.Second})

	err := retrier.Do(ctx, func(ctx context.Context) error {
		cancel()
		return errors.New("operation error after cancel")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(errors.New("x"))))
}
