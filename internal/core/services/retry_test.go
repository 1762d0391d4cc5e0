package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

func TestWithBackoff_SucceedsAfterRateLimits(t *testing.T) {
	sleeper := &noSleep{}
	attempts := 0

	v, err := withBackoff(context.Background(), sleeper.sleep, "op", func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", &domain.RateLimitError{RetryAfter: 5 * time.Second}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{7 * time.Second, 9 * time.Second}, sleeper.delays)
}

func TestWithBackoff_GivesUpAfterFiveAttempts(t *testing.T) {
	sleeper := &noSleep{}
	attempts := 0

	_, err := withBackoff(context.Background(), sleeper.sleep, "op", func() (int, error) {
		attempts++
		return 0, &domain.RateLimitError{RetryAfter: time.Second}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "giving up after 5 attempts")
	assert.Equal(t, 5, attempts)
	assert.Len(t, sleeper.delays, 4)
}

func TestWithBackoff_OtherErrorsAreNotRetried(t *testing.T) {
	sleeper := &noSleep{}
	attempts := 0
	boom := errors.New("boom")

	_, err := withBackoff(context.Background(), sleeper.sleep, "op", func() (int, error) {
		attempts++
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, sleeper.delays)
}

func TestWithBackoff_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0

	_, err := withBackoff(ctx, sleepContext, "op", func() (int, error) {
		attempts++
		return 0, &domain.RateLimitError{RetryAfter: time.Hour}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
