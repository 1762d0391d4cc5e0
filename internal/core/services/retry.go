package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Backoff policy for rate-limited remote calls.
const (
	maxAttempts = 5
	backoffStep = 2 * time.Second
)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withBackoff calls fn until it succeeds, fails with something other than a
// rate limit, or has been attempted maxAttempts times. After a rate limit on
// attempt n it waits RetryAfter + n*backoffStep.
func withBackoff[T any](ctx context.Context, sleep sleepFunc, what string, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		var rl *domain.RateLimitError
		if !errors.As(err, &rl) {
			return zero, err
		}
		if attempt >= maxAttempts {
			return zero, fmt.Errorf("%s: giving up after %d attempts: %w", what, attempt, err)
		}
		delay := rl.RetryAfter + time.Duration(attempt)*backoffStep
		logger.Warn("%s rate limited (attempt %d/%d), retrying in %s", what, attempt, maxAttempts, delay)
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}
