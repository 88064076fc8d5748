package service

import (
	"context"
	"errors"
	"time"

	"umkm-inventory/internal/repository"

	"go.uber.org/zap"
)

// RetryPolicy bounds how long a transactional operation may keep losing races.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration // covers every attempt together
	Backoff     time.Duration // grows linearly per failed attempt
}

// DefaultRetryPolicy matches the configuration defaults.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, Timeout: 10 * time.Second, Backoff: 25 * time.Millisecond}

// runWithRetry reruns attempt from scratch while it fails with repository.ErrConflict.
// Errors already classified by this package pass through; anything else becomes a StoreError.
func runWithRetry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, attempt func(ctx context.Context) error) error {
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for n := 1; ; n++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return classify(op, err)
		}
		if n >= maxAttempts {
			return &ConflictError{Attempts: n, Err: err}
		}

		logger.Warn("transaction conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", n),
			zap.Error(err),
		)

		timer := time.NewTimer(policy.Backoff * time.Duration(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return &StoreError{Op: op, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

func classify(op string, err error) error {
	var f faulter
	if errors.As(err, &f) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
