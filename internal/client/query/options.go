package query

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Options is the per-operation retry and refetch policy.
type Options struct {
	// Retry is the number of extra attempts after a failure.
	Retry int
	// RetryDelay is the constant pause between attempts.
	RetryDelay time.Duration
	// RefetchOnFocus and RefetchOnMount are carried for the presentation
	// layer. The cache itself never refetches on its own.
	RefetchOnFocus bool
	RefetchOnMount bool
}

var (
	// DefaultOptions is used by every query: fail fast, refresh only on
	// invalidation or an explicit refetch.
	DefaultOptions = Options{}
	// UpdateOptions is used by mutations that patch user, team or
	// challenge state: one retry after one second.
	UpdateOptions = Options{Retry: 1, RetryDelay: time.Second}
)

// do runs op, repeating it up to o.Retry times while the failure is
// retryable.
func (o Options) do(ctx context.Context, op func(context.Context) error) error {
	if o.Retry <= 0 {
		return op(ctx)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.RetryDelay), uint64(o.Retry)),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op(ctx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// retryable trusts errors that classify themselves (network failures and
// 5xx responses do, 4xx do not) and never retries a cancelled context.
func retryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
