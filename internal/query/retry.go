package query

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang/glog"
)

// retryable is implemented by errors that know whether repeating the call
// can help, such as *api.Error.
type retryable interface {
	Retryable() bool
}

func isRetryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}

// newBackOff yields min(RetryDelay * 2^attempt, MaxRetryDelay) with no jitter.
func newBackOff(opts Options) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.RetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = opts.MaxRetryDelay
	b.Reset()
	return b
}

func (c *Cache) fetchWithRetry(ctx context.Context, key Key, fetch Fetcher, opts Options) (any, error) {
	attempt := 0
	op := func() (any, error) {
		attempt++
		data, err := fetch(ctx)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil || !isRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.retry()
		glog.Warningf("[query] fetch %s attempt %d failed, retrying in %s: %v", key, attempt, wait, err)
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(newBackOff(opts)),
		backoff.WithMaxTries(uint(opts.Retry+1)),
		backoff.WithNotify(notify),
	)
}
