package misc

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Retry runs op until it succeeds, returns an error isRetryable rejects, or
// every delay has been spent. A cancelled ctx stops it between attempts.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func() error) error {
	next := 0
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if next >= len(delays) {
			return 0, true
		}
		d := delays[next]
		next++
		return d, false
	})
	return retry.Do(ctx, backoff, func(context.Context) error {
		err := op()
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
