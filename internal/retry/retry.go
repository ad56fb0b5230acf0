// Package retry provides the bounded fixed-interval retry policy used for
// connection establishment to the broker and the storage sink.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// ErrConnectionExhausted is returned once the attempt budget is spent.
// It is a fatal startup condition: callers should exit non-zero so an
// orchestrator can restart or alert.
var ErrConnectionExhausted = errors.New("connection attempts exhausted")

// Policy is a bounded fixed-interval retry policy: MaxAttempts total
// attempts separated by Interval.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Do runs op until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. On exhaustion it returns ErrConnectionExhausted wrapping the
// last observed error.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	wrapped := func() error {
		if err := op(); err != nil {
			lastErr = err
			return err
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(attempts-1)),
		ctx,
	)
	if err := backoff.Retry(wrapped, b); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.Wrapf(ErrConnectionExhausted, "after %d attempts: %v", attempts, lastErr)
	}
	return nil
}
