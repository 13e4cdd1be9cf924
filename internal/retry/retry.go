// Package retry implements a small explicit retry loop used by the LLM and
// literature clients, in place of a decorator-based retry wrapper: callers
// build a Policy and call Do, rather than annotating a function.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/mkhale/researchctl/internal/errs"
)

// Policy bounds a retry loop: at most MaxAttempts total tries, delays grow
// exponentially from BaseDelay up to MaxDelay, and only errors matching one
// of RetryOn are retried — everything else returns immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	RetryOn     []error
}

// DefaultPolicy retries only Transport errors, up to 3 attempts total.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		RetryOn:     []error{errs.Transport},
	}
}

func (p Policy) retryable(err error) bool {
	for _, k := range p.RetryOn {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4 + 1))
	return d - jitter/2 + jitter
}

// Do runs fn up to p.MaxAttempts times, sleeping between attempts for
// retryable errors only. It returns as soon as fn succeeds, as soon as fn
// returns a non-retryable error, or once attempts are exhausted.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
	return errs.Wrap(errs.ProviderUnavailable, lastErr)
}
