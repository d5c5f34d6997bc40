// Package retry runs operations with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"prrebase.dev/prrebase/internal/config"
	prerrors "prrebase.dev/prrebase/internal/errors"
)

// Policy bounds how an operation is retried
type Policy struct {
	// MaxAttempts counts the first try; values below 1 mean a single attempt
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxWait caps a server-provided retry-after hint. A longer hint ends
	// retrying instead of stalling the run.
	MaxWait time.Duration
}

// DefaultMaxWait is the longest retry-after hint that is honored
const DefaultMaxWait = 60 * time.Second

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return FromSettings((&config.RepoConfig{}).RetrySettings())
}

// FromSettings builds a policy from configured retry settings
func FromSettings(s config.RetrySettings) Policy {
	return Policy{
		MaxAttempts:     s.MaxAttempts,
		InitialInterval: s.InitialInterval,
		MaxInterval:     s.MaxInterval,
		MaxWait:         DefaultMaxWait,
	}
}

// Notify is called before each wait with the error that triggered it
type Notify func(err error, attempt int, wait time.Duration)

// Predicate decides whether an error is worth another attempt
type Predicate func(error) bool

// Retryable retries every retryable kind
func Retryable(err error) bool {
	return prerrors.IsRetryable(err)
}

// RateLimitedOnly retries throttling but not transfer failures
func RateLimitedOnly(err error) bool {
	return prerrors.KindOf(err) == prerrors.KindRateLimited
}

// Do runs op until it succeeds, fails with an error shouldRetry rejects,
// the policy is exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, shouldRetry Predicate, notify Notify, op func(context.Context) error) error {
	_, err := DoValue(ctx, p, shouldRetry, notify, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value
func DoValue[T any](ctx context.Context, p Policy, shouldRetry Predicate, notify Notify, op func(context.Context) (T, error)) (T, error) {
	hinted := newHintedBackOff(p)
	b := backoff.WithContext(hinted, ctx)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || shouldRetry == nil || !shouldRetry(err) {
			return v, backoff.Permanent(err)
		}
		hinted.hint = prerrors.RetryAfter(err)
		return v, err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) {
			notify(err, attempt, wait)
		}
	}

	return backoff.RetryNotifyWithData(operation, b, onRetry)
}

// hintedBackOff stretches waits to honor retry-after hints
type hintedBackOff struct {
	backoff.BackOff
	maxWait time.Duration
	hint    time.Duration
}

func newHintedBackOff(p Policy) *hintedBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &hintedBackOff{
		BackOff: backoff.WithMaxRetries(exp, uint64(attempts-1)),
		maxWait: p.MaxWait,
	}
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	next := h.BackOff.NextBackOff()
	hint := h.hint
	h.hint = 0
	if next == backoff.Stop {
		return backoff.Stop
	}
	if hint > 0 {
		if h.maxWait > 0 && hint > h.maxWait {
			return backoff.Stop
		}
		if hint > next {
			next = hint
		}
	}
	return next
}
