package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds repeated extraction attempts. Total wall clock is finite:
// at most MaxAttempts calls of AttemptTimeout each, separated by backoff
// delays that start at BaseDelay, double each attempt and cap at MaxDelay.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = 30 * time.Second
	}
	return p
}

// RetryExtractor decorates another Extractor with bounded exponential-backoff
// retries. TransientError is retried up to MaxAttempts total tries;
// PermanentError fails immediately. The wrapper only makes sense around the
// live variant; the factory never wraps the mock.
type RetryExtractor struct {
	inner  Extractor
	policy RetryPolicy
	logger *slog.Logger
}

func NewRetryExtractor(inner Extractor, policy RetryPolicy, logger *slog.Logger) *RetryExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryExtractor{inner: inner, policy: policy.withDefaults(), logger: logger}
}

func (r *RetryExtractor) Extract(ctx context.Context, data []byte, contentType string) (Result, error) {
	attempts := 0

	op := func() (Result, error) {
		attempts++
		actx, cancel := context.WithTimeout(ctx, r.policy.AttemptTimeout)
		defer cancel()

		res, err := r.inner.Extract(actx, data, contentType)
		if err != nil {
			if IsPermanent(err) {
				return res, backoff.Permanent(err)
			}
			return res, err
		}
		return res, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.policy.BaseDelay
	bo.MaxInterval = r.policy.MaxDelay
	bo.Multiplier = 2

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(r.policy.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("extract.retry", "attempt", attempts, "next_delay", next, "err", err)
		}),
	)
	res.Attempts = attempts
	if err != nil {
		r.logger.Error("extract.retries_exhausted", "attempts", attempts, "err", err)
		return res, err
	}
	return res, nil
}
