package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

var (
	// ErrRateLimit indicates that the remote side asked us to slow down.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions is the backoff policy for outbound calls. Zero fields take
// the defaults of three attempts starting at 100ms, doubling up to 30s.
type RetryOptions struct {
	Logger       *slog.Logger
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}

// RetryableError tells WithRetry how to treat a failure. Errors of any other
// type are retried with the normal backoff.
type RetryableError struct {
	Err        error
	Retryable  bool
	RetryAfter time.Duration // wait requested by the server, zero if none
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &RetryableError{Err: err}
}

// Transient marks err as retryable, optionally after a server-requested wait.
func Transient(err error, retryAfter time.Duration) error {
	return &RetryableError{Err: err, Retryable: true, RetryAfter: retryAfter}
}

// WithRetry runs operation until it succeeds, returns a permanent error, the
// context ends or opts.MaxAttempts is reached.
func WithRetry(ctx context.Context, operation func(ctx context.Context) error, opts RetryOptions) error {
	opts = opts.withDefaults()

	var err error
	for attempt := 1; ; attempt++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}

		var retryable *RetryableError
		if errors.As(err, &retryable) && !retryable.Retryable {
			return err
		}
		if attempt >= opts.MaxAttempts {
			break
		}

		wait := nextDelay(opts, attempt, err)
		opts.Logger.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
}

// nextDelay is the wait after the given failed attempt. A server-requested
// wait wins over the exponential schedule; a rate limit without one waits
// the maximum. Every wait is capped at MaxDelay.
func nextDelay(opts RetryOptions, attempt int, err error) time.Duration {
	var retryable *RetryableError
	switch {
	case errors.As(err, &retryable) && retryable.RetryAfter > 0:
		return min(retryable.RetryAfter, opts.MaxDelay)
	case errors.Is(err, ErrRateLimit):
		return opts.MaxDelay
	}

	backoff := float64(opts.InitialDelay) * math.Pow(opts.Multiplier, float64(attempt-1))
	if backoff >= float64(opts.MaxDelay) {
		return opts.MaxDelay
	}
	return time.Duration(backoff)
}
