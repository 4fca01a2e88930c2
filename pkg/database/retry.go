package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// startupRetry bounds how long the service waits for a store that is still
// coming up. It only guards connection setup and migrations.
type startupRetry struct {
	attempts int
	base     time.Duration
	jitter   float64
}

var defaultStartupRetry = startupRetry{attempts: 3, base: time.Second, jitter: 0.25}

// policy is exponential from base, doubling per attempt with +/- jitter.
func (p startupRetry) policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.base
	b.RandomizationFactor = p.jitter
	b.Multiplier = 2
	b.MaxInterval = p.base << p.attempts
	return b
}

// do runs op until it succeeds, returns a non-retryable error, or the attempts
// are exhausted. A nil retryable treats every error as transient.
func (p startupRetry) do(ctx context.Context, logger *slog.Logger, what string, retryable func(error) bool, op func(context.Context) error) error {
	attempt, permanent := 0, false
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op(ctx)
		if err != nil && retryable != nil && !retryable(err) {
			permanent = true
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(p.policy()),
		backoff.WithMaxTries(uint(p.attempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if logger == nil {
				return
			}
			logger.Warn(what+" failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", p.attempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}),
	)
	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("%s: context canceled during retry: %w", what, ctx.Err())
	}
	return fmt.Errorf("%s after %d attempts: %w", what, attempt, err)
}

var connErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"connect: connection",
	"dial tcp",
	"EOF",
	"connection timed out",
	"server closed the connection unexpectedly",
	"could not connect",
}

// isConnectionError reports whether err looks like a transient network
// failure rather than a SQL or constraint error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range connErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
