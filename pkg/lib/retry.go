package lib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrTransient marks an error as eligible for retry. Helpers that can
// recognize retryable conditions (5xx responses, timeouts) wrap it.
var ErrTransient = errors.New("transient failure")

// ErrRetryExhausted tags the last transient error once the attempt cap is
// reached.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 500 * time.Millisecond
	defaultRetryMax      = 10 * time.Second
)

// RetryExecutor wraps fallible operations with bounded retries and
// exponential backoff on transient failures. Non-transient failures
// propagate immediately.
type RetryExecutor struct {
	attempts int
	base     time.Duration
	max      time.Duration
	logger   *zerolog.Logger
}

func NewRetryExecutor(attempts int, logger *zerolog.Logger) *RetryExecutor {
	if attempts < 1 {
		attempts = defaultRetryAttempts
	}
	return &RetryExecutor{
		attempts: attempts,
		base:     defaultRetryBase,
		max:      defaultRetryMax,
		logger:   logger,
	}
}

// Do invokes op, retrying transient failures up to the attempt cap.
// Backoff intervals are randomized by the underlying implementation.
func (e *RetryExecutor) Do(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.base
	bo.MaxInterval = e.max

	var lastErr error
	permanent := false
	attempt := 0

	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			permanent = true
			return backoff.Permanent(err)
		}

		e.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Msg("Transient failure, backing off")
		return err
	}

	err := backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.attempts-1)), ctx))
	if err == nil {
		return nil
	}

	if permanent {
		return lastErr
	}
	if ctx.Err() != nil && !errors.Is(lastErr, ctx.Err()) {
		return ctx.Err()
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, lastErr)
}

// IsTransient classifies network/timeout-class errors as retryable.
// Business errors (not found, auth failure, malformed payloads) are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Connection-level failures surface as *url.Error from http.Client.
		return true
	}

	return false
}
