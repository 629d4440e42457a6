package lib

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func TestRetryExecutor_TransientThenSuccess(t *testing.T) {
	logger := zerolog.Nop()
	exec := NewRetryExecutor(3, &logger)
	exec.base = 1 // keep the test fast

	attempts := 0
	err := exec.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("%w: connection dropped", ErrTransient)
		}
		return nil
	})

	if err != nil {
		t.Errorf("Do() error = %v, expected success on third attempt", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, expected exactly 3", attempts)
	}
}

func TestRetryExecutor_NonTransientFailsImmediately(t *testing.T) {
	logger := zerolog.Nop()
	exec := NewRetryExecutor(3, &logger)
	exec.base = 1

	businessErr := errors.New("subreddit not found")
	attempts := 0
	err := exec.Do(context.Background(), func() error {
		attempts++
		return businessErr
	})

	if !errors.Is(err, businessErr) {
		t.Errorf("Do() error = %v, expected the business error", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("non-transient failure must not be tagged as retry-exhausted")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, expected exactly 1", attempts)
	}
}

func TestRetryExecutor_ExhaustionTagsLastError(t *testing.T) {
	logger := zerolog.Nop()
	exec := NewRetryExecutor(3, &logger)
	exec.base = 1

	lastErr := fmt.Errorf("%w: gateway timeout", ErrTransient)
	attempts := 0
	err := exec.Do(context.Background(), func() error {
		attempts++
		return lastErr
	})

	if attempts != 3 {
		t.Errorf("attempts = %d, expected exactly 3", attempts)
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Do() error = %v, expected retry-exhausted tag", err)
	}
	if !errors.Is(err, ErrTransient) {
		t.Errorf("Do() error = %v, expected the last underlying error to be wrapped", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"marked transient", fmt.Errorf("%w: 503", ErrTransient), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"business error", errors.New("not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
