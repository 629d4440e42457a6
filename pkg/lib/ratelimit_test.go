package lib

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_BoundsThroughputUnderLoad(t *testing.T) {
	// 2 requests per second; 6 concurrent callers. The first 2 pass
	// immediately, the remaining 4 refill at 2/s, so the whole batch
	// takes at least ~1.5s.
	limiter := NewRateLimiter(2, time.Second)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(ctx); err != nil {
				t.Errorf("Acquire() error = %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	if elapsed < 1400*time.Millisecond {
		t.Errorf("6 acquisitions at 2/s finished in %v, expected at least ~1.5s", elapsed)
	}
}

func TestRateLimiter_FirstBurstIsImmediate(t *testing.T) {
	limiter := NewRateLimiter(3, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("initial burst took %v, expected no wait", elapsed)
	}
}

func TestRateLimiter_AcquireObservesCancellation(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the bucket, then cancel while the second caller waits.
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- limiter.Acquire(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error from cancelled Acquire, got nil")
		}
	case <-time.After(time.Second):
		t.Error("cancelled Acquire did not return")
	}
}
