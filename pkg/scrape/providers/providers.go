package providers

import (
	"context"
	"time"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
)

// Pause sleeps for the respectful inter-item delay. It is a cancellation
// suspension point: a pending cancel is observed here rather than
// mid-parse.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Send delivers one post to the feed channel, observing cancellation.
func Send(ctx context.Context, feed chan<- *types.Post, post *types.Post) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case feed <- post:
		return nil
	}
}
