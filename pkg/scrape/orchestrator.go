package scrape

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// feedBuffer smooths the producer/consumer handoff without letting a slow
// consumer pile up unbounded memory.
const feedBuffer = 16

// Result is a completed acquisition: the posts and the strategy that
// produced them. Callers use Strategy to route follow-up requests, e.g.
// comment expansion, through the same adapter that won.
type Result struct {
	Posts    []*types.Post
	Strategy types.Strategy
}

// Orchestrator walks the fallback chain for a platform until one strategy
// yields posts. An attempt that errors or comes back empty is abandoned
// whole; partial output from a failed strategy is never mixed into the
// next attempt's result.
type Orchestrator struct {
	registry *Registry
	logger   *zerolog.Logger
}

func NewOrchestrator(registry *Registry, logger *zerolog.Logger) *Orchestrator {
	l := logger.With().Str("component", "orchestrator").Logger()
	return &Orchestrator{registry: registry, logger: &l}
}

// ScrapeWithFallback fetches posts for a target, trying the preferred
// strategy first (when given and registered), then the default order
// web, feed, api. The first strategy to return at least one post wins.
func (o *Orchestrator) ScrapeWithFallback(ctx context.Context, platform types.Platform, target string, maxPosts int, opts types.ScrapeOptions, preferred types.Strategy) (*Result, error) {
	return o.runFallback(ctx, platform, preferred, nil, func(adapter types.Adapter, feed chan<- *types.Post) error {
		return adapter.ScrapePosts(ctx, target, maxPosts, opts, feed)
	})
}

// ScrapeSearchWithFallback is ScrapeWithFallback for keyword search. The
// candidate set is additionally filtered to adapters that support search;
// an empty filtered set yields ErrNoSearchAdapters.
func (o *Orchestrator) ScrapeSearchWithFallback(ctx context.Context, platform types.Platform, query string, maxPosts int, opts types.ScrapeOptions, preferred types.Strategy) (*Result, error) {
	supportsSearch := func(c types.Capabilities) bool { return c.SupportsSearch }

	return o.runFallback(ctx, platform, preferred, supportsSearch, func(adapter types.Adapter, feed chan<- *types.Post) error {
		return adapter.ScrapeSearch(ctx, query, maxPosts, opts, feed)
	})
}

// ScrapeComments drains the comment tree of a post through one specific
// strategy, the one that produced the post. Adapters without comment
// support yield an empty slice, not an error.
func (o *Orchestrator) ScrapeComments(ctx context.Context, platform types.Platform, strategy types.Strategy, postID string, maxComments int) ([]*types.Post, error) {
	adapter, ok := o.registry.Adapter(platform, strategy)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoAdapters, platform, strategy)
	}
	if !adapter.Capabilities().SupportsComments {
		return nil, nil
	}

	return collect(func(feed chan<- *types.Post) error {
		return adapter.ScrapeComments(ctx, postID, maxComments, feed)
	})
}

// HealthCheck probes every registered adapter concurrently and reports
// per-strategy availability for the platform.
func (o *Orchestrator) HealthCheck(ctx context.Context, platform types.Platform) map[types.Strategy]bool {
	strategies := o.registry.AvailableStrategies(platform)

	var mu sync.Mutex
	out := make(map[types.Strategy]bool, len(strategies))

	g, ctx := errgroup.WithContext(ctx)
	for _, strategy := range strategies {
		adapter, ok := o.registry.Adapter(platform, strategy)
		if !ok {
			continue
		}
		g.Go(func() error {
			healthy := adapter.HealthCheck(ctx)
			mu.Lock()
			out[strategy] = healthy
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (o *Orchestrator) runFallback(ctx context.Context, platform types.Platform, preferred types.Strategy, filter func(types.Capabilities) bool, run func(types.Adapter, chan<- *types.Post) error) (*Result, error) {
	if len(o.registry.AvailableStrategies(platform)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapters, platform)
	}

	candidates := o.tryOrder(platform, preferred, filter)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSearchAdapters, platform)
	}

	var lastErr error
	tried := make([]types.Strategy, 0, len(candidates))

	for _, strategy := range candidates {
		adapter, _ := o.registry.Adapter(platform, strategy)
		tried = append(tried, strategy)

		attemptLogger := o.logger.With().
			Str("platform", string(platform)).
			Str("strategy", string(strategy)).
			Logger()

		posts, err := collect(func(feed chan<- *types.Post) error {
			return run(adapter, feed)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			attemptLogger.Warn().Err(err).Msg("Strategy failed, falling back")
			lastErr = err
			continue
		}
		if len(posts) == 0 {
			attemptLogger.Debug().Msg("Strategy returned no posts, falling back")
			continue
		}

		attemptLogger.Info().Int("count", len(posts)).Msg("Strategy succeeded")
		return &Result{Posts: posts, Strategy: strategy}, nil
	}

	return nil, &AllStrategiesFailedError{Platform: platform, Tried: tried, LastErr: lastErr}
}

// tryOrder builds the candidate strategy list: the preferred strategy
// first when registered, then the default fallback order, deduplicated
// and filtered to registered adapters (and the capability filter, when
// given).
func (o *Orchestrator) tryOrder(platform types.Platform, preferred types.Strategy, filter func(types.Capabilities) bool) []types.Strategy {
	order := make([]types.Strategy, 0, len(types.DefaultFallbackOrder)+1)
	if preferred != "" {
		order = append(order, preferred)
	}
	for _, strategy := range types.DefaultFallbackOrder {
		if strategy != preferred {
			order = append(order, strategy)
		}
	}

	candidates := make([]types.Strategy, 0, len(order))
	for _, strategy := range order {
		adapter, ok := o.registry.Adapter(platform, strategy)
		if !ok {
			continue
		}
		if filter != nil && !filter(adapter.Capabilities()) {
			continue
		}
		candidates = append(candidates, strategy)
	}
	return candidates
}

// collect drains one adapter call into a slice. The producer goroutine
// owns the channel close; the error is read only after the channel is
// fully drained so no send can block forever.
func collect(run func(chan<- *types.Post) error) ([]*types.Post, error) {
	feed := make(chan *types.Post, feedBuffer)
	errCh := make(chan error, 1)

	go func() {
		errCh <- run(feed)
		close(feed)
	}()

	var posts []*types.Post
	for post := range feed {
		posts = append(posts, post)
	}

	if err := <-errCh; err != nil {
		return nil, err
	}
	return posts, nil
}
