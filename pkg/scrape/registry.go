package scrape

import (
	"sort"

	"github.com/driftnetio/driftnet/pkg/scrape/providers/mastodon"
	"github.com/driftnetio/driftnet/pkg/scrape/providers/reddit"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
)

// Registry holds the adapters that constructed successfully, keyed by
// platform and strategy. A constructor failure excludes that one adapter
// and nothing else; the rest of the platform keeps working.
type Registry struct {
	adapters map[types.Platform]map[types.Strategy]types.Adapter
	logger   *zerolog.Logger
}

func NewRegistry(logger *zerolog.Logger) *Registry {
	l := logger.With().Str("component", "registry").Logger()
	return &Registry{
		adapters: make(map[types.Platform]map[types.Strategy]types.Adapter),
		logger:   &l,
	}
}

type adapterConstructor func(*zerolog.Logger, *types.ProviderConfig) (types.Adapter, error)

// Initialize constructs every enabled adapter. Always the reddit web and
// feed adapters; the credentialed API adapters only when EnableAPIScrapers
// is set.
func (r *Registry) Initialize(cfg *types.ProviderConfig) {
	constructors := []adapterConstructor{
		func(l *zerolog.Logger, c *types.ProviderConfig) (types.Adapter, error) {
			return reddit.NewWebAdapter(l, c)
		},
		func(l *zerolog.Logger, c *types.ProviderConfig) (types.Adapter, error) {
			return reddit.NewFeedAdapter(l, c)
		},
	}

	if cfg.EnableAPIScrapers {
		constructors = append(constructors,
			func(l *zerolog.Logger, c *types.ProviderConfig) (types.Adapter, error) {
				return reddit.NewAPIAdapter(l, c)
			},
			func(l *zerolog.Logger, c *types.ProviderConfig) (types.Adapter, error) {
				return mastodon.NewAPIAdapter(l, c)
			},
		)
	}

	for _, construct := range constructors {
		adapter, err := construct(r.logger, cfg)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Adapter construction failed, skipping")
			continue
		}
		r.Register(adapter)
	}
}

func (r *Registry) Register(adapter types.Adapter) {
	platform := adapter.Platform()
	if r.adapters[platform] == nil {
		r.adapters[platform] = make(map[types.Strategy]types.Adapter)
	}
	r.adapters[platform][adapter.Strategy()] = adapter

	r.logger.Info().
		Str("platform", string(platform)).
		Str("strategy", string(adapter.Strategy())).
		Msg("Registered adapter")
}

// Adapter returns the adapter for the given platform and strategy, or
// false when none is registered.
func (r *Registry) Adapter(platform types.Platform, strategy types.Strategy) (types.Adapter, bool) {
	adapter, ok := r.adapters[platform][strategy]
	return adapter, ok
}

// AvailableStrategies lists the registered strategies for a platform in a
// stable order.
func (r *Registry) AvailableStrategies(platform types.Platform) []types.Strategy {
	strategies := make([]types.Strategy, 0, len(r.adapters[platform]))
	for strategy := range r.adapters[platform] {
		strategies = append(strategies, strategy)
	}
	sort.Slice(strategies, func(i, j int) bool { return strategies[i] < strategies[j] })
	return strategies
}

// Platforms lists every platform with at least one registered adapter.
func (r *Registry) Platforms() []types.Platform {
	platforms := make([]types.Platform, 0, len(r.adapters))
	for platform := range r.adapters {
		platforms = append(platforms, platform)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}

// Capabilities reports the capability descriptor of every registered
// adapter for a platform, keyed by strategy.
func (r *Registry) Capabilities(platform types.Platform) map[types.Strategy]types.Capabilities {
	out := make(map[types.Strategy]types.Capabilities, len(r.adapters[platform]))
	for strategy, adapter := range r.adapters[platform] {
		out[strategy] = adapter.Capabilities()
	}
	return out
}
