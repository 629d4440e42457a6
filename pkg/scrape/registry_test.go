package scrape

import (
	"testing"
	"time"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
)

func testProviderConfig() *types.ProviderConfig {
	return &types.ProviderConfig{
		RateLimitRequests: 30,
		RateLimitWindow:   time.Minute,
		RequestDelay:      0,
		RetryAttempts:     3,
		Reddit:            types.RedditConfig{UserAgent: "driftnet-test/1.0"},
		Mastodon:          types.MastodonConfig{Server: "https://mastodon.social"},
	}
}

func TestRegistry_Initialize_DefaultAdapters(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(&logger)
	registry.Initialize(testProviderConfig())

	strategies := registry.AvailableStrategies(types.PlatformReddit)
	if len(strategies) != 2 {
		t.Fatalf("reddit strategies = %v, want web and feed", strategies)
	}
	if _, ok := registry.Adapter(types.PlatformReddit, types.StrategyWeb); !ok {
		t.Error("web adapter missing")
	}
	if _, ok := registry.Adapter(types.PlatformReddit, types.StrategyFeed); !ok {
		t.Error("feed adapter missing")
	}
	if _, ok := registry.Adapter(types.PlatformReddit, types.StrategyAPI); ok {
		t.Error("api adapter registered without EnableAPIScrapers")
	}
}

func TestRegistry_Initialize_FailedConstructionExcludesOnlyThatAdapter(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(&logger)

	// API scrapers enabled but no reddit credentials: the reddit API
	// adapter fails construction, everything else still registers.
	cfg := testProviderConfig()
	cfg.EnableAPIScrapers = true
	registry.Initialize(cfg)

	if _, ok := registry.Adapter(types.PlatformReddit, types.StrategyAPI); ok {
		t.Error("reddit api adapter registered despite missing credentials")
	}
	if _, ok := registry.Adapter(types.PlatformReddit, types.StrategyWeb); !ok {
		t.Error("web adapter should survive a sibling construction failure")
	}
	if _, ok := registry.Adapter(types.PlatformMastodon, types.StrategyAPI); !ok {
		t.Error("mastodon api adapter should register with the default server")
	}
}

func TestRegistry_Capabilities(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(&logger)
	registry.Initialize(testProviderConfig())

	caps := registry.Capabilities(types.PlatformReddit)

	web, ok := caps[types.StrategyWeb]
	if !ok {
		t.Fatal("web capabilities missing")
	}
	if web.RequiresAuth || !web.SupportsSearch || !web.SupportsComments {
		t.Errorf("web capabilities = %+v", web)
	}

	feed, ok := caps[types.StrategyFeed]
	if !ok {
		t.Fatal("feed capabilities missing")
	}
	if feed.SupportsSearch || feed.SupportsComments {
		t.Errorf("feed capabilities = %+v", feed)
	}
}

func TestRegistry_Platforms(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry(&logger)

	cfg := testProviderConfig()
	cfg.EnableAPIScrapers = true
	registry.Initialize(cfg)

	platforms := registry.Platforms()
	if len(platforms) != 2 {
		t.Fatalf("platforms = %v, want reddit and mastodon", platforms)
	}
}
