package types

import "fmt"

// Strategy is one acquisition method for a platform.
type Strategy string

const (
	StrategyAPI         Strategy = "api"
	StrategyWeb         Strategy = "web"
	StrategyFeed        Strategy = "feed"
	StrategyBrowser     Strategy = "browser"
	StrategyAlternative Strategy = "alternative"
)

// DefaultFallbackOrder is the fixed try-order when no preferred strategy
// is given. The unauthenticated methods come first: the official API
// correlates with the strictest rate limits, so it is the last resort.
var DefaultFallbackOrder = []Strategy{StrategyWeb, StrategyFeed, StrategyAPI}

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyAPI, StrategyWeb, StrategyFeed, StrategyBrowser, StrategyAlternative:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformReddit, PlatformMastodon:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Capabilities is the static descriptor declared by an adapter at
// construction time. The orchestrator filters on it instead of probing
// adapter behavior at call time.
type Capabilities struct {
	RequiresAuth     bool `json:"requires_auth"`
	SupportsSearch   bool `json:"supports_search"`
	SupportsComments bool `json:"supports_comments"`
}
