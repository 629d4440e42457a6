package types

import "time"

// ProviderConfig is the process-wide adapter configuration, fixed at
// startup.
type ProviderConfig struct {
	// Rate limit applied per adapter instance: RateLimitRequests
	// acquisitions per RateLimitWindow.
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS,default=30" validate:"min=1"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,default=60s" validate:"min=1s"`

	// RequestDelay is the respectful pause between successively yielded
	// items within one stream.
	RequestDelay  time.Duration `env:"REQUEST_DELAY,default=2s" validate:"min=0"`
	RetryAttempts int           `env:"RETRY_ATTEMPTS,default=3" validate:"min=1"`

	DefaultStrategy       string `env:"DEFAULT_STRATEGY,default=web" validate:"oneof=api web feed browser alternative"`
	EnableAPIScrapers     bool   `env:"ENABLE_API_SCRAPERS,default=false"`
	EnableBrowserScrapers bool   `env:"ENABLE_BROWSER_SCRAPERS,default=false"`

	Reddit   RedditConfig
	Mastodon MastodonConfig
}

type RedditConfig struct {
	ClientID     string `env:"REDDIT_CLIENT_ID,default="`
	ClientSecret string `env:"REDDIT_CLIENT_SECRET,default="`
	UserAgent    string `env:"REDDIT_USER_AGENT,default=driftnet/1.0"`
}

type MastodonConfig struct {
	Server      string `env:"MASTODON_SERVER,default=https://mastodon.social"`
	AccessToken string `env:"MASTODON_ACCESS_TOKEN,default="`
}
