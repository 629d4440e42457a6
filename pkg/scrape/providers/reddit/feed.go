package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/driftnetio/driftnet/pkg/lib"
	"github.com/driftnetio/driftnet/pkg/scrape/providers"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
)

var postIDFromPermalink = regexp.MustCompile(`/comments/([a-zA-Z0-9]+)/`)

// FeedAdapter reads subreddit and user RSS feeds. Feeds expose neither
// search nor comment threads, but they keep working when both the API and
// the JSON endpoints are blocked.
type FeedAdapter struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	parser     *gofeed.Parser
	limiter    *lib.RateLimiter
	retry      *lib.RetryExecutor
	delay      time.Duration
	logger     *zerolog.Logger
}

func NewFeedAdapter(logger *zerolog.Logger, cfg *types.ProviderConfig) (*FeedAdapter, error) {
	l := logger.With().
		Str("platform", string(types.PlatformReddit)).
		Str("strategy", string(types.StrategyFeed)).
		Logger()

	return &FeedAdapter{
		baseURL:    defaultBaseURL,
		httpClient: lib.DefaultHTTPClient,
		userAgent:  cfg.Reddit.UserAgent,
		parser:     gofeed.NewParser(),
		limiter:    lib.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		retry:      lib.NewRetryExecutor(cfg.RetryAttempts, &l),
		delay:      cfg.RequestDelay,
		logger:     &l,
	}, nil
}

func (a *FeedAdapter) Platform() types.Platform { return types.PlatformReddit }
func (a *FeedAdapter) Strategy() types.Strategy { return types.StrategyFeed }

func (a *FeedAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		RequiresAuth:     false,
		SupportsSearch:   false,
		SupportsComments: false,
	}
}

func (a *FeedAdapter) ScrapePosts(ctx context.Context, target string, maxPosts int, opts types.ScrapeOptions, feed chan<- *types.Post) error {
	endpoint := a.feedURL(target, opts.Sort)

	a.logger.Info().
		Str("target", target).
		Str("url", endpoint).
		Int("max_posts", maxPosts).
		Msg("Scraping via RSS feed")

	parsed, err := a.fetchFeed(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	emitted := 0
	for _, item := range parsed.Items {
		if emitted >= maxPosts {
			break
		}

		post, err := a.itemToPost(item)
		if err != nil {
			a.logger.Error().Err(err).Str("link", item.Link).Msg("Failed to convert feed entry, skipping")
			continue
		}

		if err := providers.Send(ctx, feed, post); err != nil {
			return err
		}
		emitted++

		if err := providers.Pause(ctx, a.delay); err != nil {
			return err
		}
	}

	a.logger.Debug().Int("count", emitted).Msg("Feed drained")
	return nil
}

// ScrapeComments yields nothing: RSS feeds do not expose comment threads.
func (a *FeedAdapter) ScrapeComments(_ context.Context, _ string, _ int, _ chan<- *types.Post) error {
	return nil
}

// ScrapeSearch yields nothing: RSS feeds do not expose search.
func (a *FeedAdapter) ScrapeSearch(_ context.Context, _ string, _ int, _ types.ScrapeOptions, _ chan<- *types.Post) error {
	return nil
}

func (a *FeedAdapter) HealthCheck(ctx context.Context) bool {
	_, err := a.fetchFeed(ctx, a.baseURL+"/r/popular.rss")
	if err != nil {
		a.logger.Warn().Err(err).Msg("Health check failed")
		return false
	}
	return true
}

// feedURL maps a target to its RSS endpoint. Targets prefixed with "u/"
// are user feeds; everything else is treated as a subreddit.
func (a *FeedAdapter) feedURL(target, sort string) string {
	if name, ok := strings.CutPrefix(target, "u/"); ok {
		return fmt.Sprintf("%s/u/%s.rss", a.baseURL, url.PathEscape(name))
	}

	switch sort {
	case "new", "top", "rising":
		return fmt.Sprintf("%s/r/%s/%s.rss", a.baseURL, url.PathEscape(target), sort)
	default:
		return fmt.Sprintf("%s/r/%s.rss", a.baseURL, url.PathEscape(target))
	}
}

func (a *FeedAdapter) fetchFeed(ctx context.Context, endpoint string) (*gofeed.Feed, error) {
	var body []byte
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", a.userAgent)
		body, err = lib.FetchBodyFromRequest(a.httpClient, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	parsed, err := a.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}

func (a *FeedAdapter) itemToPost(item *gofeed.Item) (*types.Post, error) {
	if item.Link == "" {
		return nil, fmt.Errorf("feed entry has no link")
	}

	id := extractPostID(item.Link)
	if id == "" {
		return nil, fmt.Errorf("no post id in link %s", item.Link)
	}

	author := "unknown"
	if item.Author != nil && item.Author.Name != "" {
		author = strings.TrimPrefix(item.Author.Name, "/u/")
	}

	createdAt := time.Now().UTC()
	if item.PublishedParsed != nil {
		createdAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		createdAt = item.UpdatedParsed.UTC()
	}

	combined := item.Title + " " + item.Description

	return &types.Post{
		ID:        id,
		Platform:  types.PlatformReddit,
		PostType:  types.PostTypePost,
		Author:    author,
		Content:   item.Title,
		URL:       item.Link,
		CreatedAt: createdAt,
		ScrapedAt: time.Now().UTC(),
		Subreddit: extractSubreddit(item.Link),
		SelfText:  item.Description,
		Hashtags:  types.ExtractHashtags(combined),
		Mentions:  types.ExtractMentions(combined),
		MediaURLs: []string{item.Link},
	}, nil
}

func extractPostID(link string) string {
	if m := postIDFromPermalink.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

var subredditFromLink = regexp.MustCompile(`/r/(\w+)/`)

func extractSubreddit(link string) string {
	if m := subredditFromLink.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}
