package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftnetio/driftnet/pkg/lib"
	"github.com/driftnetio/driftnet/pkg/scrape/providers"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// APIAdapter talks to the official Reddit API. It has the fullest
// capability set but requires app credentials and is subject to the
// platform's own rate limits, so the fallback order tries it last.
type APIAdapter struct {
	client  *reddit.Client
	limiter *lib.RateLimiter
	retry   *lib.RetryExecutor
	delay   time.Duration
	logger  *zerolog.Logger
}

func NewAPIAdapter(logger *zerolog.Logger, cfg *types.ProviderConfig) (*APIAdapter, error) {
	if cfg.Reddit.ClientID == "" || cfg.Reddit.ClientSecret == "" {
		return nil, fmt.Errorf("reddit api credentials not configured")
	}

	client, err := reddit.NewClient(reddit.Credentials{
		ID:     cfg.Reddit.ClientID,
		Secret: cfg.Reddit.ClientSecret,
	}, reddit.WithUserAgent(cfg.Reddit.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("create reddit client: %w", err)
	}

	l := logger.With().
		Str("platform", string(types.PlatformReddit)).
		Str("strategy", string(types.StrategyAPI)).
		Logger()

	return &APIAdapter{
		client:  client,
		limiter: lib.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		retry:   lib.NewRetryExecutor(cfg.RetryAttempts, &l),
		delay:   cfg.RequestDelay,
		logger:  &l,
	}, nil
}

func (a *APIAdapter) Platform() types.Platform { return types.PlatformReddit }
func (a *APIAdapter) Strategy() types.Strategy { return types.StrategyAPI }

func (a *APIAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		RequiresAuth:     true,
		SupportsSearch:   true,
		SupportsComments: true,
	}
}

func (a *APIAdapter) ScrapePosts(ctx context.Context, target string, maxPosts int, opts types.ScrapeOptions, feed chan<- *types.Post) error {
	a.logger.Info().
		Str("target", target).
		Str("sort", opts.Sort).
		Int("max_posts", maxPosts).
		Msg("Scraping subreddit via official API")

	var redditPosts []*reddit.Post
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		var err error
		redditPosts, err = a.listPosts(ctx, target, maxPosts, opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	return a.emitPosts(ctx, redditPosts, maxPosts, feed)
}

func (a *APIAdapter) ScrapeSearch(ctx context.Context, query string, maxPosts int, opts types.ScrapeOptions, feed chan<- *types.Post) error {
	sort := opts.Sort
	if sort == "" {
		sort = "relevance"
	}

	a.logger.Info().
		Str("query", query).
		Int("max_posts", maxPosts).
		Msg("Searching via official API")

	var redditPosts []*reddit.Post
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		var err error
		redditPosts, _, err = a.client.Subreddit.SearchPosts(ctx, query, "all", &reddit.ListPostSearchOptions{
			ListPostOptions: reddit.ListPostOptions{
				ListOptions: reddit.ListOptions{Limit: listingLimit(maxPosts)},
			},
			Sort: sort,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("search posts: %w", err)
	}

	return a.emitPosts(ctx, redditPosts, maxPosts, feed)
}

func (a *APIAdapter) ScrapeComments(ctx context.Context, postID string, maxComments int, feed chan<- *types.Post) error {
	a.logger.Info().
		Str("post_id", postID).
		Int("max_comments", maxComments).
		Msg("Scraping comment tree via official API")

	var pc *reddit.PostAndComments
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		var err error
		pc, _, err = a.client.Post.Get(ctx, postID)
		return err
	})
	if err != nil {
		return fmt.Errorf("get post comments: %w", err)
	}

	// Depth-first with an explicit stack; replies follow their parent,
	// siblings after, same order the thread renders in.
	stack := make([]*reddit.Comment, 0, len(pc.Comments))
	for i := len(pc.Comments) - 1; i >= 0; i-- {
		stack = append(stack, pc.Comments[i])
	}

	emitted := 0
	for len(stack) > 0 && emitted < maxComments {
		comment := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for i := len(comment.Replies.Comments) - 1; i >= 0; i-- {
			stack = append(stack, comment.Replies.Comments[i])
		}

		if comment.Body == "" || comment.Body == "[deleted]" {
			continue
		}

		if err := providers.Send(ctx, feed, a.commentToPost(comment)); err != nil {
			return err
		}
		emitted++

		if err := providers.Pause(ctx, a.delay); err != nil {
			return err
		}
	}

	a.logger.Debug().Int("count", emitted).Msg("Comment tree drained")
	return nil
}

func (a *APIAdapter) HealthCheck(ctx context.Context) bool {
	_, _, err := a.client.Subreddit.HotPosts(ctx, "popular", &reddit.ListOptions{Limit: 1})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Health check failed")
		return false
	}
	return true
}

func (a *APIAdapter) listPosts(ctx context.Context, target string, maxPosts int, opts types.ScrapeOptions) ([]*reddit.Post, error) {
	listOpts := &reddit.ListOptions{Limit: listingLimit(maxPosts)}

	switch opts.Sort {
	case "new":
		posts, _, err := a.client.Subreddit.NewPosts(ctx, target, listOpts)
		return posts, err
	case "rising":
		posts, _, err := a.client.Subreddit.RisingPosts(ctx, target, listOpts)
		return posts, err
	case "top":
		period := opts.TopPeriod
		if period == "" {
			period = "all"
		}
		posts, _, err := a.client.Subreddit.TopPosts(ctx, target, &reddit.ListPostOptions{
			ListOptions: *listOpts,
			Time:        period,
		})
		return posts, err
	default:
		posts, _, err := a.client.Subreddit.HotPosts(ctx, target, listOpts)
		return posts, err
	}
}

func (a *APIAdapter) emitPosts(ctx context.Context, redditPosts []*reddit.Post, maxPosts int, feed chan<- *types.Post) error {
	emitted := 0
	for _, p := range redditPosts {
		if emitted >= maxPosts {
			break
		}

		if err := providers.Send(ctx, feed, a.postToPost(p)); err != nil {
			return err
		}
		emitted++

		if err := providers.Pause(ctx, a.delay); err != nil {
			return err
		}
	}

	a.logger.Debug().Int("count", emitted).Msg("Listing drained")
	return nil
}

func (a *APIAdapter) postToPost(p *reddit.Post) *types.Post {
	combined := p.Title + " " + p.Body

	raw, err := json.Marshal(p)
	if err != nil {
		a.logger.Error().Err(err).Str("post_id", p.ID).Msg("Failed to marshal raw post")
	}

	var mediaURLs []string
	if p.URL != "" && !p.IsSelfPost {
		mediaURLs = append(mediaURLs, p.URL)
	}

	return &types.Post{
		ID:          p.ID,
		Platform:    types.PlatformReddit,
		PostType:    types.PostTypePost,
		Author:      p.Author,
		Content:     p.Title,
		URL:         defaultBaseURL + p.Permalink,
		CreatedAt:   p.Created.Time.UTC(),
		ScrapedAt:   time.Now().UTC(),
		Score:       p.Score,
		Replies:     p.NumberOfComments,
		Subreddit:   p.SubredditName,
		IsSelf:      p.IsSelfPost,
		SelfText:    p.Body,
		NumComments: p.NumberOfComments,
		Over18:      p.NSFW,
		Stickied:    p.Stickied,
		Locked:      p.Locked,
		Hashtags:    types.ExtractHashtags(combined),
		Mentions:    types.ExtractMentions(combined),
		MediaURLs:   mediaURLs,
		Raw:         raw,
	}
}

func (a *APIAdapter) commentToPost(c *reddit.Comment) *types.Post {
	raw, err := json.Marshal(c)
	if err != nil {
		a.logger.Error().Err(err).Str("comment_id", c.ID).Msg("Failed to marshal raw comment")
	}

	return &types.Post{
		ID:        c.ID,
		Platform:  types.PlatformReddit,
		PostType:  types.PostTypeComment,
		Author:    c.Author,
		Content:   c.Body,
		URL:       defaultBaseURL + c.Permalink,
		CreatedAt: c.Created.Time.UTC(),
		ScrapedAt: time.Now().UTC(),
		Score:     c.Score,
		Subreddit: c.SubredditName,
		Hashtags:  types.ExtractHashtags(c.Body),
		Mentions:  types.ExtractMentions(c.Body),
		Raw:       raw,
	}
}
