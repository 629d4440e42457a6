package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/driftnetio/driftnet/pkg/lib"
	"github.com/driftnetio/driftnet/pkg/scrape/providers"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/mattn/go-mastodon"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// APIAdapter reads public Mastodon timelines. Targets prefixed with "#"
// are hashtag timelines; anything else is resolved as an account.
// Public endpoints work without a token, so this adapter never requires
// auth even though it speaks the official API.
type APIAdapter struct {
	client  *mastodon.Client
	server  string
	limiter *lib.RateLimiter
	retry   *lib.RetryExecutor
	delay   time.Duration
	logger  *zerolog.Logger
}

func NewAPIAdapter(logger *zerolog.Logger, cfg *types.ProviderConfig) (*APIAdapter, error) {
	if cfg.Mastodon.Server == "" {
		return nil, fmt.Errorf("mastodon server not configured")
	}

	client := mastodon.NewClient(&mastodon.Config{
		Server:      cfg.Mastodon.Server,
		AccessToken: cfg.Mastodon.AccessToken,
	})

	l := logger.With().
		Str("platform", string(types.PlatformMastodon)).
		Str("strategy", string(types.StrategyAPI)).
		Str("server", cfg.Mastodon.Server).
		Logger()

	return &APIAdapter{
		client:  client,
		server:  cfg.Mastodon.Server,
		limiter: lib.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		retry:   lib.NewRetryExecutor(cfg.RetryAttempts, &l),
		delay:   cfg.RequestDelay,
		logger:  &l,
	}, nil
}

func (a *APIAdapter) Platform() types.Platform { return types.PlatformMastodon }
func (a *APIAdapter) Strategy() types.Strategy { return types.StrategyAPI }

func (a *APIAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		RequiresAuth:     false,
		SupportsSearch:   true,
		SupportsComments: false,
	}
}

func (a *APIAdapter) ScrapePosts(ctx context.Context, target string, maxPosts int, _ types.ScrapeOptions, feed chan<- *types.Post) error {
	a.logger.Info().
		Str("target", target).
		Int("max_posts", maxPosts).
		Msg("Scraping timeline")

	if tag, ok := strings.CutPrefix(target, "#"); ok {
		return a.emitHashtag(ctx, tag, maxPosts, feed)
	}
	return a.emitAccount(ctx, target, maxPosts, feed)
}

// ScrapeSearch treats the query as a hashtag: public instances do not
// allow full-text search without auth, but hashtag timelines are open.
func (a *APIAdapter) ScrapeSearch(ctx context.Context, query string, maxPosts int, _ types.ScrapeOptions, feed chan<- *types.Post) error {
	tag := strings.TrimPrefix(query, "#")

	a.logger.Info().
		Str("query", query).
		Int("max_posts", maxPosts).
		Msg("Searching via hashtag timeline")

	return a.emitHashtag(ctx, tag, maxPosts, feed)
}

// ScrapeComments yields nothing: status context threads are not wired up.
func (a *APIAdapter) ScrapeComments(_ context.Context, _ string, _ int, _ chan<- *types.Post) error {
	return nil
}

func (a *APIAdapter) HealthCheck(ctx context.Context) bool {
	_, err := a.client.GetInstance(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Health check failed")
		return false
	}
	return true
}

func (a *APIAdapter) emitHashtag(ctx context.Context, tag string, maxPosts int, feed chan<- *types.Post) error {
	var statuses []*mastodon.Status
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		var err error
		statuses, err = a.client.GetTimelineHashtag(ctx, tag, false, &mastodon.Pagination{
			Limit: int64(maxPosts),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("get hashtag timeline: %w", err)
	}

	return a.emitStatuses(ctx, statuses, maxPosts, feed)
}

func (a *APIAdapter) emitAccount(ctx context.Context, acct string, maxPosts int, feed chan<- *types.Post) error {
	acct = strings.TrimPrefix(acct, "@")

	var account *mastodon.Account
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		var err error
		account, err = a.client.AccountLookup(ctx, acct)
		return err
	})
	if err != nil {
		return fmt.Errorf("account lookup: %w", err)
	}

	var statuses []*mastodon.Status
	err = a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		var err error
		statuses, err = a.client.GetAccountStatuses(ctx, account.ID, &mastodon.Pagination{
			Limit: int64(maxPosts),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("get account statuses: %w", err)
	}

	return a.emitStatuses(ctx, statuses, maxPosts, feed)
}

func (a *APIAdapter) emitStatuses(ctx context.Context, statuses []*mastodon.Status, maxPosts int, feed chan<- *types.Post) error {
	emitted := 0
	for _, status := range statuses {
		if emitted >= maxPosts {
			break
		}

		if err := providers.Send(ctx, feed, a.statusToPost(status)); err != nil {
			return err
		}
		emitted++

		if err := providers.Pause(ctx, a.delay); err != nil {
			return err
		}
	}

	a.logger.Debug().Int("count", emitted).Msg("Timeline drained")
	return nil
}

func (a *APIAdapter) statusToPost(status *mastodon.Status) *types.Post {
	content := extractTextFromHTML(status.Content)
	if content == "" && status.Reblog != nil {
		content = "RT " + status.Reblog.Account.Acct + ": " + extractTextFromHTML(status.Reblog.Content)
	}

	postType := types.PostTypePost
	if status.InReplyToID != nil {
		postType = types.PostTypeReply
	}

	hashtags := make([]string, 0, len(status.Tags))
	for _, tag := range status.Tags {
		hashtags = append(hashtags, "#"+tag.Name)
	}

	mentions := make([]string, 0, len(status.Mentions))
	for _, mention := range status.Mentions {
		mentions = append(mentions, mention.Acct)
	}

	var mediaURLs []string
	for _, attachment := range status.MediaAttachments {
		if attachment.URL != "" {
			mediaURLs = append(mediaURLs, attachment.URL)
		}
	}

	raw, err := json.Marshal(status)
	if err != nil {
		a.logger.Error().Err(err).Str("status_id", string(status.ID)).Msg("Failed to marshal raw status")
	}

	return &types.Post{
		ID:        string(status.ID),
		Platform:  types.PlatformMastodon,
		PostType:  postType,
		Author:    status.Account.Acct,
		Content:   content,
		URL:       status.URL,
		CreatedAt: status.CreatedAt.UTC(),
		ScrapedAt: time.Now().UTC(),
		Likes:     int(status.FavouritesCount),
		Reposts:   int(status.ReblogsCount),
		Replies:   int(status.RepliesCount),
		Hashtags:  hashtags,
		Mentions:  mentions,
		MediaURLs: mediaURLs,
		Raw:       raw,
	}
}

func extractTextFromHTML(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}
