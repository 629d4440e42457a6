package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/driftnetio/driftnet/pkg/lib"
	"github.com/driftnetio/driftnet/pkg/scrape/providers"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://www.reddit.com"

// Reddit exposes most listings as public JSON endpoints that require no
// credentials, which makes this the preferred strategy when the official
// API is rate limited or unavailable.
type WebAdapter struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *lib.RateLimiter
	retry      *lib.RetryExecutor
	delay      time.Duration
	logger     *zerolog.Logger
}

func NewWebAdapter(logger *zerolog.Logger, cfg *types.ProviderConfig) (*WebAdapter, error) {
	l := logger.With().
		Str("platform", string(types.PlatformReddit)).
		Str("strategy", string(types.StrategyWeb)).
		Logger()

	return &WebAdapter{
		baseURL:    defaultBaseURL,
		httpClient: lib.DefaultHTTPClient,
		userAgent:  cfg.Reddit.UserAgent,
		limiter:    lib.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		retry:      lib.NewRetryExecutor(cfg.RetryAttempts, &l),
		delay:      cfg.RequestDelay,
		logger:     &l,
	}, nil
}

func (a *WebAdapter) Platform() types.Platform { return types.PlatformReddit }
func (a *WebAdapter) Strategy() types.Strategy { return types.StrategyWeb }

func (a *WebAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		RequiresAuth:     false,
		SupportsSearch:   true,
		SupportsComments: true,
	}
}

func (a *WebAdapter) ScrapePosts(ctx context.Context, target string, maxPosts int, opts types.ScrapeOptions, feed chan<- *types.Post) error {
	sort := opts.Sort
	if sort == "" {
		sort = "hot"
	}

	endpoint := fmt.Sprintf("%s/r/%s/%s.json", a.baseURL, url.PathEscape(target), sort)
	query := url.Values{"limit": {strconv.Itoa(listingLimit(maxPosts))}}
	if sort == "top" && opts.TopPeriod != "" {
		query.Set("t", opts.TopPeriod)
	}

	a.logger.Info().
		Str("target", target).
		Str("sort", sort).
		Int("max_posts", maxPosts).
		Msg("Scraping subreddit via JSON endpoint")

	result, err := a.fetchListing(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		return fmt.Errorf("fetch listing: %w", err)
	}

	return a.emitLinks(ctx, result.Data.Children, maxPosts, feed)
}

func (a *WebAdapter) ScrapeSearch(ctx context.Context, query string, maxPosts int, opts types.ScrapeOptions, feed chan<- *types.Post) error {
	sort := opts.Sort
	if sort == "" {
		sort = "relevance"
	}

	params := url.Values{
		"q":     {query},
		"sort":  {sort},
		"limit": {strconv.Itoa(listingLimit(maxPosts))},
		"type":  {"link"},
	}

	a.logger.Info().
		Str("query", query).
		Int("max_posts", maxPosts).
		Msg("Searching via JSON endpoint")

	result, err := a.fetchListing(ctx, a.baseURL+"/search.json?"+params.Encode())
	if err != nil {
		return fmt.Errorf("fetch search listing: %w", err)
	}

	return a.emitLinks(ctx, result.Data.Children, maxPosts, feed)
}

func (a *WebAdapter) ScrapeComments(ctx context.Context, postID string, maxComments int, feed chan<- *types.Post) error {
	endpoint := fmt.Sprintf("%s/comments/%s.json", a.baseURL, url.PathEscape(postID))

	a.logger.Info().
		Str("post_id", postID).
		Int("max_comments", maxComments).
		Msg("Scraping comment tree via JSON endpoint")

	var pages []listing
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", a.userAgent)
		pages, err = lib.DecodeJSONFromRequest[[]listing](a.httpClient, req)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch comments: %w", err)
	}

	// The endpoint returns two listings: the submission and its comments.
	if len(pages) < 2 {
		return nil
	}

	return a.emitCommentTree(ctx, pages[1].Data.Children, maxComments, feed)
}

// emitCommentTree walks the nested reply tree iteratively with an explicit
// stack so deeply nested threads cannot exhaust the call stack. Children
// are pushed in reverse to preserve the order a depth-first reader would
// see: a comment, then its replies, then its next sibling.
func (a *WebAdapter) emitCommentTree(ctx context.Context, roots []thing, maxComments int, feed chan<- *types.Post) error {
	stack := make([]thing, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	emitted := 0
	for len(stack) > 0 && emitted < maxComments {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// t1 = comment; "more" stubs and anything else are skipped.
		if item.Kind != "t1" {
			continue
		}

		var data commentData
		if err := json.Unmarshal(item.Data, &data); err != nil {
			a.logger.Error().Err(err).Msg("Failed to decode comment, skipping")
			continue
		}

		replies := data.replyThings(a.logger)
		for i := len(replies) - 1; i >= 0; i-- {
			stack = append(stack, replies[i])
		}

		if data.Body == "" || data.Body == "[deleted]" {
			continue
		}

		if err := providers.Send(ctx, feed, data.toPost(a.baseURL, item.Data)); err != nil {
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

func (a *WebAdapter) emitLinks(ctx context.Context, children []thing, maxPosts int, feed chan<- *types.Post) error {
	emitted := 0
	for _, item := range children {
		if emitted >= maxPosts {
			break
		}
		if item.Kind != "t3" {
			continue
		}

		var data linkData
		if err := json.Unmarshal(item.Data, &data); err != nil {
			a.logger.Error().Err(err).Msg("Failed to decode post, skipping")
			continue
		}

		if err := providers.Send(ctx, feed, data.toPost(a.baseURL, item.Data)); err != nil {
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

func (a *WebAdapter) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/r/popular.json?limit=1", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", a.userAgent)

	_, err = lib.DecodeJSONFromRequest[listing](a.httpClient, req)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Health check failed")
		return false
	}
	return true
}

func (a *WebAdapter) fetchListing(ctx context.Context, endpoint string) (listing, error) {
	var result listing
	err := a.retry.Do(ctx, func() error {
		if err := a.limiter.Acquire(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", a.userAgent)
		result, err = lib.DecodeJSONFromRequest[listing](a.httpClient, req)
		return err
	})
	return result, err
}

func listingLimit(maxPosts int) int {
	// Reddit caps a single listing page at 100 items.
	if maxPosts > 100 {
		return 100
	}
	if maxPosts < 1 {
		return 1
	}
	return maxPosts
}

type listing struct {
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type linkData struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Permalink     string  `json:"permalink"`
	URL           string  `json:"url"`
	SelfText      string  `json:"selftext"`
	Subreddit     string  `json:"subreddit"`
	LinkFlairText string  `json:"link_flair_text"`
	Score         int     `json:"score"`
	Ups           int     `json:"ups"`
	Downs         int     `json:"downs"`
	NumComments   int     `json:"num_comments"`
	CreatedUTC    float64 `json:"created_utc"`
	IsSelf        bool    `json:"is_self"`
	Over18        bool    `json:"over_18"`
	Stickied      bool    `json:"stickied"`
	Locked        bool    `json:"locked"`
	Preview       struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

func (d *linkData) toPost(baseURL string, raw json.RawMessage) *types.Post {
	combined := d.Title + " " + d.SelfText

	mediaURLs := make([]string, 0, 1+len(d.Preview.Images))
	if d.URL != "" {
		mediaURLs = append(mediaURLs, d.URL)
	}
	for _, img := range d.Preview.Images {
		if img.Source.URL != "" {
			mediaURLs = append(mediaURLs, img.Source.URL)
		}
	}

	author := d.Author
	if author == "" {
		author = "[deleted]"
	}

	return &types.Post{
		ID:          d.ID,
		Platform:    types.PlatformReddit,
		PostType:    types.PostTypePost,
		Author:      author,
		Content:     d.Title,
		URL:         baseURL + d.Permalink,
		CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		ScrapedAt:   time.Now().UTC(),
		Score:       d.Score,
		Upvotes:     d.Ups,
		Downvotes:   d.Downs,
		Replies:     d.NumComments,
		Subreddit:   d.Subreddit,
		Flair:       d.LinkFlairText,
		IsSelf:      d.IsSelf,
		SelfText:    d.SelfText,
		NumComments: d.NumComments,
		Over18:      d.Over18,
		Stickied:    d.Stickied,
		Locked:      d.Locked,
		Hashtags:    types.ExtractHashtags(combined),
		Mentions:    types.ExtractMentions(combined),
		MediaURLs:   mediaURLs,
		Raw:         raw,
	}
}

type commentData struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Permalink  string  `json:"permalink"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	Ups        int     `json:"ups"`
	CreatedUTC float64 `json:"created_utc"`
	// Replies is a nested listing for threads and the empty string for
	// leaves, so it cannot be decoded into a struct directly.
	Replies json.RawMessage `json:"replies"`
}

func (d *commentData) replyThings(logger *zerolog.Logger) []thing {
	if len(d.Replies) == 0 || d.Replies[0] != '{' {
		return nil
	}

	var nested listing
	if err := json.Unmarshal(d.Replies, &nested); err != nil {
		logger.Error().Err(err).Str("comment_id", d.ID).Msg("Failed to decode reply listing, skipping")
		return nil
	}
	return nested.Data.Children
}

func (d *commentData) toPost(baseURL string, raw json.RawMessage) *types.Post {
	author := d.Author
	if author == "" {
		author = "[deleted]"
	}

	return &types.Post{
		ID:        d.ID,
		Platform:  types.PlatformReddit,
		PostType:  types.PostTypeComment,
		Author:    author,
		Content:   d.Body,
		URL:       baseURL + d.Permalink,
		CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
		ScrapedAt: time.Now().UTC(),
		Score:     d.Score,
		Upvotes:   d.Ups,
		Subreddit: d.Subreddit,
		Hashtags:  types.ExtractHashtags(d.Body),
		Mentions:  types.ExtractMentions(d.Body),
		Raw:       raw,
	}
}
