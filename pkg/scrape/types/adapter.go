package types

import "context"

// ScrapeOptions carries strategy-specific listing knobs. Adapters ignore
// fields they cannot express (RSS has no sort periods, for example).
type ScrapeOptions struct {
	Sort      string `json:"sort,omitempty"`       // hot, new, top, rising
	TopPeriod string `json:"top_period,omitempty"` // hour, day, week, month, year, all
}

// Adapter performs fetch+parse for one acquisition method on one platform.
//
// The Scrape* methods stream normalized posts into the caller-owned feed
// channel and return once the stream is exhausted or a whole-attempt
// failure occurs. The caller closes the channel. Suspension points are the
// network calls, the respectful inter-item delay, and the channel sends;
// all of them observe ctx cancellation. A parse failure on a single item
// is logged and skipped; it never aborts the remaining stream.
//
// Streams are finite and not restartable: re-invoking re-fetches from the
// start.
type Adapter interface {
	Platform() Platform
	Strategy() Strategy
	// Capabilities is declared once at construction and read-only after.
	Capabilities() Capabilities

	// ScrapePosts produces up to maxPosts posts for target.
	ScrapePosts(ctx context.Context, target string, maxPosts int, opts ScrapeOptions, feed chan<- *Post) error
	// ScrapeComments produces up to maxComments comment/reply posts for
	// postID. Adapters with SupportsComments=false return immediately
	// without sending anything.
	ScrapeComments(ctx context.Context, postID string, maxComments int, feed chan<- *Post) error
	// ScrapeSearch produces up to maxPosts posts matching query. Only
	// called on adapters with SupportsSearch=true.
	ScrapeSearch(ctx context.Context, query string, maxPosts int, opts ScrapeOptions, feed chan<- *Post) error

	// HealthCheck issues one lightweight probe. It reports false on any
	// failure and never panics.
	HealthCheck(ctx context.Context) bool
}
