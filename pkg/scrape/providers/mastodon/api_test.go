package mastodon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
)

func testConfig(server string) *types.ProviderConfig {
	return &types.ProviderConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Second,
		RequestDelay:      0,
		RetryAttempts:     1,
		Mastodon:          types.MastodonConfig{Server: server},
	}
}

func drain(t *testing.T, run func(chan<- *types.Post) error) ([]*types.Post, error) {
	t.Helper()
	feed := make(chan *types.Post, 256)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(feed)
		close(feed)
	}()

	var posts []*types.Post
	for post := range feed {
		posts = append(posts, post)
	}
	return posts, <-errCh
}

const timelineFixture = `[
	{
		"id": "111",
		"content": "<p>Trying out <a href=\"#\">#golang</a> generics</p>",
		"url": "https://mastodon.example/@alice/111",
		"created_at": "2024-01-15T09:00:00.000Z",
		"account": {"acct": "alice"},
		"favourites_count": 5,
		"reblogs_count": 2,
		"replies_count": 1,
		"tags": [{"name": "golang"}],
		"mentions": [],
		"media_attachments": []
	},
	{
		"id": "112",
		"content": "<p>Reply post</p>",
		"url": "https://mastodon.example/@bob/112",
		"created_at": "2024-01-15T10:00:00.000Z",
		"in_reply_to_id": "111",
		"account": {"acct": "bob"},
		"tags": [],
		"mentions": [{"acct": "alice"}],
		"media_attachments": [{"url": "https://mastodon.example/media/1.png"}]
	}
]`

func TestAPIAdapter_ScrapePosts_Hashtag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/timelines/tag/golang" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(timelineFixture))
	}))
	defer server.Close()

	logger := zerolog.Nop()
	adapter, err := NewAPIAdapter(&logger, testConfig(server.URL))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	posts, err := drain(t, func(feed chan<- *types.Post) error {
		return adapter.ScrapePosts(context.Background(), "#golang", 10, types.ScrapeOptions{}, feed)
	})
	if err != nil {
		t.Fatalf("scrape posts: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}

	first := posts[0]
	if first.ID != "111" || first.Platform != types.PlatformMastodon {
		t.Errorf("id/platform = %s/%s", first.ID, first.Platform)
	}
	if first.Content != "Trying out #golang generics" {
		t.Errorf("content = %q, want the HTML stripped", first.Content)
	}
	if first.Likes != 5 || first.Reposts != 2 || first.Replies != 1 {
		t.Errorf("metrics = %d/%d/%d", first.Likes, first.Reposts, first.Replies)
	}
	if len(first.Hashtags) != 1 || first.Hashtags[0] != "#golang" {
		t.Errorf("hashtags = %v", first.Hashtags)
	}

	second := posts[1]
	if second.PostType != types.PostTypeReply {
		t.Errorf("type = %s, want reply for an in-reply-to status", second.PostType)
	}
	if len(second.MediaURLs) != 1 {
		t.Errorf("mediaURLs = %v", second.MediaURLs)
	}
	if len(second.Mentions) != 1 || second.Mentions[0] != "alice" {
		t.Errorf("mentions = %v", second.Mentions)
	}
}

func TestAPIAdapter_ScrapePosts_Account(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/lookup", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("acct"); got != "alice" {
			t.Errorf("acct = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "42", "acct": "alice"}`))
	})
	mux.HandleFunc("/api/v1/accounts/42/statuses", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(timelineFixture))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	logger := zerolog.Nop()
	adapter, err := NewAPIAdapter(&logger, testConfig(server.URL))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	posts, err := drain(t, func(feed chan<- *types.Post) error {
		return adapter.ScrapePosts(context.Background(), "@alice", 10, types.ScrapeOptions{}, feed)
	})
	if err != nil {
		t.Fatalf("scrape posts: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("posts = %d, want 2", len(posts))
	}
}

func TestAPIAdapter_Capabilities(t *testing.T) {
	logger := zerolog.Nop()
	adapter, err := NewAPIAdapter(&logger, testConfig("https://mastodon.social"))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	caps := adapter.Capabilities()
	if caps.RequiresAuth {
		t.Error("public timelines require no auth")
	}
	if !caps.SupportsSearch {
		t.Error("hashtag search should be supported")
	}
	if caps.SupportsComments {
		t.Error("comment threads are not wired up")
	}

	comments, err := drain(t, func(feed chan<- *types.Post) error {
		return adapter.ScrapeComments(context.Background(), "111", 10, feed)
	})
	if err != nil || len(comments) != 0 {
		t.Errorf("comments = %v err = %v, want empty stream", comments, err)
	}
}

func TestAPIAdapter_MissingServer(t *testing.T) {
	logger := zerolog.Nop()
	cfg := testConfig("")
	if _, err := NewAPIAdapter(&logger, cfg); err == nil {
		t.Error("expected a construction error without a server")
	}
}
