package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>r/golang</title>
	<entry>
		<author><name>/u/gopher</name></author>
		<title>Go 1.24 released</title>
		<link href="https://www.reddit.com/r/golang/comments/abc1/go_124_released/"/>
		<updated>2024-01-15T10:00:00+00:00</updated>
		<published>2024-01-15T09:00:00+00:00</published>
		<content type="html">release notes</content>
	</entry>
	<entry>
		<author><name>/u/ferris</name></author>
		<title>Borrow checker explained</title>
		<link href="https://www.reddit.com/r/golang/comments/abc2/borrow/"/>
		<published>2024-01-14T09:00:00+00:00</published>
	</entry>
	<entry>
		<title>Entry without a comments permalink</title>
		<link href="https://example.com/external"/>
	</entry>
</feed>`

func TestFeedAdapter_ScrapePosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/golang.rss" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(feedFixture))
	}))
	defer server.Close()

	logger := zerolog.Nop()
	adapter, err := NewFeedAdapter(&logger, testConfig())
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	adapter.baseURL = server.URL

	posts, err := drain(t, func(feed chan<- *types.Post) error {
		return adapter.ScrapePosts(context.Background(), "golang", 10, types.ScrapeOptions{}, feed)
	})
	if err != nil {
		t.Fatalf("scrape posts: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2 (entry without a post id skipped)", len(posts))
	}

	first := posts[0]
	if first.ID != "abc1" {
		t.Errorf("id = %s, want abc1 (extracted from permalink)", first.ID)
	}
	if first.Author != "gopher" {
		t.Errorf("author = %q, want gopher", first.Author)
	}
	if first.Subreddit != "golang" {
		t.Errorf("subreddit = %q", first.Subreddit)
	}
	wantCreated := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(wantCreated) {
		t.Errorf("createdAt = %v, want %v", first.CreatedAt, wantCreated)
	}
}

func TestFeedAdapter_UserFeedURL(t *testing.T) {
	logger := zerolog.Nop()
	adapter, _ := NewFeedAdapter(&logger, testConfig())
	adapter.baseURL = "https://example.test"

	tests := []struct {
		target string
		sort   string
		want   string
	}{
		{"golang", "", "https://example.test/r/golang.rss"},
		{"golang", "new", "https://example.test/r/golang/new.rss"},
		{"golang", "hot", "https://example.test/r/golang.rss"},
		{"u/spez", "", "https://example.test/u/spez.rss"},
	}

	for _, tt := range tests {
		if got := adapter.feedURL(tt.target, tt.sort); got != tt.want {
			t.Errorf("feedURL(%q, %q) = %q, want %q", tt.target, tt.sort, got, tt.want)
		}
	}
}

func TestFeedAdapter_NoSearchNoComments(t *testing.T) {
	logger := zerolog.Nop()
	adapter, _ := NewFeedAdapter(&logger, testConfig())

	caps := adapter.Capabilities()
	if caps.SupportsSearch || caps.SupportsComments {
		t.Errorf("capabilities = %+v, want neither search nor comments", caps)
	}

	comments, err := drain(t, func(feed chan<- *types.Post) error {
		return adapter.ScrapeComments(context.Background(), "abc1", 10, feed)
	})
	if err != nil || len(comments) != 0 {
		t.Errorf("comments = %v err = %v, want empty stream", comments, err)
	}
}
