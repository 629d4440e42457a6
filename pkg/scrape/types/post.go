package types

import (
	"encoding/json"
	"regexp"
	"time"
)

type Platform string

const (
	PlatformReddit   Platform = "reddit"
	PlatformMastodon Platform = "mastodon"
)

type PostType string

const (
	PostTypePost    PostType = "post"
	PostTypeComment PostType = "comment"
	PostTypeTweet   PostType = "tweet"
	PostTypeReply   PostType = "reply"
)

// Post is the normalized record produced by every adapter variant.
// The (Platform, ID) pair is stable across repeated fetches of the same
// underlying item and serves as the upsert key.
type Post struct {
	ID        string    `json:"id"`
	Platform  Platform  `json:"platform"`
	PostType  PostType  `json:"post_type"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	ScrapedAt time.Time `json:"scraped_at"`

	// Engagement metrics; zero when the acquisition method doesn't expose them.
	Score     int `json:"score,omitempty"`
	Upvotes   int `json:"upvotes,omitempty"`
	Downvotes int `json:"downvotes,omitempty"`
	Likes     int `json:"likes,omitempty"`
	Reposts   int `json:"reposts,omitempty"`
	Replies   int `json:"replies,omitempty"`

	// Platform-specific fields.
	Subreddit   string `json:"subreddit,omitempty"`
	Flair       string `json:"flair,omitempty"`
	IsSelf      bool   `json:"is_self,omitempty"`
	SelfText    string `json:"self_text,omitempty"`
	NumComments int    `json:"num_comments,omitempty"`
	Over18      bool   `json:"over_18,omitempty"`
	Stickied    bool   `json:"stickied,omitempty"`
	Locked      bool   `json:"locked,omitempty"`

	Hashtags  []string `json:"hashtags,omitempty"`
	Mentions  []string `json:"mentions,omitempty"`
	MediaURLs []string `json:"media_urls,omitempty"`

	// Raw source payload, kept for debugging only.
	Raw json.RawMessage `json:"raw,omitempty"`
}

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`(?:/u/|@)(\w+)`)
)

// ExtractHashtags returns the #tags found in text, in order of appearance.
func ExtractHashtags(text string) []string {
	return hashtagPattern.FindAllString(text, -1)
}

// ExtractMentions returns usernames referenced as /u/name or @name.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
