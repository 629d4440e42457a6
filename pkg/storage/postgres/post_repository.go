package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
)

type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

// Save upserts on (platform, id) so re-scraping the same item refreshes
// the row instead of duplicating it.
func (r *PostRepository) Save(ctx context.Context, p *types.Post) error {
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO posts (
			platform, id, post_type, author, content, url,
			created_at, scraped_at,
			score, upvotes, downvotes, likes, reposts, replies,
			subreddit, flair, is_self, self_text, num_comments,
			over_18, stickied, locked,
			hashtags, mentions, media_urls, raw
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, $21, $22,
			$23, $24, $25, $26
		)
		ON CONFLICT (platform, id) DO UPDATE SET
			post_type = EXCLUDED.post_type,
			author = EXCLUDED.author,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			created_at = EXCLUDED.created_at,
			scraped_at = EXCLUDED.scraped_at,
			score = EXCLUDED.score,
			upvotes = EXCLUDED.upvotes,
			downvotes = EXCLUDED.downvotes,
			likes = EXCLUDED.likes,
			reposts = EXCLUDED.reposts,
			replies = EXCLUDED.replies,
			subreddit = EXCLUDED.subreddit,
			flair = EXCLUDED.flair,
			is_self = EXCLUDED.is_self,
			self_text = EXCLUDED.self_text,
			num_comments = EXCLUDED.num_comments,
			over_18 = EXCLUDED.over_18,
			stickied = EXCLUDED.stickied,
			locked = EXCLUDED.locked,
			hashtags = EXCLUDED.hashtags,
			mentions = EXCLUDED.mentions,
			media_urls = EXCLUDED.media_urls,
			raw = EXCLUDED.raw`,
		p.Platform, p.ID, p.PostType, p.Author, p.Content, p.URL,
		p.CreatedAt, p.ScrapedAt,
		p.Score, p.Upvotes, p.Downvotes, p.Likes, p.Reposts, p.Replies,
		p.Subreddit, p.Flair, p.IsSelf, p.SelfText, p.NumComments,
		p.Over18, p.Stickied, p.Locked,
		p.Hashtags, p.Mentions, p.MediaURLs, p.Raw,
	)
	if err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}
	return nil
}

type PostQuery struct {
	Platform types.Platform
	Author   string
	Target   string
	Limit    int
}

// Query lists persisted posts, newest first. All filters are optional;
// Target matches the subreddit column or a stored hashtag.
func (r *PostRepository) Query(ctx context.Context, q PostQuery) ([]*types.Post, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Platform != "" {
		conditions = append(conditions, "platform = "+arg(q.Platform))
	}
	if q.Author != "" {
		conditions = append(conditions, "author = "+arg(q.Author))
	}
	if q.Target != "" {
		placeholder := arg(q.Target)
		conditions = append(conditions, fmt.Sprintf("(subreddit = %s OR %s = ANY(hashtags))", placeholder, placeholder))
	}

	query := `
		SELECT
			platform, id, post_type, author, content, url,
			created_at, scraped_at,
			score, upvotes, downvotes, likes, reposts, replies,
			subreddit, flair, is_self, self_text, num_comments,
			over_18, stickied, locked,
			hashtags, mentions, media_urls, raw
		FROM posts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT " + arg(limit)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []*types.Post
	for rows.Next() {
		p := &types.Post{}
		err := rows.Scan(
			&p.Platform, &p.ID, &p.PostType, &p.Author, &p.Content, &p.URL,
			&p.CreatedAt, &p.ScrapedAt,
			&p.Score, &p.Upvotes, &p.Downvotes, &p.Likes, &p.Reposts, &p.Replies,
			&p.Subreddit, &p.Flair, &p.IsSelf, &p.SelfText, &p.NumComments,
			&p.Over18, &p.Stickied, &p.Locked,
			&p.Hashtags, &p.Mentions, &p.MediaURLs, &p.Raw,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
