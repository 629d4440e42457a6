package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	cfg  *Config
	pool *pgxpool.Pool
}

func NewDB(cfg *Config) *DB {
	return &DB{cfg: cfg}
}

func (d *DB) Pool() *pgxpool.Pool {
	if d.pool == nil {
		panic("db not connected, call DB.Connect() first")
	}
	return d.pool
}

// Connect opens the connection pool and optionally creates the schema.
func (d *DB) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, d.cfg.DSN())
	if err != nil {
		return fmt.Errorf("pgx connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	// Optional schema creation for local/dev environments.
	if d.cfg.AutoMigrate {
		if _, err := pool.Exec(ctx, schema); err != nil {
			pool.Close()
			return fmt.Errorf("create schema resources: %w", err)
		}
	}

	d.pool = pool
	return nil
}

func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	platform         TEXT        NOT NULL,
	id               TEXT        NOT NULL,
	post_type        TEXT        NOT NULL,
	author           TEXT        NOT NULL DEFAULT '',
	content          TEXT        NOT NULL DEFAULT '',
	url              TEXT        NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	scraped_at       TIMESTAMPTZ NOT NULL,
	score            INTEGER     NOT NULL DEFAULT 0,
	upvotes          INTEGER     NOT NULL DEFAULT 0,
	downvotes        INTEGER     NOT NULL DEFAULT 0,
	likes            INTEGER     NOT NULL DEFAULT 0,
	reposts          INTEGER     NOT NULL DEFAULT 0,
	replies          INTEGER     NOT NULL DEFAULT 0,
	subreddit        TEXT        NOT NULL DEFAULT '',
	flair            TEXT        NOT NULL DEFAULT '',
	is_self          BOOLEAN     NOT NULL DEFAULT FALSE,
	self_text        TEXT        NOT NULL DEFAULT '',
	num_comments     INTEGER     NOT NULL DEFAULT 0,
	over_18          BOOLEAN     NOT NULL DEFAULT FALSE,
	stickied         BOOLEAN     NOT NULL DEFAULT FALSE,
	locked           BOOLEAN     NOT NULL DEFAULT FALSE,
	hashtags         TEXT[],
	mentions         TEXT[],
	media_urls       TEXT[],
	raw              JSONB,
	PRIMARY KEY (platform, id)
);

CREATE INDEX IF NOT EXISTS posts_author_idx ON posts (author);
CREATE INDEX IF NOT EXISTS posts_subreddit_idx ON posts (subreddit);

CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT        PRIMARY KEY,
	platform         TEXT        NOT NULL,
	target           TEXT        NOT NULL,
	max_posts        INTEGER     NOT NULL,
	include_comments BOOLEAN     NOT NULL DEFAULT FALSE,
	keywords         TEXT[],
	strategy         TEXT        NOT NULL DEFAULT '',
	status           TEXT        NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	started_at       TIMESTAMPTZ,
	completed_at     TIMESTAMPTZ,
	posts_scraped    INTEGER     NOT NULL DEFAULT 0,
	comments_scraped INTEGER     NOT NULL DEFAULT 0,
	success          BOOLEAN     NOT NULL DEFAULT FALSE,
	errors           TEXT[]
);

CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status);
`
