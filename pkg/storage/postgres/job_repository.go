package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/driftnetio/driftnet/pkg/scrape"
	"github.com/jackc/pgx/v5"
)

type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Save(ctx context.Context, job *scrape.Job) error {
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO jobs (
			id, platform, target, max_posts, include_comments, keywords,
			strategy, status, created_at, started_at, completed_at,
			posts_scraped, comments_scraped, success, errors
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15
		)`,
		job.ID, job.Platform, job.Target, job.MaxPosts, job.IncludeComments, job.Keywords,
		job.Strategy, job.Status, job.CreatedAt, job.StartedAt, job.CompletedAt,
		job.PostsScraped, job.CommentsScraped, job.Success, job.Errors,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update applies only the fields set in the partial update.
func (r *JobRepository) Update(ctx context.Context, jobID string, update scrape.JobUpdate) error {
	var sets []string
	args := []any{jobID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if update.Status != nil {
		sets = append(sets, "status = "+arg(*update.Status))
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = "+arg(*update.StartedAt))
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = "+arg(*update.CompletedAt))
	}
	if update.PostsScraped != nil {
		sets = append(sets, "posts_scraped = "+arg(*update.PostsScraped))
	}
	if update.CommentsScraped != nil {
		sets = append(sets, "comments_scraped = "+arg(*update.CommentsScraped))
	}
	if update.Success != nil {
		sets = append(sets, "success = "+arg(*update.Success))
	}
	if update.Errors != nil {
		sets = append(sets, "errors = "+arg(update.Errors))
	}
	if len(sets) == 0 {
		return nil
	}

	tag, err := r.db.Pool().Exec(ctx,
		"UPDATE jobs SET "+strings.Join(sets, ", ")+" WHERE id = $1",
		args...,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}

// GetByID returns nil without error when the job does not exist.
func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*scrape.Job, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT
			id, platform, target, max_posts, include_comments, keywords,
			strategy, status, created_at, started_at, completed_at,
			posts_scraped, comments_scraped, success, errors
		FROM jobs WHERE id = $1`,
		jobID,
	)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first, optionally filtered by status.
func (r *JobRepository) List(ctx context.Context, status scrape.JobState, limit int) ([]*scrape.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			id, platform, target, max_posts, include_comments, keywords,
			strategy, status, created_at, started_at, completed_at,
			posts_scraped, comments_scraped, success, errors
		FROM jobs`
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*scrape.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*scrape.Job, error) {
	job := &scrape.Job{}
	err := row.Scan(
		&job.ID, &job.Platform, &job.Target, &job.MaxPosts, &job.IncludeComments, &job.Keywords,
		&job.Strategy, &job.Status, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
		&job.PostsScraped, &job.CommentsScraped, &job.Success, &job.Errors,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
