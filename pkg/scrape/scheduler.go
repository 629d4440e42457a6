package scrape

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduler runs scrape jobs as cancellable background tasks on a bounded
// worker pool and tracks their lifecycle.
type Scheduler struct {
	orchestrator *Orchestrator
	posts        postStore
	jobs         jobStore
	pool         pond.Pool
	handles      sync.Map
	maxComments  int
	logger       *zerolog.Logger
}

type postStore interface {
	Save(ctx context.Context, post *types.Post) error
}

type jobStore interface {
	Save(ctx context.Context, job *Job) error
	Update(ctx context.Context, jobID string, update JobUpdate) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}

// jobHandle is the in-memory handle of one executing job. done is closed
// when the task body has fully settled, including removing itself from
// the active table. finished is set only when the body wrote a terminal
// status itself, so a concurrent StopJob knows not to overwrite it.
type jobHandle struct {
	cancel   context.CancelFunc
	done     chan struct{}
	finished atomic.Bool
}

func NewScheduler(
	logger *zerolog.Logger,
	orchestrator *Orchestrator,
	posts postStore,
	jobs jobStore,
	config *Config,
) *Scheduler {
	l := logger.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		orchestrator: orchestrator,
		posts:        posts,
		jobs:         jobs,
		pool:         pond.NewPool(config.MaxConcurrentJobs),
		maxComments:  config.MaxCommentsPerPost,
		logger:       &l,
	}
}

type CreateJobRequest struct {
	Platform        types.Platform `json:"platform" validate:"required"`
	Target          string         `json:"target" validate:"required"`
	MaxPosts        int            `json:"maxPosts"`
	IncludeComments bool           `json:"includeComments"`
	Keywords        []string       `json:"keywords"`
	Strategy        types.Strategy `json:"strategy"`
}

// CreateJob persists a pending job record and schedules it immediately.
// The call returns as soon as the job is queued; progress is observed
// through JobStatus.
func (s *Scheduler) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	if strings.TrimSpace(req.Target) == "" {
		return nil, fmt.Errorf("target must not be empty")
	}
	if _, err := types.ParsePlatform(string(req.Platform)); err != nil {
		return nil, err
	}
	if req.MaxPosts <= 0 {
		req.MaxPosts = 25
	}
	if req.Strategy != "" {
		if _, err := types.ParseStrategy(string(req.Strategy)); err != nil {
			return nil, err
		}
	}

	job := &Job{
		ID:              uuid.NewString(),
		Platform:        req.Platform,
		Target:          req.Target,
		MaxPosts:        req.MaxPosts,
		IncludeComments: req.IncludeComments,
		Keywords:        req.Keywords,
		Strategy:        req.Strategy,
		Status:          JobPending,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	handle := &jobHandle{cancel: cancel, done: make(chan struct{})}
	s.handles.Store(job.ID, handle)

	s.pool.Submit(func() {
		s.runJob(jobCtx, job, handle)
	})

	s.logger.Info().
		Str("job_id", job.ID).
		Str("platform", string(job.Platform)).
		Str("target", job.Target).
		Msg("Job created")

	return job, nil
}

// runJob is the task body. It owns the job record until it settles; the
// deferred cleanup removes the active-table entry as the very last step
// so a job id reads as running exactly while the body executes.
func (s *Scheduler) runJob(ctx context.Context, job *Job, handle *jobHandle) {
	jobLogger := s.logger.With().Str("job_id", job.ID).Logger()

	defer func() {
		s.handles.Delete(job.ID)
		close(handle.done)
	}()

	if ctx.Err() != nil {
		// Cancelled while still queued.
		return
	}

	startedAt := time.Now().UTC()
	s.persistUpdate(jobLogger, job.ID, JobUpdate{Status: statePtr(JobRunning), StartedAt: &startedAt})

	result, err := s.orchestrator.ScrapeWithFallback(ctx, job.Platform, job.Target, job.MaxPosts, types.ScrapeOptions{}, job.Strategy)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled: the terminal status is written by StopJob
			// once the handle settles.
			return
		}
		handle.finished.Store(true)
		completedAt := time.Now().UTC()
		s.persistUpdate(jobLogger, job.ID, JobUpdate{
			Status:      statePtr(JobFailed),
			CompletedAt: &completedAt,
			Success:     boolPtr(false),
			Errors:      []string{err.Error()},
		})
		jobLogger.Error().Err(err).Msg("Job failed")
		return
	}

	postsSaved := 0
	commentsSaved := 0
	var jobErrors []string

	for _, post := range result.Posts {
		if ctx.Err() != nil {
			return
		}
		if !matchesKeywords(post, job.Keywords) {
			continue
		}

		if err := s.posts.Save(ctx, post); err != nil {
			if ctx.Err() != nil {
				return
			}
			jobLogger.Error().Err(err).Str("post_id", post.ID).Msg("Failed to persist post")
			jobErrors = append(jobErrors, fmt.Sprintf("save post %s: %v", post.ID, err))
			continue
		}
		postsSaved++

		if !job.IncludeComments {
			continue
		}

		saved, errs := s.drainComments(ctx, jobLogger, job, result.Strategy, post.ID)
		if ctx.Err() != nil {
			return
		}
		commentsSaved += saved
		jobErrors = append(jobErrors, errs...)
	}

	handle.finished.Store(true)
	completedAt := time.Now().UTC()
	s.persistUpdate(jobLogger, job.ID, JobUpdate{
		Status:          statePtr(JobCompleted),
		CompletedAt:     &completedAt,
		PostsScraped:    &postsSaved,
		CommentsScraped: &commentsSaved,
		Success:         boolPtr(true),
		Errors:          jobErrors,
	})

	jobLogger.Info().
		Int("posts", postsSaved).
		Int("comments", commentsSaved).
		Int("errors", len(jobErrors)).
		Msg("Job completed")
}

// drainComments fully drains one post's comment tree before the caller
// moves to the next post. A failure here is a per-item job error, never
// fatal to the job.
func (s *Scheduler) drainComments(ctx context.Context, jobLogger zerolog.Logger, job *Job, strategy types.Strategy, postID string) (int, []string) {
	comments, err := s.orchestrator.ScrapeComments(ctx, job.Platform, strategy, postID, s.maxComments)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil
		}
		jobLogger.Error().Err(err).Str("post_id", postID).Msg("Failed to scrape comments")
		return 0, []string{fmt.Sprintf("scrape comments for %s: %v", postID, err)}
	}

	saved := 0
	var errs []string
	for _, comment := range comments {
		if ctx.Err() != nil {
			return saved, errs
		}
		if !matchesKeywords(comment, job.Keywords) {
			continue
		}
		if err := s.posts.Save(ctx, comment); err != nil {
			jobLogger.Error().Err(err).Str("comment_id", comment.ID).Msg("Failed to persist comment")
			errs = append(errs, fmt.Sprintf("save comment %s: %v", comment.ID, err))
			continue
		}
		saved++
	}
	return saved, errs
}

// StopJob cancels a running job and waits for it to settle. Returns false
// when the job is not currently active; stopping an already-terminal job
// is a no-op, not an error.
func (s *Scheduler) StopJob(ctx context.Context, jobID string) (bool, error) {
	value, ok := s.handles.Load(jobID)
	if !ok {
		return false, nil
	}
	handle := value.(*jobHandle)

	handle.cancel()

	select {
	case <-handle.done:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if handle.finished.Load() {
		// The body reached a terminal state before the cancel landed;
		// leave its record alone.
		return false, nil
	}

	completedAt := time.Now().UTC()
	err := s.jobs.Update(ctx, jobID, JobUpdate{
		Status:      statePtr(JobCancelled),
		CompletedAt: &completedAt,
		Success:     boolPtr(false),
	})
	if err != nil {
		return true, fmt.Errorf("mark job cancelled: %w", err)
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	return true, nil
}

// JobStatus merges the persisted record with live active-table
// membership. A nil result means no such job was ever created.
func (s *Scheduler) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	_, running := s.handles.Load(jobID)
	return &JobStatus{Job: *job, IsRunning: running}, nil
}

// ListActiveJobs returns the ids currently occupying the active table.
func (s *Scheduler) ListActiveJobs() []string {
	var ids []string
	s.handles.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Shutdown cancels every active job and waits for the pool to drain.
func (s *Scheduler) Shutdown() {
	var handles []*jobHandle
	s.handles.Range(func(_, value any) bool {
		handle := value.(*jobHandle)
		handle.cancel()
		handles = append(handles, handle)
		return true
	})
	for _, handle := range handles {
		<-handle.done
	}
	s.pool.StopAndWait()
}

func (s *Scheduler) persistUpdate(jobLogger zerolog.Logger, jobID string, update JobUpdate) {
	if err := s.jobs.Update(context.Background(), jobID, update); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to persist job update")
	}
}

// matchesKeywords keeps a post when any keyword appears in its text,
// case-insensitively. An empty keyword list keeps everything.
func matchesKeywords(post *types.Post, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(post.Content + " " + post.SelfText)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func statePtr(s JobState) *JobState { return &s }
func boolPtr(b bool) *bool          { return &b }
