package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/rs/zerolog"
)

type memPostStore struct {
	mu      sync.Mutex
	saved   []*types.Post
	failIDs map[string]bool
}

func (s *memPostStore) Save(_ context.Context, post *types.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[post.ID] {
		return errors.New("simulated persistence failure")
	}
	s.saved = append(s.saved, post)
	return nil
}

func (s *memPostStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*Job)}
}

func (s *memJobStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memJobStore) Update(_ context.Context, jobID string, update JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.StartedAt != nil {
		job.StartedAt = update.StartedAt
	}
	if update.CompletedAt != nil {
		job.CompletedAt = update.CompletedAt
	}
	if update.PostsScraped != nil {
		job.PostsScraped = *update.PostsScraped
	}
	if update.CommentsScraped != nil {
		job.CommentsScraped = *update.CommentsScraped
	}
	if update.Success != nil {
		job.Success = *update.Success
	}
	if update.Errors != nil {
		job.Errors = update.Errors
	}
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, jobID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

// blockingAdapter emits one post and then parks until cancellation, so a
// test can observe a job mid-flight.
type blockingAdapter struct {
	fakeAdapter
	started chan struct{}
}

func (b *blockingAdapter) ScrapePosts(ctx context.Context, _ string, _ int, _ types.ScrapeOptions, feed chan<- *types.Post) error {
	select {
	case feed <- &types.Post{ID: "blocked-0", Content: "first"}:
	case <-ctx.Done():
		return ctx.Err()
	}
	close(b.started)
	<-ctx.Done()
	return ctx.Err()
}

func newTestScheduler(posts postStore, jobs jobStore, adapters ...types.Adapter) *Scheduler {
	logger := zerolog.Nop()
	registry := NewRegistry(&logger)
	for _, adapter := range adapters {
		registry.Register(adapter)
	}
	orchestrator := NewOrchestrator(registry, &logger)
	return NewScheduler(&logger, orchestrator, posts, jobs, &Config{
		MaxConcurrentJobs:  4,
		MaxCommentsPerPost: 50,
	})
}

func waitForTerminal(t *testing.T, scheduler *Scheduler, jobID string) *JobStatus {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("job did not reach a terminal state in time")
		case <-time.After(5 * time.Millisecond):
		}

		status, err := scheduler.JobStatus(context.Background(), jobID)
		if err != nil {
			t.Fatalf("job status: %v", err)
		}
		if status != nil && !status.IsRunning && status.Status.Terminal() {
			return status
		}
	}
}

func TestCreateJob_EmptyTarget(t *testing.T) {
	scheduler := newTestScheduler(&memPostStore{}, newMemJobStore())

	_, err := scheduler.CreateJob(context.Background(), CreateJobRequest{
		Platform: types.PlatformReddit,
		Target:   "  ",
	})
	if err == nil {
		t.Fatal("expected an error for an empty target")
	}
}

func TestRunJob_KeywordFilter(t *testing.T) {
	web := &fakeAdapter{
		platform: types.PlatformReddit,
		strategy: types.StrategyWeb,
		posts: []*types.Post{
			{ID: "1", Content: "Why Rust is fast"},
			{ID: "2", Content: "Go generics in practice"},
			{ID: "3", Content: "RUST borrow checker tips"},
		},
	}
	posts := &memPostStore{}
	jobs := newMemJobStore()
	scheduler := newTestScheduler(posts, jobs, web)

	job, err := scheduler.CreateJob(context.Background(), CreateJobRequest{
		Platform: types.PlatformReddit,
		Target:   "programming",
		MaxPosts: 10,
		Keywords: []string{"rust"},
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	status := waitForTerminal(t, scheduler, job.ID)
	if status.Status != JobCompleted {
		t.Fatalf("status = %s, want completed", status.Status)
	}
	if !status.Success {
		t.Error("expected success")
	}
	if status.PostsScraped != 2 {
		t.Errorf("postsScraped = %d, want 2 (keyword-matched subset)", status.PostsScraped)
	}
	if posts.count() != 2 {
		t.Errorf("persisted = %d, want 2", posts.count())
	}
}

func TestRunJob_PersistenceFailureIsolation(t *testing.T) {
	web := &fakeAdapter{
		platform: types.PlatformReddit,
		strategy: types.StrategyWeb,
		posts: []*types.Post{
			{ID: "ok-1", Content: "first"},
			{ID: "bad", Content: "second"},
			{ID: "ok-2", Content: "third"},
		},
	}
	posts := &memPostStore{failIDs: map[string]bool{"bad": true}}
	jobs := newMemJobStore()
	scheduler := newTestScheduler(posts, jobs, web)

	job, err := scheduler.CreateJob(context.Background(), CreateJobRequest{
		Platform: types.PlatformReddit,
		Target:   "programming",
		MaxPosts: 10,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	status := waitForTerminal(t, scheduler, job.ID)
	if status.Status != JobCompleted {
		t.Fatalf("status = %s, want completed despite a persistence failure", status.Status)
	}
	if status.PostsScraped != 2 {
		t.Errorf("postsScraped = %d, want 2", status.PostsScraped)
	}
	if len(status.Errors) != 1 {
		t.Errorf("errors = %v, want exactly one entry", status.Errors)
	}
}

func TestRunJob_CommentExpansion(t *testing.T) {
	web := &fakeAdapter{
		platform: types.PlatformReddit,
		strategy: types.StrategyWeb,
		caps:     types.Capabilities{SupportsComments: true},
		posts:    []*types.Post{{ID: "p1", Content: "parent"}},
		comments: []*types.Post{
			{ID: "c1", Content: "reply one"},
			{ID: "c2", Content: "reply two"},
		},
	}
	posts := &memPostStore{}
	jobs := newMemJobStore()
	scheduler := newTestScheduler(posts, jobs, web)

	job, err := scheduler.CreateJob(context.Background(), CreateJobRequest{
		Platform:        types.PlatformReddit,
		Target:          "programming",
		MaxPosts:        10,
		IncludeComments: true,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	status := waitForTerminal(t, scheduler, job.ID)
	if status.PostsScraped != 1 {
		t.Errorf("postsScraped = %d, want 1", status.PostsScraped)
	}
	if status.CommentsScraped != 2 {
		t.Errorf("commentsScraped = %d, want 2", status.CommentsScraped)
	}
	if posts.count() != 3 {
		t.Errorf("persisted = %d, want post plus both comments", posts.count())
	}
}

func TestRunJob_AllStrategiesFailed(t *testing.T) {
	web := &fakeAdapter{
		platform: types.PlatformReddit,
		strategy: types.StrategyWeb,
		err:      errors.New("endpoint blocked"),
	}
	jobs := newMemJobStore()
	scheduler := newTestScheduler(&memPostStore{}, jobs, web)

	job, err := scheduler.CreateJob(context.Background(), CreateJobRequest{
		Platform: types.PlatformReddit,
		Target:   "programming",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	status := waitForTerminal(t, scheduler, job.ID)
	if status.Status != JobFailed {
		t.Fatalf("status = %s, want failed", status.Status)
	}
	if status.Success {
		t.Error("expected success=false")
	}
	if len(status.Errors) == 0 {
		t.Error("expected the failure to be recorded in job errors")
	}
}

func TestStopJob_Running(t *testing.T) {
	blocking := &blockingAdapter{
		fakeAdapter: fakeAdapter{platform: types.PlatformReddit, strategy: types.StrategyWeb},
		started:     make(chan struct{}),
	}
	jobs := newMemJobStore()
	scheduler := newTestScheduler(&memPostStore{}, jobs, blocking)

	job, err := scheduler.CreateJob(context.Background(), CreateJobRequest{
		Platform: types.PlatformReddit,
		Target:   "programming",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	select {
	case <-blocking.started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started streaming")
	}

	stopped, err := scheduler.StopJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("stop job: %v", err)
	}
	if !stopped {
		t.Fatal("expected StopJob to report true for a running job")
	}

	status, err := scheduler.JobStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	if status.Status != JobCancelled {
		t.Errorf("status = %s, want cancelled", status.Status)
	}
	if status.CompletedAt == nil {
		t.Error("expected completedAt to be set")
	}
	if status.IsRunning {
		t.Error("cancelled job must not be reported as running")
	}
	if len(scheduler.ListActiveJobs()) != 0 {
		t.Error("active table must be empty after cancellation")
	}
}

func TestStopJob_Terminal(t *testing.T) {
	web := &fakeAdapter{
		platform: types.PlatformReddit,
		strategy: types.StrategyWeb,
		posts:    []*types.Post{{ID: "1", Content: "only"}},
	}
	jobs := newMemJobStore()
	scheduler := newTestScheduler(&memPostStore{}, jobs, web)

	job, err := scheduler.CreateJob(context.Background(), CreateJobRequest{
		Platform: types.PlatformReddit,
		Target:   "programming",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	before := waitForTerminal(t, scheduler, job.ID)

	stopped, err := scheduler.StopJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("stop job: %v", err)
	}
	if stopped {
		t.Error("StopJob on a terminal job must report false")
	}

	after, err := scheduler.JobStatus(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job status: %v", err)
	}
	if after.Status != before.Status {
		t.Errorf("terminal status changed from %s to %s", before.Status, after.Status)
	}
}

func TestJobStatus_UnknownJob(t *testing.T) {
	scheduler := newTestScheduler(&memPostStore{}, newMemJobStore())

	status, err := scheduler.JobStatus(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != nil {
		t.Errorf("status = %+v, want nil for an unknown id", status)
	}
}
