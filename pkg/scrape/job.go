package scrape

import (
	"time"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
)

type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Job is one tracked scrape run. The scheduler owns the record while the
// job executes; the persisted snapshot is owned by the job store.
type Job struct {
	ID              string         `json:"id"`
	Platform        types.Platform `json:"platform"`
	Target          string         `json:"target"`
	MaxPosts        int            `json:"maxPosts"`
	IncludeComments bool           `json:"includeComments"`
	Keywords        []string       `json:"keywords,omitempty"`
	Strategy        types.Strategy `json:"strategy,omitempty"`
	Status          JobState       `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	PostsScraped    int            `json:"postsScraped"`
	CommentsScraped int            `json:"commentsScraped"`
	Success         bool           `json:"success"`
	Errors          []string       `json:"errors,omitempty"`
}

// JobUpdate is a partial-field update applied to a persisted job record.
// Nil fields are left untouched.
type JobUpdate struct {
	Status          *JobState
	StartedAt       *time.Time
	CompletedAt     *time.Time
	PostsScraped    *int
	CommentsScraped *int
	Success         *bool
	Errors          []string
}

// JobStatus merges the persisted record with the live running flag.
type JobStatus struct {
	Job
	IsRunning bool `json:"isRunning"`
}
