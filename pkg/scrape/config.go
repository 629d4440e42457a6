package scrape

// Config tunes the job scheduler.
type Config struct {
	// MaxConcurrentJobs bounds how many jobs execute at once; excess
	// jobs queue in the pool.
	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS,default=8" validate:"min=1"`

	// MaxCommentsPerPost caps the comment tree drained per kept post
	// when a job requests comment expansion.
	MaxCommentsPerPost int `env:"MAX_COMMENTS_PER_POST,default=100" validate:"min=1"`
}
