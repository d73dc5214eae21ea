package jobs

import "context"

// Job represents a schedulable job that can be executed by the cron service
type Job interface {
	// Execute runs the job with the given context
	Execute(ctx context.Context) error

	// Name returns a stable identifier, also used as the lock key
	Name() string

	// Schedule returns the cron schedule expression for this job
	// Format: "minute hour day month weekday" or "@every duration"
	Schedule() string
}

// JobManager manages and schedules multiple jobs
type JobManager interface {
	// RegisterJob adds a job to the manager
	RegisterJob(job Job) error

	// Start begins executing all registered jobs according to their schedules
	Start()

	// Stop waits for running jobs and shuts the manager down
	Stop()

	// GetJobs returns all registered jobs
	GetJobs() []Job

	// RunJob executes a registered job immediately, outside its schedule
	RunJob(ctx context.Context, name string) error
}
