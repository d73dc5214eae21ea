package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kickoff-ai/core/pkg/logger"
)

// jobTimeout bounds one scheduled run
const jobTimeout = 30 * time.Minute

var _ JobManager = (*Scheduler)(nil)

// NewJobManager returns a Scheduler behind the JobManager interface
func NewJobManager(lockManager JobLockManager, config *SchedulerConfig, log *logger.Logger) JobManager {
	return NewScheduler(lockManager, config, log)
}

func findJob(jobs []Job, name string) (Job, error) {
	for _, job := range jobs {
		if job.Name() == name {
			return job, nil
		}
	}
	return nil, fmt.Errorf("unknown job %q", name)
}

// runJob executes job with a request-scoped logger in ctx
func runJob(ctx context.Context, base *logger.Logger, job Job) error {
	jobLogger := base.WithRequestID(uuid.New().String()).WithJob(job.Name())
	ctx = jobLogger.ToContext(ctx)

	jobLogger.LogJobStart(job.Name(), job.Schedule())
	start := time.Now()

	if err := job.Execute(ctx); err != nil {
		jobLogger.Error().
			Err(err).
			Str("action", "job_failed").
			Dur("duration", time.Since(start)).
			Msg("Job execution failed")
		return err
	}

	jobLogger.LogJobComplete(job.Name(), time.Since(start), 1, 0)
	return nil
}
