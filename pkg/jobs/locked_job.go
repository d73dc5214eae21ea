package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kickoff-ai/core/pkg/backend"
	"github.com/kickoff-ai/core/pkg/logger"
)

// LockedJobConfig controls locking and retries for a wrapped job
type LockedJobConfig struct {
	LockTimeout  time.Duration // how long to wait for the lock; 0 tries once
	SkipIfLocked bool          // a held lock skips the run instead of failing it
	MaxRetries   int           // extra attempts after a retryable failure
	RetryBackoff time.Duration // doubled after each retry
}

func DefaultLockedJobConfig() *LockedJobConfig {
	return &LockedJobConfig{
		LockTimeout:  30 * time.Second,
		SkipIfLocked: true,
		MaxRetries:   0,
		RetryBackoff: time.Second,
	}
}

// LockedJob runs a job under its lock, retrying failures the backend may
// recover from on its own
type LockedJob struct {
	job         Job
	lockManager JobLockManager
	config      LockedJobConfig
	logger      *logger.Logger
}

func NewLockedJob(job Job, lockManager JobLockManager, config *LockedJobConfig, log *logger.Logger) *LockedJob {
	if config == nil {
		config = DefaultLockedJobConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LockedJob{
		job:         job,
		lockManager: lockManager,
		config:      *config,
		logger:      log,
	}
}

func (p *LockedJob) Name() string {
	return p.job.Name()
}

func (p *LockedJob) Schedule() string {
	return p.job.Schedule()
}

func (p *LockedJob) Execute(ctx context.Context) error {
	name := p.job.Name()
	guard := NewLockGuard(p.lockManager, name)

	acquired, err := guard.Acquire(ctx, p.config.LockTimeout)
	if err != nil {
		return fmt.Errorf("failed to acquire lock for job %s: %w", name, err)
	}
	if !acquired {
		if p.config.SkipIfLocked {
			p.logger.Info().
				Str("job_name", name).
				Str("action", "job_skipped_locked").
				Msg("Job skipped, another instance is running")
			return nil
		}
		return fmt.Errorf("could not acquire lock for job %s", name)
	}

	defer func() {
		// the run may have exhausted ctx; the lock must still go back
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := guard.Release(releaseCtx); err != nil {
			p.logger.Error().
				Err(err).
				Str("job_name", name).
				Str("action", "lock_release_error").
				Msg("Failed to release job lock")
		}
	}()

	return p.executeWithRetry(ctx)
}

func (p *LockedJob) executeWithRetry(ctx context.Context) error {
	backoff := p.config.RetryBackoff
	attempts := p.config.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			p.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Str("job_name", p.job.Name()).
				Str("action", "job_retry").
				Msg("Retrying job after failure")

			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = p.job.Execute(ctx)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// retryable rejects failures that only the user can fix (quota, key) and
// cancellation; everything else gets another attempt
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !backend.KindOf(err).RequiresCredentials()
}
