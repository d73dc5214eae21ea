package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickoff-ai/core/pkg/backend"
	"github.com/kickoff-ai/core/pkg/logger"
)

func TestScheduler_StartupJobsAndStatus(t *testing.T) {
	scheduler := NewScheduler(nil, &SchedulerConfig{StartupJobs: []string{"warmup", "absent"}}, logger.Nop())

	warmup := &mockJob{name: "warmup", schedule: "@every 1h"}
	failing := &mockJob{
		name:        "failing",
		schedule:    "@every 1h",
		executeFunc: func(ctx context.Context) error { return errors.New("boom") },
	}
	require.NoError(t, scheduler.RegisterJob(warmup))
	require.NoError(t, scheduler.RegisterJob(failing))

	scheduler.Start()
	defer scheduler.Stop()

	assert.Equal(t, int32(1), warmup.runs.Load(), "startup job runs before Start returns")
	assert.Equal(t, int32(0), failing.runs.Load())

	assert.Error(t, scheduler.RunJob(context.Background(), "failing"))

	status, err := scheduler.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status["warmup"].Successes)
	assert.Equal(t, 1, status["failing"].Failures)
	assert.Equal(t, "boom", status["failing"].LastError)
	assert.False(t, status["failing"].IsLocked)
}

func TestLockedJob_SkipsWhenLocked(t *testing.T) {
	locks := NewLocalLockManager()
	job := &mockJob{name: "locked", schedule: "@every 1h"}

	_, _ = locks.AcquireLock(context.Background(), "locked")
	wrapped := NewLockedJob(job, locks, &LockedJobConfig{SkipIfLocked: true}, logger.Nop())

	require.NoError(t, wrapped.Execute(context.Background()))
	assert.Equal(t, int32(0), job.runs.Load())

	strict := NewLockedJob(job, locks, &LockedJobConfig{SkipIfLocked: false}, logger.Nop())
	assert.Error(t, strict.Execute(context.Background()))
}

func TestLockedJob_ReleasesLock(t *testing.T) {
	locks := NewLocalLockManager()
	job := &mockJob{name: "release", schedule: "@every 1h"}

	require.NoError(t, NewLockedJob(job, locks, nil, logger.Nop()).Execute(context.Background()))

	locked, err := locks.IsLocked(context.Background(), "release")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLockedJob_Retry(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantRuns int32
	}{
		{"transient failure is retried", &backend.Error{Kind: backend.KindUnavailable}, 3},
		{"quota failure is not retried", &backend.Error{Kind: backend.KindQuota}, 1},
		{"credential failure is not retried", &backend.Error{Kind: backend.KindCredential}, 1},
		{"cancellation is not retried", context.Canceled, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &mockJob{
				name:        "retry",
				schedule:    "@every 1h",
				executeFunc: func(ctx context.Context) error { return tt.err },
			}
			wrapped := NewLockedJob(job, NewLocalLockManager(), &LockedJobConfig{
				SkipIfLocked: true,
				MaxRetries:   2,
				RetryBackoff: time.Millisecond,
			}, logger.Nop())

			err := wrapped.Execute(context.Background())
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantRuns, job.runs.Load())
		})
	}
}
