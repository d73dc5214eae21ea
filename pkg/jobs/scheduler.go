package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kickoff-ai/core/pkg/logger"
)

// SchedulerConfig configures a Scheduler
type SchedulerConfig struct {
	// StartupJobs run once synchronously when Start is called
	StartupJobs []string
	JobConfig   *LockedJobConfig
}

// Scheduler wraps every registered job in a LockedJob and records the
// outcome of each run
type Scheduler struct {
	cron        *cron.Cron
	lockManager JobLockManager
	config      SchedulerConfig
	logger      *logger.Logger

	mu     sync.Mutex
	jobs   []Job
	status map[string]*JobStatus
}

func NewScheduler(lockManager JobLockManager, config *SchedulerConfig, log *logger.Logger) *Scheduler {
	if config == nil {
		config = &SchedulerConfig{}
	}
	if config.JobConfig == nil {
		config.JobConfig = DefaultLockedJobConfig()
	}
	if lockManager == nil {
		lockManager = NewLocalLockManager()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		lockManager: lockManager,
		config:      *config,
		logger:      log,
		status:      make(map[string]*JobStatus),
	}
}

func (m *Scheduler) RegisterJob(job Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	wrapped := job
	if _, ok := job.(*LockedJob); !ok {
		wrapped = NewLockedJob(job, m.lockManager, m.config.JobConfig, m.logger.WithJob(job.Name()))
	}

	if _, err := m.cron.AddFunc(wrapped.Schedule(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_ = m.run(ctx, wrapped)
	}); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	m.mu.Lock()
	m.jobs = append(m.jobs, wrapped)
	m.status[job.Name()] = &JobStatus{Name: job.Name(), Schedule: job.Schedule()}
	m.mu.Unlock()

	m.logger.Info().
		Str("action", "register_job").
		Str("job_name", job.Name()).
		Str("schedule", job.Schedule()).
		Msg("Registered job")
	return nil
}

func (m *Scheduler) Start() {
	jobs := m.GetJobs()
	m.logger.Info().
		Str("action", "start").
		Int("job_count", len(jobs)).
		Strs("startup_jobs", m.config.StartupJobs).
		Msg("Starting scheduler")

	for _, name := range m.config.StartupJobs {
		job, err := findJob(jobs, name)
		if err != nil {
			m.logger.Warn().Err(err).Str("action", "startup_job_missing").Msg("Startup job not registered")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		_ = m.run(ctx, job)
		cancel()
	}

	m.cron.Start()
}

func (m *Scheduler) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info().Str("action", "stopped").Msg("Scheduler stopped")
}

func (m *Scheduler) GetJobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Job(nil), m.jobs...)
}

func (m *Scheduler) RunJob(ctx context.Context, name string) error {
	job, err := findJob(m.GetJobs(), name)
	if err != nil {
		return err
	}
	return m.run(ctx, job)
}

func (m *Scheduler) run(ctx context.Context, job Job) error {
	start := time.Now()
	err := runJob(ctx, m.logger, job)

	m.mu.Lock()
	if st, ok := m.status[job.Name()]; ok {
		st.LastRun = start
		st.LastDuration = time.Since(start)
		if err != nil {
			st.Failures++
			st.LastError = err.Error()
		} else {
			st.Successes++
			st.LastError = ""
		}
	}
	m.mu.Unlock()

	return err
}

// Status reports each job's run counters and whether it is locked right now
func (m *Scheduler) Status(ctx context.Context) (map[string]JobStatus, error) {
	m.mu.Lock()
	snapshot := make(map[string]JobStatus, len(m.status))
	for name, st := range m.status {
		snapshot[name] = *st
	}
	m.mu.Unlock()

	for name, st := range snapshot {
		locked, err := m.lockManager.IsLocked(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check lock status for job %s: %w", name, err)
		}
		st.IsLocked = locked
		snapshot[name] = st
	}
	return snapshot, nil
}

// JobStatus represents the current status of a job
type JobStatus struct {
	Name         string        `json:"name"`
	Schedule     string        `json:"schedule"`
	IsLocked     bool          `json:"is_locked"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	Successes    int           `json:"successes"`
	Failures     int           `json:"failures"`
}
