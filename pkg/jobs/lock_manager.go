package jobs

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kickoff-ai/core/pkg/logger"
)

// JobLockManager keeps two processes from running the same job at once
type JobLockManager interface {
	// AcquireLock returns false when another holder has the lock
	AcquireLock(ctx context.Context, jobName string) (bool, error)

	ReleaseLock(ctx context.Context, jobName string) error

	IsLocked(ctx context.Context, jobName string) (bool, error)

	// AcquireLockWithTimeout polls until the lock is free or timeout elapses
	AcquireLockWithTimeout(ctx context.Context, jobName string, timeout time.Duration) (bool, error)
}

// Querier is the subset of a pgx connection used for advisory locks.
// Advisory locks belong to a session, so pass a single connection
// (*pgx.Conn or an acquired *pgxpool.Conn), not a pool.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// AdvisoryLockManager uses PostgreSQL advisory locks. It is selected when
// storage runs on postgres, so api and cron replicas share locks.
type AdvisoryLockManager struct {
	db     Querier
	logger *logger.Logger
}

func NewAdvisoryLockManager(db Querier, log *logger.Logger) *AdvisoryLockManager {
	if log == nil {
		log = logger.Nop()
	}
	return &AdvisoryLockManager{db: db, logger: log}
}

// lockID maps a job name to the int64 key advisory locks require
func lockID(jobName string) int64 {
	hash := md5.Sum([]byte("kickoff:" + jobName))

	id := int64(0)
	for i := 0; i < 8; i++ {
		id = id<<8 + int64(hash[i])
	}
	if id < 0 {
		id = -id
	}
	return id
}

func (p *AdvisoryLockManager) AcquireLock(ctx context.Context, jobName string) (bool, error) {
	id := lockID(jobName)

	var acquired bool
	if err := p.db.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&acquired); err != nil {
		p.logger.Error().
			Err(err).
			Str("job_name", jobName).
			Int64("lock_id", id).
			Str("action", "acquire_lock_failed").
			Msg("Failed to acquire advisory lock")
		return false, fmt.Errorf("failed to acquire lock for job %s: %w", jobName, err)
	}

	p.logger.Debug().
		Str("job_name", jobName).
		Int64("lock_id", id).
		Bool("acquired", acquired).
		Str("action", "acquire_lock").
		Msg("Advisory lock attempt")

	return acquired, nil
}

func (p *AdvisoryLockManager) ReleaseLock(ctx context.Context, jobName string) error {
	id := lockID(jobName)

	var released bool
	if err := p.db.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", id).Scan(&released); err != nil {
		return fmt.Errorf("failed to release lock for job %s: %w", jobName, err)
	}

	if !released {
		p.logger.Warn().
			Str("job_name", jobName).
			Int64("lock_id", id).
			Str("action", "lock_not_held").
			Msg("Attempted to release lock that was not held")
	}
	return nil
}

// IsLocked tries the lock and gives it straight back when free
func (p *AdvisoryLockManager) IsLocked(ctx context.Context, jobName string) (bool, error) {
	id := lockID(jobName)

	var free bool
	if err := p.db.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&free); err != nil {
		return false, fmt.Errorf("failed to check lock status for job %s: %w", jobName, err)
	}
	if !free {
		return true, nil
	}

	if _, err := p.db.Exec(ctx, "SELECT pg_advisory_unlock($1)", id); err != nil {
		p.logger.Warn().Err(err).Str("job_name", jobName).Msg("Failed to release lock after check")
	}
	return false, nil
}

func (p *AdvisoryLockManager) AcquireLockWithTimeout(ctx context.Context, jobName string, timeout time.Duration) (bool, error) {
	return pollLock(ctx, p, jobName, timeout)
}

// LocalLockManager serializes jobs inside one process. It is used with the
// memory, file and redis storage drivers.
type LocalLockManager struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{held: make(map[string]bool)}
}

func (l *LocalLockManager) AcquireLock(ctx context.Context, jobName string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[jobName] {
		return false, nil
	}
	l.held[jobName] = true
	return true, nil
}

func (l *LocalLockManager) ReleaseLock(ctx context.Context, jobName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, jobName)
	return nil
}

func (l *LocalLockManager) IsLocked(ctx context.Context, jobName string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[jobName], nil
}

func (l *LocalLockManager) AcquireLockWithTimeout(ctx context.Context, jobName string, timeout time.Duration) (bool, error) {
	return pollLock(ctx, l, jobName, timeout)
}

// pollLock retries AcquireLock every 100ms. Running out of time is not an
// error: it returns false so the caller can skip the run.
func pollLock(ctx context.Context, m JobLockManager, jobName string, timeout time.Duration) (bool, error) {
	acquired, err := m.AcquireLock(ctx, jobName)
	if err != nil || acquired {
		return acquired, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
			acquired, err := m.AcquireLock(ctx, jobName)
			if err != nil || acquired {
				return acquired, err
			}
		}
	}
}

// LockGuard releases only a lock it acquired
type LockGuard struct {
	lockManager JobLockManager
	jobName     string
	acquired    bool
}

func NewLockGuard(lockManager JobLockManager, jobName string) *LockGuard {
	return &LockGuard{lockManager: lockManager, jobName: jobName}
}

func (lg *LockGuard) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	var (
		acquired bool
		err      error
	)
	if timeout > 0 {
		acquired, err = lg.lockManager.AcquireLockWithTimeout(ctx, lg.jobName, timeout)
	} else {
		acquired, err = lg.lockManager.AcquireLock(ctx, lg.jobName)
	}
	if err != nil {
		return false, err
	}
	lg.acquired = acquired
	return acquired, nil
}

func (lg *LockGuard) Release(ctx context.Context) error {
	if !lg.acquired {
		return nil
	}
	if err := lg.lockManager.ReleaseLock(ctx, lg.jobName); err != nil {
		return err
	}
	lg.acquired = false
	return nil
}

func (lg *LockGuard) IsAcquired() bool {
	return lg.acquired
}

// NewLockManager picks advisory locks when store is backed by postgres and
// in-process locks otherwise. release returns the dedicated lock connection.
func NewLockManager(ctx context.Context, store interface{}, log *logger.Logger) (JobLockManager, func(), error) {
	owner, ok := store.(poolOwner)
	if !ok {
		return NewLocalLockManager(), func() {}, nil
	}

	conn, err := owner.Pool().Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire lock connection: %w", err)
	}
	return NewAdvisoryLockManager(conn, log), conn.Release, nil
}
