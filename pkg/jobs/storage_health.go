package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kickoff-ai/core/pkg/database/pool"
	"github.com/kickoff-ai/core/pkg/logger"
)

// Pinger is a storage driver
type Pinger interface {
	Ping(ctx context.Context) error
}

// poolOwner is implemented by the postgres driver
type poolOwner interface {
	Pool() *pgxpool.Pool
}

// StorageHealthJob pings storage and, on postgres, logs pool statistics
type StorageHealthJob struct {
	store Pinger
}

func NewStorageHealthJob(store Pinger) Job {
	return &StorageHealthJob{store: store}
}

func (j *StorageHealthJob) Execute(ctx context.Context) error {
	log := logger.WithContext(ctx, "storage-health")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := j.store.Ping(ctx); err != nil {
		return fmt.Errorf("storage unreachable: %w", err)
	}

	event := log.Info().
		Str("action", "storage_healthy").
		Dur("ping", time.Since(start))

	if owner, ok := j.store.(poolOwner); ok {
		stats := pool.GetStats(owner.Pool())
		event = event.
			Int32("acquired_conns", stats.AcquiredConns).
			Int32("idle_conns", stats.IdleConns).
			Int32("total_conns", stats.TotalConns).
			Int32("max_conns", stats.MaxConns)
	}

	event.Msg("Storage health check passed")
	return nil
}

func (j *StorageHealthJob) Name() string {
	return "storage_health"
}

func (j *StorageHealthJob) Schedule() string {
	return "*/5 * * * *"
}
