package jobs

import (
	"context"
	"fmt"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/orchestrator"
)

// Loader runs an orchestrator load
type Loader interface {
	Load(ctx context.Context, trigger orchestrator.Trigger, opts orchestrator.Options) orchestrator.Result
}

// SnapshotRefreshJob keeps history filling when no dashboard is watching.
// It loads as a silent refresh, so it never waits on credential selection.
type SnapshotRefreshJob struct {
	loader   Loader
	schedule string
}

func NewSnapshotRefreshJob(loader Loader, schedule string) Job {
	if schedule == "" {
		schedule = "*/15 * * * *"
	}
	return &SnapshotRefreshJob{loader: loader, schedule: schedule}
}

func (j *SnapshotRefreshJob) Execute(ctx context.Context) error {
	log := logger.WithContext(ctx, "snapshot-refresh")

	result := j.loader.Load(ctx, orchestrator.TriggerSilent, orchestrator.Options{})
	switch result.Outcome {
	case orchestrator.OutcomeFresh:
		log.Info().
			Str("action", "snapshot_stored").
			Int("matches", result.Matches).
			Bool("degraded", result.Degraded).
			Msg("Fresh snapshot stored")
		return nil
	case orchestrator.OutcomeSkipped:
		log.Debug().Str("action", "snapshot_skipped").Msg("Load already in flight")
		return nil
	default:
		return fmt.Errorf("snapshot refresh ended %s after %d attempts: %w", result.Outcome, result.Attempts, result.Err)
	}
}

func (j *SnapshotRefreshJob) Name() string {
	return "snapshot_refresh"
}

func (j *SnapshotRefreshJob) Schedule() string {
	return j.schedule
}
