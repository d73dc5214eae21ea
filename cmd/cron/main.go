package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kickoff-ai/core/internal/config"
	"github.com/kickoff-ai/core/pkg/jobs"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/server"
	"github.com/kickoff-ai/core/pkg/storage"
)

func main() {
	var (
		jobName         = flag.String("job", "", "Run specific job once (snapshot_refresh, history_analysis, storage_health)")
		once            = flag.Bool("once", false, "Run job once and exit")
		refreshSchedule = flag.String("refresh-schedule", "*/15 * * * *", "Cron schedule of snapshot_refresh")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger.SetupLogger()
	log := logger.New("cron-service")

	cfg, err := config.LoadFile(os.Getenv("KICKOFF_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Str("action", "config_failed").Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The server is built for its components only; it never listens here.
	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("action", "init_failed").Msg("Failed to initialize components")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lockManager, releaseLocks, err := jobs.NewLockManager(ctx, srv.Store(), log)
	if err != nil {
		log.Fatal().Err(err).Str("action", "lock_manager_failed").Msg("Failed to create job lock manager")
	}
	defer releaseLocks()

	scheduler := jobs.NewJobManager(lockManager, nil, log)

	toRegister := []jobs.Job{
		jobs.NewSnapshotRefreshJob(srv.Orchestrator(), *refreshSchedule),
		jobs.NewHistoryAnalysisJob(
			srv.Analysis(),
			storage.NewNamespace(srv.Store(), cfg.Storage.Namespace, log),
			srv.Notifications(),
			cfg.Refresh.AnalysisSchedule,
		),
		jobs.NewStorageHealthJob(srv.Store()),
	}
	for _, job := range toRegister {
		if err := scheduler.RegisterJob(job); err != nil {
			log.Fatal().Err(err).Str("job_name", job.Name()).Msg("Failed to register job")
		}
	}

	if *once && *jobName != "" {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		log.Info().Str("action", "run_once").Str("job_name", *jobName).Msg("Running job once")
		if err := scheduler.RunJob(runCtx, *jobName); err != nil {
			log.Error().Err(err).Str("job_name", *jobName).Msg("Job failed")
			os.Exit(1)
		}
		return
	}

	scheduler.Start()
	log.Info().
		Str("action", "cron_started").
		Int("job_count", len(scheduler.GetJobs())).
		Msg("Cron job service started")

	<-ctx.Done()

	log.Info().Str("action", "cron_stopping").Msg("Shutting down cron job service")
	scheduler.Stop()
}
