package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kickoff-ai/core/internal/config"
	"github.com/kickoff-ai/core/pkg/events"
	"github.com/kickoff-ai/core/pkg/jobs"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/server"
	"github.com/kickoff-ai/core/pkg/storage"
)

func main() {
	// A missing .env is normal in containers
	_ = godotenv.Load()

	logger.SetupLogger()
	log := logger.New("api-service")

	cfg, err := config.LoadFile(os.Getenv("KICKOFF_CONFIG"))
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "config_failed").
			Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "server_creation_failed").
			Msg("Failed to create server")
	}

	if cfg.Events.NATSURL != "" {
		eventsCfg := events.DefaultConfig(cfg.Events.NATSURL)
		eventsCfg.Subject = cfg.Events.Subject
		publisher, err := events.Connect(eventsCfg, log)
		if err != nil {
			// the dashboard works without NATS
			log.Error().
				Err(err).
				Str("action", "events_disabled").
				Msg("Failed to connect to NATS, state changes will not be published")
		} else {
			defer publisher.Close()
			changes, unsubscribe := srv.Orchestrator().Subscribe()
			defer unsubscribe()
			go publisher.Run(ctx, changes)
			srv.Notifications().OnNotify(func(n models.AppNotification) {
				// failures are logged by the publisher; a lost notification is not retried
				_ = publisher.PublishNotification(n)
			})
		}
	}

	lockManager, releaseLocks, err := jobs.NewLockManager(ctx, srv.Store(), log)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "lock_manager_failed").
			Msg("Failed to create job lock manager")
	}
	defer releaseLocks()

	scheduler := jobs.NewJobManager(lockManager, &jobs.SchedulerConfig{
		StartupJobs: []string{"storage_health"},
	}, log)
	registerJobs(scheduler, srv, cfg, log)
	scheduler.Start()

	go func() {
		if err := srv.Start(ctx); err != nil {
			log.Error().
				Err(err).
				Str("action", "server_failed").
				Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Str("action", "shutdown").Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scheduler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("action", "shutdown_failed").Msg("Server shutdown failed")
	}
}

// registerJobs adds the background jobs that complement the live refresher.
// The dashboard refresher covers live matches, so no snapshot job runs here.
func registerJobs(scheduler jobs.JobManager, srv *server.Server, cfg *config.Config, log *logger.Logger) {
	toRegister := []jobs.Job{
		jobs.NewStorageHealthJob(srv.Store()),
		jobs.NewHistoryAnalysisJob(
			srv.Analysis(),
			storage.NewNamespace(srv.Store(), cfg.Storage.Namespace, log),
			srv.Notifications(),
			cfg.Refresh.AnalysisSchedule,
		),
	}

	for _, job := range toRegister {
		if err := scheduler.RegisterJob(job); err != nil {
			log.Fatal().
				Err(err).
				Str("action", "job_registration_failed").
				Str("job_name", job.Name()).
				Msg("Failed to register job")
		}
	}
}
