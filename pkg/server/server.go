package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kickoff-ai/core/internal/config"
	"github.com/kickoff-ai/core/pkg/analysis"
	"github.com/kickoff-ai/core/pkg/backend"
	"github.com/kickoff-ai/core/pkg/credentials"
	"github.com/kickoff-ai/core/pkg/favorites"
	"github.com/kickoff-ai/core/pkg/geo"
	favoriteshandler "github.com/kickoff-ai/core/pkg/handlers/favorites"
	"github.com/kickoff-ai/core/pkg/handlers/health"
	historyhandler "github.com/kickoff-ai/core/pkg/handlers/history"
	"github.com/kickoff-ai/core/pkg/handlers/matches"
	notificationshandler "github.com/kickoff-ai/core/pkg/handlers/notifications"
	"github.com/kickoff-ai/core/pkg/handlers/predictions"
	"github.com/kickoff-ai/core/pkg/handlers/state"
	"github.com/kickoff-ai/core/pkg/handlers/stream"
	wallethandler "github.com/kickoff-ai/core/pkg/handlers/wallet"
	"github.com/kickoff-ai/core/pkg/history"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/middleware"
	"github.com/kickoff-ai/core/pkg/notify"
	"github.com/kickoff-ai/core/pkg/orchestrator"
	"github.com/kickoff-ai/core/pkg/storage"
	"github.com/kickoff-ai/core/pkg/wallet"
)

// Server represents the API server
type Server struct {
	router     *http.ServeMux
	httpServer *http.Server
	cors       *middleware.CORS
	logger     *logger.Logger

	store         storage.Store
	backend       *backend.Client
	orchestrator  *orchestrator.Orchestrator
	history       *history.Store
	favorites     *favorites.Service
	wallet        *wallet.Wallet
	notifications *notify.Center
	analysis      *analysis.Service
	hub           *stream.Hub

	handlers struct {
		health        *health.Handler
		state         *state.Handler
		matches       *matches.Handler
		history       *historyhandler.Handler
		predictions   *predictions.Handler
		favorites     *favoriteshandler.Handler
		wallet        *wallethandler.Handler
		notifications *notificationshandler.Handler
	}
}

// New wires storage, the model client and the orchestrator behind the HTTP API.
// Nothing is fetched until Start.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, error) {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := testStorageConnection(store, log); err != nil {
		_ = store.Close()
		return nil, err
	}

	creds, err := credentials.FromConfig(cfg.Backend.APIKey, cfg.Backend.APIKeyFile)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	persist := storage.NewNamespace(store, cfg.Storage.Namespace, log)
	clock := clockwork.NewRealClock()

	backendCfg := backend.DefaultConfig(creds)
	backendCfg.BaseURL = cfg.Backend.BaseURL
	backendCfg.Model = cfg.Backend.Model
	backendCfg.Language = cfg.Backend.Language
	backendCfg.Leagues = cfg.Backend.Leagues
	backendCfg.BreakerFailures = cfg.Backend.BreakerFailures
	backendCfg.BreakerCooldown = cfg.Backend.BreakerCooldown

	s := &Server{
		router:        http.NewServeMux(),
		cors:          middleware.NewCORS(cfg.Server.AllowedOrigins),
		logger:        log,
		store:         store,
		backend:       backend.NewClient(backendCfg, log),
		history:       history.New(cfg.Refresh.HistorySize, persist, log),
		favorites:     favorites.NewService(persist, log),
		wallet:        wallet.New(persist, log),
		notifications: notify.NewCenter(clock),
	}

	// Init restores history again; cron mode never calls it
	s.history.Load(ctx)
	s.favorites.Load(ctx)
	s.wallet.Load(ctx)

	s.orchestrator = orchestrator.New(orchestrator.Config{
		Timeout:         cfg.Backend.Timeout,
		DegradedTimeout: cfg.Backend.DegradedTimeout,
		Countdown:       cfg.Refresh.Countdown,
		ThinkingMode:    cfg.Refresh.ThinkingMode,
	}, orchestrator.Deps{
		Fetcher:     s.backend,
		Credentials: creds,
		History:     s.history,
		Favorites:   s.favorites,
		Notifier:    s.notifications,
		Locator:     geo.FromConfig(cfg.Geo),
		Clock:       clock,
		Logger:      log,
	})

	s.analysis = analysis.NewService(s.backend, s.history, s.favorites, s.orchestrator, log)
	s.hub = stream.NewHub(s.orchestrator, stream.DefaultConfig(), log)
	s.notifications.OnNotify(s.hub.Notify)

	s.handlers.health = health.NewHandler(store, s.backend, log)
	s.handlers.state = state.NewHandler(s.orchestrator, log)
	s.handlers.matches = matches.NewHandler(s.orchestrator, log)
	s.handlers.history = historyhandler.NewHandler(s.history, s.analysis, log)
	s.handlers.predictions = predictions.NewHandler(s.analysis, log)
	s.handlers.favorites = favoriteshandler.NewHandler(s.favorites, log)
	s.handlers.wallet = wallethandler.NewHandler(s.wallet, s.orchestrator, log)
	s.handlers.notifications = notificationshandler.NewHandler(s.notifications, log)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("action", "server_ready").
		Str("storage_driver", cfg.Storage.Driver).
		Str("model", cfg.Backend.Model).
		Int("favorites", len(s.favorites.List())).
		Msg("Server components initialized")

	return s, nil
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handlers.health.HealthCheck)

	// Orchestrator
	s.router.HandleFunc("GET /api/state", s.handlers.state.Get)
	s.router.HandleFunc("POST /api/refresh", s.handlers.state.Refresh)
	s.router.HandleFunc("POST /api/view", s.handlers.state.SetView)
	s.router.HandleFunc("POST /api/thinking", s.handlers.state.SetThinking)
	s.router.HandleFunc("POST /api/credentials/select", s.handlers.state.SelectCredentials)

	// Current data
	s.router.HandleFunc("GET /api/matches", s.handlers.matches.List)
	s.router.HandleFunc("GET /api/standings", s.handlers.matches.Standings)
	s.router.HandleFunc("GET /api/leagues", s.handlers.matches.Leagues)

	// History
	s.router.HandleFunc("GET /api/history", s.handlers.history.List)
	s.router.HandleFunc("GET /api/history/{id}", s.handlers.history.Get)
	s.router.HandleFunc("DELETE /api/history", s.handlers.history.Clear)
	s.router.HandleFunc("POST /api/history/analysis", s.handlers.history.Analyze)

	s.router.HandleFunc("POST /api/predictions", s.handlers.predictions.Predict)

	// Favorites
	s.router.HandleFunc("GET /api/favorites", s.handlers.favorites.List)
	s.router.HandleFunc("POST /api/favorites", s.handlers.favorites.Toggle)
	s.router.HandleFunc("PUT /api/favorites/flags", s.handlers.favorites.SetFlags)

	// Wallet
	s.router.HandleFunc("GET /api/wallet", s.handlers.wallet.Get)
	s.router.HandleFunc("POST /api/wallet/reset", s.handlers.wallet.Reset)
	s.router.HandleFunc("GET /api/bets", s.handlers.wallet.Bets)
	s.router.HandleFunc("POST /api/bets", s.handlers.wallet.PlaceBet)

	// Notifications
	s.router.HandleFunc("GET /api/notifications", s.handlers.notifications.List)
	s.router.HandleFunc("DELETE /api/notifications/{id}", s.handlers.notifications.Dismiss)

	s.router.HandleFunc("GET /ws", s.hub.ServeWS)
}

// Handler returns the router with CORS and request logging applied
func (s *Server) Handler() http.Handler {
	return middleware.RequestLog(s.logger, s.cors.Handler(s.router))
}

// Start runs the initial load and the stream hub in the background and
// serves HTTP until Shutdown. The orchestrator stays bound to ctx.
func (s *Server) Start(ctx context.Context) error {
	changes, unsubscribe := s.orchestrator.Subscribe()
	go func() {
		defer unsubscribe()
		s.hub.Run(ctx, changes)
	}()

	go func() {
		result := s.orchestrator.Init(ctx)
		s.logger.Info().
			Str("action", "initial_load").
			Str("outcome", string(result.Outcome)).
			Int("matches", result.Matches).
			Bool("degraded", result.Degraded).
			Msg("Initial load finished")
	}()

	s.logger.Info().
		Str("action", "server_start").
		Str("addr", s.httpServer.Addr).
		Msg("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start on %s: %w", s.httpServer.Addr, err)
	}

	return nil
}

// Shutdown stops accepting requests, disposes the orchestrator and closes storage
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.orchestrator.Dispose()

	if closeErr := s.store.Close(); closeErr != nil {
		s.logger.Error().Err(closeErr).Str("action", "storage_close_failed").Msg("Failed to close storage")
	} else {
		s.logger.Info().Str("action", "storage_closed").Msg("Storage closed")
	}

	return err
}

func (s *Server) Orchestrator() *orchestrator.Orchestrator { return s.orchestrator }

func (s *Server) Notifications() *notify.Center { return s.notifications }

func (s *Server) Analysis() *analysis.Service { return s.analysis }

func (s *Server) Store() storage.Store { return s.store }

// testStorageConnection pings the store with retry logic
func testStorageConnection(store storage.Store, log *logger.Logger) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := store.Ping(ctx)
		cancel()

		if err == nil {
			return nil
		}

		if i == maxRetries-1 {
			return fmt.Errorf("failed to ping storage after %d retries: %w", maxRetries, err)
		}

		log.Warn().
			Err(err).
			Int("attempt", i+1).
			Str("action", "storage_ping_retry").
			Msg("Retrying storage connection")
		time.Sleep(2 * time.Second)
	}

	return nil
}
