package health

import (
	"context"
	"net/http"
	"time"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models/api"
)

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the backend circuit breaker state
type BreakerReporter interface {
	BreakerState() string
}

// Handler handles health check requests
type Handler struct {
	store   Pinger
	backend BreakerReporter
	logger  *logger.Logger
}

// NewHandler creates a new health handler. store and backend may be nil.
func NewHandler(store Pinger, backend BreakerReporter, log *logger.Logger) *Handler {
	return &Handler{
		store:   store,
		backend: backend,
		logger:  log,
	}
}

// HealthCheck handles the /health endpoint. An open breaker is reported
// but does not fail the check; an unreachable store does.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response := api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := h.store.Ping(ctx)
		cancel()
		if err != nil {
			h.logger.Warn().
				Err(err).
				Str("action", "health_store_unreachable").
				Msg("Storage ping failed")
			response.Status = "degraded"
			response.Checks["storage"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response.Checks["storage"] = "ok"
		}
	}

	if h.backend != nil {
		response.Checks["backend_breaker"] = h.backend.BreakerState()
	}

	if err := api.WriteJSON(w, status, response); err != nil {
		h.logger.Error().
			Err(err).
			Str("action", "health_check_failed").
			Str("endpoint", "/health").
			Msg("Failed to encode health response")
		return
	}

	h.logger.Debug().
		Str("action", "health_check").
		Str("endpoint", "/health").
		Str("method", r.Method).
		Str("remote_addr", r.RemoteAddr).
		Int("status_code", status).
		Dur("duration", time.Since(start)).
		Msg("Health check completed")
}
