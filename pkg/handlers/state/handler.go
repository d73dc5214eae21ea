package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models/api"
	"github.com/kickoff-ai/core/pkg/orchestrator"
)

// Orchestrator is the part of *orchestrator.Orchestrator driven over HTTP
type Orchestrator interface {
	Snapshot() orchestrator.State
	Load(ctx context.Context, trigger orchestrator.Trigger, opts orchestrator.Options) orchestrator.Result
	SetLiveView(active bool)
	SetThinking(enabled bool) bool
	SelectCredentials(ctx context.Context) (orchestrator.Result, error)
}

// Handler exposes the orchestrator state and its user actions
type Handler struct {
	orch   Orchestrator
	logger *logger.Logger
}

func NewHandler(orch Orchestrator, log *logger.Logger) *Handler {
	return &Handler{orch: orch, logger: log}
}

// LoadResponse reports a finished load together with the resulting state
type LoadResponse struct {
	Result orchestrator.Result `json:"result"`
	Error  string              `json:"error,omitempty"`
	State  orchestrator.State  `json:"state"`
}

type viewRequest struct {
	Live bool `json:"live"`
}

type thinkingRequest struct {
	Enabled bool `json:"enabled"`
}

// Get handles GET /api/state
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, h.orch.Snapshot())
}

// Refresh handles POST /api/refresh. The load outlives the request so a
// client disconnect does not cancel a fetch other viewers are waiting on.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	degraded, _ := strconv.ParseBool(r.URL.Query().Get("degraded"))

	result := h.orch.Load(context.WithoutCancel(r.Context()), orchestrator.TriggerManual, orchestrator.Options{ForceDegraded: degraded})

	status := http.StatusOK
	if result.Outcome == orchestrator.OutcomeSkipped {
		status = http.StatusConflict
	}
	h.write(w, status, h.loadResponse(result))
}

// SetView handles POST /api/view
func (h *Handler) SetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.orch.SetLiveView(req.Live)
	h.write(w, http.StatusOK, h.orch.Snapshot())
}

// SetThinking handles POST /api/thinking. A change reloads in the background.
func (h *Handler) SetThinking(w http.ResponseWriter, r *http.Request) {
	var req thinkingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	changed := h.orch.SetThinking(req.Enabled)
	h.logger.Info().
		Str("action", "thinking_mode").
		Bool("enabled", req.Enabled).
		Bool("changed", changed).
		Msg("Thinking mode updated")

	status := http.StatusOK
	if changed {
		status = http.StatusAccepted
	}
	h.write(w, status, h.orch.Snapshot())
}

// SelectCredentials handles POST /api/credentials/select
func (h *Handler) SelectCredentials(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.SelectCredentials(context.WithoutCancel(r.Context()))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, orchestrator.ErrCredentialsNotSelected) {
			status = http.StatusForbidden
		}
		h.logger.Warn().Err(err).Str("action", "credentials_select_failed").Msg("Credential selection did not complete")
		h.write(w, status, h.loadResponse(result))
		return
	}

	h.write(w, http.StatusOK, h.loadResponse(result))
}

func (h *Handler) loadResponse(result orchestrator.Result) LoadResponse {
	resp := LoadResponse{Result: result, State: h.orch.Snapshot()}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}

func (h *Handler) write(w http.ResponseWriter, status int, v interface{}) {
	if err := api.WriteJSON(w, status, v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
