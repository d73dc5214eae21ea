package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kickoff-ai/core/pkg/favorites"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/models/api"
)

// Service is the favorites store
type Service interface {
	List() []models.FavoriteTeam
	Toggle(ctx context.Context, name string) (bool, error)
	SetFlags(ctx context.Context, name string, flags favorites.Flags) (models.FavoriteTeam, error)
}

type Handler struct {
	service Service
	logger  *logger.Logger
}

func NewHandler(service Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

type toggleRequest struct {
	Team string `json:"team"`
}

type toggleResponse struct {
	Team     string `json:"team"`
	Favorite bool   `json:"favorite"`
}

type flagsRequest struct {
	Team string `json:"team"`
	favorites.Flags
}

// List handles GET /api/favorites
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, h.service.List())
}

// Toggle handles POST /api/favorites
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Team) == "" {
		api.WriteError(w, http.StatusBadRequest, "team is required")
		return
	}

	added, err := h.service.Toggle(r.Context(), req.Team)
	if err != nil {
		h.logger.Error().Err(err).Str("action", "favorite_toggle_failed").Str("team", req.Team).Msg("Failed to toggle favorite")
		api.WriteError(w, http.StatusInternalServerError, "Failed to update favorites")
		return
	}

	h.write(w, http.StatusOK, toggleResponse{Team: req.Team, Favorite: added})
}

// SetFlags handles PUT /api/favorites/flags
func (h *Handler) SetFlags(w http.ResponseWriter, r *http.Request) {
	var req flagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Team) == "" {
		api.WriteError(w, http.StatusBadRequest, "team is required")
		return
	}

	team, err := h.service.SetFlags(r.Context(), req.Team, req.Flags)
	if errors.Is(err, favorites.ErrUnknownTeam) {
		api.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("action", "favorite_flags_failed").Str("team", req.Team).Msg("Failed to update notification flags")
		api.WriteError(w, http.StatusInternalServerError, "Failed to update favorites")
		return
	}

	h.write(w, http.StatusOK, team)
}

func (h *Handler) write(w http.ResponseWriter, status int, v interface{}) {
	if err := api.WriteJSON(w, status, v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
