package notifications

import (
	"net/http"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/models/api"
)

// Center holds the transient notifications
type Center interface {
	Active() []models.AppNotification
	Dismiss(id string) bool
}

type Handler struct {
	center Center
	logger *logger.Logger
}

func NewHandler(center Center, log *logger.Logger) *Handler {
	return &Handler{center: center, logger: log}
}

// List handles GET /api/notifications, newest first
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if err := api.WriteJSON(w, http.StatusOK, h.center.Active()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// Dismiss handles DELETE /api/notifications/{id}
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if !h.center.Dismiss(r.PathValue("id")) {
		api.WriteError(w, http.StatusNotFound, "Notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
