package predictions

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/models/api"
)

const predictionTimeout = 90 * time.Second

// Predictor never fails; backend errors come back as a fallback prediction
type Predictor interface {
	Predict(ctx context.Context, home, away string) models.Prediction
}

type Handler struct {
	predictor Predictor
	logger    *logger.Logger
}

func NewHandler(predictor Predictor, log *logger.Logger) *Handler {
	return &Handler{predictor: predictor, logger: log}
}

// Predict handles POST /api/predictions
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req api.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Home) == "" || strings.TrimSpace(req.Away) == "" {
		api.WriteError(w, http.StatusBadRequest, "home and away are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), predictionTimeout)
	defer cancel()

	prediction := h.predictor.Predict(ctx, req.Home, req.Away)

	h.logger.Info().
		Str("action", "prediction_response").
		Str("home", req.Home).
		Str("away", req.Away).
		Str("prediction", prediction.Prediction).
		Msg("Returning prediction")

	if err := api.WriteJSON(w, http.StatusOK, prediction); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
