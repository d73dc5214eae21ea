package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/models/api"
	"github.com/kickoff-ai/core/pkg/wallet"
)

// Wallet is the simulated betting balance
type Wallet interface {
	PlaceBet(ctx context.Context, match models.Match, selection string, amount decimal.Decimal) (models.Bet, error)
	Balance() decimal.Decimal
	Bets() []models.Bet
	Reset(ctx context.Context)
}

// DataSource returns the data currently shown, nil before the first load
type DataSource interface {
	Data() *models.SportsData
}

type Handler struct {
	wallet Wallet
	source DataSource
	logger *logger.Logger
}

func NewHandler(w Wallet, source DataSource, log *logger.Logger) *Handler {
	return &Handler{wallet: w, source: source, logger: log}
}

// Get handles GET /api/wallet
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, api.WalletResponse{
		Balance: h.wallet.Balance(),
		Bets:    len(h.wallet.Bets()),
	})
}

// Reset handles POST /api/wallet/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.wallet.Reset(r.Context())
	h.Get(w, r)
}

// Bets handles GET /api/bets
func (h *Handler) Bets(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, h.wallet.Bets())
}

// PlaceBet handles POST /api/bets against a match of the current data
func (h *Handler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req api.BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	match, ok := h.findMatch(req.MatchID)
	if !ok {
		api.WriteError(w, http.StatusNotFound, "Match not found in current data")
		return
	}

	bet, err := h.wallet.PlaceBet(r.Context(), match, req.Selection, req.Amount)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, wallet.ErrInsufficientFunds):
			status = http.StatusPaymentRequired
		case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidSelection):
			status = http.StatusBadRequest
		case errors.Is(err, wallet.ErrOddsUnavailable):
			status = http.StatusUnprocessableEntity
		}
		api.WriteError(w, status, err.Error())
		return
	}

	h.write(w, http.StatusCreated, bet)
}

func (h *Handler) findMatch(id string) (models.Match, bool) {
	data := h.source.Data()
	if data == nil || id == "" {
		return models.Match{}, false
	}
	for _, m := range data.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return models.Match{}, false
}

func (h *Handler) write(w http.ResponseWriter, status int, v interface{}) {
	if err := api.WriteJSON(w, status, v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
