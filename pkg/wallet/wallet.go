// Package wallet simulates a betting balance. No real money is involved.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/storage"
)

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidSelection  = errors.New("unknown selection")
	ErrOddsUnavailable   = errors.New("odds not available for selection")
)

// InitialBalance is the starting and reset balance
var InitialBalance = decimal.NewFromInt(1000)

// Selections accepted by PlaceBet
const (
	SelectionHome    = "1"
	SelectionDraw    = "X"
	SelectionAway    = "2"
	SelectionOver25  = "over25"
	SelectionUnder25 = "under25"
	SelectionGG      = "gg"
	SelectionNG      = "ng"
)

// Goal/no-goal lines are offered even when the model omits them
var (
	defaultGGOdds = 1.85
	defaultNGOdds = 1.90
)

var selectionAliases = map[string]string{
	"1":         SelectionHome,
	"x":         SelectionDraw,
	"2":         SelectionAway,
	"over25":    SelectionOver25,
	"over 2.5":  SelectionOver25,
	"under25":   SelectionUnder25,
	"under 2.5": SelectionUnder25,
	"gg":        SelectionGG,
	"gol":       SelectionGG,
	"ng":        SelectionNG,
	"no gol":    SelectionNG,
}

// NormalizeSelection maps user labels ("GOL", "x") to the canonical selection
func NormalizeSelection(selection string) (string, bool) {
	canonical, ok := selectionAliases[strings.ToLower(strings.TrimSpace(selection))]
	return canonical, ok
}

// OddsFor returns the quoted odds of a canonical selection
func OddsFor(odds models.Odds, selection string) (float64, error) {
	optional := func(v *models.FlexFloat, fallback float64) float64 {
		if v == nil || v.Float64() <= 0 {
			return fallback
		}
		return v.Float64()
	}

	var value float64
	switch selection {
	case SelectionHome:
		value = odds.Home.Float64()
	case SelectionDraw:
		value = odds.Draw.Float64()
	case SelectionAway:
		value = odds.Away.Float64()
	case SelectionOver25:
		value = optional(odds.Over25, 0)
	case SelectionUnder25:
		value = optional(odds.Under25, 0)
	case SelectionGG:
		value = optional(odds.GG, defaultGGOdds)
	case SelectionNG:
		value = optional(odds.NG, defaultNGOdds)
	default:
		return 0, ErrInvalidSelection
	}

	if value <= 1 {
		return 0, ErrOddsUnavailable
	}
	return value, nil
}

// Wallet holds the balance and the bet ledger, newest first
type Wallet struct {
	mu      sync.Mutex
	balance decimal.Decimal
	bets    []models.Bet
	persist *storage.Namespace
	logger  *logger.Logger
	now     func() time.Time
}

func New(persist *storage.Namespace, log *logger.Logger) *Wallet {
	if log == nil {
		log = logger.Nop()
	}
	return &Wallet{
		balance: InitialBalance,
		bets:    []models.Bet{},
		persist: persist,
		logger:  log,
		now:     time.Now,
	}
}

// Load restores balance and ledger; corrupt values fall back to the defaults
func (w *Wallet) Load(ctx context.Context) {
	if w.persist == nil {
		return
	}

	balance := InitialBalance
	var stored decimal.Decimal
	if w.persist.GetJSON(ctx, storage.KeyBalance, &stored) {
		balance = stored
	}

	bets := []models.Bet{}
	var storedBets []models.Bet
	if w.persist.GetJSON(ctx, storage.KeyBetHistory, &storedBets) && storedBets != nil {
		bets = storedBets
	}

	w.mu.Lock()
	w.balance = balance
	w.bets = bets
	w.mu.Unlock()
}

// PlaceBet debits amount and records the bet at the match's current odds
func (w *Wallet) PlaceBet(ctx context.Context, match models.Match, selection string, amount decimal.Decimal) (models.Bet, error) {
	canonical, ok := NormalizeSelection(selection)
	if !ok {
		return models.Bet{}, fmt.Errorf("%w: %q", ErrInvalidSelection, selection)
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return models.Bet{}, ErrInvalidAmount
	}

	odds, err := OddsFor(match.Odds, canonical)
	if err != nil {
		return models.Bet{}, fmt.Errorf("%s on %s: %w", canonical, match.Label(), err)
	}

	w.mu.Lock()
	if amount.GreaterThan(w.balance) {
		w.mu.Unlock()
		return models.Bet{}, ErrInsufficientFunds
	}

	bet := models.Bet{
		ID:           uuid.New().String(),
		MatchID:      match.ID,
		MatchName:    match.Label(),
		Selection:    canonical,
		Odds:         odds,
		Amount:       amount,
		PotentialWin: amount.Mul(decimal.NewFromFloat(odds)).Round(2),
		Timestamp:    w.now().UnixMilli(),
	}

	w.balance = w.balance.Sub(amount)
	w.bets = append([]models.Bet{bet}, w.bets...)
	balance := w.balance
	bets := w.copyLocked()
	w.mu.Unlock()

	w.save(ctx, balance, bets)

	w.logger.Info().
		Str("action", "bet_placed").
		Str("match", bet.MatchName).
		Str("selection", bet.Selection).
		Str("amount", bet.Amount.StringFixed(2)).
		Str("balance", balance.StringFixed(2)).
		Msg("Simulated bet placed")

	return bet, nil
}

func (w *Wallet) Balance() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// Bets returns the ledger, newest first
func (w *Wallet) Bets() []models.Bet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.copyLocked()
}

// Reset restores the initial balance and clears the ledger
func (w *Wallet) Reset(ctx context.Context) {
	w.mu.Lock()
	w.balance = InitialBalance
	w.bets = []models.Bet{}
	w.mu.Unlock()

	w.save(ctx, InitialBalance, []models.Bet{})
}

func (w *Wallet) copyLocked() []models.Bet {
	out := make([]models.Bet, len(w.bets))
	copy(out, w.bets)
	return out
}

func (w *Wallet) save(ctx context.Context, balance decimal.Decimal, bets []models.Bet) {
	if w.persist == nil {
		return
	}
	if err := w.persist.SetJSON(ctx, storage.KeyBalance, balance); err != nil {
		w.logger.Error().Err(err).Str("action", "wallet_persist_failed").Msg("Failed to persist balance")
	}
	if err := w.persist.SetJSON(ctx, storage.KeyBetHistory, bets); err != nil {
		w.logger.Error().Err(err).Str("action", "wallet_persist_failed").Msg("Failed to persist bet history")
	}
}
