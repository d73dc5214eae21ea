package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kickoff-ai/core/pkg/models"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// MatchesResponse is the filtered match list with the refresh metadata
type MatchesResponse struct {
	Matches     []models.Match           `json:"matches"`
	LastUpdated string                   `json:"lastUpdated"`
	Sources     []models.GroundingSource `json:"sources"`
}

// StandingsResponse is the filtered standings grouped by league
type StandingsResponse struct {
	Standings   map[string][]models.Standing `json:"standings"`
	LastUpdated string                       `json:"lastUpdated"`
}

// HistoryEntry summarizes a snapshot without its full payload
type HistoryEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Matches   int    `json:"matches"`
	Leagues   int    `json:"leagues"`
}

// AnalysisResponse carries the tactical report over the stored history
type AnalysisResponse struct {
	Report    string `json:"report"`
	Snapshots int    `json:"snapshots"`
}

type PredictionRequest struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

type BetRequest struct {
	MatchID   string          `json:"matchId"`
	Selection string          `json:"selection"`
	Amount    decimal.Decimal `json:"amount"`
}

type WalletResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Bets    int             `json:"bets"`
}

// Response represents a general API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WriteJSON encodes v with the given status code
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes an unsuccessful Response carrying message
func WriteError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, Response{Success: false, Message: message})
}
