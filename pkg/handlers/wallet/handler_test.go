package wallet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/models/api"
	"github.com/kickoff-ai/core/pkg/wallet"
)

type staticSource struct{ data *models.SportsData }

func (s staticSource) Data() *models.SportsData { return s.data }

var current = &models.SportsData{Matches: []models.Match{{
	ID:       "m1",
	HomeTeam: "Inter",
	AwayTeam: "Milan",
	Odds:     models.Odds{Home: 1.8, Draw: 3.4, Away: 4.2},
}}}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/bets", strings.NewReader(body)))
	return rec
}

func TestPlaceBet(t *testing.T) {
	w := wallet.New(nil, logger.Nop())
	h := NewHandler(w, staticSource{current}, logger.Nop())

	rec := post(h.PlaceBet, `{"matchId":"m1","selection":"1","amount":"100"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var bet models.Bet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bet))
	assert.Equal(t, "Inter vs Milan", bet.MatchName)
	assert.True(t, decimal.NewFromInt(180).Equal(bet.PotentialWin))

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/wallet", nil))
	var resp api.WalletResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, decimal.NewFromInt(900).Equal(resp.Balance))
	assert.Equal(t, 1, resp.Bets)
}

func TestPlaceBet_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown match", `{"matchId":"zz","selection":"1","amount":"10"}`, http.StatusNotFound},
		{"bad selection", `{"matchId":"m1","selection":"3","amount":"10"}`, http.StatusBadRequest},
		{"zero amount", `{"matchId":"m1","selection":"X","amount":"0"}`, http.StatusBadRequest},
		{"too much", `{"matchId":"m1","selection":"2","amount":"1000.01"}`, http.StatusPaymentRequired},
		{"no over line", `{"matchId":"m1","selection":"over25","amount":"10"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(wallet.New(nil, logger.Nop()), staticSource{current}, logger.Nop())
			assert.Equal(t, tt.wantCode, post(h.PlaceBet, tt.body).Code)
		})
	}
}

func TestReset(t *testing.T) {
	w := wallet.New(nil, logger.Nop())
	h := NewHandler(w, staticSource{current}, logger.Nop())
	post(h.PlaceBet, `{"matchId":"m1","selection":"1","amount":"250"}`)

	rec := httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodPost, "/api/wallet/reset", nil))

	assert.True(t, wallet.InitialBalance.Equal(w.Balance()))
	assert.Empty(t, w.Bets())
}
