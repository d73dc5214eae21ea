package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/parser"
)

const (
	sportsThinkingBudget     = 15000
	predictionThinkingBudget = 10000
	analysisThinkingBudget   = 15000

	analysisTemperature = 0.7
	analysisWindow      = 5

	// AnalysisFallback is returned when the model produces no text
	AnalysisFallback = "Dati insufficienti per generare un'analisi accurata."
)

const sportsSchema = `{"matches": [{"id":"uuid","homeTeam":"...","awayTeam":"...","score":"...","status":"...","league":"...","odds":{"home":0,"draw":0,"away":0},"time":"..."}],"standings": {"Serie A": [{"rank":1,"team":"...","played":0,"points":0,"goals":"0-0","formSequence":["W"]}]}}`

// FetchParams controls a single sports data fetch
type FetchParams struct {
	UseSearch bool
	Thinking  bool
	Location  *models.Location
}

// FetchResult is the parsed reply to a sports data fetch
type FetchResult struct {
	Payload parser.SportsPayload
	Sources []models.GroundingSource
}

func budget(enabled bool, size int) int {
	if enabled {
		return size
	}
	return 0
}

func (c *Client) sportsPrompt(params FetchParams) string {
	location := ""
	if params.Location != nil {
		location = fmt.Sprintf("Coordinate utente: %g, %g.", params.Location.Lat, params.Location.Lng)
	}
	search := "Usa Google Search per dati reali."
	if !params.UseSearch {
		search = "Usa le informazioni più recenti di cui disponi."
	}

	leagues := c.leagues
	if len(leagues) == 0 {
		leagues = DefaultConfig(nil).Leagues
	}
	language := c.language
	if language == "" {
		language = "Italiano"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fornisci JSON match calcio LIVE/RECENTI per %s di OGGI.\n", joinLeagues(leagues))
	fmt.Fprintf(&b, "%s %s\n", search, location)
	fmt.Fprintf(&b, "Restituisci esclusivamente un oggetto JSON valido in %s.\n", language)
	fmt.Fprintf(&b, "Schema: %s\n", sportsSchema)
	return b.String()
}

// joinLeagues renders "A, B, C e D"
func joinLeagues(leagues []string) string {
	if len(leagues) == 1 {
		return leagues[0]
	}
	return strings.Join(leagues[:len(leagues)-1], ", ") + " e " + leagues[len(leagues)-1]
}

// FetchSportsData asks the model for today's matches and standings.
// A reply without a usable matches array is reported as KindMalformed.
func (c *Client) FetchSportsData(ctx context.Context, params FetchParams) (*FetchResult, error) {
	resp, err := c.Generate(ctx, Request{
		Operation:      "fetch_sports_data",
		Prompt:         c.sportsPrompt(params),
		UseSearch:      params.UseSearch,
		ThinkingBudget: budget(params.Thinking, sportsThinkingBudget),
		Temperature:    0,
	})
	if err != nil {
		return nil, err
	}

	payload := parser.ParseSportsPayload(resp.Text)
	if !payload.HasMatches {
		return nil, Malformed("response carries no matches array")
	}

	return &FetchResult{Payload: payload, Sources: resp.Sources}, nil
}

// PredictMatch asks for a 1/X/2 call on a single fixture
func (c *Client) PredictMatch(ctx context.Context, home, away string, thinking bool) (*models.Prediction, error) {
	prompt := fmt.Sprintf(`Analizza e prevedi %s vs %s. JSON: {"prediction":"1/X/2","confidence":"X%%","analysis":"Testo breve"}`, home, away)

	resp, err := c.Generate(ctx, Request{
		Operation:      "predict_match",
		Prompt:         prompt,
		ThinkingBudget: budget(thinking, predictionThinkingBudget),
		Temperature:    0,
	})
	if err != nil {
		return nil, err
	}

	prediction, ok := parser.ParsePrediction(resp.Text)
	if !ok {
		return nil, Malformed("prediction reply could not be parsed")
	}
	return &prediction, nil
}

// AnalyzeHistory produces a free-text tactical report from the newest snapshots
func (c *Client) AnalyzeHistory(ctx context.Context, history []models.HistoricalSnapshot, favorites []string, thinking bool) (string, error) {
	if len(history) > analysisWindow {
		history = history[:analysisWindow]
	}
	snapshots, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}

	focus := "Analizza i trend generali."
	if len(favorites) > 0 {
		focus = fmt.Sprintf("Analizza specificamente queste squadre preferite: %s.", strings.Join(favorites, ", "))
	}

	prompt := fmt.Sprintf(`Sei un analista tattico senior. Basandoti su questi dati storici recenti: %s
%s
Fornisci un report dettagliato in Italiano strutturato così:
1. RIEPILOGO PRESTAZIONI: Come si sono comportate le squadre preferite negli ultimi snapshot?
2. TREND DI FORMA: Chi è in ascesa e chi in difficoltà?
3. PROIEZIONI FUTURE: Cosa aspettarsi dai prossimi match basandosi sulla solidità difensiva e realizzativa mostrata?
Usa un tono professionale e analitico. Evita discorsi generici.`, snapshots, focus)

	resp, err := c.Generate(ctx, Request{
		Operation:      "analyze_history",
		Prompt:         prompt,
		ThinkingBudget: budget(thinking, analysisThinkingBudget),
		Temperature:    analysisTemperature,
	})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(resp.Text) == "" {
		return AnalysisFallback, nil
	}
	return resp.Text, nil
}
