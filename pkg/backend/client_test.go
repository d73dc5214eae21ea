package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig(StaticKey("test-key"))
	config.BaseURL = server.URL
	config.BreakerFailures = 3
	return NewClient(config, logger.Nop()), server
}

func textReply(text string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
				"groundingMetadata": map[string]interface{}{
					"groundingChunks": []interface{}{
						map[string]interface{}{"web": map[string]interface{}{"uri": "https://example.com/a", "title": "Lega"}},
						map[string]interface{}{"web": map[string]interface{}{"uri": "https://example.com/b"}},
					},
				},
			},
		},
	})
	return string(body)
}

func TestGenerate_RequestShape(t *testing.T) {
	var captured generateRequest
	var path, key string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = io.WriteString(w, textReply("ciao"))
	})

	resp, err := client.Generate(context.Background(), Request{
		Prompt:         "hello",
		UseSearch:      true,
		ThinkingBudget: 15000,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if path != "/models/gemini-3-flash-preview:generateContent" {
		t.Errorf("Unexpected path %s", path)
	}
	if key != "test-key" {
		t.Errorf("Expected API key header, got %q", key)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].GoogleSearch == nil {
		t.Errorf("Expected googleSearch tool, got %+v", captured.Tools)
	}
	if captured.GenerationConfig.ThinkingConfig.ThinkingBudget != 15000 {
		t.Errorf("Expected thinking budget 15000, got %d", captured.GenerationConfig.ThinkingConfig.ThinkingBudget)
	}
	if resp.Text != "ciao" {
		t.Errorf("Expected text ciao, got %q", resp.Text)
	}

	want := []models.GroundingSource{
		{Title: "Lega", URI: "https://example.com/a"},
		{Title: "Dettaglio", URI: "https://example.com/b"},
	}
	if len(resp.Sources) != len(want) {
		t.Fatalf("Expected %d sources, got %d", len(want), len(resp.Sources))
	}
	for i := range want {
		if resp.Sources[i] != want[i] {
			t.Errorf("Source %d = %+v, want %+v", i, resp.Sources[i], want[i])
		}
	}
}

func TestGenerate_NoSearchOmitsToolsAndSources(t *testing.T) {
	var raw map[string]json.RawMessage

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &raw)
		_, _ = io.WriteString(w, textReply("{}"))
	})

	resp, err := client.Generate(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, ok := raw["tools"]; ok {
		t.Error("Expected no tools when search is disabled")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Expected no sources without search, got %d", len(resp.Sources))
	}
}

func TestGenerate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"quota", 429, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, KindQuota},
		{"permission denied", 403, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`, KindCredential},
		{"model not found", 404, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`, KindCredential},
		{"invalid key as bad request", 400, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, KindCredential},
		{"gateway timeout", 504, `upstream timeout`, KindTimeout},
		{"internal", 500, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`, KindOther},
		{"unparseable 200", 200, `not json`, KindMalformed},
		{"no candidates", 200, `{"candidates":[]}`, KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.Generate(context.Background(), Request{Prompt: "x"})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestGenerate_MissingKeySkipsNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	config := DefaultConfig(StaticKey(""))
	config.BaseURL = server.URL
	client := NewClient(config, logger.Nop())

	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	if KindOf(err) != KindCredential {
		t.Errorf("Expected credential error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("Expected no HTTP request without a key")
	}
}

func TestGenerate_ContextDeadlineIsTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, Request{Prompt: "x"})
	if KindOf(err) != KindTimeout {
		t.Errorf("Expected timeout, got %v", err)
	}
}

func TestGenerate_BreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		_, _ = client.Generate(context.Background(), Request{Prompt: "x"})
	}

	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	if KindOf(err) != KindUnavailable {
		t.Errorf("Expected unavailable after breaker trips, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("Expected 3 HTTP requests, got %d", hits)
	}
	if client.BreakerState() != "open" {
		t.Errorf("Expected breaker open, got %s", client.BreakerState())
	}
}

func TestGenerate_QuotaDoesNotTripBreaker(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Generate(context.Background(), Request{Prompt: "x"})
		if KindOf(err) != KindQuota {
			t.Fatalf("call %d: expected quota, got %v", i, err)
		}
	}
	if client.BreakerState() != "closed" {
		t.Errorf("Expected breaker closed, got %s", client.BreakerState())
	}
}

func TestFetchSportsData(t *testing.T) {
	var prompt string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		prompt = req.Contents[0].Parts[0].Text
		_, _ = io.WriteString(w, textReply("```json\n{\"matches\":[{\"id\":\"1\",\"homeTeam\":\"Inter\",\"awayTeam\":\"Milan\",\"score\":\"1-0\",\"status\":\"Live 60'\",\"league\":\"Serie A\"}],\"standings\":{}}\n```"))
	})

	result, err := client.FetchSportsData(context.Background(), FetchParams{
		UseSearch: true,
		Location:  &models.Location{Lat: 45.46, Lng: 9.19},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Payload.Matches) != 1 || result.Payload.Matches[0].HomeTeam != "Inter" {
		t.Errorf("Unexpected matches: %+v", result.Payload.Matches)
	}
	if len(result.Sources) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(result.Sources))
	}
	if !strings.Contains(prompt, "Coordinate utente: 45.46, 9.19.") {
		t.Errorf("Expected location in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "Serie A, Premier League, La Liga e Bundesliga") {
		t.Errorf("Expected leagues in prompt, got %q", prompt)
	}
}

func TestFetchSportsData_MissingMatchesIsMalformed(t *testing.T) {
	replies := []string{"{}", "Nessun dato disponibile", `{"matches": null}`}

	for _, reply := range replies {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, textReply(reply))
		})
		_, err := client.FetchSportsData(context.Background(), FetchParams{})
		if KindOf(err) != KindMalformed {
			t.Errorf("reply %q: expected malformed, got %v", reply, err)
		}
	}
}

func TestPredictMatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, textReply(`Ecco: {"prediction":"1","confidence":"65%","analysis":"Inter in forma"}`))
	})

	p, err := client.PredictMatch(context.Background(), "Inter", "Milan", false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if p.Prediction != "1" || p.Confidence != "65%" {
		t.Errorf("Unexpected prediction %+v", p)
	}
}

func TestAnalyzeHistory_Fallback(t *testing.T) {
	var req generateRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		_, _ = io.WriteString(w, textReply(""))
	})

	history := make([]models.HistoricalSnapshot, 8)
	for i := range history {
		history[i] = models.HistoricalSnapshot{ID: string(rune('a' + i))}
	}

	text, err := client.AnalyzeHistory(context.Background(), history, []string{"Inter"}, true)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if text != AnalysisFallback {
		t.Errorf("Expected fallback text, got %q", text)
	}
	if req.GenerationConfig.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", req.GenerationConfig.Temperature)
	}
	prompt := req.Contents[0].Parts[0].Text
	if strings.Contains(prompt, `"id":"f"`) {
		t.Error("Expected only the five newest snapshots in the prompt")
	}
	if !strings.Contains(prompt, "squadre preferite: Inter.") {
		t.Errorf("Expected favorites in prompt, got %q", prompt)
	}
}

func TestStatusError_TruncatesOnRuneBoundary(t *testing.T) {
	// 199 ASCII bytes followed by a two-byte "à" straddling the limit
	body := []byte(strings.Repeat("x", 199) + "àèìòù")

	e := statusError(http.StatusBadGateway, nil, body)

	if !utf8.ValidString(e.Message) {
		t.Fatalf("Expected valid UTF-8, got %q", e.Message)
	}
	if len(e.Message) != 199 {
		t.Errorf("Expected 199 bytes, got %d", len(e.Message))
	}
	if e.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status %d, got %d", http.StatusBadGateway, e.StatusCode)
	}
}
