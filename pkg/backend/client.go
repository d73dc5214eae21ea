package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
)

// KeySource supplies the API key for each call. The key may change at runtime
// after the user selects new credentials.
type KeySource interface {
	APIKey() string
}

// StaticKey is a KeySource with a fixed key
type StaticKey string

func (k StaticKey) APIKey() string { return string(k) }

// Config holds configuration for the Gemini client
type Config struct {
	BaseURL         string
	Model           string
	Keys            KeySource
	HTTPTimeout     time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Language        string
	Leagues         []string
}

// DefaultConfig returns a default configuration
func DefaultConfig(keys KeySource) *Config {
	return &Config{
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-3-flash-preview",
		Keys:            keys,
		HTTPTimeout:     2 * time.Minute,
		BreakerFailures: 5,
		BreakerCooldown: 60 * time.Second,
		Language:        "Italiano",
		Leagues:         []string{"Serie A", "Premier League", "La Liga", "Bundesliga"},
	}
}

// Request is one generateContent call
type Request struct {
	Operation      string // used for logging only
	Prompt         string
	UseSearch      bool
	ThinkingBudget int
	Temperature    float64
}

// Response is the text of the first candidate plus web grounding sources
type Response struct {
	Text    string
	Sources []models.GroundingSource
}

// Client talks to the Gemini generateContent REST endpoint
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	keys       KeySource
	language   string
	leagues    []string
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger

	mu    sync.Mutex
	calls int
}

// NewClient creates a new Gemini client
func NewClient(config *Config, log *logger.Logger) *Client {
	if config == nil {
		config = DefaultConfig(StaticKey(""))
	}
	if log == nil {
		log = logger.New("gemini-client")
	}

	failures := config.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		model:    config.Model,
		keys:     config.Keys,
		language: config.Language,
		leagues:  config.Leagues,
		logger:   log,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini",
		Timeout: config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Only transport and 5xx failures open the breaker. Quota and key
		// errors need the user, timeouts are handled by the degraded retry.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch KindOf(err) {
			case KindQuota, KindCredential, KindMalformed, KindTimeout:
				return true
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("action", "breaker_state_change").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Backend circuit breaker changed state")
		},
	})

	return c
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	Tools            []tool           `json:"tools,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generationConfig struct {
	Temperature    float64        `json:"temperature"`
	ThinkingConfig thinkingConfig `json:"thinkingConfig"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content           content            `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate runs a generateContent call through the circuit breaker
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, req)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &Error{Kind: KindUnavailable, Message: "circuit breaker open", Err: err}
		}
		if KindOf(err) == KindOther && deadlineExceeded(ctx) {
			err = &Error{Kind: KindTimeout, Message: "deadline exceeded", Err: err}
		}
		c.logger.LogBackendCall(req.Operation, req.UseSearch, req.ThinkingBudget, time.Since(start), err)
		return nil, err
	}

	c.logger.LogBackendCall(req.Operation, req.UseSearch, req.ThinkingBudget, time.Since(start), nil)
	return result.(*Response), nil
}

func deadlineExceeded(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return errors.Is(ctx.Err(), context.DeadlineExceeded)
	default:
		return false
	}
}

func (c *Client) generate(ctx context.Context, req Request) (*Response, error) {
	key := ""
	if c.keys != nil {
		key = c.keys.APIKey()
	}
	if key == "" {
		return nil, &Error{Kind: KindCredential, Message: "API key not provided"}
	}

	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	body := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: req.Prompt}},
		}},
		GenerationConfig: generationConfig{
			Temperature:    req.Temperature,
			ThinkingConfig: thinkingConfig{ThinkingBudget: req.ThinkingBudget},
		},
	}
	if req.UseSearch {
		body.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if KindOf(err) == KindTimeout {
			return nil, &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
		}
		return nil, &Error{Kind: KindOther, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if KindOf(err) == KindTimeout {
			return nil, &Error{Kind: KindTimeout, Message: "reading response timed out", Err: err}
		}
		return nil, &Error{Kind: KindOther, Message: "failed to read response body", Err: err}
	}

	var response generateResponse
	decodeErr := json.Unmarshal(data, &response)

	if resp.StatusCode != http.StatusOK || response.Error != nil {
		return nil, statusError(resp.StatusCode, response.Error, data)
	}
	if decodeErr != nil {
		return nil, &Error{Kind: KindMalformed, Message: "failed to decode response", Err: decodeErr}
	}
	if len(response.Candidates) == 0 {
		return nil, Malformed("no response candidates returned")
	}

	first := response.Candidates[0]
	var text strings.Builder
	for _, p := range first.Content.Parts {
		if p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}

	out := &Response{Text: text.String()}
	if req.UseSearch && first.GroundingMetadata != nil {
		for _, chunk := range first.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			title := chunk.Web.Title
			if title == "" {
				title = "Dettaglio"
			}
			out.Sources = append(out.Sources, models.GroundingSource{Title: title, URI: chunk.Web.URI})
		}
	}

	return out, nil
}

func statusError(statusCode int, apiErr *apiError, body []byte) *Error {
	e := &Error{StatusCode: statusCode}
	if apiErr != nil {
		e.Status = apiErr.Status
		e.Message = apiErr.Message
		if apiErr.Code != 0 {
			e.StatusCode = apiErr.Code
		}
	} else {
		e.Message = truncate(strings.TrimSpace(string(body)), maxErrorBody)
	}
	e.Kind = classifyMessage(classifyStatus(e.StatusCode, e.Status), e.Message)
	return e
}

const maxErrorBody = 200

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Calls returns how many HTTP requests were attempted
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// BreakerState exposes the circuit breaker state for health checks
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
