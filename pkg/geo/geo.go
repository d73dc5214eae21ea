// Package geo resolves an approximate user location used as a prompt hint.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kickoff-ai/core/internal/config"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
)

var ErrDisabled = errors.New("geolocation disabled")

// Locator returns the current location
type Locator interface {
	Locate(ctx context.Context) (models.Location, error)
}

// Static always returns the configured coordinates
type Static models.Location

func (s Static) Locate(ctx context.Context) (models.Location, error) {
	return models.Location(s), nil
}

// Disabled never produces a location
type Disabled struct{}

func (Disabled) Locate(ctx context.Context) (models.Location, error) {
	return models.Location{}, ErrDisabled
}

// IPLocator looks up the server's public IP with an ip-api.com compatible endpoint
type IPLocator struct {
	url    string
	client *http.Client
}

func NewIPLocator(url string) *IPLocator {
	return &IPLocator{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLocator) Locate(ctx context.Context) (models.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to create request: %w", err)
	}

	log := logger.WithContext(ctx, "geo")
	start := time.Now()

	resp, err := l.client.Do(req)
	if err != nil {
		log.LogAPICall(http.MethodGet, l.url, 0, time.Since(start), err)
		return models.Location{}, fmt.Errorf("failed to look up location: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	log.LogAPICall(http.MethodGet, l.url, resp.StatusCode, time.Since(start), nil)

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("location lookup returned status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Location{}, fmt.Errorf("failed to decode location: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return models.Location{}, fmt.Errorf("location lookup failed: %s", body.Message)
	}

	return models.Location{Lat: body.Lat, Lng: body.Lon}, nil
}

// FromConfig picks the locator for cfg.Mode (off, static, ip)
func FromConfig(cfg config.GeoConfig) Locator {
	switch cfg.Mode {
	case "static":
		return Static{Lat: cfg.Lat, Lng: cfg.Lng}
	case "ip":
		return NewIPLocator(cfg.LookupURL)
	default:
		return Disabled{}
	}
}
