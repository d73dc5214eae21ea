// Package analysis wraps the model calls that are not part of the refresh cycle:
// single-match predictions and the tactical report over stored history.
package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
)

var ErrNoHistory = errors.New("no snapshots to analyze")

// FallbackPrediction is shown when the model cannot be reached
var FallbackPrediction = models.Prediction{
	Prediction: "N/D",
	Confidence: "0%",
	Analysis:   "Verifica quota API.",
}

// Backend is the subset of the model client used here
type Backend interface {
	PredictMatch(ctx context.Context, home, away string, thinking bool) (*models.Prediction, error)
	AnalyzeHistory(ctx context.Context, history []models.HistoricalSnapshot, favorites []string, thinking bool) (string, error)
}

// HistorySource lists snapshots newest first
type HistorySource interface {
	Newest(n int) []models.HistoricalSnapshot
}

// FavoriteSource lists favorite team names
type FavoriteSource interface {
	Names() []string
}

// ThinkingSource reports whether extended reasoning is enabled
type ThinkingSource interface {
	ThinkingMode() bool
}

type Service struct {
	backend   Backend
	history   HistorySource
	favorites FavoriteSource
	thinking  ThinkingSource
	logger    *logger.Logger
}

func NewService(backend Backend, history HistorySource, favorites FavoriteSource, thinking ThinkingSource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		backend:   backend,
		history:   history,
		favorites: favorites,
		thinking:  thinking,
		logger:    log,
	}
}

func (s *Service) thinkingMode() bool {
	return s.thinking != nil && s.thinking.ThinkingMode()
}

// Predict never fails: any backend error yields FallbackPrediction
func (s *Service) Predict(ctx context.Context, home, away string) models.Prediction {
	home, away = strings.TrimSpace(home), strings.TrimSpace(away)

	prediction, err := s.backend.PredictMatch(ctx, home, away, s.thinkingMode())
	if err != nil {
		s.logger.Warn().Err(err).
			Str("action", "prediction_failed").
			Str("home", home).
			Str("away", away).
			Msg("Serving fallback prediction")
		return FallbackPrediction
	}
	return *prediction
}

// AnalyzeHistory reports on the five newest snapshots and the favorite teams
func (s *Service) AnalyzeHistory(ctx context.Context) (string, error) {
	snapshots := s.history.Newest(5)
	if len(snapshots) == 0 {
		return "", ErrNoHistory
	}

	var favorites []string
	if s.favorites != nil {
		favorites = s.favorites.Names()
	}

	return s.backend.AnalyzeHistory(ctx, snapshots, favorites, s.thinkingMode())
}
