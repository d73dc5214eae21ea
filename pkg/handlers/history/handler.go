package history

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kickoff-ai/core/pkg/analysis"
	"github.com/kickoff-ai/core/pkg/backend"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/models/api"
)

const analysisTimeout = 2 * time.Minute

// Store is the snapshot history
type Store interface {
	List() []models.HistoricalSnapshot
	Get(id string) (models.HistoricalSnapshot, bool)
	Clear(ctx context.Context)
	Len() int
}

// Analyzer produces the tactical report over the newest snapshots
type Analyzer interface {
	AnalyzeHistory(ctx context.Context) (string, error)
}

type Handler struct {
	store    Store
	analyzer Analyzer
	logger   *logger.Logger
}

func NewHandler(store Store, analyzer Analyzer, log *logger.Logger) *Handler {
	return &Handler{store: store, analyzer: analyzer, logger: log}
}

// List handles GET /api/history, newest first, without the payloads
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	snapshots := h.store.List()

	entries := make([]api.HistoryEntry, 0, len(snapshots))
	for _, s := range snapshots {
		entries = append(entries, api.HistoryEntry{
			ID:        s.ID,
			Timestamp: s.Timestamp,
			Matches:   len(s.Data.Matches),
			Leagues:   len(s.Data.Standings),
		})
	}
	h.write(w, http.StatusOK, entries)
}

// Get handles GET /api/history/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.store.Get(r.PathValue("id"))
	if !ok {
		api.WriteError(w, http.StatusNotFound, "Snapshot not found")
		return
	}
	h.write(w, http.StatusOK, snapshot)
}

// Clear handles DELETE /api/history
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear(r.Context())

	h.logger.Info().Str("action", "history_cleared").Msg("History cleared")
	w.WriteHeader(http.StatusNoContent)
}

// Analyze handles POST /api/history/analysis
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), analysisTimeout)
	defer cancel()

	report, err := h.analyzer.AnalyzeHistory(ctx)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, analysis.ErrNoHistory):
			status = http.StatusConflict
		case backend.KindOf(err).RequiresCredentials():
			status = http.StatusTooManyRequests
			if backend.KindOf(err) == backend.KindCredential {
				status = http.StatusUnauthorized
			}
		}

		h.logger.Error().
			Err(err).
			Str("action", "history_analysis_failed").
			Msg("Failed to analyze history")
		api.WriteError(w, status, err.Error())
		return
	}

	h.write(w, http.StatusOK, api.AnalysisResponse{Report: report, Snapshots: min(h.store.Len(), 5)})
}

func (h *Handler) write(w http.ResponseWriter, status int, v interface{}) {
	if err := api.WriteJSON(w, status, v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
