package matches

import (
	"net/http"
	"strconv"

	"github.com/kickoff-ai/core/pkg/filter"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/models/api"
)

// DataSource returns the data currently shown, nil before the first load
type DataSource interface {
	Data() *models.SportsData
}

// Handler serves the filtered views of the current data
type Handler struct {
	source DataSource
	logger *logger.Logger
}

func NewHandler(source DataSource, log *logger.Logger) *Handler {
	return &Handler{source: source, logger: log}
}

func criteria(r *http.Request) filter.Criteria {
	q := r.URL.Query()
	live, _ := strconv.ParseBool(q.Get("live"))
	return filter.Criteria{
		Search:   q.Get("search"),
		League:   q.Get("league"),
		LiveOnly: live,
	}
}

// List handles GET /api/matches?search=&league=&live=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	data := h.source.Data()
	c := criteria(r)

	resp := api.MatchesResponse{
		Matches: filter.Matches(data, c),
		Sources: []models.GroundingSource{},
	}
	if data != nil {
		resp.LastUpdated = data.LastUpdated
		if data.Sources != nil {
			resp.Sources = data.Sources
		}
	}

	h.logger.Debug().
		Str("action", "matches_response").
		Str("league", c.League).
		Bool("live_only", c.LiveOnly).
		Int("count", len(resp.Matches)).
		Msg("Returning matches")

	h.write(w, resp)
}

// Standings handles GET /api/standings?search=&league=
func (h *Handler) Standings(w http.ResponseWriter, r *http.Request) {
	data := h.source.Data()

	resp := api.StandingsResponse{Standings: filter.Standings(data, criteria(r))}
	if data != nil {
		resp.LastUpdated = data.LastUpdated
	}
	h.write(w, resp)
}

// Leagues handles GET /api/leagues. The list always starts with the "All" option.
func (h *Handler) Leagues(w http.ResponseWriter, r *http.Request) {
	leagues := append([]string{filter.AllLeagues}, filter.Leagues(h.source.Data())...)
	h.write(w, leagues)
}

func (h *Handler) write(w http.ResponseWriter, v interface{}) {
	if err := api.WriteJSON(w, http.StatusOK, v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
