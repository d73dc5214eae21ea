// Package filter narrows a SportsData payload for display.
package filter

import (
	"sort"
	"strings"

	"github.com/kickoff-ai/core/pkg/models"
)

// AllLeagues disables league filtering, as does an empty League
const AllLeagues = "All"

// Criteria is the user's current filter
type Criteria struct {
	Search   string
	League   string
	LiveOnly bool
}

func (c Criteria) leagueMatches(league string) bool {
	return c.League == "" || c.League == AllLeagues || c.League == league
}

func (c Criteria) search() string {
	return strings.ToLower(strings.TrimSpace(c.Search))
}

// Leagues returns the sorted union of match and standings leagues
func Leagues(data *models.SportsData) []string {
	if data == nil {
		return []string{}
	}

	seen := make(map[string]bool)
	for _, m := range data.Matches {
		if m.League != "" {
			seen[m.League] = true
		}
	}
	for league := range data.Standings {
		seen[league] = true
	}

	leagues := make([]string, 0, len(seen))
	for league := range seen {
		leagues = append(leagues, league)
	}
	sort.Strings(leagues)
	return leagues
}

// Matches keeps matches whose home or away team contains the search term,
// in the selected league, and live when LiveOnly is set
func Matches(data *models.SportsData, c Criteria) []models.Match {
	out := []models.Match{}
	if data == nil {
		return out
	}

	term := c.search()
	for _, m := range data.Matches {
		if term != "" &&
			!strings.Contains(strings.ToLower(m.HomeTeam), term) &&
			!strings.Contains(strings.ToLower(m.AwayTeam), term) {
			continue
		}
		if !c.leagueMatches(m.League) {
			continue
		}
		if c.LiveOnly && !m.IsLive() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Standings keeps teams matching the search term; leagues left empty are dropped
func Standings(data *models.SportsData, c Criteria) map[string][]models.Standing {
	out := map[string][]models.Standing{}
	if data == nil {
		return out
	}

	term := c.search()
	for league, table := range data.Standings {
		if !c.leagueMatches(league) {
			continue
		}
		var teams []models.Standing
		for _, s := range table {
			if term == "" || strings.Contains(strings.ToLower(s.Team), term) {
				teams = append(teams, s)
			}
		}
		if len(teams) > 0 {
			out[league] = teams
		}
	}
	return out
}
