package notify

import (
	"fmt"

	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/utils"
)

// FavoriteFinder resolves a team name to a followed team
type FavoriteFinder interface {
	Find(name string) (models.FavoriteTeam, bool)
}

// Alert is a notification derived from two consecutive fetches
type Alert struct {
	Title   string
	Message string
	Type    models.NotificationType
}

// Detector compares fetches and reports start, goal and end events for
// matches involving a favorite team
type Detector struct {
	normalizer *utils.TeamNameNormalizer
}

func NewDetector() *Detector {
	return &Detector{normalizer: utils.NewTeamNameNormalizer()}
}

func (d *Detector) key(m models.Match) string {
	return d.normalizer.Normalize(m.HomeTeam) + "|" + d.normalizer.Normalize(m.AwayTeam)
}

// Diff returns the alerts implied by the transition prev -> next.
// Match IDs are not stable across fetches, so fixtures are paired by team names.
// A nil prev yields no alerts.
func (d *Detector) Diff(prev, next *models.SportsData, favorites FavoriteFinder) []Alert {
	if prev == nil || next == nil || favorites == nil {
		return nil
	}

	previous := make(map[string]models.Match, len(prev.Matches))
	for _, m := range prev.Matches {
		previous[d.key(m)] = m
	}

	var alerts []Alert
	for _, m := range next.Matches {
		team, ok := favorites.Find(m.HomeTeam)
		if !ok {
			team, ok = favorites.Find(m.AwayTeam)
		}
		if !ok {
			continue
		}

		old, seen := previous[d.key(m)]
		if !seen {
			continue
		}

		before, after := old.Phase(), m.Phase()

		if team.NotifyStart && before == models.PhaseUpcoming && after == models.PhaseLive {
			alerts = append(alerts, Alert{
				Title:   "Inizio partita",
				Message: fmt.Sprintf("%s è iniziata", m.Label()),
				Type:    models.NotificationStart,
			})
		}

		if team.NotifyGoals {
			oldHome, oldAway, okOld := old.Goals()
			newHome, newAway, okNew := m.Goals()
			if !okOld && okNew {
				oldHome, oldAway, okOld = 0, 0, true
			}
			if okOld && okNew && newHome+newAway > oldHome+oldAway {
				scorer := m.HomeTeam
				if newAway > oldAway {
					scorer = m.AwayTeam
				}
				alerts = append(alerts, Alert{
					Title:   "GOL!",
					Message: fmt.Sprintf("Gol %s: %s %d-%d %s", scorer, m.HomeTeam, newHome, newAway, m.AwayTeam),
					Type:    models.NotificationGoal,
				})
			}
		}

		if team.NotifyEnd && before != models.PhaseFinished && after == models.PhaseFinished {
			alerts = append(alerts, Alert{
				Title:   "Fine partita",
				Message: fmt.Sprintf("%s %s %s", m.HomeTeam, m.Score, m.AwayTeam),
				Type:    models.NotificationEnd,
			})
		}
	}
	return alerts
}
