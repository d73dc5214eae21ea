// Package favorites tracks followed teams and their notification preferences.
package favorites

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/storage"
	"github.com/kickoff-ai/core/pkg/utils"
)

var ErrUnknownTeam = errors.New("team is not a favorite")

// Flags updates notification preferences; nil fields are left unchanged
type Flags struct {
	NotifyGoals *bool `json:"notifyGoals,omitempty"`
	NotifyStart *bool `json:"notifyStart,omitempty"`
	NotifyEnd   *bool `json:"notifyEnd,omitempty"`
}

// Service holds favorites in insertion order, keyed by team slug
type Service struct {
	mu         sync.RWMutex
	teams      []models.FavoriteTeam
	persist    *storage.Namespace
	normalizer *utils.TeamNameNormalizer
	logger     *logger.Logger
}

func NewService(persist *storage.Namespace, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		teams:      []models.FavoriteTeam{},
		persist:    persist,
		normalizer: utils.NewTeamNameNormalizer(),
		logger:     log,
	}
}

// Load restores persisted favorites. Entries without a slug are repaired.
func (s *Service) Load(ctx context.Context) int {
	if s.persist == nil {
		return 0
	}

	var stored []models.FavoriteTeam
	if !s.persist.GetJSON(ctx, storage.KeyFavorites, &stored) {
		// older clients stored a plain list of names
		var names []string
		if !s.persist.GetJSON(ctx, storage.KeyFavorites, &names) {
			return 0
		}
		for _, name := range names {
			stored = append(stored, models.FavoriteTeam{Name: name, NotifyGoals: true, NotifyStart: true, NotifyEnd: true})
		}
	}

	teams := make([]models.FavoriteTeam, 0, len(stored))
	for _, team := range stored {
		if strings.TrimSpace(team.Name) == "" {
			continue
		}
		if team.Slug == "" {
			team.Slug = utils.TeamSlug(team.Name)
		}
		teams = append(teams, team)
	}

	s.mu.Lock()
	s.teams = teams
	s.mu.Unlock()
	return len(teams)
}

// Toggle adds the team with every notification enabled, or removes it.
// It returns true when the team is a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, errors.New("team name is required")
	}
	slug := utils.TeamSlug(name)

	s.mu.Lock()
	added := true
	for i, team := range s.teams {
		if team.Slug == slug {
			s.teams = append(s.teams[:i:i], s.teams[i+1:]...)
			added = false
			break
		}
	}
	if added {
		s.teams = append(s.teams, models.FavoriteTeam{
			Name:        name,
			Slug:        slug,
			NotifyGoals: true,
			NotifyStart: true,
			NotifyEnd:   true,
		})
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	return added, s.save(ctx, snapshot)
}

// SetFlags changes the notification preferences of an existing favorite
func (s *Service) SetFlags(ctx context.Context, name string, flags Flags) (models.FavoriteTeam, error) {
	slug := utils.TeamSlug(strings.TrimSpace(name))

	s.mu.Lock()
	index := -1
	for i, team := range s.teams {
		if team.Slug == slug {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		return models.FavoriteTeam{}, ErrUnknownTeam
	}

	team := &s.teams[index]
	if flags.NotifyGoals != nil {
		team.NotifyGoals = *flags.NotifyGoals
	}
	if flags.NotifyStart != nil {
		team.NotifyStart = *flags.NotifyStart
	}
	if flags.NotifyEnd != nil {
		team.NotifyEnd = *flags.NotifyEnd
	}
	updated := *team
	snapshot := s.copyLocked()
	s.mu.Unlock()

	return updated, s.save(ctx, snapshot)
}

func (s *Service) List() []models.FavoriteTeam {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Names returns the favorite team names, sorted
func (s *Service) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.teams))
	for _, team := range s.teams {
		names = append(names, team.Name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Find returns the favorite matching name, tolerating alternative spellings
func (s *Service) Find(name string) (models.FavoriteTeam, bool) {
	slug := utils.TeamSlug(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, team := range s.teams {
		if team.Slug == slug {
			return team, true
		}
	}
	for _, team := range s.teams {
		if s.normalizer.SameTeam(team.Name, name) {
			return team, true
		}
	}
	return models.FavoriteTeam{}, false
}

func (s *Service) IsFavorite(name string) bool {
	_, ok := s.Find(name)
	return ok
}

func (s *Service) copyLocked() []models.FavoriteTeam {
	out := make([]models.FavoriteTeam, len(s.teams))
	copy(out, s.teams)
	return out
}

func (s *Service) save(ctx context.Context, teams []models.FavoriteTeam) error {
	if s.persist == nil {
		return nil
	}
	return s.persist.SetJSON(ctx, storage.KeyFavorites, teams)
}
