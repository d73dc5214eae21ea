// Package history keeps the bounded list of successful fetches, newest first.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/storage"
)

// DefaultLimit is the number of snapshots kept
const DefaultLimit = 20

// TimestampLayout renders snapshot timestamps the way the dashboard shows them
const TimestampLayout = "02/01/2006, 15:04:05"

// Store is a ring buffer of snapshots persisted after every change.
// Persistence errors are logged; the in-memory buffer stays authoritative.
type Store struct {
	mu sync.RWMutex
	// persistMu serializes mutate-then-save so writes reach storage in order
	persistMu sync.Mutex
	snapshots []models.HistoricalSnapshot
	limit     int
	persist   *storage.Namespace
	logger    *logger.Logger
}

// New creates an empty history. persist may be nil for a memory-only buffer.
func New(limit int, persist *storage.Namespace, log *logger.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		snapshots: []models.HistoricalSnapshot{},
		limit:     limit,
		persist:   persist,
		logger:    log,
	}
}

// Load replaces the buffer with the persisted one. Missing or corrupt data
// leaves the buffer empty.
func (s *Store) Load(ctx context.Context) int {
	if s.persist == nil {
		return 0
	}

	var stored []models.HistoricalSnapshot
	if !s.persist.GetJSON(ctx, storage.KeyHistory, &stored) {
		return 0
	}
	if len(stored) > s.limit {
		stored = stored[:s.limit]
	}

	s.mu.Lock()
	s.snapshots = stored
	s.mu.Unlock()

	return len(stored)
}

// Append records data as the newest snapshot, evicting the oldest beyond the limit
func (s *Store) Append(ctx context.Context, data models.SportsData, at time.Time) models.HistoricalSnapshot {
	snapshot := models.HistoricalSnapshot{
		ID:        uuid.New().String(),
		Timestamp: at.Format(TimestampLayout),
		Data:      data,
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	next := make([]models.HistoricalSnapshot, 0, s.limit)
	next = append(next, snapshot)
	for _, existing := range s.snapshots {
		if len(next) == s.limit {
			break
		}
		next = append(next, existing)
	}
	s.snapshots = next
	copied := s.copyLocked()
	s.mu.Unlock()

	s.save(ctx, copied)
	return snapshot
}

// Latest returns the newest snapshot
func (s *Store) Latest() (models.HistoricalSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return models.HistoricalSnapshot{}, false
	}
	return s.snapshots[0], true
}

// List returns a copy of all snapshots, newest first
func (s *Store) List() []models.HistoricalSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Newest returns up to n snapshots, newest first
func (s *Store) Newest(n int) []models.HistoricalSnapshot {
	list := s.List()
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}

func (s *Store) Get(id string) (models.HistoricalSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, snapshot := range s.snapshots {
		if snapshot.ID == id {
			return snapshot, true
		}
	}
	return models.HistoricalSnapshot{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Clear drops every snapshot
func (s *Store) Clear(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.snapshots = []models.HistoricalSnapshot{}
	s.mu.Unlock()

	s.save(ctx, []models.HistoricalSnapshot{})
}

func (s *Store) copyLocked() []models.HistoricalSnapshot {
	out := make([]models.HistoricalSnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

func (s *Store) save(ctx context.Context, snapshots []models.HistoricalSnapshot) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SetJSON(ctx, storage.KeyHistory, snapshots); err != nil {
		s.logger.Error().Err(err).Str("action", "history_persist_failed").Msg("Failed to persist history")
	}
}
