// Package notify holds transient user notifications and derives match
// alerts for favorite teams.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kickoff-ai/core/pkg/models"
)

const (
	DefaultMaxActive = 3
	DefaultTTL       = 6 * time.Second
)

// Center keeps at most maxActive notifications, newest first.
// Each one expires ttl after it was added.
type Center struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	ttl       time.Duration
	maxActive int
	active    []models.AppNotification
	listeners []func(models.AppNotification)
}

func NewCenter(clock clockwork.Clock) *Center {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Center{
		clock:     clock,
		ttl:       DefaultTTL,
		maxActive: DefaultMaxActive,
		active:    []models.AppNotification{},
	}
}

// OnNotify registers fn to receive every new notification
func (c *Center) OnNotify(fn func(models.AppNotification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Center) Add(title, message string, kind models.NotificationType) models.AppNotification {
	n := models.AppNotification{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Type:      kind,
		Timestamp: c.clock.Now().UnixMilli(),
	}

	c.mu.Lock()
	c.active = append([]models.AppNotification{n}, c.active...)
	if len(c.active) > c.maxActive {
		c.active = c.active[:c.maxActive]
	}
	listeners := append([]func(models.AppNotification){}, c.listeners...)
	c.mu.Unlock()

	c.clock.AfterFunc(c.ttl, func() {
		c.remove(n.ID)
	})

	for _, fn := range listeners {
		fn(n)
	}
	return n
}

// Active returns the live notifications, newest first
func (c *Center) Active() []models.AppNotification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.AppNotification, len(c.active))
	copy(out, c.active)
	return out
}

// Dismiss removes a notification before it expires
func (c *Center) Dismiss(id string) bool {
	return c.remove(id)
}

func (c *Center) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.active {
		if n.ID == id {
			c.active = append(c.active[:i:i], c.active[i+1:]...)
			return true
		}
	}
	return false
}
