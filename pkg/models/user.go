package models

import "github.com/shopspring/decimal"

// Bet is an entry of the simulated betting ledger
type Bet struct {
	ID           string          `json:"id"`
	MatchID      string          `json:"matchId"`
	MatchName    string          `json:"matchName"`
	Selection    string          `json:"selection"`
	Odds         float64         `json:"odds"`
	Amount       decimal.Decimal `json:"amount"`
	PotentialWin decimal.Decimal `json:"potentialWin"`
	Timestamp    int64           `json:"timestamp"`
}

// FavoriteTeam is a followed team with per-event notification flags
type FavoriteTeam struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	NotifyGoals bool   `json:"notifyGoals"`
	NotifyStart bool   `json:"notifyStart"`
	NotifyEnd   bool   `json:"notifyEnd"`
}

type NotificationType string

const (
	NotificationGoal  NotificationType = "goal"
	NotificationStart NotificationType = "start"
	NotificationEnd   NotificationType = "end"
	NotificationInfo  NotificationType = "info"
)

// AppNotification is a transient, auto-expiring message
type AppNotification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Timestamp int64            `json:"timestamp"`
}
