package orchestrator

import (
	"github.com/kickoff-ai/core/pkg/models"
)

// Trigger identifies who asked for a load
type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerManual  Trigger = "manual"
	TriggerSilent  Trigger = "silent"
)

// Options tweak a single load
type Options struct {
	// ForceDegraded skips web search and uses the degraded timeout
	ForceDegraded bool
}

type Outcome string

const (
	OutcomeFresh   Outcome = "fresh"
	OutcomeCached  Outcome = "cached"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes how a load ended. Err carries the last backend error, if any.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	Attempts int     `json:"attempts"`
	Degraded bool    `json:"degraded"`
	Matches  int     `json:"matches"`
	Err      error   `json:"-"`
}

// State is the observable state of the orchestrator
type State struct {
	Data             *models.SportsData `json:"data"`
	Loading          bool               `json:"loading"`
	IsRefreshing     bool               `json:"isRefreshing"`
	Error            string             `json:"error,omitempty"`
	ErrorKind        string             `json:"errorKind,omitempty"`
	Warning          string             `json:"warning,omitempty"`
	NeedsCredentials bool               `json:"needsCredentials"`
	ThinkingMode     bool               `json:"thinkingMode"`
	LiveView         bool               `json:"liveView"`
	Location         *models.Location   `json:"location,omitempty"`
	RefreshCountdown int                `json:"refreshCountdown"`
	HistorySize      int                `json:"historySize"`
}

// ChangeReason names what caused a StateChange
type ChangeReason string

const (
	ReasonLoadStarted  ChangeReason = "load_started"
	ReasonLoadFinished ChangeReason = "load_finished"
	ReasonCredentials  ChangeReason = "credentials"
	ReasonSettings     ChangeReason = "settings"
	ReasonLocation     ChangeReason = "location"
	ReasonCountdown    ChangeReason = "countdown"
)

// StateChange is delivered to subscribers after every transition
type StateChange struct {
	Reason ChangeReason `json:"reason"`
	State  State        `json:"state"`
}
