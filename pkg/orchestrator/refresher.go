package orchestrator

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RefresherState is the countdown state
type RefresherState string

const (
	RefresherIdle     RefresherState = "idle"
	RefresherCounting RefresherState = "counting"
	RefresherFiring   RefresherState = "firing"
)

const tickInterval = time.Second

// Refresher counts down and calls fire when it reaches zero, then starts over.
// fire runs on the countdown goroutine; ticks are not counted while it runs.
type Refresher struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	duration  time.Duration
	remaining time.Duration
	state     RefresherState
	stop      chan struct{}

	fire   func()
	onTick func(remaining time.Duration)
}

func NewRefresher(clock clockwork.Clock, duration time.Duration, fire func(), onTick func(time.Duration)) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Refresher{
		clock:     clock,
		duration:  duration,
		remaining: duration,
		state:     RefresherIdle,
		fire:      fire,
		onTick:    onTick,
	}
}

// Arm starts counting from the full duration. Arming an armed refresher is a no-op.
func (r *Refresher) Arm() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RefresherIdle {
		return
	}
	r.remaining = r.duration
	r.state = RefresherCounting
	r.stop = make(chan struct{})

	ticker := r.clock.NewTicker(tickInterval)
	go r.run(ticker, r.stop)
}

// Disarm cancels the countdown. It does not wait for a running fire to return.
func (r *Refresher) Disarm() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RefresherIdle {
		return
	}
	close(r.stop)
	r.stop = nil
	r.state = RefresherIdle
	r.remaining = r.duration
}

// Reset restores the full duration without changing the state
func (r *Refresher) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = r.duration
}

func (r *Refresher) Remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

func (r *Refresher) State() RefresherState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Refresher) run(ticker clockwork.Ticker, stop chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
		}

		r.mu.Lock()
		if r.stop != stop || r.state != RefresherCounting {
			r.mu.Unlock()
			continue
		}
		r.remaining -= tickInterval
		remaining := r.remaining
		due := remaining <= 0
		if due {
			r.state = RefresherFiring
		}
		r.mu.Unlock()

		if r.onTick != nil {
			r.onTick(remaining)
		}
		if !due {
			continue
		}

		r.fire()

		r.mu.Lock()
		if r.stop == stop {
			r.state = RefresherCounting
			r.remaining = r.duration
		}
		r.mu.Unlock()
	}
}
