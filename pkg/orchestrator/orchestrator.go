// Package orchestrator owns the sports data and decides when and how it is
// refreshed: credential gate, bounded timeouts, a degraded retry without web
// search, fallback to cached snapshots and the silent refresh countdown.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kickoff-ai/core/pkg/backend"
	"github.com/kickoff-ai/core/pkg/geo"
	"github.com/kickoff-ai/core/pkg/history"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/notify"
)

const (
	DefaultTimeout         = 90 * time.Second
	DefaultDegradedTimeout = 25 * time.Second
	DefaultCountdown       = 60 * time.Second

	lastUpdatedLayout = "15:04"
	subscriberBuffer  = 16
	locateTimeout     = 10 * time.Second
)

// User-facing messages
const (
	msgQuotaExhausted = "Quota API Gemini Esaurita. Seleziona una chiave API personale con fatturazione attiva (Pay-as-you-go)."
	msgBadCredential  = "Chiave API non valida o non autorizzata. Seleziona una chiave API valida."
	msgNoKeySelected  = "Seleziona una chiave API per continuare."
	msgLoadFailed     = "Errore IA. Impossibile recuperare i dati, riprova più tardi."
	msgServingCache   = "Dati in tempo reale non disponibili. Visualizzo l'ultimo aggiornamento salvato (%s)."
)

var ErrCredentialsNotSelected = errors.New("no API key selected")

// Fetcher produces sports data. backend.Client implements it.
type Fetcher interface {
	FetchSportsData(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error)
}

// CredentialProvider is the key selection gate. credentials.Provider implements it.
type CredentialProvider interface {
	HasSelectedAPIKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
}

// Notifier receives user-facing notifications
type Notifier interface {
	Add(title, message string, kind models.NotificationType) models.AppNotification
}

type Config struct {
	Timeout         time.Duration
	DegradedTimeout time.Duration
	Countdown       time.Duration
	ThinkingMode    bool
}

// Deps are the collaborators of an Orchestrator. Fetcher and History are required.
type Deps struct {
	Fetcher     Fetcher
	Credentials CredentialProvider // nil means always authorized
	History     *history.Store
	Favorites   notify.FavoriteFinder
	Notifier    Notifier
	Detector    *notify.Detector
	Locator     geo.Locator
	Clock       clockwork.Clock
	Logger      *logger.Logger
}

type Orchestrator struct {
	cfg         Config
	fetcher     Fetcher
	credentials CredentialProvider
	history     *history.Store
	favorites   notify.FavoriteFinder
	notifier    Notifier
	detector    *notify.Detector
	locator     geo.Locator
	clock       clockwork.Clock
	logger      *logger.Logger
	refresher   *Refresher

	mu               sync.Mutex
	data             *models.SportsData
	loadingCount     int
	refreshingCount  int
	errMsg           string
	errKind          string
	warning          string
	needsCredentials bool
	thinkingMode     bool
	liveView         bool
	location         *models.Location
	baseCtx          context.Context
	cancel           context.CancelFunc
	disposed         bool
	subscribers      map[chan StateChange]struct{}
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DegradedTimeout <= 0 {
		cfg.DegradedTimeout = DefaultDegradedTimeout
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.History == nil {
		deps.History = history.New(history.DefaultLimit, nil, deps.Logger)
	}
	if deps.Detector == nil {
		deps.Detector = notify.NewDetector()
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		cfg:          cfg,
		fetcher:      deps.Fetcher,
		credentials:  deps.Credentials,
		history:      deps.History,
		favorites:    deps.Favorites,
		notifier:     deps.Notifier,
		detector:     deps.Detector,
		locator:      deps.Locator,
		clock:        deps.Clock,
		logger:       deps.Logger,
		thinkingMode: cfg.ThinkingMode,
		baseCtx:      baseCtx,
		cancel:       cancel,
		subscribers:  make(map[chan StateChange]struct{}),
	}

	o.refresher = NewRefresher(o.clock, cfg.Countdown, func() {
		o.Load(o.context(), TriggerSilent, Options{})
	}, func(time.Duration) {
		o.publish(ReasonCountdown)
	})

	return o
}

// Init restores history, starts geolocation in the background, runs the
// initial load and arms the refresher when the live view is active.
// The orchestrator stays bound to ctx until Dispose.
func (o *Orchestrator) Init(ctx context.Context) Result {
	o.mu.Lock()
	o.cancel()
	o.baseCtx, o.cancel = context.WithCancel(ctx)
	baseCtx := o.baseCtx
	o.mu.Unlock()

	restored := o.history.Load(baseCtx)
	o.logger.Info().
		Str("action", "orchestrator_init").
		Int("restored_snapshots", restored).
		Msg("Orchestrator starting")

	if o.locator != nil {
		go o.locate(baseCtx)
	}

	return o.Load(baseCtx, TriggerInitial, Options{})
}

// Dispose stops the refresher, cancels pending work and closes subscriber channels
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	o.cancel()
	subscribers := o.subscribers
	o.subscribers = make(map[chan StateChange]struct{})
	o.mu.Unlock()

	o.refresher.Disarm()

	for ch := range subscribers {
		close(ch)
	}
}

func (o *Orchestrator) context() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.baseCtx
}

// Load fetches fresh data. manual and silent loads are no-ops while another
// load is in flight; initial loads always proceed and the last to finish wins.
func (o *Orchestrator) Load(ctx context.Context, trigger Trigger, opts Options) Result {
	start := o.clock.Now()
	log := o.logger.WithTrigger(string(trigger))

	if !o.begin(trigger) {
		log.Debug().Str("action", "load_skipped").Msg("Load already in flight")
		return Result{Outcome: OutcomeSkipped}
	}
	// a visible load cancels the countdown; finish rearms it from the full duration
	o.syncRefresher()
	o.publish(ReasonLoadStarted)

	result := o.load(ctx, trigger, opts, log)

	o.finish(trigger)
	o.publish(ReasonLoadFinished)

	log.LogLoadComplete(string(result.Outcome), o.clock.Since(start), result.Matches, result.Degraded)
	return result
}

func (o *Orchestrator) load(ctx context.Context, trigger Trigger, opts Options, log *logger.Logger) Result {
	if trigger != TriggerSilent && !o.authorized(ctx, log) {
		return Result{Outcome: OutcomeFailed, Err: ErrCredentialsNotSelected}
	}

	o.mu.Lock()
	thinking := o.thinkingMode
	var location *models.Location
	if o.location != nil {
		loc := *o.location
		location = &loc
	}
	o.mu.Unlock()

	params := backend.FetchParams{
		UseSearch: !opts.ForceDegraded,
		Thinking:  thinking,
		Location:  location,
	}

	result := Result{Degraded: !params.UseSearch}
	fetched, err := o.attempt(ctx, params)
	result.Attempts = 1

	if err != nil && params.UseSearch && retryDegraded(err) {
		log.Warn().
			Err(err).
			Str("action", "load_degraded_retry").
			Str("kind", backend.KindOf(err).String()).
			Msg("Retrying without web search")

		params.UseSearch = false
		fetched, err = o.attempt(ctx, params)
		result.Attempts = 2
		result.Degraded = true
	}

	if err == nil {
		o.applyFresh(ctx, fetched)
		result.Outcome = OutcomeFresh
		result.Matches = len(fetched.Payload.Matches)
		return result
	}

	result.Err = err
	result.Outcome = OutcomeFailed

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		// shutdown or caller gave up; leave state as it was
		return result
	}

	kind := backend.KindOf(err)
	log.Error().Err(err).
		Str("action", "load_failed").
		Str("kind", kind.String()).
		Int("attempts", result.Attempts).
		Msg("Failed to load sports data")

	if kind.RequiresCredentials() {
		o.applyCredentialFailure(kind)
		return result
	}

	if latest, ok := o.history.Latest(); ok {
		o.applyCached(latest, kind)
		result.Outcome = OutcomeCached
		result.Matches = len(latest.Data.Matches)
		return result
	}

	o.mu.Lock()
	o.errMsg = msgLoadFailed
	o.errKind = kind.String()
	o.warning = ""
	o.mu.Unlock()
	return result
}

// retryDegraded reports whether a failed search-enabled call is worth one
// retry without search. Timeouts and unusable payloads are; quota, key and
// breaker errors are not.
func retryDegraded(err error) bool {
	switch backend.KindOf(err) {
	case backend.KindTimeout, backend.KindMalformed:
		return true
	default:
		return false
	}
}

// attempt runs one fetch bounded by the normal or degraded timeout. The timer
// races the fetch, so a backend that ignores ctx still cannot hold the load.
func (o *Orchestrator) attempt(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
	timeout := o.cfg.Timeout
	if !params.UseSearch {
		timeout = o.cfg.DegradedTimeout
	}

	attemptCtx, cancel := clockwork.WithTimeout(ctx, o.clock, timeout)
	defer cancel()

	type outcome struct {
		result *backend.FetchResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := o.fetcher.FetchSportsData(attemptCtx, params)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil && (out.result == nil || !out.result.Payload.HasMatches) {
			return nil, backend.Malformed("response carries no matches array")
		}
		if out.err != nil && backend.KindOf(out.err) == backend.KindOther && expired(attemptCtx) {
			return nil, &backend.Error{Kind: backend.KindTimeout, Message: fmt.Sprintf("no response within %s", timeout), Err: out.err}
		}
		return out.result, out.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &backend.Error{Kind: backend.KindTimeout, Message: fmt.Sprintf("no response within %s", timeout)}
	}
}

// expired reports whether ctx ended on its deadline, without waiting for it
func expired(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return errors.Is(ctx.Err(), context.DeadlineExceeded)
	default:
		return false
	}
}

// authorized runs the credential gate. A failing provider counts as "no key".
func (o *Orchestrator) authorized(ctx context.Context, log *logger.Logger) bool {
	if o.credentials == nil {
		return true
	}

	ok, err := o.credentials.HasSelectedAPIKey(ctx)
	if err != nil {
		log.Warn().Err(err).Str("action", "credential_check_failed").Msg("Credential provider failed")
	}
	if ok && err == nil {
		return true
	}

	o.mu.Lock()
	o.needsCredentials = true
	if o.errMsg == "" {
		o.errMsg = msgNoKeySelected
		o.errKind = backend.KindCredential.String()
	}
	o.mu.Unlock()
	return false
}

func (o *Orchestrator) applyFresh(ctx context.Context, fetched *backend.FetchResult) {
	now := o.clock.Now()

	sources := fetched.Sources
	if sources == nil {
		sources = []models.GroundingSource{}
	}
	data := models.SportsData{
		Matches:     fetched.Payload.Matches,
		Standings:   fetched.Payload.Standings,
		LastUpdated: now.Format(lastUpdatedLayout),
		Sources:     sources,
	}

	o.mu.Lock()
	previous := o.data
	o.data = &data
	o.errMsg = ""
	o.errKind = ""
	o.warning = ""
	o.needsCredentials = false
	o.mu.Unlock()

	o.history.Append(ctx, data, now)
	o.refresher.Reset()

	if o.notifier == nil || o.favorites == nil {
		return
	}
	for _, alert := range o.detector.Diff(previous, &data, o.favorites) {
		o.notifier.Add(alert.Title, alert.Message, alert.Type)
	}
}

func (o *Orchestrator) applyCredentialFailure(kind backend.Kind) {
	message := msgBadCredential
	if kind == backend.KindQuota {
		message = msgQuotaExhausted
	}

	o.mu.Lock()
	o.errMsg = message
	o.errKind = kind.String()
	o.warning = ""
	o.needsCredentials = true
	o.mu.Unlock()

	if o.notifier != nil && kind == backend.KindQuota {
		o.notifier.Add("Errore Sistema", "Quota API esaurita.", models.NotificationInfo)
	}
}

func (o *Orchestrator) applyCached(snapshot models.HistoricalSnapshot, kind backend.Kind) {
	data := snapshot.Data

	o.mu.Lock()
	o.data = &data
	o.errMsg = ""
	o.errKind = kind.String()
	o.warning = fmt.Sprintf(msgServingCache, snapshot.Timestamp)
	o.mu.Unlock()
}

// begin applies the in-flight guard and raises the loading flag for trigger
func (o *Orchestrator) begin(trigger Trigger) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.disposed {
		return false
	}
	if trigger != TriggerInitial && (o.loadingCount > 0 || o.refreshingCount > 0) {
		return false
	}

	if trigger == TriggerSilent {
		o.refreshingCount++
	} else {
		o.loadingCount++
	}
	return true
}

func (o *Orchestrator) finish(trigger Trigger) {
	o.mu.Lock()
	if trigger == TriggerSilent {
		o.refreshingCount--
	} else {
		o.loadingCount--
	}
	o.mu.Unlock()

	o.syncRefresher()
}

// syncRefresher arms the countdown only while the live view is shown,
// nothing is loading and no blocking error is displayed
func (o *Orchestrator) syncRefresher() {
	o.mu.Lock()
	armed := !o.disposed && o.liveView && o.loadingCount == 0 && o.errMsg == "" && !o.needsCredentials
	o.mu.Unlock()

	if armed {
		o.refresher.Arm()
	} else {
		o.refresher.Disarm()
	}
}

// SetLiveView arms or cancels the silent refresh
func (o *Orchestrator) SetLiveView(active bool) {
	o.mu.Lock()
	o.liveView = active
	o.mu.Unlock()

	o.syncRefresher()
	o.publish(ReasonSettings)
}

// SetThinking toggles extended reasoning. A change triggers a background initial load.
func (o *Orchestrator) SetThinking(enabled bool) bool {
	o.mu.Lock()
	changed := o.thinkingMode != enabled
	o.thinkingMode = enabled
	ctx := o.baseCtx
	o.mu.Unlock()

	if !changed {
		return false
	}
	o.publish(ReasonSettings)
	go o.Load(ctx, TriggerInitial, Options{})
	return true
}

func (o *Orchestrator) ThinkingMode() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.thinkingMode
}

// SelectCredentials opens the key selector and re-verifies before clearing
// the credential error and reloading
func (o *Orchestrator) SelectCredentials(ctx context.Context) (Result, error) {
	if o.credentials == nil {
		return o.Load(ctx, TriggerInitial, Options{}), nil
	}

	if err := o.credentials.OpenSelectKey(ctx); err != nil {
		o.logger.Warn().Err(err).Str("action", "select_key_failed").Msg("Key selector failed")
		if o.notifier != nil {
			o.notifier.Add("Errore", "Impossibile caricare il selettore.", models.NotificationInfo)
		}
		return Result{Outcome: OutcomeFailed, Err: err}, fmt.Errorf("failed to open key selector: %w", err)
	}

	ok, err := o.credentials.HasSelectedAPIKey(ctx)
	if err != nil || !ok {
		o.mu.Lock()
		o.needsCredentials = true
		if o.errMsg == "" {
			o.errMsg = msgNoKeySelected
			o.errKind = backend.KindCredential.String()
		}
		o.mu.Unlock()
		o.publish(ReasonCredentials)
		return Result{Outcome: OutcomeFailed, Err: ErrCredentialsNotSelected}, ErrCredentialsNotSelected
	}

	o.mu.Lock()
	o.needsCredentials = false
	o.errMsg = ""
	o.errKind = ""
	o.mu.Unlock()
	o.publish(ReasonCredentials)

	return o.Load(ctx, TriggerInitial, Options{}), nil
}

func (o *Orchestrator) locate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(o.logger.ToContext(ctx), locateTimeout)
	defer cancel()

	loc, err := o.locator.Locate(ctx)
	if err != nil {
		o.logger.Debug().Err(err).Str("action", "geolocation_unavailable").Msg("Continuing without location")
		return
	}

	o.mu.Lock()
	o.location = &loc
	o.mu.Unlock()

	o.logger.Debug().
		Str("action", "geolocation_resolved").
		Float64("lat", loc.Lat).
		Float64("lng", loc.Lng).
		Msg("Location hint available")
	o.publish(ReasonLocation)
}

// SetLocation overrides the location hint
func (o *Orchestrator) SetLocation(loc *models.Location) {
	o.mu.Lock()
	o.location = loc
	o.mu.Unlock()
	o.publish(ReasonLocation)
}

// Data returns the current data, nil before the first success
func (o *Orchestrator) Data() *models.SportsData {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.data
}

// Snapshot returns a copy of the current state
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	state := State{
		Data:             o.data,
		Loading:          o.loadingCount > 0,
		IsRefreshing:     o.refreshingCount > 0,
		Error:            o.errMsg,
		ErrorKind:        o.errKind,
		Warning:          o.warning,
		NeedsCredentials: o.needsCredentials,
		ThinkingMode:     o.thinkingMode,
		LiveView:         o.liveView,
	}
	if o.location != nil {
		loc := *o.location
		state.Location = &loc
	}
	o.mu.Unlock()

	state.RefreshCountdown = int(o.refresher.Remaining() / time.Second)
	state.HistorySize = o.history.Len()
	return state
}

// Refresher exposes the countdown
func (o *Orchestrator) Refresher() *Refresher {
	return o.refresher
}

// Subscribe returns a channel of state changes and a function to stop
// receiving them. Slow subscribers miss events rather than block loads.
func (o *Orchestrator) Subscribe() (<-chan StateChange, func()) {
	ch := make(chan StateChange, subscriberBuffer)

	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	o.subscribers[ch] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			_, ok := o.subscribers[ch]
			delete(o.subscribers, ch)
			o.mu.Unlock()
			if ok {
				close(ch)
			}
		})
	}
}

func (o *Orchestrator) publish(reason ChangeReason) {
	change := StateChange{Reason: reason, State: o.Snapshot()}

	o.mu.Lock()
	defer o.mu.Unlock()

	for ch := range o.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}
