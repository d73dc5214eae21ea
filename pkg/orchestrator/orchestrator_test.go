package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickoff-ai/core/pkg/backend"
	"github.com/kickoff-ai/core/pkg/history"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/parser"
)

type fetchFunc func(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    []backend.FetchParams
	script   []fetchFunc
	fallback fetchFunc
}

func (f *fakeFetcher) FetchSportsData(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
	f.mu.Lock()
	i := len(f.calls)
	f.calls = append(f.calls, params)
	fn := f.fallback
	if i < len(f.script) {
		fn = f.script[i]
	}
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("unexpected fetch")
	}
	return fn(ctx, params)
}

func (f *fakeFetcher) Calls() []backend.FetchParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.FetchParams, len(f.calls))
	copy(out, f.calls)
	return out
}

func succeed(matches ...models.Match) fetchFunc {
	return func(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
		result := &backend.FetchResult{
			Payload: parser.SportsPayload{
				Matches:    matches,
				Standings:  map[string][]models.Standing{},
				HasMatches: true,
			},
		}
		if params.UseSearch {
			result.Sources = []models.GroundingSource{{Title: "Lega Serie A", URI: "https://www.legaseriea.it"}}
		}
		return result, nil
	}
}

func fail(kind backend.Kind) fetchFunc {
	return func(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
		return nil, &backend.Error{Kind: kind, Message: kind.String()}
	}
}

func hang(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingNotifier) Add(title, message string, kind models.NotificationType) models.AppNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return models.AppNotification{Title: title, Message: message, Type: kind}
}

func (r *recordingNotifier) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.titles...)
}

type fakeCredentials struct {
	mu       sync.Mutex
	selected bool
	openErr  error
	opens    int
	onOpen   func(*fakeCredentials)
}

func (f *fakeCredentials) HasSelectedAPIKey(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected, nil
}

func (f *fakeCredentials) OpenSelectKey(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.onOpen != nil {
		f.onOpen(f)
	}
	return f.openErr
}

var derby = models.Match{
	ID:       "m1",
	HomeTeam: "Inter",
	AwayTeam: "Milan",
	Score:    "1-0",
	Status:   "Live 60'",
	League:   "Serie A",
	Odds:     models.Odds{Home: 1.8, Draw: 3.4, Away: 4.2},
}

type harness struct {
	orch     *Orchestrator
	fetcher  *fakeFetcher
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
	history  *history.Store
}

func newHarness(t *testing.T, fetcher *fakeFetcher, creds CredentialProvider) *harness {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 8, 20, 45, 0, 0, time.UTC))
	notifier := &recordingNotifier{}
	hist := history.New(history.DefaultLimit, nil, logger.Nop())

	orch := New(Config{}, Deps{
		Fetcher:     fetcher,
		Credentials: creds,
		History:     hist,
		Notifier:    notifier,
		Clock:       clock,
		Logger:      logger.Nop(),
	})
	t.Cleanup(orch.Dispose)

	return &harness{orch: orch, fetcher: fetcher, clock: clock, notifier: notifier, history: hist}
}

func waitForWaiters(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n), "timed out waiting for %d clock waiters", n)
}

func TestLoad_InterMilanScenario(t *testing.T) {
	h := newHarness(t, &fakeFetcher{script: []fetchFunc{succeed(derby)}}, nil)

	result := h.orch.Load(context.Background(), TriggerManual, Options{})

	require.Equal(t, OutcomeFresh, result.Outcome)
	assert.Equal(t, 1, result.Attempts)
	assert.False(t, result.Degraded)

	state := h.orch.Snapshot()
	require.NotNil(t, state.Data)
	assert.Equal(t, "20:45", state.Data.LastUpdated)
	assert.Len(t, state.Data.Matches, 1)
	assert.Equal(t, "Inter", state.Data.Matches[0].HomeTeam)
	assert.True(t, state.Data.Matches[0].IsLive())
	assert.Len(t, state.Data.Sources, 1)
	assert.Empty(t, state.Error)
	assert.Empty(t, state.Warning)
	assert.False(t, state.Loading)
	assert.False(t, state.IsRefreshing)
	assert.Equal(t, 1, state.HistorySize)

	calls := h.fetcher.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].UseSearch)
}

func TestLoad_HistoryBounded(t *testing.T) {
	h := newHarness(t, &fakeFetcher{fallback: succeed(derby)}, nil)

	for i := 0; i < 25; i++ {
		require.Equal(t, OutcomeFresh, h.orch.Load(context.Background(), TriggerManual, Options{}).Outcome)
	}

	assert.Equal(t, 20, h.history.Len())
	assert.Equal(t, 20, h.orch.Snapshot().HistorySize)
}

func TestLoad_TimeoutRetriesDegraded(t *testing.T) {
	h := newHarness(t, &fakeFetcher{script: []fetchFunc{hang, succeed(derby)}}, nil)

	done := make(chan Result, 1)
	go func() { done <- h.orch.Load(context.Background(), TriggerManual, Options{}) }()

	waitForWaiters(t, h.clock, 1)
	h.clock.Advance(DefaultTimeout)

	result := <-done
	require.Equal(t, OutcomeFresh, result.Outcome)
	assert.Equal(t, 2, result.Attempts)
	assert.True(t, result.Degraded)

	calls := h.fetcher.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].UseSearch)
	assert.False(t, calls[1].UseSearch)

	state := h.orch.Snapshot()
	assert.Empty(t, state.Error, "a successful retry is not user visible")
	assert.Empty(t, state.Data.Sources, "degraded data carries no search sources")
}

func TestLoad_DegradedRetryAlsoTimesOut(t *testing.T) {
	h := newHarness(t, &fakeFetcher{fallback: hang}, nil)

	done := make(chan Result, 1)
	go func() { done <- h.orch.Load(context.Background(), TriggerManual, Options{}) }()

	waitForWaiters(t, h.clock, 1)
	h.clock.Advance(DefaultTimeout)
	waitForWaiters(t, h.clock, 1)
	h.clock.Advance(DefaultDegradedTimeout)

	result := <-done
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, backend.KindTimeout, backend.KindOf(result.Err))
	assert.Len(t, h.fetcher.Calls(), 2)

	state := h.orch.Snapshot()
	assert.Equal(t, msgLoadFailed, state.Error)
	assert.Nil(t, state.Data)
}

func TestLoad_ForceDegradedUsesShortTimeout(t *testing.T) {
	h := newHarness(t, &fakeFetcher{fallback: hang}, nil)

	done := make(chan Result, 1)
	go func() { done <- h.orch.Load(context.Background(), TriggerManual, Options{ForceDegraded: true}) }()

	waitForWaiters(t, h.clock, 1)
	h.clock.Advance(DefaultDegradedTimeout)

	result := <-done
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 1, result.Attempts, "no retry when search is already off")
	require.Len(t, h.fetcher.Calls(), 1)
	assert.False(t, h.fetcher.Calls()[0].UseSearch)
}

func TestLoad_QuotaRequiresCredentials(t *testing.T) {
	for _, kind := range []backend.Kind{backend.KindQuota, backend.KindCredential} {
		t.Run(kind.String(), func(t *testing.T) {
			h := newHarness(t, &fakeFetcher{fallback: fail(kind)}, nil)

			// a cached snapshot must not mask a credential problem
			h.history.Append(context.Background(), models.SportsData{Matches: []models.Match{derby}}, h.clock.Now())

			result := h.orch.Load(context.Background(), TriggerManual, Options{})

			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.Equal(t, 1, result.Attempts, "no automatic retry")
			assert.Len(t, h.fetcher.Calls(), 1)

			state := h.orch.Snapshot()
			assert.True(t, state.NeedsCredentials)
			assert.NotEmpty(t, state.Error)
			assert.Equal(t, kind.String(), state.ErrorKind)

			h.orch.SetLiveView(true)
			assert.Equal(t, RefresherIdle, h.orch.Refresher().State(), "refresh stays off while credentials are required")
		})
	}
}

func TestLoad_QuotaNotifies(t *testing.T) {
	h := newHarness(t, &fakeFetcher{fallback: fail(backend.KindQuota)}, nil)

	h.orch.Load(context.Background(), TriggerManual, Options{})

	assert.Equal(t, msgQuotaExhausted, h.orch.Snapshot().Error)
	assert.Equal(t, []string{"Errore Sistema"}, h.notifier.Titles())
}

func TestLoad_CredentialGate(t *testing.T) {
	creds := &fakeCredentials{selected: false}
	h := newHarness(t, &fakeFetcher{fallback: succeed(derby)}, creds)

	result := h.orch.Load(context.Background(), TriggerManual, Options{})

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrCredentialsNotSelected)
	assert.Empty(t, h.fetcher.Calls(), "no network call without a key")
	assert.True(t, h.orch.Snapshot().NeedsCredentials)
	assert.False(t, h.orch.Snapshot().Loading)

	// silent refreshes bypass the gate
	silent := h.orch.Load(context.Background(), TriggerSilent, Options{})
	assert.Equal(t, OutcomeFresh, silent.Outcome)
}

func TestSelectCredentials_ReverifiesSelection(t *testing.T) {
	creds := &fakeCredentials{selected: false}
	h := newHarness(t, &fakeFetcher{fallback: succeed(derby)}, creds)

	h.orch.Load(context.Background(), TriggerManual, Options{})
	require.True(t, h.orch.Snapshot().NeedsCredentials)

	// the selector closes without a key being chosen
	_, err := h.orch.SelectCredentials(context.Background())
	assert.ErrorIs(t, err, ErrCredentialsNotSelected)
	assert.True(t, h.orch.Snapshot().NeedsCredentials)
	assert.Empty(t, h.fetcher.Calls())

	creds.onOpen = func(f *fakeCredentials) { f.selected = true }
	result, err := h.orch.SelectCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFresh, result.Outcome)

	state := h.orch.Snapshot()
	assert.False(t, state.NeedsCredentials)
	assert.Empty(t, state.Error)
	assert.Equal(t, 2, creds.opens)
}

func TestSelectCredentials_SelectorFailure(t *testing.T) {
	creds := &fakeCredentials{openErr: errors.New("selector unavailable")}
	h := newHarness(t, &fakeFetcher{fallback: succeed(derby)}, creds)

	_, err := h.orch.SelectCredentials(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"Errore"}, h.notifier.Titles())
	assert.Empty(t, h.fetcher.Calls())
}

func TestLoad_FallsBackToCache(t *testing.T) {
	h := newHarness(t, &fakeFetcher{script: []fetchFunc{succeed(derby), fail(backend.KindOther)}}, nil)

	require.Equal(t, OutcomeFresh, h.orch.Load(context.Background(), TriggerManual, Options{}).Outcome)
	cached, _ := h.history.Latest()

	result := h.orch.Load(context.Background(), TriggerManual, Options{})

	assert.Equal(t, OutcomeCached, result.Outcome)
	assert.Equal(t, 1, result.Attempts, "other errors are not retried")

	state := h.orch.Snapshot()
	assert.Empty(t, state.Error)
	assert.Contains(t, state.Warning, cached.Timestamp)
	require.NotNil(t, state.Data)
	assert.Equal(t, "Inter", state.Data.Matches[0].HomeTeam)
	assert.Equal(t, 1, h.history.Len(), "a cached fallback is not a new snapshot")
}

func TestLoad_HardErrorWithoutCache(t *testing.T) {
	h := newHarness(t, &fakeFetcher{fallback: fail(backend.KindUnavailable)}, nil)

	result := h.orch.Load(context.Background(), TriggerManual, Options{})

	assert.Equal(t, OutcomeFailed, result.Outcome)
	state := h.orch.Snapshot()
	assert.Equal(t, msgLoadFailed, state.Error)
	assert.Empty(t, state.Warning)
	assert.Nil(t, state.Data)
}

func TestLoad_GuardSkipsWhileInFlight(t *testing.T) {
	entered := make(chan struct{}, 4)
	release := make(chan struct{})

	blocking := func(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
		entered <- struct{}{}
		<-release
		return succeed(derby)(ctx, params)
	}
	h := newHarness(t, &fakeFetcher{fallback: blocking}, nil)

	first := make(chan Result, 1)
	go func() { first <- h.orch.Load(context.Background(), TriggerManual, Options{}) }()
	<-entered

	assert.True(t, h.orch.Snapshot().Loading)
	assert.Equal(t, OutcomeSkipped, h.orch.Load(context.Background(), TriggerManual, Options{}).Outcome)
	assert.Equal(t, OutcomeSkipped, h.orch.Load(context.Background(), TriggerSilent, Options{}).Outcome)

	// initial loads always proceed
	second := make(chan Result, 1)
	go func() { second <- h.orch.Load(context.Background(), TriggerInitial, Options{}) }()
	<-entered

	close(release)
	assert.Equal(t, OutcomeFresh, (<-first).Outcome)
	assert.Equal(t, OutcomeFresh, (<-second).Outcome)
	assert.Len(t, h.fetcher.Calls(), 2)

	state := h.orch.Snapshot()
	assert.False(t, state.Loading)
	assert.False(t, state.IsRefreshing)
}

func geminiServer(t *testing.T, reply string) *backend.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, reply)
	}))
	t.Cleanup(server.Close)

	cfg := backend.DefaultConfig(backend.StaticKey("test-key"))
	cfg.BaseURL = server.URL
	return backend.NewClient(cfg, logger.Nop())
}

func TestLoad_RejectsPayloadWithoutMatches(t *testing.T) {
	for _, reply := range []string{"{}", "Mi dispiace, non ho dati.", `{"standings":{}}`} {
		t.Run(reply, func(t *testing.T) {
			client := geminiServer(t, reply)
			orch := New(Config{}, Deps{Fetcher: client, Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
			t.Cleanup(orch.Dispose)

			result := orch.Load(context.Background(), TriggerManual, Options{})

			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.Equal(t, backend.KindMalformed, backend.KindOf(result.Err))
			assert.Equal(t, 2, result.Attempts, "an unusable payload gets the degraded retry")
			assert.Nil(t, orch.Data())
			assert.Equal(t, 0, orch.Snapshot().HistorySize)
		})
	}
}

func TestLoad_EmptyMatchListIsValid(t *testing.T) {
	client := geminiServer(t, `{"matches": [], "standings": {}}`)
	orch := New(Config{}, Deps{Fetcher: client, Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
	t.Cleanup(orch.Dispose)

	result := orch.Load(context.Background(), TriggerManual, Options{})

	assert.Equal(t, OutcomeFresh, result.Outcome)
	require.NotNil(t, orch.Data())
	assert.Empty(t, orch.Data().Matches)
}

func TestLoad_EmptyPayloadKeepsPreviousData(t *testing.T) {
	h := newHarness(t, &fakeFetcher{script: []fetchFunc{succeed(derby)}}, nil)
	require.Equal(t, OutcomeFresh, h.orch.Load(context.Background(), TriggerManual, Options{}).Outcome)

	empty := func(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
		return &backend.FetchResult{Payload: parser.ParseSportsPayload("{}")}, nil
	}
	h.fetcher.mu.Lock()
	h.fetcher.fallback = empty
	h.fetcher.mu.Unlock()

	result := h.orch.Load(context.Background(), TriggerManual, Options{})
	assert.Equal(t, OutcomeCached, result.Outcome)
	assert.Equal(t, "Inter", h.orch.Data().Matches[0].HomeTeam)
	assert.Equal(t, 1, h.history.Len())
}

func TestSilentRefreshCountdown(t *testing.T) {
	h := newHarness(t, &fakeFetcher{fallback: succeed(derby)}, nil)
	require.Equal(t, OutcomeFresh, h.orch.Load(context.Background(), TriggerManual, Options{}).Outcome)

	changes, unsubscribe := h.orch.Subscribe()
	defer unsubscribe()

	h.orch.SetLiveView(true)
	require.Equal(t, RefresherCounting, h.orch.Refresher().State())
	assert.Equal(t, 60, h.orch.Snapshot().RefreshCountdown)

	waitCountdown := func() StateChange {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case change := <-changes:
				if change.Reason == ReasonCountdown {
					return change
				}
			case <-timeout:
				t.Fatal("no countdown tick")
			}
		}
	}

	for i := 1; i < 60; i++ {
		h.clock.Advance(time.Second)
		change := waitCountdown()
		require.Equal(t, 60-i, change.State.RefreshCountdown)
	}
	require.Len(t, h.fetcher.Calls(), 1)

	h.clock.Advance(time.Second)
	waitCountdown()

	require.Eventually(t, func() bool { return len(h.fetcher.Calls()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return h.orch.Refresher().State() == RefresherCounting && h.orch.Snapshot().RefreshCountdown == 60
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, h.history.Len())

	h.orch.SetLiveView(false)
	assert.Equal(t, RefresherIdle, h.orch.Refresher().State())
}

func TestSilentRefresh_CancelledWhileLoading(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	fetcher := &fakeFetcher{
		script: []fetchFunc{
			succeed(derby),
			func(ctx context.Context, params backend.FetchParams) (*backend.FetchResult, error) {
				entered <- struct{}{}
				<-release
				return nil, &backend.Error{Kind: backend.KindOther, Message: "boom"}
			},
		},
	}
	h := newHarness(t, fetcher, nil)
	require.Equal(t, OutcomeFresh, h.orch.Load(context.Background(), TriggerManual, Options{}).Outcome)

	h.orch.SetLiveView(true)
	require.Equal(t, RefresherCounting, h.orch.Refresher().State())
	for i := 1; i <= 10; i++ {
		h.clock.Advance(time.Second)
		want := 60*time.Second - time.Duration(i)*time.Second
		require.Eventually(t, func() bool {
			return h.orch.Refresher().Remaining() == want
		}, 2*time.Second, 5*time.Millisecond)
	}

	done := make(chan Result, 1)
	go func() { done <- h.orch.Load(context.Background(), TriggerManual, Options{}) }()
	<-entered

	assert.True(t, h.orch.Snapshot().Loading)
	assert.Equal(t, RefresherIdle, h.orch.Refresher().State(), "countdown must stop while loading")

	close(release)
	result := <-done
	require.Equal(t, OutcomeCached, result.Outcome)

	// the cached fallback is only a warning, so the countdown restarts in full
	assert.Equal(t, RefresherCounting, h.orch.Refresher().State())
	assert.Equal(t, 60*time.Second, h.orch.Refresher().Remaining())
}

func TestInit_RestoresHistoryAndLocates(t *testing.T) {
	fetcher := &fakeFetcher{fallback: succeed(derby)}
	located := make(chan struct{})
	locator := locatorFunc(func(ctx context.Context) (models.Location, error) {
		defer close(located)
		return models.Location{Lat: 45.46, Lng: 9.19}, nil
	})

	orch := New(Config{}, Deps{Fetcher: fetcher, Locator: locator, Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
	t.Cleanup(orch.Dispose)

	result := orch.Init(context.Background())
	assert.Equal(t, OutcomeFresh, result.Outcome)

	<-located
	require.Eventually(t, func() bool { return orch.Snapshot().Location != nil }, time.Second, 5*time.Millisecond)

	orch.Load(context.Background(), TriggerManual, Options{})
	calls := fetcher.Calls()
	require.Len(t, calls, 2)
	require.NotNil(t, calls[1].Location)
	assert.Equal(t, 45.46, calls[1].Location.Lat)
}

func TestInit_LocationFailureIsIgnored(t *testing.T) {
	locator := locatorFunc(func(ctx context.Context) (models.Location, error) {
		return models.Location{}, errors.New("denied")
	})
	orch := New(Config{}, Deps{Fetcher: &fakeFetcher{fallback: succeed(derby)}, Locator: locator, Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
	t.Cleanup(orch.Dispose)

	assert.Equal(t, OutcomeFresh, orch.Init(context.Background()).Outcome)
	assert.Nil(t, orch.Snapshot().Location)
}

func TestSetThinking_ReloadsWithBudget(t *testing.T) {
	h := newHarness(t, &fakeFetcher{fallback: succeed(derby)}, nil)

	assert.True(t, h.orch.SetThinking(true))
	assert.False(t, h.orch.SetThinking(true), "unchanged setting does not reload")

	require.Eventually(t, func() bool { return len(h.fetcher.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, h.fetcher.Calls()[0].Thinking)
	assert.True(t, h.orch.ThinkingMode())
}

func TestFavoriteAlertsOnTransition(t *testing.T) {
	upcoming := derby
	upcoming.Score = "-"
	upcoming.Status = "20:45"

	fetcher := &fakeFetcher{script: []fetchFunc{succeed(upcoming), succeed(derby)}}
	notifier := &recordingNotifier{}
	orch := New(Config{}, Deps{
		Fetcher:   fetcher,
		Favorites: favoriteFinder{"Inter": {Name: "Inter", NotifyGoals: true, NotifyStart: true}},
		Notifier:  notifier,
		Clock:     clockwork.NewFakeClock(),
		Logger:    logger.Nop(),
	})
	t.Cleanup(orch.Dispose)

	orch.Load(context.Background(), TriggerManual, Options{})
	assert.Empty(t, notifier.Titles())

	orch.Load(context.Background(), TriggerManual, Options{})
	assert.ElementsMatch(t, []string{"Inizio partita", "GOL!"}, notifier.Titles())
}

func TestSubscribe_ClosedOnDispose(t *testing.T) {
	orch := New(Config{}, Deps{Fetcher: &fakeFetcher{}, Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
	changes, _ := orch.Subscribe()

	orch.Dispose()

	_, open := <-changes
	assert.False(t, open)
	assert.Equal(t, OutcomeSkipped, orch.Load(context.Background(), TriggerInitial, Options{}).Outcome)
}

type locatorFunc func(ctx context.Context) (models.Location, error)

func (f locatorFunc) Locate(ctx context.Context) (models.Location, error) { return f(ctx) }

type favoriteFinder map[string]models.FavoriteTeam

func (f favoriteFinder) Find(name string) (models.FavoriteTeam, bool) {
	team, ok := f[name]
	return team, ok
}
