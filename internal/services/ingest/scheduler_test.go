package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/models"
	"github.com/bobmcallan/brokeclub/internal/services/quota"
	"github.com/bobmcallan/brokeclub/internal/services/quote"
	"github.com/bobmcallan/brokeclub/internal/services/tracked"
	"github.com/bobmcallan/brokeclub/internal/storage/memory"
	"github.com/bobmcallan/brokeclub/tests/mocks"
)

var brt = time.FixedZone("BRT", -3*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, brt)
}

type fixture struct {
	sched   *Scheduler
	store   *memory.Manager
	usage   *memory.UsageCounter
	ledger  *quota.Ledger
	client  *mocks.MockMarketDataClient
	events  *mocks.MockEventPublisher
	clockAt time.Time
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.NewManager("BRL"),
		client:  mocks.NewMockMarketDataClient(),
		events:  &mocks.MockEventPublisher{},
		clockAt: at(2, 9, 0),
	}
	f.usage = f.store.UsageCounter().(*memory.UsageCounter)
	clock := func() time.Time { return f.clockAt }
	logger := common.NewSilentLogger()

	f.ledger = quota.NewLedger(f.usage, limit, logger)
	f.ledger.SetClock(clock)

	provider := quote.NewService(f.store.QuoteCache(), f.ledger, f.client, quote.Options{}, logger)
	provider.SetClock(clock)

	registry := tracked.NewRegistry(f.store.AssetStore(), f.store.TickerPriceCache(), logger)

	session := Session{Location: brt, Open: 10 * time.Hour, Close: 17*time.Hour + 30*time.Minute, Hourly: time.Hour}
	f.sched = NewScheduler(provider, registry, f.store.TickerPriceCache(), f.ledger, f.events, session, "ALPHAVANTAGE", logger)
	f.sched.SetClock(clock)
	return f
}

func (f *fixture) hold(t *testing.T, assetID, ticker, price string) {
	t.Helper()
	require.NoError(t, f.store.AssetStore().SaveAsset(context.Background(), &models.Asset{ID: assetID, UserID: "u-" + assetID, Ticker: ticker}))
	if price != "" {
		f.client.SetPrice(ticker, price)
	}
}

// tick advances the shared clock and runs one tick
func (f *fixture) tick(t *testing.T, now time.Time) string {
	t.Helper()
	f.clockAt = now
	reason, err := f.sched.Tick(context.Background(), now)
	require.NoError(t, err)
	return reason
}

func TestTick_OpenFiresOncePerDate(t *testing.T) {
	f := newFixture(t, 100)
	f.hold(t, "a1", "PETR4.SAO", "38.00")

	var opens []time.Time
	for now := at(2, 9, 45); !now.After(at(2, 10, 20)); now = now.Add(time.Minute) {
		if f.tick(t, now) == models.RefreshOpen {
			opens = append(opens, now)
		}
	}

	require.Len(t, opens, 1)
	assert.Equal(t, at(2, 9, 55), opens[0], "OPEN fires at the start of the tolerance window")
	assert.True(t, f.sched.State().OpenDone)
}

func TestTick_CloseFiresOnceAndHourlyWithinSession(t *testing.T) {
	f := newFixture(t, 100)
	f.hold(t, "a1", "PETR4.SAO", "38.00")

	counts := map[string]int{}
	for now := at(2, 9, 0); !now.After(at(2, 19, 0)); now = now.Add(time.Minute) {
		if reason := f.tick(t, now); reason != "" {
			counts[reason]++
		}
	}

	assert.Equal(t, 1, counts[models.RefreshOpen])
	assert.Equal(t, 1, counts[models.RefreshClose])
	// 10:00, 11:00 ... 17:00 inside the 10:00-17:30 session
	assert.Equal(t, 8, counts[models.RefreshHourly])
}

func TestTick_OutsideSessionDoesNothing(t *testing.T) {
	f := newFixture(t, 100)
	f.hold(t, "a1", "PETR4.SAO", "38.00")

	for _, now := range []time.Time{at(2, 3, 0), at(2, 9, 54), at(2, 17, 36), at(2, 22, 0)} {
		assert.Empty(t, f.tick(t, now), "unexpected batch at %s", now)
	}
	assert.Zero(t, f.client.Calls())
}

func TestTick_MidnightResetsState(t *testing.T) {
	f := newFixture(t, 100)
	f.hold(t, "a1", "PETR4.SAO", "38.00")

	f.tick(t, at(2, 9, 58))
	f.tick(t, at(2, 12, 0))
	f.tick(t, at(2, 17, 31))

	st := f.sched.State()
	require.True(t, st.OpenDone)
	require.True(t, st.CloseDone)
	require.False(t, st.LastHourly.IsZero())

	assert.Empty(t, f.tick(t, at(2, 23, 59)))
	assert.Empty(t, f.tick(t, at(3, 0, 0)))

	st = f.sched.State()
	assert.Equal(t, "2026-03-03", st.Date)
	assert.False(t, st.OpenDone)
	assert.False(t, st.CloseDone)
	assert.True(t, st.LastHourly.IsZero())

	assert.Equal(t, models.RefreshOpen, f.tick(t, at(3, 10, 2)))
}

func TestTick_FailedBatchIsRetried(t *testing.T) {
	f := newFixture(t, 100)
	f.sched.quota = failingQuota{}

	_, err := f.sched.Tick(context.Background(), at(2, 9, 56))
	require.Error(t, err)
	assert.False(t, f.sched.State().OpenDone)

	f.sched.quota = f.ledger
	assert.Equal(t, models.RefreshOpen, f.tick(t, at(2, 9, 57)))
}

func TestRunBatch_PriorityOrderAndQuotaCap(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	// popularity: VALE3 3, PETR4 2, ITSA4 2, BBAS3 1
	f.hold(t, "v1", "VALE3.SAO", "61.00")
	f.hold(t, "v2", "VALE3.SAO", "")
	f.hold(t, "v3", "VALE3.SAO", "")
	f.hold(t, "p1", "PETR4.SAO", "38.00")
	f.hold(t, "p2", "PETR4.SAO", "")
	f.hold(t, "i1", "ITSA4.SAO", "10.00")
	f.hold(t, "i2", "ITSA4.SAO", "")
	f.hold(t, "b1", "BBAS3.SAO", "27.00")

	// PETR4 was refreshed recently, ITSA4 never: ITSA4 wins the tie
	require.NoError(t, f.store.TickerPriceCache().Save(ctx, "PETR4.SAO", decimal.NewFromInt(37), at(2, 8, 0), "ALPHAVANTAGE"))

	result, err := f.sched.RunBatch(ctx, models.RefreshManual)
	require.NoError(t, err)

	assert.Equal(t, []string{"VALE3.SAO", "ITSA4.SAO", "PETR4.SAO"}, f.client.RequestedSymbols())
	assert.Equal(t, 3, result.Remaining)
	assert.Equal(t, 4, result.Tracked)
	assert.Len(t, result.Refreshed, 3)
	assert.NotEmpty(t, result.ID)

	remaining, _ := f.ledger.Remaining(ctx)
	assert.Equal(t, 0, remaining)
}

func TestRunBatch_ZeroQuotaSkips(t *testing.T) {
	f := newFixture(t, 20)
	f.usage.Set("2026-03-02", 20)
	f.hold(t, "a1", "PETR4.SAO", "38.00")

	result, err := f.sched.RunBatch(context.Background(), models.RefreshHourly)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Remaining)
	assert.Zero(t, f.client.Calls())
	assert.Empty(t, f.events.Published())
}

func TestRunBatch_FailureDoesNotAbort(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	f.hold(t, "a1", "PETR4.SAO", "38.15")
	f.hold(t, "a2", "PETR4.SAO", "")
	f.hold(t, "b1", "BROKE3.SAO", "")
	f.hold(t, "c1", "VALE3.SAO", "61.02")
	f.client.SetError("BROKE3.SAO", errors.New("vendor rate limit reached"))

	result, err := f.sched.RunBatch(ctx, models.RefreshOpen)
	require.NoError(t, err)

	assert.Equal(t, []string{"PETR4.SAO", "BROKE3.SAO", "VALE3.SAO"}, f.client.RequestedSymbols())
	assert.Equal(t, []string{"PETR4.SAO", "VALE3.SAO"}, result.Refreshed)
	assert.Equal(t, []string{"BROKE3.SAO"}, result.Failed)

	broke, err := f.store.TickerPriceCache().TryGet(ctx, "BROKE3.SAO")
	require.NoError(t, err)
	assert.Nil(t, broke, "failures are never written to the ticker cache")

	petr, err := f.store.TickerPriceCache().TryGet(ctx, "PETR4.SAO")
	require.NoError(t, err)
	require.NotNil(t, petr)
	assert.True(t, decimal.RequireFromString("38.15").Equal(petr.Price))
	assert.Equal(t, at(2, 9, 0).UTC(), petr.AsOf.UTC())

	events := f.events.Published()
	require.Len(t, events, 2)
	assert.Equal(t, result.ID, events[0].BatchID)
	assert.Equal(t, models.RefreshOpen, events[0].Reason)
	assert.Equal(t, "PETR4.SAO", events[0].Ticker)
}

func TestSortByPriority(t *testing.T) {
	old := at(1, 10, 0)
	newer := at(2, 10, 0)
	list := []models.TrackedTicker{
		{Ticker: "D", Popularity: 1, LastAsOf: &old},
		{Ticker: "C", Popularity: 2, LastAsOf: &newer},
		{Ticker: "B", Popularity: 2, LastAsOf: &old},
		{Ticker: "A", Popularity: 2},
		{Ticker: "E", Popularity: 5, LastAsOf: &newer},
		{Ticker: "F", Popularity: 1},
	}

	SortByPriority(list)

	var got []string
	for _, tt := range list {
		got = append(got, tt.Ticker)
	}
	assert.Equal(t, []string{"E", "A", "B", "C", "F", "D"}, got)
}

func TestSafeTick_RecoversPanics(t *testing.T) {
	f := newFixture(t, 10)
	f.sched.registry = panickingRegistry{}
	f.clockAt = at(2, 10, 0)

	assert.NotPanics(t, func() { f.sched.safeTick(context.Background()) })
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.sched.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestSessionFromConfig(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Schedule.Timezone = "UTC"

	s, err := SessionFromConfig(&cfg.Schedule)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Hour, s.Open)
	assert.Equal(t, 17*time.Hour+30*time.Minute, s.Close)
	assert.Equal(t, time.Hour, s.Hourly)

	cfg.Schedule.Close = "09:00"
	_, err = SessionFromConfig(&cfg.Schedule)
	assert.Error(t, err)
}

// --- stubs ---

type failingQuota struct{}

func (failingQuota) TryConsume(context.Context, int) (bool, error) { return false, errors.New("down") }
func (failingQuota) Remaining(context.Context) (int, error)        { return 0, errors.New("down") }
func (failingQuota) Refund(context.Context, int) error             { return errors.New("down") }

type panickingRegistry struct{}

func (panickingRegistry) GetTracked(context.Context) ([]models.TrackedTicker, error) {
	panic("registry exploded")
}
