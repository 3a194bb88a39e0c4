// Package ingest refreshes tracked ticker prices on the market session clock
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// BatchResult summarises one refresh batch
type BatchResult struct {
	ID        string
	Reason    string
	Remaining int
	Tracked   int
	Refreshed []string
	Failed    []string
	Elapsed   time.Duration
}

// Scheduler runs OPEN, CLOSE and HOURLY refresh batches.
type Scheduler struct {
	provider interfaces.QuoteProvider
	registry interfaces.TrackedTickerRegistry
	tickers  interfaces.TickerPriceCache
	quota    interfaces.QuotaLedger
	events   interfaces.EventPublisher // may be nil
	session  Session
	source   string
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing

	state State
}

// NewScheduler creates a scheduler. events may be nil.
func NewScheduler(
	provider interfaces.QuoteProvider,
	registry interfaces.TrackedTickerRegistry,
	tickers interfaces.TickerPriceCache,
	quota interfaces.QuotaLedger,
	events interfaces.EventPublisher,
	session Session,
	source string,
	logger *common.Logger,
) *Scheduler {
	if session.Location == nil {
		session.Location = time.UTC
	}
	if session.Hourly <= 0 {
		session.Hourly = time.Hour
	}
	return &Scheduler{
		provider: provider,
		registry: registry,
		tickers:  tickers,
		quota:    quota,
		events:   events,
		session:  session,
		source:   source,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the clock read on each loop tick
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// State returns a copy of the per-day state
func (s *Scheduler) State() State {
	return s.state
}

// Run ticks every interval until ctx is cancelled. A tick that is still
// running when the next one is due causes that tick to be dropped.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().
		Str("timezone", s.session.Location.String()).
		Dur("interval", interval).
		Msg("Ingestion scheduler: started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Ingestion scheduler: stopped")
			return
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("panic", fmt.Sprint(r)).Msg("Ingestion scheduler: tick panicked")
		}
	}()

	if _, err := s.Tick(ctx, s.now()); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("Ingestion scheduler: tick failed")
	}
}

// Tick evaluates the schedule at now and runs at most one batch. It returns
// the reason of the batch that ran, or "" when none was due. A batch that
// fails leaves its flag unset so a later tick retries it.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (string, error) {
	local := now.In(s.session.Location)
	if date := local.Format("2006-01-02"); date != s.state.Date {
		if s.state.Date != "" {
			s.logger.Debug().Str("from", s.state.Date).Str("to", date).Msg("Ingestion scheduler: new trading date")
		}
		s.state = State{Date: date}
	}

	tod := timeOfDay(local)
	inSession := tod >= s.session.Open && tod <= s.session.Close

	switch {
	case !s.state.OpenDone && near(tod, s.session.Open):
		if _, err := s.RunBatch(ctx, models.RefreshOpen); err != nil {
			return models.RefreshOpen, err
		}
		s.state.OpenDone = true
		return models.RefreshOpen, nil

	case !s.state.CloseDone && near(tod, s.session.Close):
		if _, err := s.RunBatch(ctx, models.RefreshClose); err != nil {
			return models.RefreshClose, err
		}
		s.state.CloseDone = true
		return models.RefreshClose, nil

	case inSession && now.Sub(s.state.LastHourly) >= s.session.Hourly:
		if _, err := s.RunBatch(ctx, models.RefreshHourly); err != nil {
			return models.RefreshHourly, err
		}
		s.state.LastHourly = now
		return models.RefreshHourly, nil
	}

	return "", nil
}

// RunBatch refreshes as many tracked tickers as the remaining quota allows,
// in priority order, one at a time. Per-ticker failures are logged and
// skipped; only failing to read the quota or the tracked set is an error.
func (s *Scheduler) RunBatch(ctx context.Context, reason string) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{ID: uuid.New().String(), Reason: reason}

	remaining, err := s.quota.Remaining(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read remaining quota: %w", err)
	}
	result.Remaining = remaining
	if remaining <= 0 {
		s.logger.Info().Str("reason", reason).Msg("No remaining quote calls, skipping refresh")
		return result, nil
	}

	tracked, err := s.registry.GetTracked(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load tracked tickers: %w", err)
	}
	result.Tracked = len(tracked)

	SortByPriority(tracked)
	count := min(remaining, len(tracked))
	if count == 0 {
		s.logger.Info().Str("reason", reason).Msg("No tickers to refresh")
		return result, nil
	}

	s.logger.Info().
		Str("batch_id", result.ID).
		Str("reason", reason).
		Int("count", count).
		Int("remaining", remaining).
		Msg("Refreshing tickers")

	for _, t := range tracked[:count] {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.refreshOne(ctx, result, t.Ticker); err != nil {
			s.logger.Warn().Err(err).Str("ticker", t.Ticker).Str("batch_id", result.ID).Msg("Failed to refresh ticker")
			result.Failed = append(result.Failed, t.Ticker)
			continue
		}
		result.Refreshed = append(result.Refreshed, t.Ticker)
	}

	result.Elapsed = time.Since(start)
	s.logger.Info().
		Str("batch_id", result.ID).
		Str("reason", reason).
		Int("refreshed", len(result.Refreshed)).
		Int("failed", len(result.Failed)).
		Dur("elapsed", result.Elapsed).
		Msg("Refresh batch complete")

	return result, nil
}

func (s *Scheduler) refreshOne(ctx context.Context, batch *BatchResult, ticker string) error {
	price, asOf, err := s.provider.RefreshTicker(ctx, ticker)
	if err != nil {
		return err
	}
	if err := s.tickers.Save(ctx, ticker, price, asOf, s.source); err != nil {
		return fmt.Errorf("failed to save ticker price: %w", err)
	}

	if s.events == nil {
		return nil
	}
	event := models.QuoteRefreshedEvent{
		ID:      uuid.New().String(),
		BatchID: batch.ID,
		Reason:  batch.Reason,
		Ticker:  ticker,
		Price:   price,
		AsOf:    asOf,
		Source:  s.source,
	}
	if err := s.events.PublishQuoteRefreshed(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to publish quote refreshed event")
	}
	return nil
}

// SortByPriority orders tickers by popularity descending, then by oldest
// refresh first with never-refreshed tickers ahead of all others, then by
// symbol.
func SortByPriority(tracked []models.TrackedTicker) {
	sort.SliceStable(tracked, func(i, j int) bool {
		a, b := tracked[i], tracked[j]
		if a.Popularity != b.Popularity {
			return a.Popularity > b.Popularity
		}
		switch {
		case a.LastAsOf == nil && b.LastAsOf != nil:
			return true
		case a.LastAsOf != nil && b.LastAsOf == nil:
			return false
		case a.LastAsOf != nil && b.LastAsOf != nil && !a.LastAsOf.Equal(*b.LastAsOf):
			return a.LastAsOf.Before(*b.LastAsOf)
		}
		return a.Ticker < b.Ticker
	})
}
