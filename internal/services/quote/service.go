// Package quote resolves asset prices through the cache, the daily quota and
// the market data vendor, falling back to stale data instead of failing.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

var (
	// ErrQuotaExhausted is returned by RefreshTicker when no call budget is left
	ErrQuotaExhausted = errors.New("daily quote quota exhausted")
	// ErrQuoteUnavailable wraps vendor failures returned by RefreshTicker
	ErrQuoteUnavailable = errors.New("quote unavailable")
)

// staleReadTimeout bounds the fallback cache read
const staleReadTimeout = 2 * time.Second

// Options tunes the provider's freshness windows and failure policy
type Options struct {
	FreshTTL        time.Duration
	StaleTTL        time.Duration
	FetchTimeout    time.Duration
	RefundOnFailure bool
	Source          string
}

// OptionsFromConfig maps the quotes config section onto Options
func OptionsFromConfig(c *common.QuotesConfig) Options {
	return Options{
		FreshTTL:        c.FreshTTL(),
		StaleTTL:        c.StaleTTL(),
		FetchTimeout:    c.GetFetchTimeout(),
		RefundOnFailure: c.RefundOnFailure,
		Source:          c.Source,
	}
}

func (o *Options) applyDefaults() {
	if o.FreshTTL <= 0 {
		o.FreshTTL = common.FreshnessQuote
	}
	if o.StaleTTL <= 0 {
		o.StaleTTL = common.FreshnessStaleQuote
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.Source == "" {
		o.Source = "ALPHAVANTAGE"
	}
}

// Service implements QuoteProvider.
type Service struct {
	cache  interfaces.QuoteCache
	quota  interfaces.QuotaLedger
	client interfaces.MarketDataClient
	opts   Options
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewService creates a new quote provider
func NewService(cache interfaces.QuoteCache, quota interfaces.QuotaLedger, client interfaces.MarketDataClient, opts Options, logger *common.Logger) *Service {
	opts.applyDefaults()
	return &Service{
		cache:  cache,
		quota:  quota,
		client: client,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the provider's clock
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetQuote returns the best available price for an asset. It never fails:
// fresh cache, then a quota-gated vendor fetch, then the stale cache, then
// a zero-price sentinel with IsStale set.
func (s *Service) GetQuote(ctx context.Context, assetID, ticker string) models.QuoteResult {
	if q := s.cached(ctx, assetID, s.opts.FreshTTL); q != nil {
		return models.QuoteResult{Price: q.Price, AsOf: q.AsOf, FromCache: true}
	}

	price, err := s.fetch(ctx, ticker)
	if err != nil {
		s.logger.Debug().Err(err).Str("asset_id", assetID).Str("ticker", ticker).Msg("Falling back to stale quote")
		return s.fallback(ctx, assetID)
	}

	now := s.now()
	if err := s.cache.Save(ctx, assetID, price, now, s.opts.Source); err != nil {
		s.logger.Warn().Err(err).Str("asset_id", assetID).Msg("Failed to save quote")
	}
	return models.QuoteResult{Price: price, AsOf: now}
}

// RefreshTicker spends one token on a vendor fetch for the symbol without
// touching the per-asset cache.
func (s *Service) RefreshTicker(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error) {
	price, err := s.fetch(ctx, ticker)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	return price, s.now(), nil
}

// Remaining returns the calls left in today's budget
func (s *Service) Remaining(ctx context.Context) (int, error) {
	return s.quota.Remaining(ctx)
}

// fetch consumes a token and calls the vendor with a bounded timeout
func (s *Service) fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("%w: empty ticker", ErrQuoteUnavailable)
	}
	// a caller that has already gone away spends nothing
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}

	ok, err := s.quota.TryConsume(ctx, 1)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Quota check failed")
		return decimal.Zero, ErrQuotaExhausted
	}
	if !ok {
		return decimal.Zero, ErrQuotaExhausted
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	price, err := s.client.GetGlobalQuote(fetchCtx, symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", symbol).Dur("elapsed", time.Since(start)).Msg("Quote fetch failed")
		if s.opts.RefundOnFailure {
			if rerr := s.quota.Refund(context.WithoutCancel(ctx), 1); rerr != nil {
				s.logger.Warn().Err(rerr).Msg("Failed to refund quote token")
			}
		}
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}

	s.logger.Debug().Str("ticker", symbol).Str("price", price.String()).Msg("Fetched quote")
	return price, nil
}

// fallback reads the stale window detached from the caller's cancellation,
// so a request cut short by its deadline still gets the last known price.
func (s *Service) fallback(ctx context.Context, assetID string) models.QuoteResult {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), staleReadTimeout)
	defer cancel()

	if q := s.cached(readCtx, assetID, s.opts.StaleTTL); q != nil {
		return models.QuoteResult{Price: q.Price, AsOf: q.AsOf, FromCache: true, IsStale: true}
	}
	return models.QuoteResult{Price: decimal.Zero, AsOf: s.now(), IsStale: true}
}

// cached reads the cache, treating read errors as misses
func (s *Service) cached(ctx context.Context, assetID string, maxAge time.Duration) *models.Quote {
	q, err := s.cache.TryGetRecent(ctx, assetID, maxAge)
	if err != nil {
		s.logger.Warn().Err(err).Str("asset_id", assetID).Msg("Quote cache read failed")
		return nil
	}
	return q
}

// Ensure Service implements QuoteProvider
var _ interfaces.QuoteProvider = (*Service)(nil)
