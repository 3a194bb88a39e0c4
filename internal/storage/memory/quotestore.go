// Package memory provides in-process implementations of the brokeclub stores.
// They back tests and the "memory" storage backend; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// QuoteStore keeps the latest quote per asset
type QuoteStore struct {
	mu       sync.RWMutex
	quotes   map[string]models.Quote
	currency string
	now      func() time.Time
}

// NewQuoteStore creates an empty per-asset quote cache
func NewQuoteStore(currency string) *QuoteStore {
	return &QuoteStore{
		quotes:   make(map[string]models.Quote),
		currency: currency,
		now:      time.Now,
	}
}

// SetClock replaces the clock used to evaluate maxAge
func (s *QuoteStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *QuoteStore) TryGetRecent(_ context.Context, assetID string, maxAge time.Duration) (*models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[assetID]
	if !ok || !common.IsWithin(q.AsOf, s.now(), maxAge) {
		return nil, nil
	}
	return &q, nil
}

func (s *QuoteStore) Save(_ context.Context, assetID string, price decimal.Decimal, asOf time.Time, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.quotes[assetID]; ok && asOf.Before(existing.AsOf) {
		return nil
	}
	s.quotes[assetID] = models.Quote{
		AssetID:  assetID,
		Price:    price,
		AsOf:     asOf,
		Source:   source,
		Currency: s.currency,
	}
	return nil
}

// TickerStore keeps the latest quote per symbol
type TickerStore struct {
	mu      sync.RWMutex
	tickers map[string]models.TickerQuote
}

// NewTickerStore creates an empty per-ticker price cache
func NewTickerStore() *TickerStore {
	return &TickerStore{tickers: make(map[string]models.TickerQuote)}
}

func tickerKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func (s *TickerStore) TryGet(_ context.Context, ticker string) (*models.TickerQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.tickers[tickerKey(ticker)]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (s *TickerStore) Save(_ context.Context, ticker string, price decimal.Decimal, asOf time.Time, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tickerKey(ticker)
	if existing, ok := s.tickers[key]; ok && asOf.Before(existing.AsOf) {
		return nil
	}
	s.tickers[key] = models.TickerQuote{
		Ticker: key,
		Price:  price,
		AsOf:   asOf,
		Source: source,
	}
	return nil
}

func (s *TickerStore) List(_ context.Context) ([]*models.TickerQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TickerQuote, 0, len(s.tickers))
	for _, q := range s.tickers {
		q := q
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

var (
	_ interfaces.QuoteCache       = (*QuoteStore)(nil)
	_ interfaces.TickerPriceCache = (*TickerStore)(nil)
)
