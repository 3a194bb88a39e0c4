// Package mocks provides in-process test doubles for brokeclub interfaces
package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/models"
)

// ErrMockUnavailable is returned by MockMarketDataClient for unknown symbols
var ErrMockUnavailable = errors.New("mock: symbol unavailable")

// MockMarketDataClient implements MarketDataClient for testing
type MockMarketDataClient struct {
	mu sync.Mutex

	Prices  map[string]decimal.Decimal
	Errors  map[string]error
	Matches map[string][]models.SymbolMatch
	Delay   time.Duration

	QuoteCalls  int
	SearchCalls int
	Requested   []string
}

// NewMockMarketDataClient creates a mock with no symbols configured
func NewMockMarketDataClient() *MockMarketDataClient {
	return &MockMarketDataClient{
		Prices:  make(map[string]decimal.Decimal),
		Errors:  make(map[string]error),
		Matches: make(map[string][]models.SymbolMatch),
	}
}

// SetPrice configures the price returned for a symbol
func (m *MockMarketDataClient) SetPrice(symbol, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[strings.ToUpper(symbol)] = decimal.RequireFromString(price)
}

// SetError configures the error returned for a symbol
func (m *MockMarketDataClient) SetError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[strings.ToUpper(symbol)] = err
}

func (m *MockMarketDataClient) GetGlobalQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	m.QuoteCalls++
	m.Requested = append(m.Requested, symbol)
	key := strings.ToUpper(symbol)
	price, hasPrice := m.Prices[key]
	err := m.Errors[key]
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !hasPrice {
		return decimal.Zero, ErrMockUnavailable
	}
	return price, nil
}

func (m *MockMarketDataClient) SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls++
	if err, ok := m.Errors["search:"+strings.ToUpper(keywords)]; ok {
		return nil, err
	}
	return m.Matches[strings.ToUpper(keywords)], nil
}

// Calls returns the number of quote requests made
func (m *MockMarketDataClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QuoteCalls
}

// RequestedSymbols returns the symbols requested so far, in order
func (m *MockMarketDataClient) RequestedSymbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Requested...)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []models.QuoteRefreshedEvent
	Err    error
}

func (p *MockEventPublisher) PublishQuoteRefreshed(_ context.Context, event models.QuoteRefreshedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, event)
	return nil
}

func (p *MockEventPublisher) Close() error {
	return nil
}

// Published returns a copy of the recorded events
func (p *MockEventPublisher) Published() []models.QuoteRefreshedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.QuoteRefreshedEvent(nil), p.Events...)
}
