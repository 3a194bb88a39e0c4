// Package models defines data structures for brokeclub
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest known price of a single asset row
type Quote struct {
	AssetID  string          `json:"asset_id"`
	Price    decimal.Decimal `json:"price"`
	AsOf     time.Time       `json:"as_of"`
	Source   string          `json:"source"`
	Currency string          `json:"currency"`
}

// TickerQuote is the latest known price of a symbol, shared by every holder
type TickerQuote struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
	Source string          `json:"source"`
}

// DailyUsage counts vendor calls spent on one calendar day
type DailyUsage struct {
	Day  string `json:"day"` // YYYY-MM-DD
	Used int    `json:"used"`
}

// TrackedTicker is a symbol worth refreshing, derived from asset rows
type TrackedTicker struct {
	Ticker     string     `json:"ticker"`
	Popularity int        `json:"popularity"`
	LastAsOf   *time.Time `json:"last_as_of,omitempty"`
}

// QuoteResult is what callers of the quote provider receive. A zero price
// with IsStale set and FromCache unset means no price is available at all.
type QuoteResult struct {
	Price     decimal.Decimal `json:"price"`
	AsOf      time.Time       `json:"as_of"`
	FromCache bool            `json:"from_cache"`
	IsStale   bool            `json:"is_stale"`
}

// Unavailable reports whether the result is the "no price at all" sentinel
func (r QuoteResult) Unavailable() bool {
	return r.IsStale && !r.FromCache
}

// Refresh reasons used by the ingestion scheduler
const (
	RefreshOpen   = "OPEN"
	RefreshClose  = "CLOSE"
	RefreshHourly = "HOURLY"
	RefreshManual = "MANUAL"
)

// QuoteRefreshedEvent is published after the scheduler stores a ticker price
type QuoteRefreshedEvent struct {
	ID      string          `json:"id"`
	BatchID string          `json:"batch_id"`
	Reason  string          `json:"reason"`
	Ticker  string          `json:"ticker"`
	Price   decimal.Decimal `json:"price"`
	AsOf    time.Time       `json:"as_of"`
	Source  string          `json:"source"`
}

// SymbolMatch is a single vendor symbol search hit
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}
