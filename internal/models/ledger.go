package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the explicit classification of a ledger entry
type EntryKind string

const (
	EntryBuy      EntryKind = "buy"
	EntrySell     EntryKind = "sell"
	EntryDividend EntryKind = "dividend"
	EntryUnknown  EntryKind = "unknown"
)

// ParseEntryKind maps a stored kind string to an EntryKind. Anything that is
// not an exact (case-insensitive) kind name is EntryUnknown.
func ParseEntryKind(s string) EntryKind {
	switch EntryKind(strings.ToLower(strings.TrimSpace(s))) {
	case EntryBuy:
		return EntryBuy
	case EntrySell:
		return EntrySell
	case EntryDividend:
		return EntryDividend
	default:
		return EntryUnknown
	}
}

// ClassifyCategory assigns a kind to a legacy free-text transaction category
// at import time. Matching is by substring, in this precedence:
// buy ("compra", "buy"), then sell ("venda", "sell"), then dividend ("divid").
// A category containing both buy and sell words is a buy.
func ClassifyCategory(category string) EntryKind {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "compra") || strings.Contains(c, "buy"):
		return EntryBuy
	case strings.Contains(c, "venda") || strings.Contains(c, "sell"):
		return EntrySell
	case strings.Contains(c, "divid"):
		return EntryDividend
	default:
		return EntryUnknown
	}
}

// Asset is one user's holding row referencing a tradable symbol
type Asset struct {
	ID        string    `json:"asset_id"`
	UserID    string    `json:"user_id"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerEntry is a single transaction against an asset.
// Quantity and UnitPrice are optional; Amount is the total cash value.
type LedgerEntry struct {
	ID        string           `json:"entry_id"`
	UserID    string           `json:"user_id"`
	AssetID   string           `json:"asset_id"`
	Kind      EntryKind        `json:"kind"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Amount    decimal.Decimal  `json:"amount"`
	Timestamp time.Time        `json:"timestamp"`
	Category  string           `json:"category,omitempty"`
}

// Classify derives Kind from the legacy Category when no explicit kind was
// given. Stores call it on write, so valuation only ever switches on Kind.
func (e *LedgerEntry) Classify() {
	if e.Kind != "" {
		return
	}
	if e.Category == "" {
		e.Kind = EntryUnknown
		return
	}
	e.Kind = ClassifyCategory(e.Category)
}
