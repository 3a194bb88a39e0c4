package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/models"
)

// QuotaLedger is the shared daily budget of vendor calls
type QuotaLedger interface {
	TryConsume(ctx context.Context, tokens int) (bool, error)
	Remaining(ctx context.Context) (int, error)
	Refund(ctx context.Context, tokens int) error
}

// QuoteProvider resolves prices through cache, quota and the vendor
type QuoteProvider interface {
	// GetQuote never fails; see models.QuoteResult for how to read it.
	GetQuote(ctx context.Context, assetID, ticker string) models.QuoteResult
	// RefreshTicker spends one quota token on a vendor fetch for a symbol.
	RefreshTicker(ctx context.Context, ticker string) (decimal.Decimal, time.Time, error)
	Remaining(ctx context.Context) (int, error)
}

// TrackedTickerRegistry lists the symbols held by any asset row
type TrackedTickerRegistry interface {
	GetTracked(ctx context.Context) ([]models.TrackedTicker, error)
}

// PortfolioService values users' holdings
type PortfolioService interface {
	Valuate(ctx context.Context, assetID, ticker string, entries []*models.LedgerEntry) models.PositionSnapshot
	GetPortfolioCards(ctx context.Context, userID string) ([]models.PortfolioCard, error)
}

// SymbolService searches vendor symbols
type SymbolService interface {
	Search(ctx context.Context, term string) ([]models.SymbolMatch, error)
}
