// Package interfaces defines service contracts for brokeclub
package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	QuoteCache() QuoteCache
	TickerPriceCache() TickerPriceCache
	UsageCounter() UsageCounter
	AssetStore() AssetStore
	LedgerStore() LedgerStore

	// Lifecycle
	Close() error
}

// QuoteCache stores the latest price per asset row
type QuoteCache interface {
	// TryGetRecent returns the most recent quote for the asset whose AsOf is
	// no older than maxAge, or nil when none qualifies.
	TryGetRecent(ctx context.Context, assetID string, maxAge time.Duration) (*models.Quote, error)
	// Save records a price for the asset. A write older than the stored
	// quote is ignored so AsOf never moves backwards.
	Save(ctx context.Context, assetID string, price decimal.Decimal, asOf time.Time, source string) error
}

// TickerPriceCache stores the latest price per symbol
type TickerPriceCache interface {
	TryGet(ctx context.Context, ticker string) (*models.TickerQuote, error)
	Save(ctx context.Context, ticker string, price decimal.Decimal, asOf time.Time, source string) error
	List(ctx context.Context) ([]*models.TickerQuote, error)
}

// UsageCounter is the atomic per-day counter behind the quota ledger.
// Day keys are YYYY-MM-DD strings; rows are created lazily.
type UsageCounter interface {
	// TryIncrement adds tokens to the day's counter only if the result stays
	// within limit, as a single indivisible operation.
	TryIncrement(ctx context.Context, day string, tokens, limit int) (bool, error)
	// Decrement subtracts tokens, flooring the counter at zero.
	Decrement(ctx context.Context, day string, tokens int) error
	// Used returns the day's counter, zero for a day never touched.
	Used(ctx context.Context, day string) (int, error)
}

// AssetStore reads and writes users' asset rows
type AssetStore interface {
	SaveAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, assetID string) (*models.Asset, error)
	ListAssets(ctx context.Context) ([]*models.Asset, error)
	ListUserAssets(ctx context.Context, userID string) ([]*models.Asset, error)
}

// LedgerStore reads and writes ledger entries
type LedgerStore interface {
	SaveEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, userID, assetID string) ([]*models.LedgerEntry, error)
}

// SymbolCache caches symbol search results by normalized key
type SymbolCache interface {
	Get(ctx context.Context, key string) ([]models.SymbolMatch, bool, error)
	Set(ctx context.Context, key string, matches []models.SymbolMatch, ttl time.Duration) error
}
