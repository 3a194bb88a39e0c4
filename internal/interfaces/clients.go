package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/models"
)

// MarketDataClient provides quotes and symbol search from the vendor API
type MarketDataClient interface {
	GetGlobalQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
	SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error)
}

// EventPublisher publishes quote refresh notifications
type EventPublisher interface {
	PublishQuoteRefreshed(ctx context.Context, event models.QuoteRefreshedEvent) error
	Close() error
}
