package memory

import (
	"github.com/bobmcallan/brokeclub/internal/interfaces"
)

// Manager implements interfaces.StorageManager entirely in memory.
type Manager struct {
	quotes  *QuoteStore
	tickers *TickerStore
	usage   *UsageCounter
	assets  *AssetStore
}

// NewManager creates an empty in-memory storage manager
func NewManager(currency string) *Manager {
	return &Manager{
		quotes:  NewQuoteStore(currency),
		tickers: NewTickerStore(),
		usage:   NewUsageCounter(),
		assets:  NewAssetStore(),
	}
}

func (m *Manager) QuoteCache() interfaces.QuoteCache {
	return m.quotes
}

func (m *Manager) TickerPriceCache() interfaces.TickerPriceCache {
	return m.tickers
}

func (m *Manager) UsageCounter() interfaces.UsageCounter {
	return m.usage
}

func (m *Manager) AssetStore() interfaces.AssetStore {
	return m.assets
}

func (m *Manager) LedgerStore() interfaces.LedgerStore {
	return m.assets
}

func (m *Manager) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
