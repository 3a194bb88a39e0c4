// Package surrealdb implements the brokeclub stores on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
)

// Table names
const (
	tableQuoteCache  = "quote_cache"
	tableTickerPrice = "ticker_price"
	tableDailyUsage  = "quote_daily_usage"
	tableAsset       = "asset"
	tableLedgerEntry = "ledger_entry"
)

var tables = []string{tableQuoteCache, tableTickerPrice, tableDailyUsage, tableAsset, tableLedgerEntry}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	quoteStore  *QuoteStore
	tickerStore *TickerStore
	usageStore  *UsageStore
	assetStore  *AssetStore
}

// closeDB releases a connection; replaced in tests
var closeDB = func(db *surrealdb.DB) error {
	return db.Close(context.Background())
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if err := prepare(ctx, db, &config.Storage); err != nil {
		if cerr := closeDB(db); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to close SurrealDB connection")
		}
		return nil, err
	}

	m := newManager(db, logger, config.Quotes.Currency)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// prepare signs in, selects the namespace and defines the tables
func prepare(ctx context.Context, db *surrealdb.DB, cfg *common.StorageConfig) error {
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		return fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return fmt.Errorf("failed to select namespace/database: %w", err)
	}

	return defineTables(ctx, db)
}

func newManager(db *surrealdb.DB, logger *common.Logger, currency string) *Manager {
	return &Manager{
		db:          db,
		logger:      logger,
		quoteStore:  NewQuoteStore(db, logger, currency),
		tickerStore: NewTickerStore(db, logger),
		usageStore:  NewUsageStore(db, logger),
		assetStore:  NewAssetStore(db, logger),
	}
}

// defineTables ensures tables exist (SurrealDB v3 errors on querying non-existent tables)
func defineTables(ctx context.Context, db *surrealdb.DB) error {
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}
	return nil
}

func (m *Manager) QuoteCache() interfaces.QuoteCache {
	return m.quoteStore
}

func (m *Manager) TickerPriceCache() interfaces.TickerPriceCache {
	return m.tickerStore
}

func (m *Manager) UsageCounter() interfaces.UsageCounter {
	return m.usageStore
}

func (m *Manager) AssetStore() interfaces.AssetStore {
	return m.assetStore
}

func (m *Manager) LedgerStore() interfaces.LedgerStore {
	return m.assetStore
}

func (m *Manager) Close() error {
	return closeDB(m.db)
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
