package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// quoteRecord is the stored shape of a per-asset quote. Prices are kept as
// decimal strings so no precision is lost in transit.
type quoteRecord struct {
	AssetID  string    `json:"asset_id"`
	Price    string    `json:"price"`
	AsOf     time.Time `json:"as_of"`
	Source   string    `json:"source"`
	Currency string    `json:"currency"`
}

func (r *quoteRecord) toModel() (*models.Quote, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q for asset %s: %w", r.Price, r.AssetID, err)
	}
	return &models.Quote{
		AssetID:  r.AssetID,
		Price:    price,
		AsOf:     r.AsOf,
		Source:   r.Source,
		Currency: r.Currency,
	}, nil
}

type QuoteStore struct {
	db       *surrealdb.DB
	logger   *common.Logger
	currency string
	now      func() time.Time
}

func NewQuoteStore(db *surrealdb.DB, logger *common.Logger, currency string) *QuoteStore {
	return &QuoteStore{
		db:       db,
		logger:   logger,
		currency: currency,
		now:      time.Now,
	}
}

func (s *QuoteStore) get(ctx context.Context, assetID string) (*quoteRecord, error) {
	rec, err := surrealdb.Select[quoteRecord](ctx, s.db, surrealmodels.NewRecordID(tableQuoteCache, assetID))
	if err != nil {
		return nil, fmt.Errorf("failed to select quote: %w", err)
	}
	return rec, nil
}

func (s *QuoteStore) TryGetRecent(ctx context.Context, assetID string, maxAge time.Duration) (*models.Quote, error) {
	rec, err := s.get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if rec == nil || !common.IsWithin(rec.AsOf, s.now(), maxAge) {
		return nil, nil
	}
	return rec.toModel()
}

func (s *QuoteStore) Save(ctx context.Context, assetID string, price decimal.Decimal, asOf time.Time, source string) error {
	rec := quoteRecord{
		AssetID:  assetID,
		Price:    price.String(),
		AsOf:     asOf.UTC(),
		Source:   source,
		Currency: s.currency,
	}
	return upsertIfNotOlder[quoteRecord](ctx, s.db, surrealmodels.NewRecordID(tableQuoteCache, assetID), rec, rec.AsOf, "quote")
}

// tickerRecord is the stored shape of a per-symbol quote
type tickerRecord struct {
	Ticker string    `json:"ticker"`
	Price  string    `json:"price"`
	AsOf   time.Time `json:"as_of"`
	Source string    `json:"source"`
}

func (r *tickerRecord) toModel() (*models.TickerQuote, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q for ticker %s: %w", r.Price, r.Ticker, err)
	}
	return &models.TickerQuote{
		Ticker: r.Ticker,
		Price:  price,
		AsOf:   r.AsOf,
		Source: r.Source,
	}, nil
}

type TickerStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewTickerStore(db *surrealdb.DB, logger *common.Logger) *TickerStore {
	return &TickerStore{db: db, logger: logger}
}

func tickerKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func (s *TickerStore) TryGet(ctx context.Context, ticker string) (*models.TickerQuote, error) {
	rec, err := surrealdb.Select[tickerRecord](ctx, s.db, surrealmodels.NewRecordID(tableTickerPrice, tickerKey(ticker)))
	if err != nil {
		return nil, fmt.Errorf("failed to select ticker price: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return rec.toModel()
}

func (s *TickerStore) Save(ctx context.Context, ticker string, price decimal.Decimal, asOf time.Time, source string) error {
	key := tickerKey(ticker)
	rec := tickerRecord{
		Ticker: key,
		Price:  price.String(),
		AsOf:   asOf.UTC(),
		Source: source,
	}
	return upsertIfNotOlder[tickerRecord](ctx, s.db, surrealmodels.NewRecordID(tableTickerPrice, key), rec, rec.AsOf, "ticker price")
}

func (s *TickerStore) List(ctx context.Context) ([]*models.TickerQuote, error) {
	sql := "SELECT * FROM ticker_price ORDER BY ticker ASC"
	results, err := surrealdb.Query[[]tickerRecord](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticker prices: %w", err)
	}

	var out []*models.TickerQuote
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			q, err := (*results)[0].Result[i].toModel()
			if err != nil {
				s.logger.Warn().Err(err).Msg("Skipping unreadable ticker price")
				continue
			}
			out = append(out, q)
		}
	}
	return out, nil
}

// upsertWithRetry writes content to the record, retrying transient failures
func upsertWithRetry[T any](ctx context.Context, db *surrealdb.DB, rid surrealmodels.RecordID, content T, what string) error {
	vars := map[string]any{"rid": rid, "data": content}
	return execWithRetry[T](ctx, db, "UPSERT $rid CONTENT $data", vars, what)
}

// upsertIfNotOlder writes content unless the stored record carries a later
// as_of. The check and the write are one statement, so concurrent savers
// cannot move as_of backwards.
func upsertIfNotOlder[T any](ctx context.Context, db *surrealdb.DB, rid surrealmodels.RecordID, content T, asOf time.Time, what string) error {
	sql := "UPSERT $rid CONTENT $data WHERE as_of IS NONE OR as_of <= $as_of"
	vars := map[string]any{"rid": rid, "data": content, "as_of": asOf}
	return execWithRetry[T](ctx, db, sql, vars, what)
}

func execWithRetry[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any, what string) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]T](ctx, db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save %s after retries: %w", what, lastErr)
}

var (
	_ interfaces.QuoteCache       = (*QuoteStore)(nil)
	_ interfaces.TickerPriceCache = (*TickerStore)(nil)
)
