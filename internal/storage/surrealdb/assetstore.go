package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// entryRecord is the stored shape of a ledger entry with decimals as strings
type entryRecord struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	AssetID   string    `json:"asset_id"`
	Kind      string    `json:"kind"`
	Quantity  *string   `json:"quantity,omitempty"`
	UnitPrice *string   `json:"unit_price,omitempty"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category,omitempty"`
}

func newEntryRecord(e *models.LedgerEntry) entryRecord {
	rec := entryRecord{
		EntryID:   e.ID,
		UserID:    e.UserID,
		AssetID:   e.AssetID,
		Kind:      string(e.Kind),
		Amount:    e.Amount.String(),
		Timestamp: e.Timestamp.UTC(),
		Category:  e.Category,
	}
	if e.Quantity != nil {
		q := e.Quantity.String()
		rec.Quantity = &q
	}
	if e.UnitPrice != nil {
		p := e.UnitPrice.String()
		rec.UnitPrice = &p
	}
	return rec
}

func optionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *entryRecord) toModel() (*models.LedgerEntry, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q on entry %s: %w", r.Amount, r.EntryID, err)
	}
	qty, err := optionalDecimal(r.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity on entry %s: %w", r.EntryID, err)
	}
	price, err := optionalDecimal(r.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid unit price on entry %s: %w", r.EntryID, err)
	}
	return &models.LedgerEntry{
		ID:        r.EntryID,
		UserID:    r.UserID,
		AssetID:   r.AssetID,
		Kind:      models.ParseEntryKind(r.Kind),
		Quantity:  qty,
		UnitPrice: price,
		Amount:    amount,
		Timestamp: r.Timestamp,
		Category:  r.Category,
	}, nil
}

// AssetStore implements both AssetStore and LedgerStore
type AssetStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewAssetStore(db *surrealdb.DB, logger *common.Logger) *AssetStore {
	return &AssetStore{db: db, logger: logger}
}

func (s *AssetStore) SaveAsset(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	asset.Ticker = strings.ToUpper(strings.TrimSpace(asset.Ticker))
	return upsertWithRetry[models.Asset](ctx, s.db, surrealmodels.NewRecordID(tableAsset, asset.ID), *asset, "asset")
}

func (s *AssetStore) GetAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	asset, err := surrealdb.Select[models.Asset](ctx, s.db, surrealmodels.NewRecordID(tableAsset, assetID))
	if err != nil {
		return nil, fmt.Errorf("failed to select asset: %w", err)
	}
	if asset == nil {
		return nil, fmt.Errorf("asset '%s' not found", assetID)
	}
	return asset, nil
}

func (s *AssetStore) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	return s.queryAssets(ctx, "SELECT * FROM asset ORDER BY created_at ASC, asset_id ASC", nil)
}

func (s *AssetStore) ListUserAssets(ctx context.Context, userID string) ([]*models.Asset, error) {
	sql := "SELECT * FROM asset WHERE user_id = $user_id ORDER BY created_at ASC, asset_id ASC"
	return s.queryAssets(ctx, sql, map[string]any{"user_id": userID})
}

func (s *AssetStore) queryAssets(ctx context.Context, sql string, vars map[string]any) ([]*models.Asset, error) {
	results, err := surrealdb.Query[[]models.Asset](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	var assets []*models.Asset
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			assets = append(assets, &(*results)[0].Result[i])
		}
	}
	return assets, nil
}

func (s *AssetStore) SaveEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry == nil || entry.AssetID == "" {
		return errors.New("ledger entry asset ID is required")
	}
	entry.Classify()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	rec := newEntryRecord(entry)
	return upsertWithRetry[entryRecord](ctx, s.db, surrealmodels.NewRecordID(tableLedgerEntry, entry.ID), rec, "ledger entry")
}

func (s *AssetStore) ListEntries(ctx context.Context, userID, assetID string) ([]*models.LedgerEntry, error) {
	sql := "SELECT * FROM ledger_entry WHERE user_id = $user_id AND asset_id = $asset_id ORDER BY timestamp ASC"
	vars := map[string]any{"user_id": userID, "asset_id": assetID}

	results, err := surrealdb.Query[[]entryRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	var entries []*models.LedgerEntry
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			e, err := (*results)[0].Result[i].toModel()
			if err != nil {
				s.logger.Warn().Err(err).Str("asset_id", assetID).Msg("Skipping unreadable ledger entry")
				continue
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

var (
	_ interfaces.AssetStore  = (*AssetStore)(nil)
	_ interfaces.LedgerStore = (*AssetStore)(nil)
)
