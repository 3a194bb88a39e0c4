package data

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/brokeclub/internal/models"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValuationFlow_CardsFromStoredLedger(t *testing.T) {
	s := newStack(t, 5)
	ctx := testContext()
	s.client.SetPrice("PETR4.SAO", "40.00")

	asset := &models.Asset{UserID: "user-1", Ticker: "petr4.sao", Name: "Petrobras PN", Currency: "BRL"}
	require.NoError(t, s.storage.AssetStore().SaveAsset(ctx, asset))
	require.NotEmpty(t, asset.ID)

	base := time.Date(2024, 2, 1, 13, 0, 0, 0, time.UTC)
	entries := []*models.LedgerEntry{
		{ID: "e1", UserID: "user-1", AssetID: asset.ID, Kind: models.EntryBuy, Quantity: dec("100"), UnitPrice: dec("30"), Amount: decimal.NewFromInt(3000), Timestamp: base},
		{ID: "e2", UserID: "user-1", AssetID: asset.ID, Kind: models.EntryBuy, Quantity: dec("100"), UnitPrice: dec("36"), Amount: decimal.NewFromInt(3600), Timestamp: base.Add(24 * time.Hour)},
		{ID: "e3", UserID: "user-1", AssetID: asset.ID, Kind: models.EntrySell, Quantity: dec("50"), UnitPrice: dec("38"), Amount: decimal.NewFromInt(1900), Timestamp: base.Add(48 * time.Hour)},
		{ID: "e4", UserID: "user-1", AssetID: asset.ID, Kind: models.EntryDividend, Amount: decimal.NewFromInt(120), Timestamp: base.Add(72 * time.Hour)},
	}
	// Saved out of order; valuation folds by timestamp
	for _, i := range []int{3, 1, 0, 2} {
		require.NoError(t, s.storage.LedgerStore().SaveEntry(ctx, entries[i]))
	}

	cards, err := s.portfolio.GetPortfolioCards(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cards, 1)

	c := cards[0]
	assert.Equal(t, "PETR4.SAO", c.Ticker)
	assert.Equal(t, "150", c.Quantity.String())
	assert.Equal(t, "33", c.WeightedAvgCost.String())
	// 50 * (38 - 33) + 120
	assert.Equal(t, "370", c.RealizedGain.String())
	assert.Equal(t, "6000", c.CurrentValue.String())
	assert.Equal(t, "1050", c.UnrealizedGain.String())
	assert.False(t, c.IsQuoteStale)

	// A second valuation is served from the quote cache
	_, err = s.portfolio.GetPortfolioCards(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.client.Calls())
}

func TestValuationFlow_OtherUsersEntriesIgnored(t *testing.T) {
	s := newStack(t, 5)
	ctx := testContext()
	s.client.SetPrice("VALE3.SAO", "60")

	mine := &models.Asset{ID: "mine", UserID: "user-1", Ticker: "VALE3.SAO"}
	theirs := &models.Asset{ID: "theirs", UserID: "user-2", Ticker: "VALE3.SAO"}
	require.NoError(t, s.storage.AssetStore().SaveAsset(ctx, mine))
	require.NoError(t, s.storage.AssetStore().SaveAsset(ctx, theirs))

	ts := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.storage.LedgerStore().SaveEntry(ctx, &models.LedgerEntry{
		ID: "m1", UserID: "user-1", AssetID: "mine", Kind: models.EntryBuy, Quantity: dec("10"), UnitPrice: dec("50"), Amount: decimal.NewFromInt(500), Timestamp: ts,
	}))
	require.NoError(t, s.storage.LedgerStore().SaveEntry(ctx, &models.LedgerEntry{
		ID: "t1", UserID: "user-2", AssetID: "theirs", Kind: models.EntryBuy, Quantity: dec("99"), UnitPrice: dec("1"), Amount: decimal.NewFromInt(99), Timestamp: ts,
	}))

	cards, err := s.portfolio.GetPortfolioCards(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "10", cards[0].Quantity.String())
	assert.Equal(t, "600", cards[0].CurrentValue.String())
}
