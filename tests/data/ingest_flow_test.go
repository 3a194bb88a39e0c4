package data

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/brokeclub/internal/models"
)

func TestIngestFlow_BatchRespectsQuotaAndPopularity(t *testing.T) {
	s := newStack(t, 2)
	ctx := testContext()
	s.client.SetPrice("PETR4.SAO", "38.15")
	s.client.SetPrice("VALE3.SAO", "61.20")
	s.client.SetPrice("ITSA4.SAO", "10.05")

	holdings := map[string]int{"PETR4.SAO": 3, "VALE3.SAO": 2, "ITSA4.SAO": 1}
	n := 0
	for ticker, holders := range holdings {
		for i := 0; i < holders; i++ {
			n++
			require.NoError(t, s.storage.AssetStore().SaveAsset(ctx, &models.Asset{
				UserID: "user-" + string(rune('a'+n)),
				Ticker: ticker,
			}))
		}
	}

	result, err := s.scheduler.RunBatch(ctx, models.RefreshOpen)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Tracked)
	assert.Equal(t, []string{"PETR4.SAO", "VALE3.SAO"}, result.Refreshed)
	assert.Empty(t, result.Failed)

	stored, err := s.storage.TickerPriceCache().TryGet(ctx, "PETR4.SAO")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("38.15")))

	missing, err := s.storage.TickerPriceCache().TryGet(ctx, "ITSA4.SAO")
	require.NoError(t, err)
	assert.Nil(t, missing)

	published := s.events.Published()
	require.Len(t, published, 2)
	assert.Equal(t, result.ID, published[0].BatchID)
	assert.Equal(t, models.RefreshOpen, published[0].Reason)

	remaining, err := s.ledger.Remaining(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// Quota spent: the next batch refreshes nothing and calls nobody
	calls := s.client.Calls()
	next, err := s.scheduler.RunBatch(ctx, models.RefreshHourly)
	require.NoError(t, err)
	assert.Empty(t, next.Refreshed)
	assert.Equal(t, calls, s.client.Calls())
}

func TestIngestFlow_NeverRefreshedTickerGoesFirst(t *testing.T) {
	s := newStack(t, 1)
	ctx := testContext()
	s.client.SetPrice("BBAS3.SAO", "27.00")
	s.client.SetPrice("EGIE3.SAO", "41.00")

	require.NoError(t, s.storage.AssetStore().SaveAsset(ctx, &models.Asset{UserID: "u1", Ticker: "BBAS3.SAO"}))
	require.NoError(t, s.storage.AssetStore().SaveAsset(ctx, &models.Asset{UserID: "u2", Ticker: "EGIE3.SAO"}))
	require.NoError(t, s.storage.TickerPriceCache().Save(ctx, "BBAS3.SAO", decimal.NewFromInt(26), time.Now().Add(-time.Hour), "ALPHAVANTAGE"))

	result, err := s.scheduler.RunBatch(ctx, models.RefreshHourly)
	require.NoError(t, err)
	assert.Equal(t, []string{"EGIE3.SAO"}, result.Refreshed)
}
