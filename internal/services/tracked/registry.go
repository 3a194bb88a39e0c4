// Package tracked derives the set of symbols worth refreshing
package tracked

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// Registry implements TrackedTickerRegistry over the asset and ticker stores
type Registry struct {
	assets  interfaces.AssetStore
	tickers interfaces.TickerPriceCache
	logger  *common.Logger
}

func NewRegistry(assets interfaces.AssetStore, tickers interfaces.TickerPriceCache, logger *common.Logger) *Registry {
	return &Registry{assets: assets, tickers: tickers, logger: logger}
}

// GetTracked groups asset rows by normalized symbol. Popularity counts
// distinct asset rows; LastAsOf comes from the ticker price cache.
func (r *Registry) GetTracked(ctx context.Context) ([]models.TrackedTicker, error) {
	assets, err := r.assets.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	rows := make(map[string]map[string]struct{})
	for _, a := range assets {
		symbol := strings.ToUpper(strings.TrimSpace(a.Ticker))
		if symbol == "" {
			continue
		}
		if rows[symbol] == nil {
			rows[symbol] = make(map[string]struct{})
		}
		rows[symbol][a.ID] = struct{}{}
	}

	quotes, err := r.tickers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticker prices: %w", err)
	}
	lastAsOf := make(map[string]time.Time, len(quotes))
	for _, q := range quotes {
		lastAsOf[strings.ToUpper(q.Ticker)] = q.AsOf
	}

	tracked := make([]models.TrackedTicker, 0, len(rows))
	for symbol, ids := range rows {
		t := models.TrackedTicker{Ticker: symbol, Popularity: len(ids)}
		if asOf, ok := lastAsOf[symbol]; ok {
			asOf := asOf
			t.LastAsOf = &asOf
		}
		tracked = append(tracked, t)
	}
	sort.Slice(tracked, func(i, j int) bool { return tracked[i].Ticker < tracked[j].Ticker })

	r.logger.Debug().Int("assets", len(assets)).Int("tickers", len(tracked)).Msg("Resolved tracked tickers")
	return tracked, nil
}

var _ interfaces.TrackedTickerRegistry = (*Registry)(nil)
