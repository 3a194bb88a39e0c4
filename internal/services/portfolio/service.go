// Package portfolio values holdings from their ledger and the latest quote
package portfolio

import (
	"context"
	"fmt"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// Service implements PortfolioService
type Service struct {
	quotes interfaces.QuoteProvider
	assets interfaces.AssetStore
	ledger interfaces.LedgerStore
	logger *common.Logger
}

// NewService creates a new portfolio service
func NewService(quotes interfaces.QuoteProvider, assets interfaces.AssetStore, ledger interfaces.LedgerStore, logger *common.Logger) *Service {
	return &Service{
		quotes: quotes,
		assets: assets,
		ledger: ledger,
		logger: logger,
	}
}

// Valuate folds the ledger for one asset and prices it with a single quote
// lookup. It never fails; an unavailable quote yields a zero price with
// IsQuoteStale set.
func (s *Service) Valuate(ctx context.Context, assetID, ticker string, entries []*models.LedgerEntry) models.PositionSnapshot {
	p := fold(entries)
	if p.unknown > 0 {
		s.logger.Warn().Str("asset_id", assetID).Int("entries", p.unknown).Msg("Ignoring ledger entries of unknown kind")
	}
	if p.unresolvable > 0 {
		s.logger.Warn().Str("asset_id", assetID).Int("entries", p.unresolvable).Msg("Ledger entries without resolvable quantity or price")
	}

	quote := s.quotes.GetQuote(ctx, assetID, ticker)
	return snapshot(assetID, p, quote)
}

// GetPortfolioCards valuates every asset the user holds, one at a time
func (s *Service) GetPortfolioCards(ctx context.Context, userID string) ([]models.PortfolioCard, error) {
	assets, err := s.assets.ListUserAssets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets for user %s: %w", userID, err)
	}

	cards := make([]models.PortfolioCard, 0, len(assets))
	for _, a := range assets {
		entries, err := s.ledger.ListEntries(ctx, userID, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger for asset %s: %w", a.ID, err)
		}

		cards = append(cards, models.PortfolioCard{
			PositionSnapshot: s.Valuate(ctx, a.ID, a.Ticker, entries),
			Name:             a.Name,
			Ticker:           a.Ticker,
			Currency:         a.Currency,
		})
	}

	s.logger.Debug().Str("user_id", userID).Int("cards", len(cards)).Msg("Built portfolio cards")
	return cards, nil
}

var _ interfaces.PortfolioService = (*Service)(nil)
