// Package symbols provides cached vendor symbol search
package symbols

import (
	"context"
	"strings"
	"time"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

const (
	minTermLength = 3
	maxMatches    = 10
)

// Service implements SymbolService
type Service struct {
	client interfaces.MarketDataClient
	cache  interfaces.SymbolCache
	ttl    time.Duration
	logger *common.Logger
}

// NewService creates a symbol search service. ttl <= 0 uses the default.
func NewService(client interfaces.MarketDataClient, cache interfaces.SymbolCache, ttl time.Duration, logger *common.Logger) *Service {
	if ttl <= 0 {
		ttl = common.FreshnessSymbolSearch
	}
	return &Service{client: client, cache: cache, ttl: ttl, logger: logger}
}

// CacheKey normalizes a search term into its cache key
func CacheKey(term string) string {
	return "sym:" + strings.ToUpper(strings.TrimSpace(term))
}

// Search returns up to 10 matches for term. Terms shorter than three
// characters return no matches without calling the vendor. Searches do not
// spend the daily quote quota.
func (s *Service) Search(ctx context.Context, term string) ([]models.SymbolMatch, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < minTermLength {
		return []models.SymbolMatch{}, nil
	}

	key := CacheKey(term)
	matches, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Symbol cache read failed")
	}
	if ok {
		return matches, nil
	}

	matches, err = s.client.SearchSymbols(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	if err := s.cache.Set(ctx, key, matches, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Symbol cache write failed")
	}
	return matches, nil
}

var _ interfaces.SymbolService = (*Service)(nil)
