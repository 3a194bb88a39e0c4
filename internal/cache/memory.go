package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

var _ interfaces.SymbolCache = (*MemoryCache)(nil)

// MemoryCache is an in-process SymbolCache. Each entry costs one unit, so
// maxEntries bounds the number of cached search terms.
type MemoryCache struct {
	c *ristretto.Cache
}

func NewMemoryCache(maxEntries int64) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryCache{c: c}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]models.SymbolMatch, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	matches, ok := v.([]models.SymbolMatch)
	if !ok {
		return nil, false, nil
	}
	return matches, true, nil
}

// Set stores the matches and waits for the write buffer to drain so the
// entry is visible to the next Get.
func (m *MemoryCache) Set(_ context.Context, key string, matches []models.SymbolMatch, ttl time.Duration) error {
	m.c.SetWithTTL(key, matches, 1, ttl)
	m.c.Wait()
	return nil
}

func (m *MemoryCache) Close() error {
	m.c.Close()
	return nil
}
