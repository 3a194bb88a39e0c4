package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// AssetStore keeps asset rows and their ledger entries
type AssetStore struct {
	mu      sync.RWMutex
	assets  map[string]models.Asset
	entries map[string][]models.LedgerEntry // keyed by asset ID
}

// NewAssetStore creates an empty asset and ledger store
func NewAssetStore() *AssetStore {
	return &AssetStore{
		assets:  make(map[string]models.Asset),
		entries: make(map[string][]models.LedgerEntry),
	}
}

func (s *AssetStore) SaveAsset(_ context.Context, asset *models.Asset) error {
	if asset == nil || asset.ID == "" {
		return errors.New("asset ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = *asset
	return nil
}

func (s *AssetStore) GetAsset(_ context.Context, assetID string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[assetID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *AssetStore) ListAssets(_ context.Context) ([]*models.Asset, error) {
	return s.list(func(*models.Asset) bool { return true }), nil
}

func (s *AssetStore) ListUserAssets(_ context.Context, userID string) ([]*models.Asset, error) {
	return s.list(func(a *models.Asset) bool { return a.UserID == userID }), nil
}

func (s *AssetStore) list(keep func(*models.Asset) bool) []*models.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		a := a
		if keep(&a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *AssetStore) SaveEntry(_ context.Context, entry *models.LedgerEntry) error {
	if entry == nil || entry.AssetID == "" {
		return errors.New("ledger entry asset ID is required")
	}
	entry.Classify()

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[entry.AssetID]
	for i := range list {
		if entry.ID != "" && list[i].ID == entry.ID {
			list[i] = *entry
			return nil
		}
	}
	s.entries[entry.AssetID] = append(list, *entry)
	return nil
}

// ListEntries returns the user's entries for the asset in insertion order.
func (s *AssetStore) ListEntries(_ context.Context, userID, assetID string) ([]*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.LedgerEntry
	for _, e := range s.entries[assetID] {
		e := e
		if e.UserID == userID {
			out = append(out, &e)
		}
	}
	return out, nil
}

var (
	_ interfaces.AssetStore  = (*AssetStore)(nil)
	_ interfaces.LedgerStore = (*AssetStore)(nil)
)
