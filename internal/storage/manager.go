package storage

import (
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/storage/postgres"
)

// Manager overrides the usage counter of a base StorageManager with a
// PostgreSQL counter, keeping every other store from the base.
type Manager struct {
	interfaces.StorageManager
	usage *postgres.UsageCounter
}

func (m *Manager) UsageCounter() interfaces.UsageCounter {
	return m.usage
}

func (m *Manager) Close() error {
	m.usage.Close()
	return m.StorageManager.Close()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
