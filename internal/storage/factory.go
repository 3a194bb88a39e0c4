// Package storage selects and assembles the configured storage backends.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/storage/memory"
	"github.com/bobmcallan/brokeclub/internal/storage/postgres"
	"github.com/bobmcallan/brokeclub/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendMemory    = "memory"
	BackendSurrealDB = "surrealdb"
	QuotaPostgres    = "postgres"
)

// NewStorageManager creates the StorageManager for the configuration.
// Supported backends: "memory" (default) and "surrealdb". The quota counter
// may be moved to PostgreSQL with storage.quota_backend = "postgres".
func NewStorageManager(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := strings.ToLower(config.Storage.Backend)
	if backend == "" {
		backend = BackendMemory
	}

	var base interfaces.StorageManager
	switch backend {
	case BackendMemory:
		base = memory.NewManager(config.Quotes.Currency)
		logger.Warn().Msg("Using in-memory storage; quotes and usage are lost on restart")

	case BackendSurrealDB:
		m, err := surrealdb.NewManager(logger, config)
		if err != nil {
			return nil, err
		}
		base = m

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, surrealdb)", backend)
	}

	switch strings.ToLower(config.Storage.QuotaBackend) {
	case "":
		return base, nil

	case QuotaPostgres:
		counter, err := postgres.Connect(ctx, config.Storage.PostgresDSN, logger)
		if err != nil {
			base.Close()
			return nil, err
		}
		logger.Info().Msg("Quote usage counter on PostgreSQL")
		return &Manager{StorageManager: base, usage: counter}, nil

	default:
		base.Close()
		return nil, fmt.Errorf("unknown quota backend: %s (supported: postgres)", config.Storage.QuotaBackend)
	}
}
