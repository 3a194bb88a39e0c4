package data

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/services/ingest"
	"github.com/bobmcallan/brokeclub/internal/services/portfolio"
	"github.com/bobmcallan/brokeclub/internal/services/quota"
	"github.com/bobmcallan/brokeclub/internal/services/quote"
	"github.com/bobmcallan/brokeclub/internal/services/tracked"
	surrealdb "github.com/bobmcallan/brokeclub/internal/storage/surrealdb"
	tcommon "github.com/bobmcallan/brokeclub/tests/common"
	"github.com/bobmcallan/brokeclub/tests/mocks"
)

// testManager creates a StorageManager connected to the shared SurrealDB container
// with a unique database per test for isolation.
func testManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping SurrealDB integration test in short mode")
	}

	sc := tcommon.StartSurrealDB(t)

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage.Backend = "surrealdb"
	cfg.Storage.Address = sc.Address()
	cfg.Storage.Namespace = "brokeclub_data_test"
	cfg.Storage.Database = fmt.Sprintf("d_%s_%d", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()), time.Now().UnixNano()%100000)

	mgr, err := surrealdb.NewManager(common.NewSilentLogger(), cfg)
	if err != nil {
		t.Fatalf("create storage manager: %v", err)
	}

	t.Cleanup(func() {
		mgr.Close()
	})

	return mgr
}

// stack wires the quote, valuation and ingestion services over one store
type stack struct {
	storage   interfaces.StorageManager
	client    *mocks.MockMarketDataClient
	events    *mocks.MockEventPublisher
	ledger    *quota.Ledger
	quotes    *quote.Service
	portfolio *portfolio.Service
	scheduler *ingest.Scheduler
}

func newStack(t *testing.T, dailyLimit int) *stack {
	t.Helper()

	mgr := testManager(t)
	logger := common.NewSilentLogger()
	client := mocks.NewMockMarketDataClient()
	events := &mocks.MockEventPublisher{}

	ledger := quota.NewLedger(mgr.UsageCounter(), dailyLimit, logger)
	quotes := quote.NewService(mgr.QuoteCache(), ledger, client, quote.Options{
		FreshTTL:     15 * time.Minute,
		StaleTTL:     30 * 24 * time.Hour,
		FetchTimeout: 5 * time.Second,
		Source:       "ALPHAVANTAGE",
	}, logger)
	registry := tracked.NewRegistry(mgr.AssetStore(), mgr.TickerPriceCache(), logger)
	session := ingest.Session{Location: time.UTC, Open: 10 * time.Hour, Close: 17*time.Hour + 30*time.Minute, Hourly: time.Hour}

	return &stack{
		storage:   mgr,
		client:    client,
		events:    events,
		ledger:    ledger,
		quotes:    quotes,
		portfolio: portfolio.NewService(quotes, mgr.AssetStore(), mgr.LedgerStore(), logger),
		scheduler: ingest.NewScheduler(quotes, registry, mgr.TickerPriceCache(), ledger, events, session, "ALPHAVANTAGE", logger),
	}
}

// testContext returns a background context.
func testContext() context.Context {
	return context.Background()
}
