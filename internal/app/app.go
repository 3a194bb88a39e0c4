package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bobmcallan/brokeclub/internal/cache"
	"github.com/bobmcallan/brokeclub/internal/clients/alphavantage"
	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/events"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
	"github.com/bobmcallan/brokeclub/internal/services/ingest"
	"github.com/bobmcallan/brokeclub/internal/services/portfolio"
	"github.com/bobmcallan/brokeclub/internal/services/quota"
	"github.com/bobmcallan/brokeclub/internal/services/quote"
	"github.com/bobmcallan/brokeclub/internal/services/symbols"
	"github.com/bobmcallan/brokeclub/internal/services/tracked"
	"github.com/bobmcallan/brokeclub/internal/storage"
)

// symbolCacheEntries bounds the in-process symbol cache when Redis is not configured
const symbolCacheEntries = 10_000

// App holds all initialized services, clients and stores.
// It is the shared core used by both cmd/brokeclub-server and cmd/brokeclub.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Client      interfaces.MarketDataClient
	Quota       *quota.Ledger
	Quotes      *quote.Service
	Registry    *tracked.Registry
	Portfolio   *portfolio.Service
	Symbols     *symbols.Service
	Scheduler   *ingest.Scheduler
	Events      interfaces.EventPublisher
	StartupTime time.Time

	symbolCache     closer
	schedulerCancel context.CancelFunc
	schedulerDone   chan struct{}
}

type closer interface {
	Close() error
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, BROKECLUB_CONFIG, then the
// binary dir, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("BROKECLUB_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "brokeclub.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/brokeclub.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewAppWithConfig(context.Background(), config, logger)
}

// NewAppWithConfig initializes all services from an already loaded config.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	if missing := config.ValidateRequired(); len(missing) > 0 {
		logger.Warn().Strs("missing", missing).Msg("Required configuration not set - remote quotes will fail and fall back to cache")
	}

	session, err := ingest.SessionFromConfig(&config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	storageManager, err := storage.NewStorageManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	av := config.Clients.AlphaVantage
	client := alphavantage.NewClient(av.APIKey,
		alphavantage.WithLogger(logger),
		alphavantage.WithBaseURL(av.BaseURL),
		alphavantage.WithRateLimit(av.RateLimit),
		alphavantage.WithTimeout(av.GetTimeout()),
	)

	symbolCache, err := newSymbolCache(ctx, config.Cache, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize symbol cache: %w", err)
	}

	publisher := events.NewPublisher(config.Events, logger)

	ledger := quota.NewLedger(storageManager.UsageCounter(), config.Quotes.DailyLimit, logger)
	quoteService := quote.NewService(storageManager.QuoteCache(), ledger, client, quote.OptionsFromConfig(&config.Quotes), logger)
	registry := tracked.NewRegistry(storageManager.AssetStore(), storageManager.TickerPriceCache(), logger)
	portfolioService := portfolio.NewService(quoteService, storageManager.AssetStore(), storageManager.LedgerStore(), logger)
	symbolService := symbols.NewService(client, symbolCache, config.Cache.GetSymbolTTL(), logger)
	scheduler := ingest.NewScheduler(
		quoteService,
		registry,
		storageManager.TickerPriceCache(),
		ledger,
		publisher,
		session,
		config.Quotes.Source,
		logger,
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Client:      client,
		Quota:       ledger,
		Quotes:      quoteService,
		Registry:    registry,
		Portfolio:   portfolioService,
		Symbols:     symbolService,
		Scheduler:   scheduler,
		Events:      publisher,
		StartupTime: startupStart,
		symbolCache: symbolCache,
	}

	logger.Info().
		Str("storage", config.Storage.Backend).
		Int("daily_limit", config.Quotes.DailyLimit).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

type symbolCacheCloser interface {
	interfaces.SymbolCache
	closer
}

// newSymbolCache returns a Redis cache when an address is configured,
// otherwise an in-process cache.
func newSymbolCache(ctx context.Context, config common.CacheConfig, logger *common.Logger) (symbolCacheCloser, error) {
	if config.RedisAddress == "" {
		return cache.NewMemoryCache(symbolCacheEntries)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddress, err)
	}

	logger.Info().Str("address", config.RedisAddress).Msg("Symbol cache using Redis")
	return cache.NewRedisCache(rdb), nil
}

// GetQuote resolves a price for an asset row. It never fails.
func (a *App) GetQuote(ctx context.Context, assetID, ticker string) models.QuoteResult {
	return a.Quotes.GetQuote(ctx, assetID, ticker)
}

// RemainingQuota returns the vendor calls left today.
func (a *App) RemainingQuota(ctx context.Context) (int, error) {
	return a.Quota.Remaining(ctx)
}

// GetPortfolioCards values every asset held by the user.
func (a *App) GetPortfolioCards(ctx context.Context, userID string) ([]models.PortfolioCard, error) {
	return a.Portfolio.GetPortfolioCards(ctx, userID)
}

// SearchSymbols looks up vendor symbols matching the term.
func (a *App) SearchSymbols(ctx context.Context, term string) ([]models.SymbolMatch, error) {
	return a.Symbols.Search(ctx, term)
}

// RefreshNow runs a refresh batch immediately, outside the session clock.
func (a *App) RefreshNow(ctx context.Context) (*ingest.BatchResult, error) {
	return a.Scheduler.RunBatch(ctx, models.RefreshManual)
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, close publisher, close caches, close storage.
func (a *App) Close() {
	a.StopScheduler()
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event publisher")
		}
		a.Events = nil
	}
	if a.symbolCache != nil {
		if err := a.symbolCache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close symbol cache")
		}
		a.symbolCache = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
