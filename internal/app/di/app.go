package di

import (
	"context"
	"fmt"
	"log/slog"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	baradapters "marketsync/internal/feature/bars/adapters"
	barusecase "marketsync/internal/feature/bars/usecase"
	nameadapters "marketsync/internal/feature/names/adapters"
	nameusecase "marketsync/internal/feature/names/usecase"
	retentionusecase "marketsync/internal/feature/retention/usecase"
	"marketsync/internal/platform/cache"
	"marketsync/internal/platform/config"
	infradb "marketsync/internal/platform/db"
	infraredis "marketsync/internal/platform/redis"
	"marketsync/internal/shared/instrument"
)

// BarStore is the bar repository plus the retention and instrument deletes.
type BarStore interface {
	barusecase.BarRepository
	retentionusecase.IntradayPurger
	DeleteInstrument(ctx context.Context, symbol string) (int64, error)
}

// App holds every component the binaries share.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redisv9.Client // nil when the cache is disabled
	Bars      BarStore
	Names     cache.NameStore
	Sync      *barusecase.SyncUsecase
	Prefetch  *nameusecase.PrefetchUsecase
	Retention *retentionusecase.RetentionUsecase
}

// NewStore opens the configured store and brings its schema up to date.
func NewStore(cfg config.StoreConfig) (*gorm.DB, error) {
	db, err := infradb.Open(infradb.Config{
		Driver:         cfg.Driver,
		Path:           cfg.Path,
		DSN:            cfg.DSN,
		BusyTimeout:    cfg.BusyTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := infradb.EnsureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// NewNameStore returns the name repository, decorated with the Redis cache
// when a client is available.
func NewNameStore(rdb *redisv9.Client, db *gorm.DB, cfg config.RedisConfig) cache.NameStore {
	repo := nameadapters.NewNameRepository(db)
	if rdb == nil {
		return repo
	}
	return cache.NewCachingNameRepository(rdb, cfg.TTL, repo, "names")
}

// Build wires the application from cfg. Redis is optional: a failed
// connection is logged and the app runs without cache.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rdb, err := infraredis.NewRedisClient(ctx, infraredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		rdb = nil
	}

	market, err := NewMarket(cfg.Provider)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	bars := baradapters.NewBarRepository(db)
	names := NewNameStore(rdb, db, cfg.Redis)

	return &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Bars:      bars,
		Names:     names,
		Sync:      barusecase.NewSyncUsecase(market, bars, SyncConfig(cfg.Sync), nil),
		Prefetch:  nameusecase.NewPrefetchUsecase(market, names, PrefetchConfig(cfg.Names, cfg.Sync.ProviderTimeout), nil),
		Retention: NewRetentionUsecase(bars, names, cfg.Retention),
	}, nil
}

// Universe reads the configured ticker files.
func (a *App) Universe() (instrument.Universe, error) {
	return instrument.LoadUniverse(a.Config.Universe.AssetsFile, a.Config.Universe.CurrenciesFile)
}

// Close releases the store and the Redis client.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("Failed to close Redis client", "error", err)
		}
	}
	closeDB(a.DB)
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("Failed to close store", "error", err)
	}
}
