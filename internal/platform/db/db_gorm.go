// Package db opens the local market data store and migrates its schema.
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	baradapters "marketsync/internal/feature/bars/adapters"
	nameadapters "marketsync/internal/feature/names/adapters"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	retryInterval = 3 * time.Second
)

// ErrUnknownDriver is returned for a store driver other than sqlite or postgres.
var ErrUnknownDriver = errors.New("unknown store driver")

// Config selects and locates the store.
type Config struct {
	Driver         string        // sqlite (default) or postgres
	Path           string        // sqlite database file
	DSN            string        // postgres connection string
	BusyTimeout    time.Duration // sqlite lock wait
	ConnectTimeout time.Duration // total time spent retrying the first connection
}

// Opener opens a gorm handle for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN は cfg の接続文字列を返します。SQLite は WAL モードと busy_timeout
// を指定して開き、読み込みと単一の書き込みがロックで失敗しないようにします。
func BuildDSN(cfg Config) (string, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.Path == "" {
			return "", errors.New("sqlite path is empty")
		}
		busy := cfg.BusyTimeout
		if busy <= 0 {
			busy = 5 * time.Second
		}
		return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", cfg.Path, busy.Milliseconds()), nil
	case DriverPostgres:
		if _, err := pgx.ParseConfig(cfg.DSN); err != nil {
			return "", fmt.Errorf("invalid postgres dsn: %w", err)
		}
		return cfg.DSN, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Open は cfg のストアに接続します。ConnectTimeout まで再試行します。
func Open(cfg Config) (*gorm.DB, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var open Opener
	switch cfg.Driver {
	case DriverPostgres:
		open = openPostgres
	default:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		open = openSQLite
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return ConnectWithRetry(dsn, timeout, open)
}

func openSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), gormConfig())
}

func openPostgres(dsn string) (*gorm.DB, error) {
	pcfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	sqlDB := stdlib.OpenDB(*pcfg)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
}

// gormConfig は gorm 自身のログを slog に流します。
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

// ConnectWithRetry は成功するか timeout を過ぎるまで open を呼び出します。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("db connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// EnsureSchema はストアの全テーブルを作成・更新します（冪等）。
func EnsureSchema(db *gorm.DB) error {
	models := append(baradapters.Models(), nameadapters.Models()...)
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
