// Package usecase implements the retention sweeps of the local store.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// IntradayPurger は cutoff より古い時間足を削除するインターフェイスです。
type IntradayPurger interface {
	DeleteIntradayOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NamePurger は cutoff より古い銘柄名キャッシュを削除するインターフェイスです。
type NamePurger interface {
	DeleteNameEntriesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig はレコードの種類ごとの保持期間です。
type RetentionConfig struct {
	Intraday time.Duration
	Names    time.Duration
}

// DefaultRetentionConfig は時間足を7日、銘柄名を30日保持する設定を返します。
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{Intraday: 7 * 24 * time.Hour, Names: 30 * 24 * time.Hour}
}

type RetentionUsecase struct {
	bars  IntradayPurger
	names NamePurger
	cfg   RetentionConfig
	now   func() time.Time
}

// NewRetentionUsecase は新しい RetentionUsecase を作成します。now が nil の場合は time.Now を使います。
func NewRetentionUsecase(bars IntradayPurger, names NamePurger, cfg RetentionConfig, now func() time.Time) *RetentionUsecase {
	if now == nil {
		now = time.Now
	}
	return &RetentionUsecase{bars: bars, names: names, cfg: cfg, now: now}
}

// PurgeIntraday は保持期間を過ぎた時間足を削除します。日足は削除しません。
func (u *RetentionUsecase) PurgeIntraday(ctx context.Context) (int64, error) {
	cutoff := u.now().UTC().Add(-u.cfg.Intraday)
	n, err := u.bars.DeleteIntradayOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge intraday bars: %w", err)
	}
	slog.Info("purged intraday bars", "cutoff", cutoff, "removed", n)
	return n, nil
}

// PurgeNames は保持期間より前に更新された銘柄名エントリを削除します。
func (u *RetentionUsecase) PurgeNames(ctx context.Context) (int64, error) {
	cutoff := u.now().UTC().Add(-u.cfg.Names)
	n, err := u.names.DeleteNameEntriesOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge name cache: %w", err)
	}
	slog.Info("purged name cache", "cutoff", cutoff, "removed", n)
	return n, nil
}
