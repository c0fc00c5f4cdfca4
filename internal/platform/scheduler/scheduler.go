// Package scheduler runs the periodic universe sync and the daily retention sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	barentity "marketsync/internal/feature/bars/domain/entity"
	barusecase "marketsync/internal/feature/bars/usecase"
)

// BatchSyncer syncs a set of instruments.
type BatchSyncer interface {
	SyncAll(ctx context.Context, symbols []string, g barentity.Granularity, from, to time.Time) (barusecase.BatchResult, error)
}

// Purger drops expired rows.
type Purger interface {
	PurgeIntraday(ctx context.Context) (int64, error)
	PurgeNames(ctx context.Context) (int64, error)
}

type Config struct {
	SyncEvery time.Duration
	CleanupAt string // HH:MM, UTC
}

// Scheduler manages scheduled jobs.
type Scheduler struct {
	cron    *gocron.Scheduler
	cfg     Config
	syncer  BatchSyncer
	purger  Purger
	symbols func() []string
	ctx     context.Context
}

// NewScheduler creates a scheduler. symbols is called on every sync run, so
// universe file edits are picked up without a restart.
func NewScheduler(cfg Config, syncer BatchSyncer, purger Purger, symbols func() []string) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{cron: cron, cfg: cfg, syncer: syncer, purger: purger, symbols: symbols, ctx: context.Background()}
}

// Start registers the jobs and starts the scheduler in the background.
// The sync job runs once immediately; the sweep runs daily at CleanupAt.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.cron.Every(s.cfg.SyncEvery).Do(s.RunSync); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	if _, err := s.cron.Every(1).Day().At(s.cfg.CleanupAt).Do(s.RunCleanup); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	s.cron.StartAsync()
	slog.Info("scheduler started", "sync_every", s.cfg.SyncEvery, "cleanup_at", s.cfg.CleanupAt)
	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("scheduler stopped")
}

// RunSync syncs daily and then intraday bars for the universe.
func (s *Scheduler) RunSync() {
	symbols := s.symbols()
	if len(symbols) == 0 {
		slog.Warn("scheduled sync skipped: empty universe")
		return
	}
	for _, g := range []barentity.Granularity{barentity.Daily, barentity.Intraday} {
		if s.ctx.Err() != nil {
			return
		}
		res, err := s.syncer.SyncAll(s.ctx, symbols, g, time.Time{}, time.Time{})
		if err != nil {
			slog.Error("scheduled sync failed", "granularity", g, "error", err)
			return
		}
		if len(res.Failed) > 0 {
			slog.Warn("scheduled sync left instruments without data", "run_id", res.RunID, "granularity", g, "failed", len(res.Failed))
		}
	}
}

// RunCleanup purges expired intraday bars and name entries.
func (s *Scheduler) RunCleanup() {
	if _, err := s.purger.PurgeIntraday(s.ctx); err != nil {
		slog.Error("scheduled intraday purge failed", "error", err)
	}
	if _, err := s.purger.PurgeNames(s.ctx); err != nil {
		slog.Error("scheduled name purge failed", "error", err)
	}
}
