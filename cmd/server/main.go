package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"marketsync/internal/app/di"
	"marketsync/internal/app/router"
	barhandler "marketsync/internal/feature/bars/transport/handler"
	namehandler "marketsync/internal/feature/names/transport/handler"
	symbollisthandler "marketsync/internal/feature/symbollist/transport/handler"
	symbollistusecase "marketsync/internal/feature/symbollist/usecase"
	"marketsync/internal/platform/config"
	platformhandler "marketsync/internal/platform/http/handler"
	"marketsync/internal/platform/logger"
	"marketsync/internal/platform/scheduler"
	"marketsync/internal/shared/instrument"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := di.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	sqlDB, err := app.DB.DB()
	if err != nil {
		slog.Error("failed to get sql.DB", "error", err)
		os.Exit(1)
	}

	// ハンドラ
	healthH := platformhandler.NewHealthHandler(sqlDB)
	barsH := barhandler.NewBarsHandler(app.Sync)
	namesH := namehandler.NewNamesHandler(app.Prefetch)
	symbolH := symbollisthandler.NewSymbolHandler(symbollistusecase.NewSymbolUsecase(app, app.Prefetch))

	// 定期実行
	sched := scheduler.NewScheduler(scheduler.Config{
		SyncEvery: cfg.Server.SyncEvery,
		CleanupAt: cfg.Server.CleanupAt,
	}, app.Sync, app.Retention, func() []string {
		u, err := app.Universe()
		if err != nil {
			slog.Error("failed to load universe", "error", err)
			return nil
		}
		return instrument.WithBars(u.Select(false, false))
	})
	if err := sched.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.NewRouter(healthH, barsH, namesH, symbolH),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server listening", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
	}
}
