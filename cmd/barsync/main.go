// Command barsync brings the stored daily (and optionally intraday) bars of
// the instrument universe up to date.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"marketsync/internal/app/di"
	baradapters "marketsync/internal/feature/bars/adapters"
	barentity "marketsync/internal/feature/bars/domain/entity"
	barusecase "marketsync/internal/feature/bars/usecase"
	"marketsync/internal/platform/config"
	"marketsync/internal/platform/logger"
	"marketsync/internal/shared/instrument"
)

type options struct {
	configPath    string
	intraday      bool
	symbols       []string
	exportDir     string
	deleteSymbols []string
}

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	pflag.BoolVar(&opts.intraday, "intraday", false, "also sync hourly bars")
	pflag.StringSliceVar(&opts.symbols, "symbols", nil, "sync only these symbols instead of the universe")
	pflag.StringVar(&opts.exportDir, "export-dir", "", "write the synced bars to Parquet files under this directory")
	pflag.StringSliceVar(&opts.deleteSymbols, "delete", nil, "remove all bars and watermarks of these symbols and exit")
	pflag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		slog.Error("barsync failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	app, err := di.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(opts.deleteSymbols) > 0 {
		return deleteInstruments(ctx, app.Bars, opts.deleteSymbols, out)
	}

	symbols := opts.symbols
	if len(symbols) == 0 {
		u, err := app.Universe()
		if err != nil {
			return err
		}
		symbols = u.Select(false, false)
	}
	symbols = instrument.WithBars(symbols)
	if len(symbols) == 0 {
		fmt.Fprintln(out, "No tickers found to sync")
		return nil
	}

	var exporter *baradapters.ParquetExporter
	if opts.exportDir != "" {
		exporter = baradapters.NewParquetExporter(opts.exportDir)
	}

	start := time.Now()
	if err := syncGranularity(ctx, app.Sync, exporter, symbols, barentity.Daily, out); err != nil {
		return err
	}

	checks, err := barusecase.CheckFXRates(ctx, app.Bars, di.FXRanges(cfg.FXRanges))
	if err != nil {
		return err
	}
	printFXChecks(out, checks)

	if opts.intraday {
		if err := syncGranularity(ctx, app.Sync, exporter, symbols, barentity.Intraday, out); err != nil {
			return err
		}
		if cfg.Sync.AutoCleanupIntraday {
			n, err := app.Retention.PurgeIntraday(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d intraday bars older than %s\n", n, cfg.Retention.Intraday)
		}
	}

	fmt.Fprintf(out, "Sync completed in %.1f seconds\n", time.Since(start).Seconds())
	return nil
}

func syncGranularity(ctx context.Context, uc *barusecase.SyncUsecase, exporter *baradapters.ParquetExporter,
	symbols []string, g barentity.Granularity, out io.Writer) error {
	res, err := uc.SyncAll(ctx, symbols, g, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	printBatch(out, g, res)

	if exporter == nil {
		return nil
	}
	for _, s := range sortedSymbols(res.Bars) {
		path, err := exporter.Export(s, g, res.Bars[s])
		if err != nil {
			return err
		}
		slog.Info("bars exported", "symbol", s, "granularity", g, "path", path)
	}
	return nil
}

// InstrumentDeleter removes an instrument from the store.
type InstrumentDeleter interface {
	DeleteInstrument(ctx context.Context, symbol string) (int64, error)
}

// deleteInstruments drops every bar and the watermark of each symbol, so the
// next sync backfills it from scratch.
func deleteInstruments(ctx context.Context, d InstrumentDeleter, symbols []string, out io.Writer) error {
	for _, s := range symbols {
		n, err := d.DeleteInstrument(ctx, s)
		if err != nil {
			return fmt.Errorf("delete %s: %w", s, err)
		}
		fmt.Fprintf(out, "Removed %s: %d bars\n", s, n)
	}
	return nil
}
