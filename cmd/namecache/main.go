// Command namecache maintains the cache of human-readable instrument names.
// It always exits 0; failures are logged.
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
	"marketsync/internal/platform/config"
	"marketsync/internal/platform/logger"
)

const statusSamples = 5

type options struct {
	configPath     string
	status         bool
	cleanup        bool
	assetsOnly     bool
	currenciesOnly bool
	maxWorkers     int
	delay          float64 // seconds
}

func main() {
	var opts options
	flags := pflag.CommandLine
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flags.BoolVar(&opts.status, "status", false, "show cache status")
	flags.BoolVar(&opts.cleanup, "cleanup", false, "remove cached names older than the name retention")
	flags.BoolVar(&opts.assetsOnly, "assets-only", false, "only preload asset names")
	flags.BoolVar(&opts.currenciesOnly, "currencies-only", false, "only preload currency names")
	flags.IntVar(&opts.maxWorkers, "max-workers", 3, "maximum concurrent lookups")
	flags.Float64Var(&opts.delay, "delay", 0.2, "seconds to wait after each lookup")
	pflag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return
	}
	// Flags win over the config file only when given explicitly.
	if flags.Changed("max-workers") {
		cfg.Names.MaxWorkers = opts.maxWorkers
	}
	if flags.Changed("delay") {
		cfg.Names.Delay = time.Duration(opts.delay * float64(time.Second))
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		slog.Error("namecache failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	app, err := di.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	horizonDays := int(cfg.Names.FreshnessHorizon / (24 * time.Hour))

	switch {
	case opts.status:
		st, err := app.Prefetch.Status(ctx, statusSamples)
		if err != nil {
			return err
		}
		printStatus(out, st, horizonDays)
		return nil

	case opts.cleanup:
		fmt.Fprintln(out, "=== Cleaning up old cached names ===")
		n, err := app.Retention.PurgeNames(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d cached names older than %d days\n", n, int(cfg.Retention.Names/(24*time.Hour)))
		return nil
	}

	u, err := app.Universe()
	if err != nil {
		return err
	}
	symbols := u.Select(opts.assetsOnly, opts.currenciesOnly)
	if len(symbols) == 0 {
		fmt.Fprintln(out, "No tickers found to preload")
		return nil
	}

	fmt.Fprintf(out, "\n=== Preloading names for %d tickers ===\n", len(symbols))
	fmt.Fprintf(out, "Max workers: %d\n", cfg.Names.MaxWorkers)
	fmt.Fprintf(out, "Delay between requests: %gs\n", cfg.Names.Delay.Seconds())
	fmt.Fprintln(out, "This may take a few minutes depending on the number of tickers...")

	start := time.Now()
	rep, err := app.Prefetch.Prefetch(ctx, symbols)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n=== Preloading completed in %.1f seconds ===\n", time.Since(start).Seconds())
	printReport(out, rep)

	st, err := app.Prefetch.Status(ctx, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total cached names: %d\n", st.Total)
	fmt.Fprintf(out, "Recent names: %d\n", st.Recent)
	return nil
}
