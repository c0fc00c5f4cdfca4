package di

import (
	"time"

	barusecase "marketsync/internal/feature/bars/usecase"
	nameusecase "marketsync/internal/feature/names/usecase"
	retentionusecase "marketsync/internal/feature/retention/usecase"
	"marketsync/internal/platform/config"
)

// SyncConfig maps the sync section onto the engine's policy.
func SyncConfig(c config.SyncConfig) barusecase.SyncConfig {
	return barusecase.SyncConfig{
		DailyStale:          c.DailyStale,
		IntradayStale:       c.IntradayStale,
		DailyOverlap:        c.DailyOverlap,
		IntradayOverlap:     c.IntradayOverlap,
		DailyLookbackMonths: c.DailyLookbackMonths,
		IntradayLookback:    c.IntradayLookback,
		IntradayMaxLookback: c.IntradayMaxLookback,
		ProviderTimeout:     c.ProviderTimeout,
	}
}

// PrefetchConfig maps the names section onto the pipeline's policy.
func PrefetchConfig(c config.NamesConfig, providerTimeout time.Duration) nameusecase.PrefetchConfig {
	return nameusecase.PrefetchConfig{
		FreshnessHorizon:   c.FreshnessHorizon,
		FailedRetryHorizon: c.FailedRetryHorizon,
		MaxWorkers:         c.MaxWorkers,
		Delay:              c.Delay,
		ProviderTimeout:    providerTimeout,
	}
}

// FXRanges maps the configured ranges onto the sanity check's input.
func FXRanges(rs []config.FXRange) map[string]barusecase.FXRange {
	out := make(map[string]barusecase.FXRange, len(rs))
	for _, r := range rs {
		out[r.Symbol] = barusecase.FXRange{Min: r.Min, Max: r.Max}
	}
	return out
}

// NewRetentionUsecase wires the purges of both stores.
func NewRetentionUsecase(bars retentionusecase.IntradayPurger, names retentionusecase.NamePurger, c config.RetentionConfig) *retentionusecase.RetentionUsecase {
	return retentionusecase.NewRetentionUsecase(bars, names, retentionusecase.RetentionConfig{
		Intraday: c.Intraday,
		Names:    c.Names,
	}, nil)
}
