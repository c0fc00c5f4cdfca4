// Package usecase implements the name cache: bounded-concurrency prefetch,
// display-name lookup and cache status.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"marketsync/internal/feature/names/domain/entity"
)

// MetadataProvider fetches descriptive names from the remote provider.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type MetadataProvider interface {
	FetchMetadata(ctx context.Context, symbol string) (entity.Metadata, error)
}

// NameRepository abstracts the persistence of name entries.
type NameRepository interface {
	UpsertNameEntry(ctx context.Context, e entity.NameEntry) error
	GetNameEntry(ctx context.Context, symbol string) (entity.NameEntry, bool, error)
	// CountNameEntries counts entries updated after since; a zero since counts all.
	CountNameEntries(ctx context.Context, since time.Time) (int64, error)
	RecentNameEntries(ctx context.Context, limit int) ([]entity.NameEntry, error)
}

// PrefetchConfig controls freshness and throttling of the name pipeline.
type PrefetchConfig struct {
	FreshnessHorizon   time.Duration // successful entries younger than this are not refetched
	FailedRetryHorizon time.Duration // failed entries younger than this are not refetched
	MaxWorkers         int
	Delay              time.Duration // pause after each completed lookup before the worker is released
	ProviderTimeout    time.Duration
}

// DefaultPrefetchConfig returns the default policy.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		FreshnessHorizon:   30 * 24 * time.Hour,
		FailedRetryHorizon: 24 * time.Hour,
		MaxWorkers:         3,
		Delay:              200 * time.Millisecond,
		ProviderTimeout:    30 * time.Second,
	}
}

// NameResult is the outcome of one lookup. A failed lookup has empty names and OK=false.
type NameResult struct {
	Symbol    string
	LongName  string
	ShortName string
	OK        bool
}

// PrefetchReport summarizes one Prefetch run.
type PrefetchReport struct {
	Requested int // distinct symbols
	Cached    int // skipped because the cache was fresh
	Fetched   int // successful lookups
	Failed    int // failed lookups, recorded with empty names
	Results   map[string]NameResult
}

// CacheStatus is a snapshot of the name cache.
type CacheStatus struct {
	Total   int64
	Recent  int64 // updated within the freshness horizon
	Old     int64
	Samples []entity.NameEntry // most recently updated first
}

// PrefetchUsecase maintains the name cache.
type PrefetchUsecase struct {
	meta MetadataProvider
	repo NameRepository
	cfg  PrefetchConfig
	now  func() time.Time
}

// NewPrefetchUsecase creates a new PrefetchUsecase. A nil clock means time.Now.
func NewPrefetchUsecase(meta MetadataProvider, repo NameRepository, cfg PrefetchConfig, now func() time.Time) *PrefetchUsecase {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if now == nil {
		now = time.Now
	}
	return &PrefetchUsecase{meta: meta, repo: repo, cfg: cfg, now: now}
}

// Prefetch looks up names for every symbol whose cache entry is missing or
// stale and records each result, failures included, with today's date.
// Lookup failures never abort the run; only store failures and ctx
// cancellation are returned.
func (u *PrefetchUsecase) Prefetch(ctx context.Context, symbols []string) (PrefetchReport, error) {
	today := entity.Today(u.now())
	report := PrefetchReport{Results: make(map[string]NameResult)}

	seen := make(map[string]struct{}, len(symbols))
	pending := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s]; dup || s == "" {
			continue
		}
		seen[s] = struct{}{}

		e, ok, err := u.repo.GetNameEntry(ctx, s)
		if err != nil {
			return report, fmt.Errorf("%w: get name %s: %w", ErrStorage, s, err)
		}
		if ok && u.fresh(e, today) {
			report.Cached++
			continue
		}
		pending = append(pending, s)
	}
	report.Requested = len(seen)
	if len(pending) == 0 {
		slog.Info("name cache is fresh", "requested", report.Requested)
		return report, nil
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan NameResult)
	go u.dispatch(wctx, pending, results)

	// The coordinator is the only writer to the store.
	var writeErr error
	for r := range results {
		report.Results[r.Symbol] = r
		if r.OK {
			report.Fetched++
		} else {
			report.Failed++
		}
		if writeErr != nil {
			continue
		}
		err := u.repo.UpsertNameEntry(ctx, entity.NameEntry{
			Symbol:      r.Symbol,
			LongName:    r.LongName,
			ShortName:   r.ShortName,
			FetchOK:     r.OK,
			LastUpdated: today,
		})
		if err != nil {
			writeErr = fmt.Errorf("%w: upsert name %s: %w", ErrStorage, r.Symbol, err)
			cancel()
		}
	}

	if writeErr != nil {
		return report, writeErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	slog.Info("name prefetch finished",
		"requested", report.Requested, "cached", report.Cached, "fetched", report.Fetched, "failed", report.Failed)
	return report, nil
}

// dispatch runs one lookup per symbol on a pool of at most MaxWorkers and
// closes out when every worker is done.
func (u *PrefetchUsecase) dispatch(ctx context.Context, symbols []string, out chan<- NameResult) {
	var g errgroup.Group
	g.SetLimit(u.cfg.MaxWorkers)
	for _, s := range symbols {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := u.lookup(ctx, s)
			select {
			case out <- r:
			case <-ctx.Done():
				return nil
			}
			sleep(ctx, u.cfg.Delay)
			return nil
		})
	}
	_ = g.Wait()
	close(out)
}

func (u *PrefetchUsecase) lookup(ctx context.Context, symbol string) NameResult {
	if u.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.ProviderTimeout)
		defer cancel()
	}
	md, err := u.meta.FetchMetadata(ctx, symbol)
	if err == nil && md.LongName == "" && md.ShortName == "" {
		err = ErrNoMetadata
	}
	if err != nil {
		slog.Warn("failed to fetch name", "symbol", symbol, "error", err)
		return NameResult{Symbol: symbol}
	}
	return NameResult{Symbol: symbol, LongName: md.LongName, ShortName: md.ShortName, OK: true}
}

// fresh reports whether a cached entry may be served without a new lookup.
// Failed lookups use the shorter retry horizon.
func (u *PrefetchUsecase) fresh(e entity.NameEntry, today time.Time) bool {
	horizon := u.cfg.FreshnessHorizon
	if !e.FetchOK {
		horizon = u.cfg.FailedRetryHorizon
	}
	return today.Sub(entity.Today(e.LastUpdated)) < horizon
}

// Lookup returns the cached entry for symbol. It never calls the provider.
func (u *PrefetchUsecase) Lookup(ctx context.Context, symbol string) (entity.NameEntry, bool, error) {
	e, ok, err := u.repo.GetNameEntry(ctx, symbol)
	if err != nil {
		return entity.NameEntry{}, false, fmt.Errorf("%w: get name %s: %w", ErrStorage, symbol, err)
	}
	return e, ok, nil
}

// DisplayName returns the cached display name, or the symbol itself when
// nothing is cached. On a store failure the symbol is returned with the error.
func (u *PrefetchUsecase) DisplayName(ctx context.Context, symbol string) (string, error) {
	e, ok, err := u.Lookup(ctx, symbol)
	if err != nil {
		return symbol, err
	}
	if !ok {
		return symbol, nil
	}
	e.Symbol = symbol
	return e.DisplayName(), nil
}

// Status counts recent and old entries and returns up to sampleSize of the
// most recently updated ones.
func (u *PrefetchUsecase) Status(ctx context.Context, sampleSize int) (CacheStatus, error) {
	var st CacheStatus
	var err error
	if st.Total, err = u.repo.CountNameEntries(ctx, time.Time{}); err != nil {
		return st, fmt.Errorf("%w: count names: %w", ErrStorage, err)
	}
	since := entity.Today(u.now()).Add(-u.cfg.FreshnessHorizon)
	if st.Recent, err = u.repo.CountNameEntries(ctx, since); err != nil {
		return st, fmt.Errorf("%w: count recent names: %w", ErrStorage, err)
	}
	st.Old = st.Total - st.Recent
	if sampleSize > 0 {
		if st.Samples, err = u.repo.RecentNameEntries(ctx, sampleSize); err != nil {
			return st, fmt.Errorf("%w: recent names: %w", ErrStorage, err)
		}
	}
	return st, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
