// Package multi chains several market data providers behind one port.
package multi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	barentity "marketsync/internal/feature/bars/domain/entity"
	barusecase "marketsync/internal/feature/bars/usecase"
	nameentity "marketsync/internal/feature/names/domain/entity"
	nameusecase "marketsync/internal/feature/names/usecase"
)

// ErrNoProviders is returned by an empty chain.
var ErrNoProviders = errors.New("no market providers configured")

// Provider serves both bars and names.
type Provider interface {
	barusecase.MarketProvider
	nameusecase.MetadataProvider
}

// Source is one named link of the chain.
type Source struct {
	Name     string
	Provider Provider
}

// Chain asks its sources in order and returns the first non-empty answer.
type Chain struct {
	sources []Source
}

var (
	_ barusecase.MarketProvider    = (*Chain)(nil)
	_ nameusecase.MetadataProvider = (*Chain)(nil)
)

func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// FetchBars returns the bars of the first source with data. When no source
// has data, an empty answer from any source wins over the joined errors.
func (c *Chain) FetchBars(ctx context.Context, req barusecase.FetchRequest) ([]barentity.Bar, error) {
	if len(c.sources) == 0 {
		return nil, ErrNoProviders
	}
	var errs []error
	empty := false
	for _, s := range c.sources {
		bars, err := s.Provider.FetchBars(ctx, req)
		if err != nil {
			slog.Warn("provider failed", "provider", s.Name, "symbol", req.Symbol, "granularity", req.Granularity, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(bars) > 0 {
			return bars, nil
		}
		empty = true
	}
	if empty {
		return nil, nil
	}
	return nil, errors.Join(errs...)
}

// FetchMetadata returns the names of the first source that knows any. When
// none does, the error wraps nameusecase.ErrNoMetadata together with the
// errors of the failing sources.
func (c *Chain) FetchMetadata(ctx context.Context, symbol string) (nameentity.Metadata, error) {
	if len(c.sources) == 0 {
		return nameentity.Metadata{}, ErrNoProviders
	}
	var errs []error
	for _, s := range c.sources {
		md, err := s.Provider.FetchMetadata(ctx, symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if md.LongName != "" || md.ShortName != "" {
			return md, nil
		}
	}
	if len(errs) == 0 {
		return nameentity.Metadata{}, nameusecase.ErrNoMetadata
	}
	return nameentity.Metadata{}, errors.Join(append(errs, nameusecase.ErrNoMetadata)...)
}
