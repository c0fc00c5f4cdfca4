// Package usecase implements the business logic for symbol-related operations.
package usecase

import (
	"context"
	"fmt"

	"marketsync/internal/feature/symbollist/domain/entity"
	"marketsync/internal/shared/instrument"
)

// UniverseSource loads the configured instrument universe.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type UniverseSource interface {
	Universe() (instrument.Universe, error)
}

// NameLookup resolves cached display names without live lookups.
type NameLookup interface {
	DisplayName(ctx context.Context, symbol string) (string, error)
}

// SymbolUsecase lists the instrument universe.
type SymbolUsecase struct {
	universe UniverseSource
	names    NameLookup
}

// NewSymbolUsecase creates a new SymbolUsecase.
func NewSymbolUsecase(universe UniverseSource, names NameLookup) *SymbolUsecase {
	return &SymbolUsecase{universe: universe, names: names}
}

// ListActiveSymbols returns assets then currencies, in file order, each with
// its cached display name.
func (u *SymbolUsecase) ListActiveSymbols(ctx context.Context) ([]entity.Symbol, error) {
	uni, err := u.universe.Universe()
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	codes := uni.Select(false, false)
	out := make([]entity.Symbol, 0, len(codes))
	for _, code := range codes {
		name, err := u.names.DisplayName(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("display name %s: %w", code, err)
		}
		out = append(out, entity.Symbol{
			Code:     code,
			Name:     name,
			Class:    instrument.Classify(code),
			Currency: instrument.Currency(code),
			HasBars:  instrument.HasBars(code),
		})
	}
	return out, nil
}
