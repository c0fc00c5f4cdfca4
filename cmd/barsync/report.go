package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	barentity "marketsync/internal/feature/bars/domain/entity"
	barusecase "marketsync/internal/feature/bars/usecase"
)

func sortedSymbols[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// printBatch lists the synced counts and every instrument left without data.
func printBatch(w io.Writer, g barentity.Granularity, res barusecase.BatchResult) {
	fmt.Fprintf(w, "=== %s bars: %d synced, %d failed ===\n", g, len(res.Bars), len(res.Failed))
	for _, s := range sortedSymbols(res.Failed) {
		fmt.Fprintf(w, "  %s: %s\n", s, failureReason(res.Failed[s]))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, barusecase.ErrProviderUnavailable):
		return "provider unavailable"
	case errors.Is(err, barusecase.ErrMalformedResponse):
		return "malformed response"
	case errors.Is(err, barusecase.ErrNoData), errors.Is(err, barusecase.ErrEmptyResponse):
		return "no data"
	default:
		return err.Error()
	}
}

// printFXChecks reports pairs whose latest close is missing or out of range.
func printFXChecks(w io.Writer, checks []barusecase.FXCheck) {
	for _, c := range checks {
		switch {
		case c.Err != nil:
			fmt.Fprintf(w, "FX check %s: no daily close stored\n", c.Symbol)
		case !c.InRange:
			fmt.Fprintf(w, "FX check %s: close %.4f on %s outside expected range (%g, %g)\n",
				c.Symbol, c.Close, c.Time.Format(time.DateOnly), c.Range.Min, c.Range.Max)
		}
	}
}
