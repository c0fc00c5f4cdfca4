package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"marketsync/internal/feature/bars/domain/entity"
)

// FXRange is the open interval a currency pair's close is expected to lie in.
type FXRange struct {
	Min float64
	Max float64
}

// Contains reports whether v lies strictly between Min and Max.
func (r FXRange) Contains(v float64) bool {
	return r.Min < v && v < r.Max
}

// FXCheck is the sanity result for one currency pair.
type FXCheck struct {
	Symbol  string
	Range   FXRange
	Close   float64
	Time    time.Time
	InRange bool
	Err     error // ErrNoData when the store holds no daily close for the pair
}

// CheckFXRates compares the latest stored daily close of each pair against
// its expected range. Results are sorted by symbol.
func CheckFXRates(ctx context.Context, repo BarRepository, ranges map[string]FXRange) ([]FXCheck, error) {
	symbols := make([]string, 0, len(ranges))
	for s := range ranges {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]FXCheck, 0, len(symbols))
	for _, s := range symbols {
		c := FXCheck{Symbol: s, Range: ranges[s]}
		bars, err := repo.QueryBars(ctx, s, entity.Daily, time.Time{}, time.Time{})
		if err != nil {
			return out, fmt.Errorf("%w: query bars %s: %w", ErrStorage, s, err)
		}
		c.Err = ErrNoData
		for i := len(bars) - 1; i >= 0; i-- {
			if bars[i].Valid() {
				c.Close, c.Time, c.Err = bars[i].Close, bars[i].Time, nil
				c.InRange = c.Range.Contains(c.Close)
				break
			}
		}

		switch {
		case c.Err != nil:
			slog.Warn("could not check fx rate", "symbol", s, "error", c.Err)
		case !c.InRange:
			slog.Warn("fx rate out of expected range", "symbol", s, "close", c.Close, "min", c.Range.Min, "max", c.Range.Max)
		}
		out = append(out, c)
	}
	return out, nil
}
