// Package yahoo adapts Yahoo Finance, through piquette/finance-go, to the
// bar and metadata provider ports.
package yahoo

import (
	"context"
	"math"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	barentity "marketsync/internal/feature/bars/domain/entity"
	barusecase "marketsync/internal/feature/bars/usecase"
	nameentity "marketsync/internal/feature/names/domain/entity"
	nameusecase "marketsync/internal/feature/names/usecase"
	"marketsync/internal/shared/ratelimiter"
)

// barIter is the part of chart.Iter the adapter reads.
type barIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// YahooMarket fetches bars and names from Yahoo Finance.
type YahooMarket struct {
	chart   func(*chart.Params) barIter
	equity  func(symbol string) (*finance.Equity, error)
	limiter ratelimiter.Limiter
}

var (
	_ barusecase.MarketProvider    = (*YahooMarket)(nil)
	_ nameusecase.MetadataProvider = (*YahooMarket)(nil)
)

// NewYahooMarket creates the adapter. A nil limiter disables throttling.
func NewYahooMarket(limiter ratelimiter.Limiter) *YahooMarket {
	if limiter == nil {
		limiter = (*ratelimiter.RateLimiter)(nil)
	}
	return &YahooMarket{
		chart:   func(p *chart.Params) barIter { return chart.Get(p) },
		equity:  equity.Get,
		limiter: limiter,
	}
}

// FetchBars downloads the chart of req's window.
func (y *YahooMarket) FetchBars(ctx context.Context, req barusecase.FetchRequest) ([]barentity.Bar, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params := &chart.Params{
		Symbol:   req.Symbol,
		Interval: interval(req.Granularity),
	}
	if !req.Start.IsZero() {
		start := req.Start.UTC()
		params.Start = datetime.New(&start)
	}
	if !req.End.IsZero() {
		end := req.End.UTC()
		params.End = datetime.New(&end)
	}

	// finance-go takes no context; the call is abandoned when ctx ends.
	return await(ctx, func() ([]barentity.Bar, error) {
		it := y.chart(params)
		var bars []barentity.Bar
		for it.Next() {
			b := it.Bar()
			if b == nil {
				continue
			}
			bars = append(bars, toBar(req.Symbol, b))
		}
		if err := it.Err(); err != nil {
			return nil, err
		}
		return bars, nil
	})
}

// FetchMetadata reads the long and short names of symbol.
func (y *YahooMarket) FetchMetadata(ctx context.Context, symbol string) (nameentity.Metadata, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nameentity.Metadata{}, err
	}
	return await(ctx, func() (nameentity.Metadata, error) {
		e, err := y.equity(symbol)
		if err != nil {
			return nameentity.Metadata{}, err
		}
		if e == nil {
			return nameentity.Metadata{}, nameusecase.ErrNoMetadata
		}
		return nameentity.Metadata{LongName: e.LongName, ShortName: e.ShortName}, nil
	})
}

type result[T any] struct {
	val T
	err error
}

func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	ch := make(chan result[T], 1)
	go func() {
		v, err := fn()
		ch <- result[T]{val: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.val, r.err
	}
}

func interval(g barentity.Granularity) datetime.Interval {
	if g == barentity.Intraday {
		return datetime.OneHour
	}
	return datetime.OneDay
}

func toBar(symbol string, b *finance.ChartBar) barentity.Bar {
	vol := int64(b.Volume)
	if vol < 0 {
		vol = 0
	}
	return barentity.Bar{
		Symbol: symbol,
		Time:   time.Unix(int64(b.Timestamp), 0).UTC(),
		Open:   price(b.Open),
		High:   price(b.High),
		Low:    price(b.Low),
		Close:  price(b.Close),
		Volume: vol,
	}
}

// price maps the zero Yahoo reports for a missing quote to NaN.
func price(d decimal.Decimal) float64 {
	if d.IsZero() {
		return math.NaN()
	}
	f, _ := d.Float64()
	return f
}
