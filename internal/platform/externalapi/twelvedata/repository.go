package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	barentity "marketsync/internal/feature/bars/domain/entity"
	barusecase "marketsync/internal/feature/bars/usecase"
	nameentity "marketsync/internal/feature/names/domain/entity"
	nameusecase "marketsync/internal/feature/names/usecase"
	"marketsync/internal/platform/externalapi/twelvedata/dto"
	"marketsync/internal/shared/instrument"
	"marketsync/internal/shared/ratelimiter"
)

const (
	requestTimeLayout = "2006-01-02 15:04:05"
	maxOutputSize     = 5000
)

// TwelveDataMarket は Twelve Data 外部APIからバーと銘柄名を取得するプロバイダ実装です。
type TwelveDataMarket struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
}

var (
	_ barusecase.MarketProvider    = (*TwelveDataMarket)(nil)
	_ nameusecase.MetadataProvider = (*TwelveDataMarket)(nil)
)

// NewTwelveDataMarket は指定された設定とHTTPクライアントで TwelveDataMarket を生成します。
// limiter が nil の場合はレート制限を行いません。
func NewTwelveDataMarket(cfg Config, client *http.Client, limiter ratelimiter.Limiter) *TwelveDataMarket {
	if limiter == nil {
		limiter = (*ratelimiter.RateLimiter)(nil)
	}
	return &TwelveDataMarket{cfg: cfg.WithDefaults(), client: client, limiter: limiter}
}

// FetchBars は time_series エンドポイントから req の期間のバーを取得します。
func (t *TwelveDataMarket) FetchBars(ctx context.Context, req barusecase.FetchRequest) ([]barentity.Bar, error) {
	q := url.Values{}
	q.Set("symbol", instrument.Slashed(req.Symbol))
	q.Set("interval", interval(req.Granularity))
	q.Set("timezone", "UTC")
	q.Set("order", "asc")
	q.Set("outputsize", strconv.Itoa(maxOutputSize))
	if !req.Start.IsZero() {
		q.Set("start_date", req.Start.UTC().Format(requestTimeLayout))
	}
	if !req.End.IsZero() {
		q.Set("end_date", req.End.UTC().Format(requestTimeLayout))
	}

	var body dto.TimeSeriesResponse
	if err := t.get(ctx, "time_series", q, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		// データのない期間は API がエラーとして返す
		if strings.Contains(strings.ToLower(body.Message), "no data is available") {
			return nil, nil
		}
		return nil, fmt.Errorf("twelvedata: %s", body.Message)
	}

	bars := make([]barentity.Bar, 0, len(body.Values))
	for _, v := range body.Values {
		tm, err := time.Parse(requestTimeLayout, v.Datetime)
		if err != nil {
			tm, err = time.Parse(time.DateOnly, v.Datetime)
			if err != nil {
				return nil, fmt.Errorf("parse time %q: %w", v.Datetime, err)
			}
		}
		o, err := parsePrice(v.Open)
		if err != nil {
			return nil, fmt.Errorf("parse open %q: %w", v.Open, err)
		}
		h, err := parsePrice(v.High)
		if err != nil {
			return nil, fmt.Errorf("parse high %q: %w", v.High, err)
		}
		l, err := parsePrice(v.Low)
		if err != nil {
			return nil, fmt.Errorf("parse low %q: %w", v.Low, err)
		}
		c, err := parsePrice(v.Close)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", v.Close, err)
		}
		var vol int64
		if v.Volume != "" {
			if vol, err = strconv.ParseInt(v.Volume, 10, 64); err != nil {
				return nil, fmt.Errorf("parse volume %q: %w", v.Volume, err)
			}
		}

		bars = append(bars, barentity.Bar{
			Symbol: req.Symbol,
			Time:   tm,
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: vol,
		})
	}
	return bars, nil
}

// FetchMetadata は quote エンドポイントから銘柄名を取得します。
// Twelve Data の銘柄名は1つだけなので、正式名称として返します。
func (t *TwelveDataMarket) FetchMetadata(ctx context.Context, symbol string) (nameentity.Metadata, error) {
	q := url.Values{}
	q.Set("symbol", instrument.Slashed(symbol))

	var body dto.QuoteResponse
	if err := t.get(ctx, "quote", q, &body); err != nil {
		return nameentity.Metadata{}, err
	}
	if body.Status == "error" {
		return nameentity.Metadata{}, fmt.Errorf("twelvedata: %s", body.Message)
	}
	return nameentity.Metadata{LongName: body.Name}, nil
}

func (t *TwelveDataMarket) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	q.Set("apikey", t.cfg.APIKey)
	u := fmt.Sprintf("%s/%s?%s", strings.TrimRight(t.cfg.BaseURL, "/"), endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return fmt.Errorf("twelvedata http %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func interval(g barentity.Granularity) string {
	if g == barentity.Intraday {
		return "1h"
	}
	return "1day"
}

// parsePrice は空の値を NaN に変換します。NaN を含むバーはストアで除外されます。
func parsePrice(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
