// Package usecase implements the incremental bar synchronization engine.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marketsync/internal/feature/bars/domain/entity"
)

// Decision は1回の同期（銘柄・時間足）で選択された動作です。
type Decision string

const (
	// ServeCache は外部APIを呼ばずにストアから返す
	ServeCache Decision = "serve_cache"
	// IncrementalFetch はウォーターマークからオーバーラップ分を引いた時刻以降を取得する
	IncrementalFetch Decision = "incremental_fetch"
	// FullFetch は設定された全期間を取得する
	FullFetch Decision = "full_fetch"
)

// FetchRequest はプロバイダへの取得リクエストです。
type FetchRequest struct {
	Symbol      string
	Granularity entity.Granularity
	Start       time.Time
	End         time.Time
}

// MarketProvider は外部のマーケットデータからバーを取得するインターフェイスです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type MarketProvider interface {
	FetchBars(ctx context.Context, req FetchRequest) ([]entity.Bar, error)
}

// BarRepository はバーとウォーターマークの永続化を抽象化します。
type BarRepository interface {
	UpsertBars(ctx context.Context, symbol string, g entity.Granularity, bars []entity.Bar) (int, error)
	SetWatermark(ctx context.Context, symbol string, g entity.Granularity, ts time.Time) error
	GetWatermark(ctx context.Context, symbol string, g entity.Granularity) (time.Time, bool, error)
	QueryBars(ctx context.Context, symbol string, g entity.Granularity, from, to time.Time) ([]entity.Bar, error)
}

// SyncConfig は鮮度判定のポリシーです。
type SyncConfig struct {
	DailyStale          time.Duration // 日足を再取得するウォーターマークの経過時間
	IntradayStale       time.Duration // 時間足を再取得するウォーターマークの経過時間
	DailyOverlap        time.Duration
	IntradayOverlap     time.Duration
	DailyLookbackMonths int           // 日足の初回取得期間（月）
	IntradayLookback    time.Duration // 時間足の初回取得期間
	IntradayMaxLookback time.Duration // プロバイダが返せる時間足の最大期間
	ProviderTimeout     time.Duration
}

// DefaultSyncConfig はデフォルトのポリシーを返します。
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		DailyStale:          24 * time.Hour,
		IntradayStale:       time.Hour,
		DailyOverlap:        24 * time.Hour,
		IntradayOverlap:     time.Hour,
		DailyLookbackMonths: 15,
		IntradayLookback:    30 * 24 * time.Hour,
		IntradayMaxLookback: 30 * 24 * time.Hour,
		ProviderTimeout:     30 * time.Second,
	}
}

// SyncOutcome は1銘柄の同期結果です。
type SyncOutcome struct {
	Symbol      string
	Granularity entity.Granularity
	Decision    Decision
	Fetched     int          // 今回保存した行数
	Bars        []entity.Bar // ストアから読み直したバー
	Err         error        // 取得できなかった理由。成功またはスキップ時は nil
}

// BatchResult は複数銘柄の同期結果をまとめたものです。
type BatchResult struct {
	RunID    string
	Bars     map[string][]entity.Bar
	Failed   map[string]error // データが全くない銘柄
	Outcomes []SyncOutcome
}

// SyncUsecase は銘柄ごとにストアから返すか、差分を取得するか、全期間を取得するかを判断し、
// 取得結果をストアに反映するユースケースです。
type SyncUsecase struct {
	market MarketProvider
	repo   BarRepository
	cfg    SyncConfig
	now    func() time.Time
}

// NewSyncUsecase は新しい SyncUsecase を作成します。now が nil の場合は time.Now を使います。
func NewSyncUsecase(market MarketProvider, repo BarRepository, cfg SyncConfig, now func() time.Time) *SyncUsecase {
	if now == nil {
		now = time.Now
	}
	return &SyncUsecase{market: market, repo: repo, cfg: cfg, now: now}
}

// Sync は1銘柄を最新化し、[from, to] のバーを返します。from/to がゼロ値の場合はその側を制限しません。
// エラーを返すのはストアの障害時のみで、取得失敗は SyncOutcome.Err に入ります。
func (u *SyncUsecase) Sync(ctx context.Context, symbol string, g entity.Granularity, from, to time.Time) (SyncOutcome, error) {
	out := SyncOutcome{Symbol: symbol, Granularity: g}
	now := u.now().UTC()

	wm, ok, err := u.repo.GetWatermark(ctx, symbol, g)
	if err != nil {
		return out, fmt.Errorf("%w: get watermark %s/%s: %w", ErrStorage, symbol, g, err)
	}

	req, decision := u.plan(symbol, g, wm, ok, now)
	out.Decision = decision

	if decision != ServeCache {
		n, err := u.fetchAndStore(ctx, req)
		if errors.Is(err, ErrStorage) {
			return out, err
		}
		if decision == FullFetch && errors.Is(err, ErrEmptyResponse) {
			err = fmt.Errorf("%w: %w", ErrNoData, err)
		}
		out.Fetched = n
		out.Err = err
		switch {
		case err == nil:
			slog.Debug("bars synced", "symbol", symbol, "granularity", g, "decision", decision, "rows", n)
		case errors.Is(err, ErrEmptyResponse) && decision == IncrementalFetch:
			slog.Debug("no new bars", "symbol", symbol, "granularity", g)
		default:
			slog.Warn("bar fetch failed, serving cached bars", "symbol", symbol, "granularity", g, "decision", decision, "error", err)
		}
	}

	bars, err := u.repo.QueryBars(ctx, symbol, g, from, to)
	if err != nil {
		return out, fmt.Errorf("%w: query bars %s/%s: %w", ErrStorage, symbol, g, err)
	}
	out.Bars = bars
	return out, nil
}

// SyncAll は銘柄を1つずつ順に同期します。
// 1つの銘柄で取得に失敗しても処理を止めずに次の銘柄へ進み、ストアの障害時のみ中断します。
func (u *SyncUsecase) SyncAll(ctx context.Context, symbols []string, g entity.Granularity, from, to time.Time) (BatchResult, error) {
	res := BatchResult{
		RunID:  uuid.NewString(),
		Bars:   make(map[string][]entity.Bar, len(symbols)),
		Failed: make(map[string]error),
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}

		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, err := u.Sync(ctx, s, g, from, to)
		if err != nil {
			slog.Error("sync batch aborted", "run_id", res.RunID, "symbol", s, "error", err)
			return res, err
		}
		res.Outcomes = append(res.Outcomes, out)
		if len(out.Bars) == 0 {
			reason := out.Err
			if reason == nil {
				reason = ErrNoData
			}
			res.Failed[s] = reason
			continue
		}
		res.Bars[s] = out.Bars
	}
	slog.Info("sync batch finished", "run_id", res.RunID, "granularity", g, "ok", len(res.Bars), "failed", len(res.Failed))
	return res, nil
}

// plan はウォーターマークから取得方法を決定します。
func (u *SyncUsecase) plan(symbol string, g entity.Granularity, wm time.Time, ok bool, now time.Time) (FetchRequest, Decision) {
	req := FetchRequest{Symbol: symbol, Granularity: g, End: now}
	if !ok {
		req.Start = u.lookbackStart(g, now)
		return u.clamp(req, now), FullFetch
	}
	if now.Sub(wm) < u.staleAfter(g) {
		return req, ServeCache
	}
	req.Start = wm.Add(-u.overlap(g))
	return u.clamp(req, now), IncrementalFetch
}

func (u *SyncUsecase) staleAfter(g entity.Granularity) time.Duration {
	if g == entity.Daily {
		return u.cfg.DailyStale
	}
	return u.cfg.IntradayStale
}

func (u *SyncUsecase) overlap(g entity.Granularity) time.Duration {
	if g == entity.Daily {
		return u.cfg.DailyOverlap
	}
	return u.cfg.IntradayOverlap
}

func (u *SyncUsecase) lookbackStart(g entity.Granularity, now time.Time) time.Time {
	if g == entity.Daily {
		return entity.Daily.Normalize(now.AddDate(0, -u.cfg.DailyLookbackMonths, 0))
	}
	return now.Add(-u.cfg.IntradayLookback)
}

// clamp は時間足のリクエストをプロバイダの取得可能期間内に収めます。
func (u *SyncUsecase) clamp(req FetchRequest, now time.Time) FetchRequest {
	if req.Granularity != entity.Intraday || u.cfg.IntradayMaxLookback <= 0 {
		return req
	}
	if earliest := now.Add(-u.cfg.IntradayMaxLookback); req.Start.Before(earliest) {
		req.Start = earliest
	}
	return req
}

// fetchAndStore はプロバイダから取得し、ストアに一括で挿入（または更新）してからウォーターマークを進めます。
// ウォーターマークは保存に成功した最新のバーの時刻までしか進めません。
func (u *SyncUsecase) fetchAndStore(ctx context.Context, req FetchRequest) (int, error) {
	fctx := ctx
	if u.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, u.cfg.ProviderTimeout)
		defer cancel()
	}
	bars, err := u.market.FetchBars(fctx, req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if len(bars) == 0 {
		return 0, ErrEmptyResponse
	}

	var latest time.Time
	for i := range bars {
		bars[i].Symbol = req.Symbol
		if bars[i].Valid() {
			if t := req.Granularity.Normalize(bars[i].Time); t.After(latest) {
				latest = t
			}
		}
	}

	n, err := u.repo.UpsertBars(ctx, req.Symbol, req.Granularity, bars)
	if err != nil {
		return 0, fmt.Errorf("%w: upsert bars %s/%s: %w", ErrStorage, req.Symbol, req.Granularity, err)
	}
	if n == 0 {
		return 0, ErrMalformedResponse
	}
	if err := u.repo.SetWatermark(ctx, req.Symbol, req.Granularity, latest); err != nil {
		return n, fmt.Errorf("%w: set watermark %s/%s: %w", ErrStorage, req.Symbol, req.Granularity, err)
	}
	return n, nil
}
