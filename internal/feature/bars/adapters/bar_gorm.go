// Package adapters provides the gorm-backed store for bars and watermarks.
package adapters

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketsync/internal/feature/bars/domain/entity"
	"marketsync/internal/feature/bars/usecase"
)

const upsertBatchSize = 100

type barGorm struct {
	db *gorm.DB
}

var _ usecase.BarRepository = (*barGorm)(nil)

// NewBarRepository returns the bar and watermark store backed by db.
func NewBarRepository(db *gorm.DB) *barGorm {
	return &barGorm{db: db}
}

// DailyBarModel is one row of the daily_bars table.
type DailyBarModel struct {
	ID     uint      `gorm:"primaryKey"`
	Symbol string    `gorm:"size:32;not null;uniqueIndex:idx_daily_bars_symbol_ts,priority:1"`
	Time   time.Time `gorm:"column:ts;not null;uniqueIndex:idx_daily_bars_symbol_ts,priority:2"`
	Prices `gorm:"embedded"`
}

func (DailyBarModel) TableName() string { return "daily_bars" }

// IntradayBarModel is one row of the intraday_bars table.
type IntradayBarModel struct {
	ID     uint      `gorm:"primaryKey"`
	Symbol string    `gorm:"size:32;not null;uniqueIndex:idx_intraday_bars_symbol_ts,priority:1"`
	Time   time.Time `gorm:"column:ts;not null;uniqueIndex:idx_intraday_bars_symbol_ts,priority:2"`
	Prices `gorm:"embedded"`
}

func (IntradayBarModel) TableName() string { return "intraday_bars" }

// Prices holds the OHLCV columns shared by both bar tables.
type Prices struct {
	Open   float64 `gorm:"not null"`
	High   float64 `gorm:"not null"`
	Low    float64 `gorm:"not null"`
	Close  float64 `gorm:"not null"`
	Volume int64   `gorm:"not null;default:0"`
}

// WatermarkModel keeps the newest persisted timestamp per instrument and granularity.
type WatermarkModel struct {
	Symbol             string `gorm:"primaryKey;size:32"`
	LastDailyUpdate    *time.Time
	LastIntradayUpdate *time.Time
}

func (WatermarkModel) TableName() string { return "update_watermarks" }

// Models lists every table owned by this package, for schema migration.
func Models() []any {
	return []any{&DailyBarModel{}, &IntradayBarModel{}, &WatermarkModel{}}
}

// barRow is the column set written to and read from either bar table.
type barRow struct {
	Symbol string
	Time   time.Time `gorm:"column:ts"`
	Prices `gorm:"embedded"`
}

func barTable(g entity.Granularity) string {
	if g == entity.Daily {
		return DailyBarModel{}.TableName()
	}
	return IntradayBarModel{}.TableName()
}

func watermarkColumn(g entity.Granularity) string {
	if g == entity.Daily {
		return "last_daily_update"
	}
	return "last_intraday_update"
}

func toRow(symbol string, g entity.Granularity, b entity.Bar) barRow {
	vol := b.Volume
	if vol < 0 {
		vol = 0
	}
	return barRow{
		Symbol: symbol,
		Time:   g.Normalize(b.Time),
		Prices: Prices{Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: vol},
	}
}

// UpsertBars inserts or replaces bars keyed by (symbol, timestamp).
// Bars with a missing price are skipped. Returns the number of rows persisted.
func (r *barGorm) UpsertBars(ctx context.Context, symbol string, g entity.Granularity, bars []entity.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	// Later bars for the same timestamp win, also within one batch.
	index := make(map[time.Time]int, len(bars))
	rows := make([]barRow, 0, len(bars))
	rejected := 0
	for _, b := range bars {
		if !b.Valid() {
			rejected++
			continue
		}
		row := toRow(symbol, g, b)
		if i, ok := index[row.Time]; ok {
			rows[i] = row
			continue
		}
		index[row.Time] = len(rows)
		rows = append(rows, row)
	}
	if rejected > 0 {
		slog.Warn("rejected malformed bars", "symbol", symbol, "granularity", g, "rejected", rejected, "accepted", len(rows))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(barTable(g)).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "ts"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
		}).CreateInBatches(&rows, upsertBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SetWatermark records ts as the newest persisted timestamp. A value older
// than the current watermark is ignored, so watermarks never decrease.
func (r *barGorm) SetWatermark(ctx context.Context, symbol string, g entity.Granularity, ts time.Time) error {
	ts = g.Normalize(ts)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m WatermarkModel
		err := tx.Where("symbol = ?", symbol).Take(&m).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			m = WatermarkModel{Symbol: symbol}
		case err != nil:
			return err
		}

		cur := &m.LastIntradayUpdate
		if g == entity.Daily {
			cur = &m.LastDailyUpdate
		}
		if *cur != nil && !ts.After(**cur) {
			return nil
		}
		*cur = &ts

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{watermarkColumn(g)}),
		}).Create(&m).Error
	})
}

// GetWatermark returns the watermark of one granularity; ok is false if it was never set.
func (r *barGorm) GetWatermark(ctx context.Context, symbol string, g entity.Granularity) (time.Time, bool, error) {
	w, err := r.Watermark(ctx, symbol)
	if err != nil {
		return time.Time{}, false, err
	}
	ts, ok := w.For(g)
	return ts, ok, nil
}

// Watermark returns both watermarks of an instrument.
func (r *barGorm) Watermark(ctx context.Context, symbol string) (entity.Watermark, error) {
	var m WatermarkModel
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Watermark{Symbol: symbol}, nil
	}
	if err != nil {
		return entity.Watermark{}, err
	}
	return entity.Watermark{
		Symbol:       m.Symbol,
		LastDaily:    utcPtr(m.LastDailyUpdate),
		LastIntraday: utcPtr(m.LastIntradayUpdate),
	}, nil
}

// QueryBars returns the bars within [from, to] in ascending time order.
// A zero bound leaves that side open.
func (r *barGorm) QueryBars(ctx context.Context, symbol string, g entity.Granularity, from, to time.Time) ([]entity.Bar, error) {
	q := r.db.WithContext(ctx).Table(barTable(g)).Where("symbol = ?", symbol)
	if !from.IsZero() {
		q = q.Where("ts >= ?", g.Normalize(from))
	}
	if !to.IsZero() {
		q = q.Where("ts <= ?", to.UTC())
	}
	var rows []barRow
	if err := q.Order("ts ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Bar, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Bar{
			Symbol: m.Symbol,
			Time:   m.Time.UTC(),
			Open:   m.Open,
			High:   m.High,
			Low:    m.Low,
			Close:  m.Close,
			Volume: m.Volume,
		})
	}
	return out, nil
}

// DeleteIntradayOlderThan removes intraday bars strictly older than cutoff.
// Daily bars are never touched.
func (r *barGorm) DeleteIntradayOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("ts < ?", cutoff.UTC()).Delete(&IntradayBarModel{})
	return res.RowsAffected, res.Error
}

// DeleteInstrument removes every bar and the watermark of one instrument.
func (r *barGorm) DeleteInstrument(ctx context.Context, symbol string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&DailyBarModel{}, &IntradayBarModel{}} {
			res := tx.Where("symbol = ?", symbol).Delete(m)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return tx.Where("symbol = ?", symbol).Delete(&WatermarkModel{}).Error
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
