// Package adapters provides the gorm-backed name cache store.
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketsync/internal/feature/names/domain/entity"
	"marketsync/internal/feature/names/usecase"
)

// NameModel is one row of the asset_names table.
type NameModel struct {
	Symbol      string    `gorm:"primaryKey;size:32"`
	LongName    string    `gorm:"size:255;not null"`
	ShortName   string    `gorm:"size:255;not null"`
	FetchOK     bool      `gorm:"not null"`
	LastUpdated time.Time `gorm:"not null;index"`
}

func (NameModel) TableName() string { return "asset_names" }

// Models lists every table owned by this package, for schema migration.
func Models() []any {
	return []any{&NameModel{}}
}

type nameGorm struct {
	db *gorm.DB
}

var _ usecase.NameRepository = (*nameGorm)(nil)

func NewNameRepository(db *gorm.DB) *nameGorm {
	return &nameGorm{db: db}
}

// UpsertNameEntry inserts or replaces the entry keyed by symbol.
func (r *nameGorm) UpsertNameEntry(ctx context.Context, e entity.NameEntry) error {
	m := NameModel{
		Symbol:      e.Symbol,
		LongName:    e.LongName,
		ShortName:   e.ShortName,
		FetchOK:     e.FetchOK,
		LastUpdated: entity.Today(e.LastUpdated),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"long_name", "short_name", "fetch_ok", "last_updated"}),
	}).Create(&m).Error
}

func (r *nameGorm) GetNameEntry(ctx context.Context, symbol string) (entity.NameEntry, bool, error) {
	var m NameModel
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.NameEntry{}, false, nil
	}
	if err != nil {
		return entity.NameEntry{}, false, err
	}
	return toEntity(m), true, nil
}

// DeleteNameEntriesOlderThan removes entries last updated before cutoff.
func (r *nameGorm) DeleteNameEntriesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_updated < ?", cutoff.UTC()).Delete(&NameModel{})
	return res.RowsAffected, res.Error
}

// CountNameEntries counts entries updated strictly after since; a zero since counts all.
func (r *nameGorm) CountNameEntries(ctx context.Context, since time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&NameModel{})
	if !since.IsZero() {
		q = q.Where("last_updated > ?", since.UTC())
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// RecentNameEntries returns up to limit entries, most recently updated first.
func (r *nameGorm) RecentNameEntries(ctx context.Context, limit int) ([]entity.NameEntry, error) {
	var ms []NameModel
	if err := r.db.WithContext(ctx).Order("last_updated DESC").Order("symbol ASC").Limit(limit).Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]entity.NameEntry, 0, len(ms))
	for _, m := range ms {
		out = append(out, toEntity(m))
	}
	return out, nil
}

func toEntity(m NameModel) entity.NameEntry {
	return entity.NameEntry{
		Symbol:      m.Symbol,
		LongName:    m.LongName,
		ShortName:   m.ShortName,
		FetchOK:     m.FetchOK,
		LastUpdated: m.LastUpdated.UTC(),
	}
}
