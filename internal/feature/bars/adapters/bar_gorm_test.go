package adapters

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"marketsync/internal/feature/bars/domain/entity"
)

// setupTestDB prepares a file-backed SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bars.db")), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(Models()...)
	require.NoError(t, err, "failed to migrate tables")

	return db
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func bar(t time.Time, px float64) entity.Bar {
	return entity.Bar{Time: t, Open: px - 1, High: px + 1, Low: px - 2, Close: px, Volume: 1000}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestNewBarRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewBarRepository(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestBarGorm_UpsertBars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		granularity  entity.Granularity
		bars         []entity.Bar
		seed         []entity.Bar
		wantPersist  int
		validateFunc func(t *testing.T, db *gorm.DB)
	}{
		{
			name:        "success: insert daily bars",
			granularity: entity.Daily,
			bars:        []entity.Bar{bar(day(0), 100), bar(day(1), 101)},
			wantPersist: 2,
			validateFunc: func(t *testing.T, db *gorm.DB) {
				assert.Equal(t, int64(2), countRows(t, db, &DailyBarModel{}))
				assert.Equal(t, int64(0), countRows(t, db, &IntradayBarModel{}))
			},
		},
		{
			name:        "success: empty input is a no-op",
			granularity: entity.Daily,
			bars:        nil,
			wantPersist: 0,
			validateFunc: func(t *testing.T, db *gorm.DB) {
				assert.Equal(t, int64(0), countRows(t, db, &DailyBarModel{}))
			},
		},
		{
			name:        "success: same key twice keeps one row with the latest values",
			granularity: entity.Daily,
			seed:        []entity.Bar{bar(day(0), 100)},
			bars:        []entity.Bar{bar(day(0), 200)},
			wantPersist: 1,
			validateFunc: func(t *testing.T, db *gorm.DB) {
				assert.Equal(t, int64(1), countRows(t, db, &DailyBarModel{}))
				var m DailyBarModel
				require.NoError(t, db.First(&m).Error)
				assert.Equal(t, 200.0, m.Close)
				assert.Equal(t, 199.0, m.Open)
			},
		},
		{
			name:        "success: duplicate key inside one batch, last wins",
			granularity: entity.Intraday,
			bars: []entity.Bar{
				bar(day(0).Add(10*time.Hour), 10),
				bar(day(0).Add(10*time.Hour), 11),
			},
			wantPersist: 1,
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var m IntradayBarModel
				require.NoError(t, db.First(&m).Error)
				assert.Equal(t, 11.0, m.Close)
			},
		},
		{
			name:        "partial: rows with a missing price are skipped",
			granularity: entity.Daily,
			bars: []entity.Bar{
				bar(day(0), 100),
				{Time: day(1), Open: 1, High: 2, Low: math.NaN(), Close: 1},
			},
			wantPersist: 1,
			validateFunc: func(t *testing.T, db *gorm.DB) {
				assert.Equal(t, int64(1), countRows(t, db, &DailyBarModel{}))
			},
		},
		{
			name:        "partial: negative volume is stored as zero",
			granularity: entity.Daily,
			bars:        []entity.Bar{{Time: day(0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: -5}},
			wantPersist: 1,
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var m DailyBarModel
				require.NoError(t, db.First(&m).Error)
				assert.Equal(t, int64(0), m.Volume)
			},
		},
		{
			name:        "success: daily timestamps are normalized to the date",
			granularity: entity.Daily,
			bars:        []entity.Bar{bar(day(0).Add(15*time.Hour), 100), bar(day(0), 101)},
			wantPersist: 1,
			validateFunc: func(t *testing.T, db *gorm.DB) {
				assert.Equal(t, int64(1), countRows(t, db, &DailyBarModel{}))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			repo := NewBarRepository(db)
			ctx := context.Background()

			if len(tt.seed) > 0 {
				_, err := repo.UpsertBars(ctx, "AAPL", tt.granularity, tt.seed)
				require.NoError(t, err)
			}

			n, err := repo.UpsertBars(ctx, "AAPL", tt.granularity, tt.bars)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPersist, n)
			if tt.validateFunc != nil {
				tt.validateFunc(t, db)
			}
		})
	}
}

func TestBarGorm_QueryBars(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewBarRepository(db)
	ctx := context.Background()

	// Inserted out of order on purpose.
	_, err := repo.UpsertBars(ctx, "AAPL", entity.Daily, []entity.Bar{bar(day(2), 102), bar(day(0), 100), bar(day(1), 101)})
	require.NoError(t, err)
	_, err = repo.UpsertBars(ctx, "MSFT", entity.Daily, []entity.Bar{bar(day(0), 300)})
	require.NoError(t, err)

	t.Run("full range is ascending and filtered by symbol", func(t *testing.T) {
		got, err := repo.QueryBars(ctx, "AAPL", entity.Daily, time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, day(0), got[0].Time)
		assert.Equal(t, day(1), got[1].Time)
		assert.Equal(t, day(2), got[2].Time)
		assert.Equal(t, "AAPL", got[0].Symbol)
		assert.Equal(t, 100.0, got[0].Close)
		assert.Equal(t, int64(1000), got[0].Volume)
	})

	t.Run("window is inclusive on both ends", func(t *testing.T) {
		got, err := repo.QueryBars(ctx, "AAPL", entity.Daily, day(1), day(2))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, day(1), got[0].Time)
	})

	t.Run("unknown symbol yields an empty slice", func(t *testing.T) {
		got, err := repo.QueryBars(ctx, "NOPE", entity.Daily, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("granularities are stored separately", func(t *testing.T) {
		got, err := repo.QueryBars(ctx, "AAPL", entity.Intraday, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestBarGorm_Watermark(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewBarRepository(db)
	ctx := context.Background()

	_, ok, err := repo.GetWatermark(ctx, "AAPL", entity.Daily)
	require.NoError(t, err)
	assert.False(t, ok, "absent watermark means never fetched")

	require.NoError(t, repo.SetWatermark(ctx, "AAPL", entity.Daily, day(5)))
	got, ok, err := repo.GetWatermark(ctx, "AAPL", entity.Daily)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day(5), got)

	// Older value is ignored.
	require.NoError(t, repo.SetWatermark(ctx, "AAPL", entity.Daily, day(3)))
	got, _, err = repo.GetWatermark(ctx, "AAPL", entity.Daily)
	require.NoError(t, err)
	assert.Equal(t, day(5), got)

	// Granularities are independent.
	_, ok, err = repo.GetWatermark(ctx, "AAPL", entity.Intraday)
	require.NoError(t, err)
	assert.False(t, ok)

	hour := day(5).Add(14 * time.Hour)
	require.NoError(t, repo.SetWatermark(ctx, "AAPL", entity.Intraday, hour))
	w, err := repo.Watermark(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, w.LastDaily)
	require.NotNil(t, w.LastIntraday)
	assert.Equal(t, day(5), *w.LastDaily)
	assert.Equal(t, hour, *w.LastIntraday)

	// Newer value advances.
	require.NoError(t, repo.SetWatermark(ctx, "AAPL", entity.Daily, day(6)))
	got, _, err = repo.GetWatermark(ctx, "AAPL", entity.Daily)
	require.NoError(t, err)
	assert.Equal(t, day(6), got)
	assert.Equal(t, int64(1), countRows(t, db, &WatermarkModel{}))
}

func TestBarGorm_DeleteIntradayOlderThan(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewBarRepository(db)
	ctx := context.Background()

	cutoff := day(10)
	_, err := repo.UpsertBars(ctx, "AAPL", entity.Intraday, []entity.Bar{
		bar(cutoff.Add(-2*time.Hour), 1),
		bar(cutoff.Add(-time.Second), 2),
		bar(cutoff, 3),
		bar(cutoff.Add(time.Hour), 4),
	})
	require.NoError(t, err)
	_, err = repo.UpsertBars(ctx, "AAPL", entity.Daily, []entity.Bar{bar(day(0), 1), bar(day(1), 2)})
	require.NoError(t, err)

	removed, err := repo.DeleteIntradayOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	left, err := repo.QueryBars(ctx, "AAPL", entity.Intraday, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, left, 2)
	for _, b := range left {
		assert.False(t, b.Time.Before(cutoff))
	}
	assert.Equal(t, 3.0, left[0].Close)

	daily, err := repo.QueryBars(ctx, "AAPL", entity.Daily, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, daily, 2, "daily bars are never swept")

	// Idempotent.
	removed, err = repo.DeleteIntradayOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestBarGorm_DeleteInstrument(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewBarRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertBars(ctx, "AAPL", entity.Daily, []entity.Bar{bar(day(0), 1)})
	require.NoError(t, err)
	_, err = repo.UpsertBars(ctx, "AAPL", entity.Intraday, []entity.Bar{bar(day(0).Add(time.Hour), 1)})
	require.NoError(t, err)
	_, err = repo.UpsertBars(ctx, "MSFT", entity.Daily, []entity.Bar{bar(day(0), 1)})
	require.NoError(t, err)
	require.NoError(t, repo.SetWatermark(ctx, "AAPL", entity.Daily, day(0)))

	removed, err := repo.DeleteInstrument(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, ok, err := repo.GetWatermark(ctx, "AAPL", entity.Daily)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), countRows(t, db, &DailyBarModel{}))
}
