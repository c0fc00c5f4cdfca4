package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/internal/feature/bars/domain/entity"
	"marketsync/internal/feature/bars/usecase"
)

func TestFXRange_Contains(t *testing.T) {
	t.Parallel()

	r := usecase.FXRange{Min: 1.05, Max: 1.25}
	tests := []struct {
		name string
		v    float64
		want bool
	}{
		{"inside", 1.10, true},
		{"lower bound is excluded", 1.05, false},
		{"upper bound is excluded", 1.25, false},
		{"below", 0.9, false},
		{"above", 1.3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.v))
		})
	}
}

func TestCheckFXRates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupStore(t)
	d := today()
	_, err := repo.UpsertBars(ctx, "EURUSD=X", entity.Daily, []entity.Bar{dailyBar(d.AddDate(0, 0, -1), 1.50), dailyBar(d, 1.09)})
	require.NoError(t, err)
	_, err = repo.UpsertBars(ctx, "USDHUF=X", entity.Daily, []entity.Bar{dailyBar(d, 450)})
	require.NoError(t, err)

	checks, err := usecase.CheckFXRates(ctx, repo, map[string]usecase.FXRange{
		"USDHUF=X": {Min: 300, Max: 420},
		"EURUSD=X": {Min: 1.05, Max: 1.25},
		"GBPUSD=X": {Min: 1.20, Max: 1.45},
	})
	require.NoError(t, err)
	require.Len(t, checks, 3)

	assert.Equal(t, "EURUSD=X", checks[0].Symbol)
	assert.NoError(t, checks[0].Err)
	assert.Equal(t, 1.09, checks[0].Close, "latest close is used")
	assert.Equal(t, d, checks[0].Time)
	assert.True(t, checks[0].InRange)

	assert.Equal(t, "GBPUSD=X", checks[1].Symbol)
	assert.ErrorIs(t, checks[1].Err, usecase.ErrNoData)
	assert.False(t, checks[1].InRange)

	assert.Equal(t, "USDHUF=X", checks[2].Symbol)
	assert.NoError(t, checks[2].Err)
	assert.False(t, checks[2].InRange)
}

func TestCheckFXRates_StorageError(t *testing.T) {
	t.Parallel()

	_, err := usecase.CheckFXRates(context.Background(), failingRepository{}, map[string]usecase.FXRange{"EURUSD=X": {Min: 1, Max: 2}})
	assert.ErrorIs(t, err, usecase.ErrStorage)
}
