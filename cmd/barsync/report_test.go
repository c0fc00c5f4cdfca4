package main

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	barentity "marketsync/internal/feature/bars/domain/entity"
	barusecase "marketsync/internal/feature/bars/usecase"
)

func TestPrintBatch(t *testing.T) {
	t.Parallel()

	failed := map[string]error{
		"ZZZZ":     barusecase.ErrNoData,
		"EURUSD=X": fmt.Errorf("%w: timeout", barusecase.ErrProviderUnavailable),
	}
	res := barusecase.BatchResult{
		Bars:   map[string][]barentity.Bar{"AAPL": {{Symbol: "AAPL"}}},
		Failed: failed,
	}

	var buf bytes.Buffer
	printBatch(&buf, barentity.Daily, res)

	want := "=== daily bars: 1 synced, 2 failed ===\n" +
		"  EURUSD=X: provider unavailable\n" +
		"  ZZZZ: no data\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintFXChecks(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	checks := []barusecase.FXCheck{
		{Symbol: "EURUSD=X", Range: barusecase.FXRange{Min: 1.05, Max: 1.25}, Close: 1.08, Time: day, InRange: true},
		{Symbol: "GBPUSD=X", Range: barusecase.FXRange{Min: 1.2, Max: 1.45}, Err: barusecase.ErrNoData},
		{Symbol: "USDHUF=X", Range: barusecase.FXRange{Min: 300, Max: 420}, Close: 3.61, Time: day},
	}

	var buf bytes.Buffer
	printFXChecks(&buf, checks)

	want := "FX check GBPUSD=X: no daily close stored\n" +
		"FX check USDHUF=X: close 3.6100 on 2024-06-07 outside expected range (300, 420)\n"
	assert.Equal(t, want, buf.String())
}
