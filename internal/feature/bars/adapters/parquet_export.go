package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"marketsync/internal/feature/bars/domain/entity"
)

// parquetBar is the on-disk row layout of an exported bar series.
type parquetBar struct {
	Timestamp int64   `parquet:"t"`
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    int64   `parquet:"v"`
}

// ParquetExporter writes bar series to <dir>/<granularity>/<symbol>.parquet.
type ParquetExporter struct {
	dir string
}

func NewParquetExporter(dir string) *ParquetExporter {
	return &ParquetExporter{dir: dir}
}

// Export writes bars for one instrument, replacing any previous file, and returns its path.
func (e *ParquetExporter) Export(symbol string, g entity.Granularity, bars []entity.Bar) (string, error) {
	dir := filepath.Join(e.dir, string(g))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	rows := make([]parquetBar, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, parquetBar{
			Timestamp: b.Time.UTC().Unix(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	path := filepath.Join(dir, exportFileName(symbol)+".parquet")
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("write parquet %s: %w", path, err)
	}
	return path, nil
}

// exportFileName keeps tickers like "^GSPC" or "EURUSD=X" usable as file names.
func exportFileName(symbol string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(symbol)
}
