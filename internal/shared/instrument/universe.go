package instrument

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// Universe is the configured set of instruments: tradable assets and
// currency instruments, each read from its own flat file.
type Universe struct {
	Assets     []string
	Currencies []string
}

// LoadUniverse reads both ticker files. A missing file is logged and yields
// an empty list.
func LoadUniverse(assetsFile, currenciesFile string) (Universe, error) {
	assets, err := ReadTickers(assetsFile)
	if err != nil {
		return Universe{}, err
	}
	currencies, err := ReadTickers(currenciesFile)
	if err != nil {
		return Universe{}, err
	}
	return Universe{Assets: assets, Currencies: currencies}, nil
}

// ReadTickers reads one ticker per line, skipping blank lines.
func ReadTickers(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ticker file not found", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ticker file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			out = append(out, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ticker file %s: %w", path, err)
	}
	slog.Info("loaded tickers", "path", path, "count", len(out))
	return out, nil
}

// Select returns assets, currencies or both, deduplicated in file order.
func (u Universe) Select(assetsOnly, currenciesOnly bool) []string {
	var lists [][]string
	if !currenciesOnly {
		lists = append(lists, u.Assets)
	}
	if !assetsOnly {
		lists = append(lists, u.Currencies)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// WithBars filters out instruments that have no quote series.
func WithBars(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if HasBars(s) {
			out = append(out, s)
		}
	}
	return out
}
