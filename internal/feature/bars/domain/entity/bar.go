// Package entity defines the domain models for the bars feature.
package entity

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Granularity is the sampling interval of a bar series.
type Granularity string

const (
	// Daily bars are keyed by calendar date (UTC midnight).
	Daily Granularity = "daily"
	// Intraday bars are hourly and keyed by date and time.
	Intraday Granularity = "intraday"
)

// ParseGranularity converts user input ("daily", "1d", "intraday", "1h", ...) into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "1d", "1day":
		return Daily, nil
	case "intraday", "hourly", "1h", "60m":
		return Intraday, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// Normalize truncates t to the key resolution of the granularity, in UTC.
func (g Granularity) Normalize(t time.Time) time.Time {
	t = t.UTC()
	if g == Daily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(time.Second)
}

// Bar represents one OHLCV record for one instrument at one timestamp.
// A missing price is carried as NaN until the store rejects the row.
type Bar struct {
	Symbol string    // Instrument ticker (e.g. "AAPL", "EURUSD=X")
	Time   time.Time // Calendar date for daily bars, date and time for intraday bars
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Valid reports whether all four prices are present and finite.
func (b Bar) Valid() bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Watermark is the latest persisted timestamp per granularity for one instrument.
// A nil field means that granularity has never been fetched.
type Watermark struct {
	Symbol       string
	LastDaily    *time.Time
	LastIntraday *time.Time
}

// For returns the watermark of the given granularity.
func (w Watermark) For(g Granularity) (time.Time, bool) {
	var p *time.Time
	if g == Daily {
		p = w.LastDaily
	} else {
		p = w.LastIntraday
	}
	if p == nil {
		return time.Time{}, false
	}
	return *p, true
}
