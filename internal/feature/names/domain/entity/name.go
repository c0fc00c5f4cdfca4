// Package entity defines the domain models for the name cache.
package entity

import "time"

// Metadata is what the metadata provider returns for one instrument.
type Metadata struct {
	LongName  string
	ShortName string
}

// NameEntry is the cached human-readable name of one instrument.
type NameEntry struct {
	Symbol      string
	LongName    string
	ShortName   string
	FetchOK     bool      // false when the last fetch failed and the names are empty
	LastUpdated time.Time // calendar date (UTC midnight) of the last refresh
}

// DisplayName returns the long name, else the short name, else the symbol.
func (e NameEntry) DisplayName() string {
	switch {
	case e.LongName != "":
		return e.LongName
	case e.ShortName != "":
		return e.ShortName
	default:
		return e.Symbol
	}
}

// StatusLabel is the long name, else the short name, else "N/A".
func (e NameEntry) StatusLabel() string {
	if e.LongName == "" && e.ShortName == "" {
		return "N/A"
	}
	return e.DisplayName()
}

// Today returns the UTC calendar date of t.
func Today(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
