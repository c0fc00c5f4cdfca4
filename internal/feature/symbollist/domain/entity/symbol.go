// Package entity defines the domain models for the symbollist feature.
package entity

import "marketsync/internal/shared/instrument"

// Symbol is one instrument of the configured universe, with its cached
// display name and the attributes inferred from its ticker.
type Symbol struct {
	Code     string
	Name     string
	Class    instrument.Class
	Currency string
	HasBars  bool // false for plain cash currencies
}
