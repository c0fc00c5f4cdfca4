// Package instrument classifies tickers and loads the instrument universe.
package instrument

import (
	"regexp"
	"strings"
)

// Class is the asset class inferred from a ticker.
type Class string

const (
	ClassCurrency    Class = "Currency"
	ClassFX          Class = "FX"
	ClassEquityIndex Class = "Equity Index"
	ClassCrypto      Class = "Crypto"
	ClassCommodity   Class = "Commodity"
	ClassStock       Class = "Stock"
)

var (
	fxPattern      = regexp.MustCompile(`^[A-Z]{3}[A-Z]{3}=X$`)
	cashCurrencies = map[string]struct{}{"USD": {}, "EUR": {}, "GBP": {}}
	cryptoQuotes   = []string{"USD", "EUR", "GBP"}
)

// IsCurrency reports whether symbol is a plain cash currency such as "USD".
func IsCurrency(symbol string) bool {
	_, ok := cashCurrencies[symbol]
	return ok
}

// IsFX reports whether symbol is a currency pair such as "EURUSD=X".
func IsFX(symbol string) bool {
	return fxPattern.MatchString(symbol)
}

// Classify infers the asset class of symbol.
func Classify(symbol string) Class {
	switch {
	case IsCurrency(symbol):
		return ClassCurrency
	case IsFX(symbol):
		return ClassFX
	case strings.HasPrefix(symbol, "^"):
		return ClassEquityIndex
	case cryptoQuote(symbol) != "":
		return ClassCrypto
	case strings.HasSuffix(symbol, "=F"):
		return ClassCommodity
	default:
		return ClassStock
	}
}

// Currency returns the currency an instrument is denominated in. FX pairs
// report their base currency. Unknown instruments default to USD.
func Currency(symbol string) string {
	switch {
	case IsCurrency(symbol):
		return symbol
	case IsFX(symbol):
		return symbol[:3]
	}
	if q := cryptoQuote(symbol); q != "" {
		return q
	}
	return "USD"
}

// HasBars reports whether bar data can be fetched for symbol. Cash
// currencies have no quote series.
func HasBars(symbol string) bool {
	return !IsCurrency(symbol)
}

func cryptoQuote(symbol string) string {
	for _, q := range cryptoQuotes {
		if strings.HasSuffix(symbol, "-"+q) {
			return q
		}
	}
	return ""
}

// Slashed converts Yahoo-style tickers to the BASE/QUOTE form used by
// providers such as Twelve Data: "EURUSD=X" becomes "EUR/USD" and "BTC-USD"
// becomes "BTC/USD". Other symbols are returned unchanged.
func Slashed(symbol string) string {
	if IsFX(symbol) {
		return symbol[:3] + "/" + symbol[3:6]
	}
	if q := cryptoQuote(symbol); q != "" {
		return strings.TrimSuffix(symbol, "-"+q) + "/" + q
	}
	return symbol
}
