// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"
	"time"

	"marketsync/internal/platform/config"
	"marketsync/internal/platform/externalapi/multi"
	"marketsync/internal/platform/externalapi/twelvedata"
	"marketsync/internal/platform/externalapi/yahoo"
	infrahttp "marketsync/internal/platform/http"
	"marketsync/internal/shared/ratelimiter"
)

// NewMarket builds the provider chain named by cfg.Chain, in order.
func NewMarket(cfg config.ProviderConfig) (*multi.Chain, error) {
	sources := make([]multi.Source, 0, len(cfg.Chain))
	for _, name := range cfg.Chain {
		var p multi.Provider
		switch name {
		case config.ProviderYahoo:
			p = yahoo.NewYahooMarket(ratelimiter.NewRateLimiter(cfg.YahooRateLimit, time.Minute))
		case config.ProviderTwelvedata:
			p = NewTwelveDataMarket(cfg.Twelvedata)
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		sources = append(sources, multi.Source{Name: name, Provider: p})
	}
	return multi.NewChain(sources...), nil
}

// NewTwelveDataMarket creates a fully configured TwelveDataMarket with HTTP client.
func NewTwelveDataMarket(cfg config.TwelvedataConfig) *twelvedata.TwelveDataMarket {
	tcfg := twelvedata.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		RateInterval: cfg.RateInterval,
	}.WithDefaults()
	httpClient := infrahttp.NewHTTPClient(tcfg.Timeout)
	limiter := ratelimiter.NewRateLimiter(tcfg.RateLimit, tcfg.RateInterval)
	return twelvedata.NewTwelveDataMarket(tcfg, httpClient, limiter)
}
