// Package config loads the runtime configuration from an optional YAML file,
// MARKETSYNC_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MARKETSYNC_STORE_PATH.
const EnvPrefix = "MARKETSYNC"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Universe  UniverseConfig  `mapstructure:"universe"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Names     NamesConfig     `mapstructure:"names"`
	Retention RetentionConfig `mapstructure:"retention"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	FXRanges  []FXRange       `mapstructure:"fx_ranges"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

type StoreConfig struct {
	Driver      string        `mapstructure:"driver"` // sqlite or postgres
	Path        string        `mapstructure:"path"`
	DSN         string        `mapstructure:"dsn"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	// ConnectTimeout bounds the retry loop while the database comes up.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type UniverseConfig struct {
	AssetsFile     string `mapstructure:"assets_file"`
	CurrenciesFile string `mapstructure:"currencies_file"`
}

type SyncConfig struct {
	DailyStale          time.Duration `mapstructure:"daily_stale"`
	IntradayStale       time.Duration `mapstructure:"intraday_stale"`
	DailyOverlap        time.Duration `mapstructure:"daily_overlap"`
	IntradayOverlap     time.Duration `mapstructure:"intraday_overlap"`
	DailyLookbackMonths int           `mapstructure:"daily_lookback_months"`
	IntradayLookback    time.Duration `mapstructure:"intraday_lookback"`
	IntradayMaxLookback time.Duration `mapstructure:"intraday_max_lookback"`
	ProviderTimeout     time.Duration `mapstructure:"provider_timeout"`
	AutoCleanupIntraday bool          `mapstructure:"auto_cleanup_intraday"`
}

type NamesConfig struct {
	FreshnessHorizon   time.Duration `mapstructure:"freshness_horizon"`
	FailedRetryHorizon time.Duration `mapstructure:"failed_retry_horizon"`
	MaxWorkers         int           `mapstructure:"max_workers"`
	Delay              time.Duration `mapstructure:"delay"`
}

type RetentionConfig struct {
	Intraday time.Duration `mapstructure:"intraday"`
	Names    time.Duration `mapstructure:"names"`
}

type ProviderConfig struct {
	Chain      []string         `mapstructure:"chain"`
	Twelvedata TwelvedataConfig `mapstructure:"twelvedata"`
	// YahooRateLimit caps Yahoo requests per minute; zero disables pacing.
	YahooRateLimit int `mapstructure:"yahoo_rate_limit"`
}

type TwelvedataConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"` // empty disables the cache
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Addr      string        `mapstructure:"addr"`
	SyncEvery time.Duration `mapstructure:"sync_every"`
	CleanupAt string        `mapstructure:"cleanup_at"` // HH:MM, UTC
}

// FXRange is the open interval a pair's latest close is expected to lie in.
type FXRange struct {
	Symbol string  `mapstructure:"symbol"`
	Min    float64 `mapstructure:"min"`
	Max    float64 `mapstructure:"max"`
}

const (
	ProviderYahoo      = "yahoo"
	ProviderTwelvedata = "twelvedata"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/market_data.db")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.busy_timeout", 5*time.Second)
	v.SetDefault("store.connect_timeout", 30*time.Second)

	v.SetDefault("universe.assets_file", "data/files/assets.txt")
	v.SetDefault("universe.currencies_file", "data/files/currencies.txt")

	v.SetDefault("sync.daily_stale", 24*time.Hour)
	v.SetDefault("sync.intraday_stale", time.Hour)
	v.SetDefault("sync.daily_overlap", 24*time.Hour)
	v.SetDefault("sync.intraday_overlap", time.Hour)
	v.SetDefault("sync.daily_lookback_months", 15)
	v.SetDefault("sync.intraday_lookback", 30*24*time.Hour)
	v.SetDefault("sync.intraday_max_lookback", 30*24*time.Hour)
	v.SetDefault("sync.provider_timeout", 30*time.Second)
	v.SetDefault("sync.auto_cleanup_intraday", true)

	v.SetDefault("names.freshness_horizon", 30*24*time.Hour)
	v.SetDefault("names.failed_retry_horizon", 24*time.Hour)
	v.SetDefault("names.max_workers", 3)
	v.SetDefault("names.delay", 200*time.Millisecond)

	v.SetDefault("retention.intraday", 7*24*time.Hour)
	v.SetDefault("retention.names", 30*24*time.Hour)

	v.SetDefault("provider.chain", []string{ProviderYahoo})
	v.SetDefault("provider.yahoo_rate_limit", 0)
	v.SetDefault("provider.twelvedata.api_key", "")
	v.SetDefault("provider.twelvedata.base_url", "https://api.twelvedata.com")
	v.SetDefault("provider.twelvedata.timeout", 10*time.Second)
	v.SetDefault("provider.twelvedata.rate_limit", 8)
	v.SetDefault("provider.twelvedata.rate_interval", time.Minute)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.sync_every", time.Hour)
	v.SetDefault("server.cleanup_at", "01:00")

	v.SetDefault("fx_ranges", []map[string]any{
		{"symbol": "EURUSD=X", "min": 1.05, "max": 1.25},
		{"symbol": "GBPUSD=X", "min": 1.20, "max": 1.45},
		{"symbol": "USDHUF=X", "min": 300.0, "max": 420.0},
	})
}

// Load reads path (skipped when empty), applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The unprefixed name is the one Twelve Data documents.
	if err := v.BindEnv("provider.twelvedata.api_key", EnvPrefix+"_PROVIDER_TWELVEDATA_API_KEY", "TWELVE_DATA_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	chain := c.Provider.Chain[:0]
	for _, p := range c.Provider.Chain {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			chain = append(chain, p)
		}
	}
	c.Provider.Chain = chain
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			add("store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DSN == "" {
			add("store.dsn is required for postgres")
		}
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}

	positive := map[string]time.Duration{
		"sync.daily_stale":           c.Sync.DailyStale,
		"sync.intraday_stale":        c.Sync.IntradayStale,
		"sync.intraday_lookback":     c.Sync.IntradayLookback,
		"sync.provider_timeout":      c.Sync.ProviderTimeout,
		"names.freshness_horizon":    c.Names.FreshnessHorizon,
		"names.failed_retry_horizon": c.Names.FailedRetryHorizon,
		"retention.intraday":         c.Retention.Intraday,
		"retention.names":            c.Retention.Names,
		"server.sync_every":          c.Server.SyncEvery,
	}
	for _, key := range slices.Sorted(maps.Keys(positive)) {
		if positive[key] <= 0 {
			add("%s must be positive", key)
		}
	}
	if c.Sync.DailyOverlap < 0 || c.Sync.IntradayOverlap < 0 {
		add("sync overlaps must not be negative")
	}
	if c.Sync.DailyLookbackMonths <= 0 {
		add("sync.daily_lookback_months must be positive")
	}
	if c.Names.MaxWorkers <= 0 {
		add("names.max_workers must be positive")
	}
	if c.Names.Delay < 0 {
		add("names.delay must not be negative")
	}

	if len(c.Provider.Chain) == 0 {
		add("provider.chain must name at least one provider")
	}
	for _, p := range c.Provider.Chain {
		switch p {
		case ProviderYahoo:
		case ProviderTwelvedata:
			if c.Provider.Twelvedata.APIKey == "" {
				add("provider.twelvedata.api_key is required when twelvedata is in the chain")
			}
		default:
			add("unknown provider %q", p)
		}
	}

	if _, err := time.Parse("15:04", c.Server.CleanupAt); err != nil {
		add("server.cleanup_at must be HH:MM, got %q", c.Server.CleanupAt)
	}

	for _, r := range c.FXRanges {
		if r.Symbol == "" || r.Min >= r.Max {
			add("fx range %q needs a symbol and min < max", r.Symbol)
		}
	}
	return errors.Join(errs...)
}
