package config

import (
	"os"
	"strings"
)

// EnvTelegramToken 在配置文件未填写 token 时提供 Telegram Bot token。
const EnvTelegramToken = "CHARTLAB_TELEGRAM_TOKEN"

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogFormat     = "text"
	defaultAppHTTPAddr      = ":9991"
	defaultClientRatePerMin = 120

	defaultMarketSource     = "binance"
	defaultMarketMaxBars    = 200
	defaultMarketRatePerMin = 60
	defaultMarketCacheTTL   = 30
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 60
	defaultMarketCacheMax   = 256
	defaultMarketStoreDir   = "data/candles"
	defaultBinanceREST      = "https://fapi.binance.com"
	defaultBitgetREST       = "https://api.bitget.com"
	defaultBitgetProduct    = "UMCBL"
	defaultEastmoneyREST    = "https://push2his.eastmoney.com"
	defaultGateREST         = "https://api.gateio.ws/api/v4"
	defaultHTTPTimeout      = 10
	defaultCacheBackend     = "memory"
	defaultRedisAddr        = "127.0.0.1:6379"
	defaultRedisPrefix      = "chartlab:candles:"
	defaultCatalogPath      = "data/catalog.db"
	defaultCatalogTTL       = 360

	defaultFeeBps           = 6
	defaultSlippageBps      = 5
	defaultFastLen          = 12
	defaultSlowLen          = 26
	defaultMAKind           = "ema"
	defaultSweepConcurrency = 4
	defaultPresetsPath      = "configs/presets.yaml"

	defaultTelegramAPI = "https://api.telegram.org/bot%s/%s"

	defaultPricePrecision  = 2
	defaultEquityPrecision = 6
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Export.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("notify.telegram_api", &n.TelegramAPI, defaultTelegramAPI),
	)
	n.TelegramToken = strings.TrimSpace(n.TelegramToken)
	if n.TelegramToken == "" {
		n.TelegramToken = strings.TrimSpace(os.Getenv(EnvTelegramToken))
	}
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		intFieldDefault("app.client_rate_per_min", &a.ClientRatePerMin, defaultClientRatePerMin),
		boolFieldDefault("app.metrics_enabled", &a.MetricsEnabled, true),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.default_source", &m.DefaultSource, defaultMarketSource),
		intFieldDefault("market.max_bars", &m.MaxBars, defaultMarketMaxBars),
		intFieldDefault("market.rate_limit_per_min", &m.RateLimitPerMin, defaultMarketRatePerMin),
		intFieldDefault("market.breaker_threshold", &m.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("market.breaker_cooldown_seconds", &m.BreakerCooldownSeconds, defaultBreakerCooldown),
		intFieldDefault("market.cache_ttl_seconds", &m.CacheTTLSeconds, defaultMarketCacheTTL),
		intFieldDefault("market.cache_max_entries", &m.CacheMaxEntries, defaultMarketCacheMax),
		stringFieldDefault("market.store_dir", &m.StoreDir, defaultMarketStoreDir),
		stringFieldDefault("market.binance_rest", &m.BinanceREST, defaultBinanceREST),
		stringFieldDefault("market.bitget_rest", &m.BitgetREST, defaultBitgetREST),
		stringFieldDefault("market.bitget_product_type", &m.BitgetProductType, defaultBitgetProduct),
		stringFieldDefault("market.eastmoney_rest", &m.EastmoneyREST, defaultEastmoneyREST),
		stringFieldDefault("market.gate_rest", &m.GateREST, defaultGateREST),
		intFieldDefault("market.http_timeout_seconds", &m.HTTPTimeoutSeconds, defaultHTTPTimeout),
		stringFieldDefault("market.cache_backend", &m.CacheBackend, defaultCacheBackend),
		stringFieldDefault("market.redis_addr", &m.RedisAddr, defaultRedisAddr),
		stringFieldDefault("market.redis_prefix", &m.RedisPrefix, defaultRedisPrefix),
		stringFieldDefault("market.catalog_path", &m.CatalogPath, defaultCatalogPath),
		intFieldDefault("market.catalog_ttl_minutes", &m.CatalogTTLMinutes, defaultCatalogTTL),
	)
	m.DefaultSource = strings.ToLower(strings.TrimSpace(m.DefaultSource))
	m.CacheBackend = strings.ToLower(strings.TrimSpace(m.CacheBackend))
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("backtest.fee_bps", &b.FeeBps, defaultFeeBps),
		floatFieldDefault("backtest.slippage_bps", &b.SlippageBps, defaultSlippageBps),
		intFieldDefault("backtest.fast_len", &b.FastLen, defaultFastLen),
		intFieldDefault("backtest.slow_len", &b.SlowLen, defaultSlowLen),
		stringFieldDefault("backtest.ma_kind", &b.MAKind, defaultMAKind),
		intFieldDefault("backtest.sweep_concurrency", &b.SweepConcurrency, defaultSweepConcurrency),
		stringFieldDefault("backtest.presets_path", &b.PresetsPath, defaultPresetsPath),
	)
}

func (e *ExportConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("export.price_precision", &e.PricePrecision, defaultPricePrecision),
		intFieldDefault("export.equity_precision", &e.EquityPrecision, defaultEquityPrecision),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

// intFieldDefault 未显式设置的字段直接取默认值；显式写了 0 的保持 0。
func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil },
		apply: func() { *target = def },
	}
}
