package config

import (
	"fmt"
	"math"
	"strings"
)

var knownSources = map[string]bool{"binance": true, "bitget": true, "eastmoney": true, "gate": true}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Export.validate(); err != nil {
		return err
	}
	return c.Notify.validate()
}

func (n *NotifyConfig) validate() error {
	if !n.TelegramEnabled() {
		return nil
	}
	if strings.Count(n.TelegramAPI, "%s") != 2 {
		return fmt.Errorf("notify.telegram_api must contain two %%s placeholders")
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	if a.ClientRatePerMin < 0 {
		return fmt.Errorf("app.client_rate_per_min must be >= 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if !knownSources[m.DefaultSource] {
		return fmt.Errorf("market.default_source %q is not one of binance/bitget/eastmoney/gate", m.DefaultSource)
	}
	if m.MaxBars <= 0 || m.MaxBars > 1000 {
		return fmt.Errorf("market.max_bars must be within 1..1000")
	}
	if m.RateLimitPerMin < 0 {
		return fmt.Errorf("market.rate_limit_per_min must be >= 0")
	}
	if m.BreakerThreshold < 0 || m.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("market breaker settings must be >= 0")
	}
	if m.CacheTTLSeconds < 0 || m.CacheMaxEntries < 0 {
		return fmt.Errorf("market cache settings must be >= 0")
	}
	if m.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("market.http_timeout_seconds must be > 0")
	}
	switch m.CacheBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(m.RedisAddr) == "" {
			return fmt.Errorf("market.redis_addr is required when cache_backend is redis")
		}
		if m.RedisDB < 0 {
			return fmt.Errorf("market.redis_db must be >= 0")
		}
	default:
		return fmt.Errorf("market.cache_backend must be memory or redis, got %q", m.CacheBackend)
	}
	if m.CatalogTTLMinutes < 0 {
		return fmt.Errorf("market.catalog_ttl_minutes must be >= 0")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	for name, v := range map[string]float64{"fee_bps": b.FeeBps, "slippage_bps": b.SlippageBps} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("backtest.%s must be a finite value >= 0", name)
		}
	}
	if b.FastLen <= 0 || b.SlowLen <= 0 {
		return fmt.Errorf("backtest.fast_len/slow_len must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(b.MAKind)) {
	case "ema", "sma":
	default:
		return fmt.Errorf("backtest.ma_kind must be ema or sma, got %q", b.MAKind)
	}
	if b.SweepConcurrency <= 0 {
		return fmt.Errorf("backtest.sweep_concurrency must be > 0")
	}
	return nil
}

func (e *ExportConfig) validate() error {
	if e.PricePrecision < 0 || e.EquityPrecision < 0 {
		return fmt.Errorf("export precision must be >= 0")
	}
	return nil
}
