package config

import "strings"

// Config 是 chartlab 的主配置载体。
type Config struct {
	App      AppConfig      `yaml:"app"`
	Market   MarketConfig   `yaml:"market"`
	Backtest BacktestConfig `yaml:"backtest"`
	Export   ExportConfig   `yaml:"export"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	// LogFormat 为 text 或 json。
	LogFormat string `yaml:"log_format"`
	LogPath   string `yaml:"log_path"`
	HTTPAddr  string `yaml:"http_addr"`
	// ClientRatePerMin 限制单个客户端每分钟的 API 请求数，0 表示不限。
	ClientRatePerMin int  `yaml:"client_rate_per_min"`
	MetricsEnabled   bool `yaml:"metrics_enabled"`
}

// MarketConfig 控制行情拉取、缓存与本地落盘。
type MarketConfig struct {
	DefaultSource      string `yaml:"default_source"`
	MaxBars            int    `yaml:"max_bars"`
	RateLimitPerMin    int    `yaml:"rate_limit_per_min"`
	CacheTTLSeconds    int    `yaml:"cache_ttl_seconds"`
	CacheMaxEntries    int    `yaml:"cache_max_entries"`
	StoreDir           string `yaml:"store_dir"`
	BinanceREST        string `yaml:"binance_rest"`
	BitgetREST         string `yaml:"bitget_rest"`
	BitgetProductType  string `yaml:"bitget_product_type"`
	EastmoneyREST      string `yaml:"eastmoney_rest"`
	GateREST           string `yaml:"gate_rest"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
	ProxyURL           string `yaml:"proxy_url"`

	// CacheBackend 为 memory 或 redis。
	CacheBackend  string `yaml:"cache_backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// BreakerThreshold 为单个数据源连续失败多少次后熔断，0 表示关闭。
	BreakerThreshold       int `yaml:"breaker_threshold"`
	BreakerCooldownSeconds int `yaml:"breaker_cooldown_seconds"`

	CatalogPath       string `yaml:"catalog_path"`
	CatalogTTLMinutes int    `yaml:"catalog_ttl_minutes"`
}

// BacktestConfig 为回测请求提供默认参数。
type BacktestConfig struct {
	FeeBps           float64 `yaml:"fee_bps"`
	SlippageBps      float64 `yaml:"slippage_bps"`
	FastLen          int     `yaml:"fast_len"`
	SlowLen          int     `yaml:"slow_len"`
	MAKind           string  `yaml:"ma_kind"`
	SweepConcurrency int     `yaml:"sweep_concurrency"`
	PresetsPath      string  `yaml:"presets_path"`
}

// ExportConfig 控制 CSV 导出的小数位。
type ExportConfig struct {
	PricePrecision  int `yaml:"price_precision"`
	EquityPrecision int `yaml:"equity_precision"`
}

// NotifyConfig 配置数据源熔断告警。token 或 chat_id 为空时不推送。
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	// TelegramAPI 为 Bot API 地址模板，需包含两个 %s（token 与方法名）。
	TelegramAPI string `yaml:"telegram_api"`
}

// TelegramEnabled 报告是否配置了 Telegram 推送。
func (n NotifyConfig) TelegramEnabled() bool {
	return strings.TrimSpace(n.TelegramToken) != "" && n.TelegramChatID != 0
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
