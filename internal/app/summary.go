package app

import (
	"fmt"
	"strings"

	"chartlab/internal/config"
	"chartlab/internal/market"
	"chartlab/internal/preset"
)

// StartupSummary 是启动时打印的配置摘要。
type StartupSummary struct {
	Env      string
	HTTPAddr string
	Metrics  bool
	Telegram bool
	Market   MarketSummary
	Backtest BacktestSummary
}

type MarketSummary struct {
	Sources       []string
	DefaultSource string
	MaxBars       int
	CacheBackend  string
	CacheTTL      int
	StoreDir      string
	CatalogPath   string
	Breaker       int
	BreakerCool   int
}

type BacktestSummary struct {
	FastLen     int
	SlowLen     int
	MAKind      string
	FeeBps      float64
	SlippageBps float64
	Presets     []string
}

func buildSummary(cfg *config.Config, provider *market.Provider, presets *preset.Registry) *StartupSummary {
	s := &StartupSummary{
		Env:      cfg.App.Env,
		HTTPAddr: cfg.App.HTTPAddr,
		Metrics:  cfg.App.MetricsEnabled,
		Telegram: cfg.Notify.TelegramEnabled(),
		Market: MarketSummary{
			MaxBars:      cfg.Market.MaxBars,
			CacheBackend: cfg.Market.CacheBackend,
			CacheTTL:     cfg.Market.CacheTTLSeconds,
			StoreDir:     cfg.Market.StoreDir,
			CatalogPath:  cfg.Market.CatalogPath,
			Breaker:      cfg.Market.BreakerThreshold,
			BreakerCool:  cfg.Market.BreakerCooldownSeconds,
		},
		Backtest: BacktestSummary{
			FastLen:     cfg.Backtest.FastLen,
			SlowLen:     cfg.Backtest.SlowLen,
			MAKind:      cfg.Backtest.MAKind,
			FeeBps:      cfg.Backtest.FeeBps,
			SlippageBps: cfg.Backtest.SlippageBps,
		},
	}
	if provider != nil {
		s.Market.Sources = provider.Sources()
		s.Market.DefaultSource = provider.DefaultSource()
	}
	if presets != nil {
		for _, p := range presets.List() {
			s.Backtest.Presets = append(s.Backtest.Presets, p.Name)
		}
	}
	return s
}

// String 渲染多行摘要，交给 logger.InfoBlock 逐行输出。
func (s *StartupSummary) String() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	line("%s", strings.Repeat("=", 60))
	line("启动配置摘要 (STARTUP SUMMARY)  env=%s", s.Env)
	line("%s", strings.Repeat("=", 60))

	line("[行情 (MARKET)]")
	line("  数据源: %s (默认 %s)", formatList(s.Market.Sources), s.Market.DefaultSource)
	line("  最大根数: %d", s.Market.MaxBars)
	if s.Market.CacheTTL > 0 {
		line("  缓存: %s ttl=%ds", s.Market.CacheBackend, s.Market.CacheTTL)
	} else {
		line("  缓存: 关闭")
	}
	line("  本地 K 线库: %s", orDash(s.Market.StoreDir))
	line("  交易对目录: %s", orDash(s.Market.CatalogPath))
	if s.Market.Breaker > 0 {
		line("  熔断: 连续失败 %d 次, 冷却 %ds", s.Market.Breaker, s.Market.BreakerCool)
	} else {
		line("  熔断: 关闭")
	}

	line("[回测 (BACKTEST)]")
	line("  默认参数: %s(%d,%d) fee=%.2fbps slip=%.2fbps",
		s.Backtest.MAKind, s.Backtest.FastLen, s.Backtest.SlowLen, s.Backtest.FeeBps, s.Backtest.SlippageBps)
	line("  预设: %s", formatList(s.Backtest.Presets))

	line("[服务 (HTTP)]")
	line("  监听: %s", s.HTTPAddr)
	line("  /metrics: %t", s.Metrics)
	line("  Telegram 告警: %t", s.Telegram)
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
