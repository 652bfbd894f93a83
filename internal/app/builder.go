package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chartlab/internal/backtest"
	"chartlab/internal/cache"
	"chartlab/internal/config"
	"chartlab/internal/gateway/binance"
	"chartlab/internal/gateway/bitget"
	"chartlab/internal/gateway/eastmoney"
	"chartlab/internal/gateway/gate"
	"chartlab/internal/gateway/notifier"
	"chartlab/internal/logger"
	"chartlab/internal/market"
	"chartlab/internal/metrics"
	"chartlab/internal/pkg/circuit"
	"chartlab/internal/preset"
	"chartlab/internal/store/candlestore"
	"chartlab/internal/store/catalog"
	apihttp "chartlab/internal/transport/http/api"
)

const redisPingTimeout = 3 * time.Second

func provideSources(cfg *config.Config) ([]market.Source, error) {
	m := cfg.Market
	timeout := time.Duration(m.HTTPTimeoutSeconds) * time.Second
	bn, err := binance.New(binance.Config{RESTBaseURL: m.BinanceREST, HTTPTimeout: timeout, ProxyURL: m.ProxyURL})
	if err != nil {
		return nil, fmt.Errorf("init binance source: %w", err)
	}
	gt, err := gate.New(gate.Config{RESTBaseURL: m.GateREST, HTTPTimeout: timeout, ProxyURL: m.ProxyURL})
	if err != nil {
		return nil, fmt.Errorf("init gate source: %w", err)
	}
	return []market.Source{
		bn,
		bitget.New(bitget.Config{RESTBaseURL: m.BitgetREST, ProductType: m.BitgetProductType, HTTPTimeout: timeout}),
		eastmoney.New(eastmoney.Config{RESTBaseURL: m.EastmoneyREST, HTTPTimeout: timeout}),
		gt,
	}, nil
}

// provideCandleCache 按配置选择内存或 Redis 缓存；cache_ttl_seconds 为 0 时不缓存。
func provideCandleCache(ctx context.Context, cfg *config.Config) (market.CandleCache, func(), error) {
	m := cfg.Market
	ttl := time.Duration(m.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		return nil, func() {}, nil
	}
	if m.CacheBackend != "redis" {
		return cache.NewCandles(ttl, m.CacheMaxEntries), func() {}, nil
	}
	rc := cache.NewRedisCandles(cache.RedisConfig{
		Addr:     m.RedisAddr,
		Password: m.RedisPassword,
		DB:       m.RedisDB,
		Prefix:   m.RedisPrefix,
	}, ttl)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		logger.Warnf("[app] Redis %s 暂不可用，缓存按未命中处理: %v", m.RedisAddr, err)
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			logger.Warnf("[app] 关闭 Redis 失败: %v", err)
		}
	}, nil
}

// provideCandleStore 在 store_dir 为空时返回 nil，即关闭本地回退。
func provideCandleStore(cfg *config.Config) (*candlestore.Store, func(), error) {
	dir := strings.TrimSpace(cfg.Market.StoreDir)
	if dir == "" {
		return nil, func() {}, nil
	}
	st, err := candlestore.New(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init candle store: %w", err)
	}
	return st, func() {
		if err := st.Close(); err != nil {
			logger.Warnf("[app] 关闭 K 线库失败: %v", err)
		}
	}, nil
}

func provideMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.App.MetricsEnabled {
		return nil
	}
	return metrics.New(true)
}

// provideAlerter 总是返回告警器；Telegram 未配置或 token 校验失败时只写日志。
func provideAlerter(cfg *config.Config) (*notifier.Alerter, func(), error) {
	n := cfg.Notify
	var sender notifier.TextNotifier
	if n.TelegramEnabled() {
		tg, err := notifier.NewTelegram(notifier.TelegramConfig{
			Token:       n.TelegramToken,
			ChatID:      n.TelegramChatID,
			APIEndpoint: n.TelegramAPI,
		})
		if err != nil {
			logger.Warnf("[app] Telegram 告警不可用，仅写日志: %v", err)
		} else {
			sender = tg
		}
	}
	alerter := notifier.NewAlerter(sender)
	return alerter, alerter.Wait, nil
}

func provideProvider(cfg *config.Config, sources []market.Source, c market.CandleCache, st *candlestore.Store, m *metrics.Metrics, alerter *notifier.Alerter) (*market.Provider, error) {
	opts := []market.ProviderOption{
		market.WithBreakerListener(func(source string, from, to circuit.State) {
			m.SetBreakerState(source, to)
			alerter.BreakerChanged(source, from, to)
		}),
	}
	if c != nil {
		opts = append(opts, market.WithCache(c))
	}
	if st != nil {
		opts = append(opts, market.WithStore(st))
	}
	if m != nil {
		opts = append(opts, market.WithObserver(m))
	}
	return market.NewProvider(market.ProviderConfig{
		DefaultSource:    cfg.Market.DefaultSource,
		MaxBars:          cfg.Market.MaxBars,
		RateLimitPerMin:  cfg.Market.RateLimitPerMin,
		BreakerThreshold: cfg.Market.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.Market.BreakerCooldownSeconds) * time.Second,
	}, sources, opts...)
}

// provideCatalog 在 catalog_path 为空时返回 nil，/api/symbols 随之返回 503。
func provideCatalog(cfg *config.Config, provider *market.Provider) (*catalog.Service, func(), error) {
	path := strings.TrimSpace(cfg.Market.CatalogPath)
	if path == "" {
		return nil, func() {}, nil
	}
	st, err := catalog.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	ttl := time.Duration(cfg.Market.CatalogTTLMinutes) * time.Minute
	return catalog.NewService(st, provider, ttl), func() {
		if err := st.Close(); err != nil {
			logger.Warnf("[app] 关闭交易对目录失败: %v", err)
		}
	}, nil
}

func providePresets(cfg *config.Config) (*preset.Registry, error) {
	path := strings.TrimSpace(cfg.Backtest.PresetsPath)
	if path == "" {
		return nil, nil
	}
	reg, err := preset.NewRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	return reg, nil
}

func provideServer(cfg *config.Config, provider *market.Provider, cat *catalog.Service, presets *preset.Registry, m *metrics.Metrics) (*apihttp.Server, error) {
	kind, err := backtest.ParseMAKind(cfg.Backtest.MAKind)
	if err != nil {
		return nil, err
	}
	sc := apihttp.Config{
		Addr:             cfg.App.HTTPAddr,
		Candles:          provider,
		Metrics:          m,
		ClientRatePerMin: cfg.App.ClientRatePerMin,
		Defaults: apihttp.Defaults{
			Params:           backtest.Params{FastLen: cfg.Backtest.FastLen, SlowLen: cfg.Backtest.SlowLen, Kind: kind},
			Costs:            backtest.Costs{FeeBps: cfg.Backtest.FeeBps, SlippageBps: cfg.Backtest.SlippageBps},
			SweepConcurrency: cfg.Backtest.SweepConcurrency,
			PricePrecision:   cfg.Export.PricePrecision,
			EquityPrecision:  cfg.Export.EquityPrecision,
		},
	}
	// 接口字段只在依赖存在时赋值，避免 typed nil。
	if cat != nil {
		sc.Catalog = cat
	}
	if presets != nil {
		sc.Presets = presets
	}
	return apihttp.NewServer(sc)
}
