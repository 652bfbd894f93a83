package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chartlab/internal/backtest"
	"chartlab/internal/chart"
	"chartlab/internal/market"
	"chartlab/internal/metrics"
	"chartlab/internal/preset"

	"github.com/gin-gonic/gin"
)

// CandleProvider 提供规范化后的 K 线序列。
type CandleProvider interface {
	Candles(ctx context.Context, q market.Query) (market.Series, error)
}

// SymbolCatalog 提供交易对检索。
type SymbolCatalog interface {
	Symbols(ctx context.Context, source, query string, limit int) ([]market.Instrument, error)
}

// PresetSource 提供命名的回测预设。
type PresetSource interface {
	Get(name string) (preset.Preset, bool)
	List() []preset.Preset
}

// PNGRenderer 把图表输入渲染成 PNG。
type PNGRenderer func(ctx context.Context, in chart.Input) ([]byte, error)

// Defaults 是请求未指定时使用的参数。
type Defaults struct {
	Interval         string
	Params           backtest.Params
	Costs            backtest.Costs
	SweepConcurrency int
	MaxSweepCombos   int
	PricePrecision   int
	EquityPrecision  int
}

// Config 描述 HTTP Server 的依赖。
type Config struct {
	Addr             string
	Candles          CandleProvider
	Catalog          SymbolCatalog
	Presets          PresetSource
	Metrics          *metrics.Metrics
	ClientRatePerMin int
	Defaults         Defaults
	RenderPNG        PNGRenderer
}

// Server 提供行情、指标、回测与图表的 HTTP API。
type Server struct {
	addr      string
	router    *gin.Engine
	candles   CandleProvider
	catalog   SymbolCatalog
	presets   PresetSource
	metrics   *metrics.Metrics
	limiter   *clientLimiter
	defaults  Defaults
	renderPNG PNGRenderer
}

// NewServer 构建 HTTP Server。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Candles == nil {
		return nil, errors.New("candle provider 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	cfg.Defaults = cfg.Defaults.withFallbacks()
	if cfg.RenderPNG == nil {
		cfg.RenderPNG = chart.RenderPNG
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	s := &Server{
		addr:      cfg.Addr,
		router:    router,
		candles:   cfg.Candles,
		catalog:   cfg.Catalog,
		presets:   cfg.Presets,
		metrics:   cfg.Metrics,
		defaults:  cfg.Defaults,
		renderPNG: cfg.RenderPNG,
	}
	if cfg.ClientRatePerMin > 0 {
		s.limiter = newClientLimiter(cfg.ClientRatePerMin)
	}
	router.Use(gin.Recovery(), requestLogger(), s.observeRequests())
	s.registerRoutes()
	return s, nil
}

func (d Defaults) withFallbacks() Defaults {
	if d.Interval == "" {
		d.Interval = "1H"
	}
	if d.Params.FastLen <= 0 {
		d.Params.FastLen = 12
	}
	if d.Params.SlowLen <= 0 {
		d.Params.SlowLen = 26
	}
	if d.Params.Kind == "" {
		d.Params.Kind = backtest.MAKindEMA
	}
	if d.SweepConcurrency <= 0 {
		d.SweepConcurrency = 4
	}
	if d.MaxSweepCombos <= 0 {
		d.MaxSweepCombos = 400
	}
	return d
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api", s.rateLimit())
	api.GET("/candles", s.handleCandles)
	api.GET("/indicators", s.handleIndicators)
	api.GET("/indicators/summary", s.handleSummary)
	api.GET("/presets", s.handlePresets)
	api.GET("/symbols", s.handleSymbols)
	api.GET("/meta", s.handleMeta)
	api.POST("/backtest", s.handleBacktest)
	api.POST("/backtest/sweep", s.handleSweep)
	api.GET("/backtest/export", s.handleExport)

	page := s.router.Group("", s.rateLimit())
	page.GET("/chart", s.handleChart)
	page.GET("/chart.png", s.handleChartPNG)
}

// Handler 返回底层 http.Handler，便于测试或嵌入。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
