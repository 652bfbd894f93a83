package app

import (
	"context"
	"fmt"
	"time"

	"chartlab/internal/config"
	"chartlab/internal/logger"
	"chartlab/internal/market"
	"chartlab/internal/preset"
	"chartlab/internal/store/catalog"
	apihttp "chartlab/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

const catalogWarmupTimeout = 30 * time.Second

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务与预设监听。
type App struct {
	cfg      *config.Config
	server   *apihttp.Server
	provider *market.Provider
	catalog  *catalog.Service
	presets  *preset.Registry
	cleanup  func()
	Summary  *StartupSummary
}

func newApp(cfg *config.Config, server *apihttp.Server, provider *market.Provider, cat *catalog.Service, presets *preset.Registry) *App {
	return &App{
		cfg:      cfg,
		server:   server,
		provider: provider,
		catalog:  cat,
		presets:  presets,
		Summary:  buildSummary(cfg, provider, presets),
	}
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	app, cleanup, err := buildAppWithWire(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.cleanup = cleanup
	return app, nil
}

// Run 启动 HTTP 服务与预设热加载，阻塞直到 ctx 取消或服务出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		logger.InfoBlock(a.Summary.String())
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.presets != nil {
		a.presets.Subscribe(func(s preset.Snapshot) {
			logger.Infof("[preset] 已重新加载 %d 个预设 (v%d)", len(s.Presets), s.Version)
		})
		a.presets.Watch()
	}

	if a.catalog != nil {
		group.Go(func() error {
			a.warmCatalog(ctx)
			return nil
		})
	}

	logger.Infof("[app] HTTP 服务监听 %s", a.server.Addr())
	return group.Wait()
}

// warmCatalog 启动时预拉默认数据源的交易对目录，失败只记录日志。
func (a *App) warmCatalog(ctx context.Context) {
	source := a.provider.DefaultSource()
	ctx, cancel := context.WithTimeout(ctx, catalogWarmupTimeout)
	defer cancel()
	n, err := a.catalog.Refresh(ctx, source)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf("[app] 预热 %s 交易对目录失败: %v", source, err)
		}
		return
	}
	logger.Debugf("[app] %s 交易对目录预热完成 (%d)", source, n)
}

// Close 释放缓存、本地库等资源，可重复调用。
func (a *App) Close() {
	if a == nil || a.cleanup == nil {
		return
	}
	a.cleanup()
	a.cleanup = nil
}

// Server 暴露 HTTP Server（用于测试）。
func (a *App) Server() *apihttp.Server {
	if a == nil {
		return nil
	}
	return a.server
}
