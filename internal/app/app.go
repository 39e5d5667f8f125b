package app

import (
	"context"
	"errors"
	"fmt"

	"cryptocandles/internal/config"
	"cryptocandles/internal/logger"
	"cryptocandles/internal/market"
	apihttp "cryptocandles/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：HTTP 服务、行情后台刷新与静态表热更新。
type App struct {
	cfg     *config.Config
	http    *apihttp.Server
	prices  *market.PriceService
	tables  *market.TablesFile
	closers []func() error
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动所有后台任务，直到 ctx 取消或任一任务出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.prices != nil {
		group.Go(func() error {
			a.prices.Start(ctx)
			return nil
		})
	}

	if a.tables != nil {
		group.Go(func() error {
			a.tables.Watch()
			logger.Infof("✓ 静态行情表热更新已启用")
			<-ctx.Done()
			return nil
		})
	}

	return group.Wait()
}

// Close 释放存储等资源，可重复调用。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
