package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptocandles/internal/backtest"
	"cryptocandles/internal/config"
	"cryptocandles/internal/feed"
	"cryptocandles/internal/follow"
	"cryptocandles/internal/gateway/analyzer"
	"cryptocandles/internal/gateway/notifier"
	"cryptocandles/internal/logger"
	"cryptocandles/internal/pkg/randx"
	"cryptocandles/internal/store/sqlite"
	apihttp "cryptocandles/internal/transport/http/api"
)

type AppBuilder struct {
	cfg  *config.Config
	rand randx.Source
	now  func() time.Time

	storeFn       func(context.Context, config.StoreConfig) (*sqlite.SqliteStore, error)
	marketStackFn func(context.Context, *config.Config, randx.Source, func() time.Time) (*MarketStack, error)
	followStoreFn func(context.Context, config.FollowConfig, *sqlite.SqliteStore) (follow.Store, func() error, error)
	analyzerFn    func(config.AIConfig, analyzer.Recorder) *analyzer.ChartAnalyzer
	notifierFn    func(config.TelegramConfig) notifier.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

// WithRand 固定随机源，用于可复现的演示数据与测试。
func WithRand(rnd randx.Source) AppBuilderOption {
	return func(b *AppBuilder) { b.rand = rnd }
}

func WithClock(now func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) { b.now = now }
}

// WithMarketStack 替换行情栈构建函数，测试中避免真实网络。
func WithMarketStack(fn func(context.Context, *config.Config, randx.Source, func() time.Time) (*MarketStack, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.marketStackFn = fn }
}

func WithStore(fn func(context.Context, config.StoreConfig) (*sqlite.SqliteStore, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.storeFn = fn }
}

// WithNotifier 替换推送通道构建函数。
func WithNotifier(fn func(config.TelegramConfig) notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) { b.notifierFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		now:           time.Now,
		storeFn:       buildStore,
		marketStackFn: buildMarketStack,
		followStoreFn: buildFollowStore,
		analyzerFn:    buildChartAnalyzer,
		notifierFn:    buildNotifier,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.rand == nil {
		b.rand = randx.NewTimeSeeded()
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	st, err := b.storeFn(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	closers = append(closers, st.Close)
	if err := b.seed(ctx, st); err != nil {
		return nil, err
	}

	marketStack, err := b.marketStackFn(ctx, cfg, b.rand, b.now)
	if err != nil {
		return nil, err
	}

	followStore, closeFollow, err := b.followStoreFn(ctx, cfg.Follow, st)
	if err != nil {
		return nil, fmt.Errorf("初始化关注存储失败: %w", err)
	}
	if closeFollow != nil {
		closers = append(closers, closeFollow)
	}
	logger.Infof("✓ 关注存储: %s", cfg.Follow.Backend)

	sim := backtest.NewSimulator(b.rand, b.now, backtest.SimulatorConfig{
		Latency:     time.Duration(cfg.Backtest.LatencyMillis) * time.Millisecond,
		TradeSample: cfg.Backtest.TradeSample,
	})
	chart := b.analyzerFn(cfg.AI, st)

	var community apihttp.CommunityStore = st
	notifyEnabled := false
	if n := b.notifierFn(cfg.Notify.Telegram); n != nil {
		sn := newSignalNotifier(st, n)
		community = sn
		notifyEnabled = true
		closers = append(closers, sn.Wait)
	}

	server := apihttp.NewServer(apihttp.ServerConfig{
		Addr:           cfg.App.HTTPAddr,
		CORSOrigins:    cfg.App.CORSOrigins,
		DefaultCandles: cfg.Market.DefaultCandles,
		Prices:         marketStack.Prices,
		Candles:        marketStack.Candles,
		Signals:        feed.NewSignalFeed(st),
		Community:      community,
		Follows:        follow.NewRegistry(followStore, st),
		Backtests:      sim,
		Analyzer:       chart,
		Analyses:       st,
	})

	return &App{
		cfg:     cfg,
		http:    server,
		prices:  marketStack.Prices,
		tables:  marketStack.TablesFile,
		closers: closers,
		Summary: buildSummary(cfg, marketStack, chart.Enabled(), notifyEnabled),
	}, nil
}

func (b *AppBuilder) seed(ctx context.Context, st *sqlite.SqliteStore) error {
	data := sqlite.DefaultSeedData()
	if path := strings.TrimSpace(b.cfg.Store.SeedPath); path != "" {
		loaded, err := sqlite.LoadSeedFile(path)
		if err != nil {
			return fmt.Errorf("读取种子文件失败: %w", err)
		}
		data = loaded
	}
	seeded, err := st.Seed(ctx, sqlite.SeedOptions{
		Data:    data,
		Signals: b.cfg.Store.SeedSignals,
		Rand:    b.rand,
	})
	if err != nil {
		return fmt.Errorf("写入种子数据失败: %w", err)
	}
	if !seeded {
		logger.Debugf("存储已有数据，跳过种子写入")
	}
	return nil
}

func buildStore(_ context.Context, cfg config.StoreConfig) (*sqlite.SqliteStore, error) {
	st, err := sqlite.NewSqliteStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ SQLite 存储: %s", cfg.Path)
	return st, nil
}

func buildFollowStore(ctx context.Context, cfg config.FollowConfig, st *sqlite.SqliteStore) (follow.Store, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return follow.NewMemoryStore(), nil, nil
	case "redis":
		rs, err := follow.NewRedisStore(ctx, follow.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return st, nil, nil
	}
}
